// Package intent extracts order selections from what the customer said.
//
// A Backend sends the conversation to a language model (or an extraction
// service) and returns its raw, untrusted JSON. The Client validates that
// JSON into a Result before anything reaches the cart:
//
//	{"assistantText": "好的，一杯大杯拿铁", "selections": [
//	    {"name": "拿铁", "quantity": 1, "options": {"cup": "大杯"}}
//	]}
//
// Selections without a usable name are dropped and logged rather than
// failing the turn. Option keys outside the known categories are ignored.
// Catalog resolution is not done here; see package order.
package intent

import (
	"context"
	"time"

	"github.com/teslashibe/go-voiceorder/pkg/order"
)

// Role attributes a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one message in the conversation history.
type Turn struct {
	ID   string    `json:"id"`
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Result is a validated extraction.
type Result struct {
	AssistantText string                `json:"assistantText"`
	Selections    []order.ItemSelection `json:"selections"`

	// Dropped counts selections rejected by validation.
	Dropped int `json:"-"`
}

// Extractor turns the latest user text into a reply and selections.
type Extractor interface {
	Extract(ctx context.Context, history []Turn, text string) (*Result, error)
}

// Backend produces the raw model output for one extraction.
// history excludes text, which is the new user turn.
type Backend interface {
	Complete(ctx context.Context, history []Turn, text string) ([]byte, error)
	Name() string
}
