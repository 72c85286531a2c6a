package pipeline

import (
	"time"

	"github.com/teslashibe/go-voiceorder/pkg/order"
)

// EventType identifies what changed.
type EventType string

const (
	// EventStatus carries a run status change. A nil Run means Idle.
	EventStatus EventType = "status"

	// EventNotice carries a soft notice such as too_short.
	EventNotice EventType = "notice"

	// EventCart carries the cart after it changed.
	EventCart EventType = "cart"
)

// Event is delivered to listeners after every visible change.
type Event struct {
	Type   EventType        `json:"type"`
	Status Status           `json:"status"`
	Run    *Run             `json:"run,omitempty"`
	Notice string           `json:"notice,omitempty"`
	Cart   []order.CartLine `json:"cart,omitempty"`
	Total  order.Price      `json:"total,omitempty"`
	At     time.Time        `json:"at"`
}

// Listener receives events. It must not block or call back into the
// Orchestrator.
type Listener func(Event)
