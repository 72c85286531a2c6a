package pipeline

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/teslashibe/go-voiceorder/pkg/intent"
)

// Conversation is the append-only turn history shared across runs.
type Conversation struct {
	mu      sync.Mutex
	turns   []intent.Turn
	entropy io.Reader
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Append adds a turn and returns it with its ID assigned.
func (c *Conversation) Append(role intent.Role, text string, at time.Time) intent.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := intent.Turn{
		ID:   ulid.MustNew(ulid.Timestamp(at), c.entropy).String(),
		Role: role,
		Text: text,
		At:   at,
	}
	c.turns = append(c.turns, t)
	return t
}

// Turns returns a copy of the history, oldest first.
func (c *Conversation) Turns() []intent.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]intent.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}
