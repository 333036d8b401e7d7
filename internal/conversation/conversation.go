// Package conversation owns the ordered message log and turn-taking for one
// chat session. A conversation alternates between an idle state and exactly
// one in-flight turn; history is append-only and the crisis flag, once set,
// stays set for the life of the session.
package conversation

import (
	"errors"
	"strings"
	"sync"
)

var (
	ErrInvalidInput = errors.New("message text is empty")
	ErrBusy         = errors.New("a turn is already in flight")
	ErrNotAwaiting  = errors.New("no turn is in flight")
)

// FallbackReply is appended when a turn fails, so the user always sees an
// assistant response for every submitted message.
const FallbackReply = "Sorry, something went wrong."

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message content is always a sequence of segments, never a bare string; a
// single generation call may be split into up to four display segments.
type Message struct {
	Role      Role     `json:"role"`
	Content   []string `json:"content"`
	Reactions []string `json:"reactions,omitempty"`
}

// Flatten rejoins the display segments into the one-string-per-turn form the
// model's message format expects.
func (m Message) Flatten() string {
	return strings.Join(m.Content, " ")
}

// Snapshot is the render-ready view handed to the presentation layer after
// every transition.
type Snapshot struct {
	Messages         []Message `json:"messages"`
	CrisisFlagged    bool      `json:"crisis_flagged"`
	AwaitingResponse bool      `json:"awaiting_response"`
}

type Conversation struct {
	mu            sync.Mutex
	messages      []Message
	crisisFlagged bool
	awaiting      bool
}

func New() *Conversation {
	return &Conversation{}
}

// Submit appends the user's message and opens a turn. It returns the history
// as it stood before this message, which is what the next prompt is built
// from. A submit while another turn is in flight is rejected with ErrBusy.
func (c *Conversation) Submit(text string) ([]Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.awaiting {
		return nil, ErrBusy
	}

	history := cloneMessages(c.messages)
	c.messages = append(c.messages, Message{
		Role:    RoleUser,
		Content: []string{trimmed},
	})
	c.awaiting = true
	return history, nil
}

// Resolve closes the in-flight turn with the assistant's reply. The crisis
// flag only ever latches on; a later calm turn never clears it.
func (c *Conversation) Resolve(segments []string, reactions []string, isCrisis bool) error {
	if len(segments) == 0 {
		return ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.awaiting {
		return ErrNotAwaiting
	}

	c.messages = append(c.messages, Message{
		Role:      RoleAssistant,
		Content:   append([]string(nil), segments...),
		Reactions: append([]string(nil), reactions...),
	})
	if isCrisis {
		c.crisisFlagged = true
	}
	c.awaiting = false
	return nil
}

// Fail closes the in-flight turn with the fallback reply. Prior messages and
// the crisis flag are left untouched.
func (c *Conversation) Fail() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.awaiting {
		return ErrNotAwaiting
	}

	c.messages = append(c.messages, Message{
		Role:    RoleAssistant,
		Content: []string{FallbackReply},
	})
	c.awaiting = false
	return nil
}

func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Messages:         cloneMessages(c.messages),
		CrisisFlagged:    c.crisisFlagged,
		AwaitingResponse: c.awaiting,
	}
}

func cloneMessages(messages []Message) []Message {
	cloned := make([]Message, len(messages))
	for i, msg := range messages {
		cloned[i] = Message{
			Role:      msg.Role,
			Content:   append([]string(nil), msg.Content...),
			Reactions: append([]string(nil), msg.Reactions...),
		}
	}
	return cloned
}
