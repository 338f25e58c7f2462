// Package mail provides the message-passing primitives of the
// coordination core: the Message unit, per-agent Mailbox queues, and
// the Transport interface the router implements. Delivery is
// in-process; a network transport can be substituted behind Transport
// without touching agent or router logic.
package mail

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is a unit of inter-agent communication. The sender field is
// stamped by the sending agent, not the caller. A message belongs to
// the sender until enqueued, to the transport while queued, and to
// the receiver after delivery; it must not be shared across consumers.
type Message struct {
	// ID uniquely identifies this message.
	ID string `json:"id"`
	// Action names the runner the receiving agent should invoke.
	Action string `json:"action"`
	// Target is the identifier of the addressed agent.
	Target string `json:"target"`
	// Sender is the identifier of the sending agent, stamped at send time.
	Sender string `json:"sender,omitempty"`
	// Title is a short human-readable summary.
	Title string `json:"title,omitempty"`
	// Text is the human-readable body.
	Text string `json:"text,omitempty"`
	// Data is the opaque payload handed to the runner.
	Data map[string]any `json:"data,omitempty"`
	// Read indicates the consumer has processed the message.
	Read bool `json:"read"`
	// Preempt is a priority hint. It only affects queue ordering when
	// the mailbox is built with WithPreempt; otherwise it is advisory
	// metadata for the runner.
	Preempt bool `json:"preempt"`
	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message for the given action and target.
func NewMessage(action, target string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Action:    action,
		Target:    target,
		Timestamp: time.Now().UTC(),
	}
}

// MarkRead marks the message as read.
func (m *Message) MarkRead() {
	m.Read = true
}

// MarkUnread marks the message as unread.
func (m *Message) MarkUnread() {
	m.Read = false
}

// MarkPreempt flags the message as preemptive.
func (m *Message) MarkPreempt() {
	m.Preempt = true
}

// Update applies a set of field updates by name. Field names match
// the lowercase JSON form. Unknown fields are rejected rather than
// silently ignored.
func (m *Message) Update(fields map[string]any) error {
	for key, value := range fields {
		if err := m.setField(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (m *Message) setField(key string, value any) error {
	switch key {
	case "action":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q: expected string, got %T", key, value)
		}
		m.Action = s
	case "target":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q: expected string, got %T", key, value)
		}
		m.Target = s
	case "title":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q: expected string, got %T", key, value)
		}
		m.Title = s
	case "text":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %q: expected string, got %T", key, value)
		}
		m.Text = s
	case "data":
		d, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("field %q: expected map, got %T", key, value)
		}
		m.Data = d
	case "read":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("field %q: expected bool, got %T", key, value)
		}
		m.Read = b
	case "preempt":
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("field %q: expected bool, got %T", key, value)
		}
		m.Preempt = b
	default:
		return fmt.Errorf("unknown message field %q", key)
	}
	return nil
}

// String returns a compact description for logs.
func (m *Message) String() string {
	return fmt.Sprintf("Message(action=%s target=%s sender=%s)", m.Action, m.Target, m.Sender)
}
