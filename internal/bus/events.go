package bus

import (
	"context"
	"time"
)

// GroupResolver reports whether the conversation a message belongs to is a
// group chat. Transports may resolve this lazily (e.g. with a network call).
type GroupResolver func(ctx context.Context) (bool, error)

// InboundMessage is a message received from a chat channel.
type InboundMessage struct {
	Channel   string
	MessageID string
	SenderID  string
	ChatID    string
	Content   string

	// FromMe is set when the paired account authored the message itself.
	FromMe bool
	// SelfNote is set for self-authored messages addressed to the same
	// account ("message yourself").
	SelfNote bool

	// Timestamp is when the message was sent. Zero when the transport did
	// not supply one.
	Timestamp time.Time

	IsGroup  GroupResolver
	Metadata map[string]string
}

// SessionKey returns the conversation key (uid) used for all session state.
func (m *InboundMessage) SessionKey() string {
	return m.ChatID
}

// HasTimestamp reports whether the transport supplied a send time.
func (m *InboundMessage) HasTimestamp() bool {
	return !m.Timestamp.IsZero()
}

// Group resolves whether the message came from a group conversation.
// Messages without a resolver are treated as direct chats.
func (m *InboundMessage) Group(ctx context.Context) (bool, error) {
	if m.IsGroup == nil {
		return false, nil
	}
	return m.IsGroup(ctx)
}

// StaticGroup returns a resolver with a fixed answer.
func StaticGroup(isGroup bool) GroupResolver {
	return func(context.Context) (bool, error) { return isGroup, nil }
}

// OutboundMessage is a message to send to a chat channel.
type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	ReplyTo  string
	Metadata map[string]string
}
