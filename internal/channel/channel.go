// Package channel connects chat platforms to the message bus.
package channel

import (
	"context"
	"slices"

	"github.com/joebot/relaybot/internal/bus"
)

// Channel is the interface for chat platform integrations.
type Channel interface {
	Name() string
	// Start connects and delivers inbound messages to the bus. It blocks
	// until ctx is cancelled.
	Start(ctx context.Context) error
	Stop() error
	Send(ctx context.Context, msg *bus.OutboundMessage) error
}

// ReadyFunc is called by a channel once it can receive live messages.
type ReadyFunc func(channel string)

// IsAllowed checks if a sender is in the allow list.
// Empty allow list means everyone is allowed.
func IsAllowed(senderID string, allowList []string) bool {
	return len(allowList) == 0 || slices.Contains(allowList, senderID)
}

func preview(s string) string {
	if len(s) <= 50 {
		return s
	}
	return s[:50] + "..."
}
