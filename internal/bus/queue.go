package bus

import (
	"context"
	"log/slog"
	"sync"
)

// OutboundHandler is a callback for outbound messages on a specific channel.
type OutboundHandler func(ctx context.Context, msg *OutboundMessage) error

// maxRecoveryContent is the length replies are cut to when a send fails.
const maxRecoveryContent = 1500

// FallbackText is sent when a reply cannot be delivered in any form.
const FallbackText = "Sorry, I ran into a technical issue and couldn't deliver my response. Please try again."

// MessageBus decouples chat channels from the relay core using Go channels.
type MessageBus struct {
	Inbound  chan *InboundMessage
	Outbound chan *OutboundMessage

	mu          sync.RWMutex
	subscribers map[string][]OutboundHandler
}

// NewMessageBus creates a new message bus with buffered channels.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		Inbound:     make(chan *InboundMessage, 64),
		Outbound:    make(chan *OutboundMessage, 64),
		subscribers: make(map[string][]OutboundHandler),
	}
}

// PublishInbound sends a message from a channel to the dispatcher.
func (b *MessageBus) PublishInbound(msg *InboundMessage) {
	b.Inbound <- msg
}

// PublishOutbound sends a reply from the dispatcher to channels. It gives up
// when ctx is cancelled, since nothing drains the queue after shutdown.
func (b *MessageBus) PublishOutbound(ctx context.Context, msg *OutboundMessage) error {
	select {
	case b.Outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a handler for outbound messages on a specific channel.
func (b *MessageBus) Subscribe(channel string, handler OutboundHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = append(b.subscribers[channel], handler)
}

// DispatchOutbound reads from the outbound queue and dispatches to subscribers.
// Blocks until ctx is cancelled.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.Outbound:
			b.mu.RLock()
			handlers := b.subscribers[msg.Channel]
			b.mu.RUnlock()
			if len(handlers) == 0 {
				slog.Warn("no subscriber for outbound message", "channel", msg.Channel, "chat", msg.ChatID)
				continue
			}
			for _, h := range handlers {
				if err := h(ctx, msg); err != nil {
					slog.Warn("dispatch outbound failed, attempting recovery", "channel", msg.Channel, "err", err)
					b.recoverSend(ctx, h, msg)
				}
			}
		}
	}
}

// recoverSend retries a failed send with truncated content, then falls back
// to a short notice so the user knows something went wrong.
func (b *MessageBus) recoverSend(ctx context.Context, h OutboundHandler, original *OutboundMessage) {
	if len(original.Content) > maxRecoveryContent {
		truncated := &OutboundMessage{
			Channel: original.Channel,
			ChatID:  original.ChatID,
			ReplyTo: original.ReplyTo,
			Content: original.Content[:maxRecoveryContent] + "\n\n[message truncated]",
		}
		if err := h(ctx, truncated); err == nil {
			slog.Info("recovery: sent truncated message", "channel", original.Channel)
			return
		}
	}

	fallback := &OutboundMessage{
		Channel: original.Channel,
		ChatID:  original.ChatID,
		Content: FallbackText,
	}
	if err := h(ctx, fallback); err != nil {
		slog.Error("recovery: all strategies failed, unable to notify user", "channel", original.Channel, "err", err)
	}
}
