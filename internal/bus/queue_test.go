package bus

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDispatchOutboundRoutesByChannel(t *testing.T) {
	b := NewMessageBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *OutboundMessage, 1)
	b.Subscribe("whatsapp", func(_ context.Context, msg *OutboundMessage) error {
		got <- msg
		return nil
	})
	b.Subscribe("discord", func(context.Context, *OutboundMessage) error {
		t.Error("discord handler should not receive whatsapp messages")
		return nil
	})
	go b.DispatchOutbound(ctx)

	if err := b.PublishOutbound(ctx, &OutboundMessage{Channel: "whatsapp", ChatID: "u1", Content: "hi"}); err != nil {
		t.Fatalf("PublishOutbound: %v", err)
	}

	select {
	case msg := <-got:
		if msg.ChatID != "u1" || msg.Content != "hi" {
			t.Errorf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message was not dispatched")
	}
}

func TestPublishOutboundGivesUpOnCancel(t *testing.T) {
	b := NewMessageBus()
	for i := 0; i < cap(b.Outbound); i++ {
		if err := b.PublishOutbound(context.Background(), &OutboundMessage{Channel: "whatsapp"}); err != nil {
			t.Fatalf("PublishOutbound %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- b.PublishOutbound(ctx, &OutboundMessage{Channel: "whatsapp"})
	}()
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("PublishOutbound blocked on a full queue after cancel")
	}
}

func TestRecoverSendTruncatesThenFallsBack(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		failUntil  int
		wantCalls  int
		wantSuffix string
	}{
		{"short content goes to fallback", "boom", 1, 2, FallbackText},
		{"long content is truncated", strings.Repeat("a", 2000), 1, 2, "[message truncated]"},
		{"truncated also fails", strings.Repeat("a", 2000), 2, 3, FallbackText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			var sent []string
			calls := 0
			h := func(_ context.Context, msg *OutboundMessage) error {
				mu.Lock()
				defer mu.Unlock()
				calls++
				if calls <= tt.failUntil {
					return errors.New("send failed")
				}
				sent = append(sent, msg.Content)
				return nil
			}

			b := NewMessageBus()
			msg := &OutboundMessage{Channel: "whatsapp", ChatID: "u1", Content: tt.content}
			if err := h(context.Background(), msg); err == nil {
				t.Fatal("first call should fail")
			}
			b.recoverSend(context.Background(), h, msg)

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if len(sent) != 1 || !strings.HasSuffix(sent[0], tt.wantSuffix) {
				t.Errorf("sent = %q, want suffix %q", sent, tt.wantSuffix)
			}
		})
	}
}

func TestInboundMessageGroupDefaults(t *testing.T) {
	msg := &InboundMessage{ChatID: "u1"}
	isGroup, err := msg.Group(context.Background())
	if err != nil || isGroup {
		t.Errorf("nil resolver: got (%v, %v), want (false, nil)", isGroup, err)
	}
	if msg.HasTimestamp() {
		t.Error("zero timestamp should report absent")
	}
	if msg.SessionKey() != "u1" {
		t.Errorf("SessionKey = %q, want u1", msg.SessionKey())
	}

	msg.IsGroup = StaticGroup(true)
	if isGroup, _ := msg.Group(context.Background()); !isGroup {
		t.Error("static resolver should report group")
	}
}
