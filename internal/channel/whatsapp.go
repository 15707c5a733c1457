package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joebot/relaybot/internal/bus"
	"github.com/joebot/relaybot/internal/config"
)

const (
	statusBroadcast = "status@broadcast"
	groupSuffix     = "@g.us"
	maxBackoff      = 30 * time.Second
)

// WhatsApp talks to a WhatsApp web bridge over a WebSocket. The bridge owns
// the WhatsApp session; this side exchanges JSON events with it.
type WhatsApp struct {
	config  config.WhatsAppConfig
	bus     *bus.MessageBus
	onReady ReadyFunc
	limiter *rate.Limiter

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// bridgeEvent is one frame received from the bridge.
type bridgeEvent struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	From         string `json:"from"`
	To           string `json:"to"`
	Chat         string `json:"chat"`
	Body         string `json:"body"`
	FromMe       bool   `json:"fromMe"`
	HasQuotedMsg bool   `json:"hasQuotedMsg"`
	Timestamp    int64  `json:"timestamp"`
	IsGroup      *bool  `json:"isGroup"`
	Author       string `json:"author"`
}

// bridgeSend is one frame sent to the bridge.
type bridgeSend struct {
	Type     string `json:"type"`
	To       string `json:"to"`
	Content  string `json:"content"`
	QuotedID string `json:"quotedId,omitempty"`
}

// NewWhatsApp creates a WhatsApp bridge channel. onReady may be nil.
func NewWhatsApp(cfg config.WhatsAppConfig, b *bus.MessageBus, onReady ReadyFunc) *WhatsApp {
	limit := rate.Inf
	if cfg.SendsPerSecond > 0 {
		limit = rate.Limit(cfg.SendsPerSecond)
	}
	return &WhatsApp{
		config:  cfg,
		bus:     b,
		onReady: onReady,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (w *WhatsApp) Name() string { return "whatsapp" }

// Start connects to the bridge and reconnects with backoff until ctx is
// cancelled.
func (w *WhatsApp) Start(ctx context.Context) error {
	if w.config.BridgeURL == "" {
		return errors.New("whatsapp bridge url not configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		slog.Info("Connecting to WhatsApp bridge...", "url", w.config.BridgeURL)
		dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.Dial(dialCtx, w.config.BridgeURL, nil)
		dialCancel()
		if err != nil {
			slog.Warn("WhatsApp bridge dial error", "err", err, "retry_in", backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		conn.SetReadLimit(1 << 20)
		w.setConn(conn)
		err = w.readLoop(ctx, conn)
		w.setConn(nil)
		conn.Close(websocket.StatusNormalClosure, "reconnecting")

		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("WhatsApp bridge disconnected, reconnecting", "err", err)
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
	}
}

// Stop disconnects from the bridge.
func (w *WhatsApp) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
	if w.conn != nil {
		w.conn.Close(websocket.StatusNormalClosure, "shutdown")
		w.conn = nil
	}
	return nil
}

// Send delivers a reply through the bridge, paced by the send limiter.
func (w *WhatsApp) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}

	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return errors.New("whatsapp bridge not connected")
	}

	data, err := json.Marshal(bridgeSend{
		Type:     "message",
		To:       msg.ChatID,
		Content:  msg.Content,
		QuotedID: msg.ReplyTo,
	})
	if err != nil {
		return fmt.Errorf("marshal whatsapp message: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	return nil
}

func (w *WhatsApp) setConn(conn *websocket.Conn) {
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
}

func (w *WhatsApp) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var ev bridgeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("Invalid JSON from WhatsApp bridge", "err", err)
			continue
		}

		switch ev.Type {
		case "ready":
			slog.Info("WhatsApp bridge ready")
			if w.onReady != nil {
				w.onReady(w.Name())
			}
		case "message":
			if msg, ok := w.toInbound(&ev); ok {
				w.bus.PublishInbound(msg)
			}
		default:
			slog.Debug("Ignoring WhatsApp bridge event", "type", ev.Type)
		}
	}
}

// toInbound converts a bridge message event. Status broadcasts, the bot's
// own quoted replies and senders outside the allow list are dropped.
func (w *WhatsApp) toInbound(ev *bridgeEvent) (*bus.InboundMessage, bool) {
	if ev.From == "" || ev.From == statusBroadcast || ev.Chat == statusBroadcast {
		return nil, false
	}
	if ev.FromMe && ev.HasQuotedMsg {
		return nil, false
	}

	sender := ev.From
	if ev.Author != "" {
		sender = ev.Author
	}
	if !ev.FromMe && !IsAllowed(sender, w.config.AllowFrom) {
		slog.Debug("WhatsApp message rejected by allowlist", "sender", sender)
		return nil, false
	}

	chatID := ev.Chat
	if chatID == "" {
		chatID = ev.From
		if ev.FromMe {
			chatID = ev.To
		}
	}

	isGroup := strings.HasSuffix(chatID, groupSuffix)
	if ev.IsGroup != nil {
		isGroup = *ev.IsGroup
	}

	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}

	var ts time.Time
	if ev.Timestamp > 0 {
		ts = time.Unix(ev.Timestamp, 0)
	}

	slog.Debug("WhatsApp message received", "chat", chatID, "from_me", ev.FromMe, "preview", preview(ev.Body))

	return &bus.InboundMessage{
		Channel:   w.Name(),
		MessageID: id,
		SenderID:  sender,
		ChatID:    chatID,
		Content:   ev.Body,
		FromMe:    ev.FromMe,
		SelfNote:  ev.FromMe && !ev.HasQuotedMsg && ev.From == ev.To,
		Timestamp: ts,
		IsGroup:   bus.StaticGroup(isGroup),
	}, true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
