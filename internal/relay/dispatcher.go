// Package relay decides what happens to each inbound chat message and
// carries out the decision: takeover bookkeeping, forwarding to the backend,
// and idle-session resets.
package relay

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joebot/relaybot/internal/backend"
	"github.com/joebot/relaybot/internal/bus"
	"github.com/joebot/relaybot/internal/format"
	"github.com/joebot/relaybot/internal/session"
)

// Defaults for Config fields left empty.
const (
	DefaultTakeoverCommand = "!bot-stop"
	DefaultReleaseCommand  = "!leave"
	DefaultResetCommand    = "!reset"
	DefaultIdleNotice      = "This conversation was idle for a while, so I've started a fresh session."
	DefaultResetNotice     = "Done! I've started a fresh session."
)

// Config holds dispatcher settings.
type Config struct {
	Bus      *bus.MessageBus
	Backend  backend.Gateway
	Sessions *session.Manager
	Ready    *ReadyClock
	Policy   Policy

	IdleNotice  string
	ResetNotice string

	// MaxInFlight bounds concurrently handled messages; 0 means unbounded.
	MaxInFlight int
}

// Dispatcher runs the guard chain for each inbound message and acts on it.
type Dispatcher struct {
	bus      *bus.MessageBus
	backend  backend.Gateway
	sessions *session.Manager
	ready    *ReadyClock
	policy   Policy

	idleNotice  string
	resetNotice string
	maxInFlight int
}

// NewDispatcher creates a dispatcher, filling defaults for empty settings.
func NewDispatcher(cfg Config) *Dispatcher {
	p := cfg.Policy
	if p.TakeoverCommand == "" {
		p.TakeoverCommand = DefaultTakeoverCommand
	}
	if p.ReleaseCommand == "" {
		p.ReleaseCommand = DefaultReleaseCommand
	}
	if p.ResetCommand == "" {
		p.ResetCommand = DefaultResetCommand
	}
	if cfg.IdleNotice == "" {
		cfg.IdleNotice = DefaultIdleNotice
	}
	if cfg.ResetNotice == "" {
		cfg.ResetNotice = DefaultResetNotice
	}
	if cfg.Ready == nil {
		cfg.Ready = &ReadyClock{}
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewManager(nil, 0)
	}

	return &Dispatcher{
		bus:         cfg.Bus,
		backend:     cfg.Backend,
		sessions:    cfg.Sessions,
		ready:       cfg.Ready,
		policy:      p,
		idleNotice:  cfg.IdleNotice,
		resetNotice: cfg.ResetNotice,
		maxInFlight: cfg.MaxInFlight,
	}
}

// MarkReady records that a transport is ready. Messages sent before the
// first call are treated as backlog. Usable as a channel.ReadyFunc.
func (d *Dispatcher) MarkReady(channel string) {
	if d.ready.MarkReady(time.Now()) {
		slog.Info("Relay ready", "channel", channel)
	}
}

// Sessions exposes the session manager for status reporting.
func (d *Dispatcher) Sessions() *session.Manager { return d.sessions }

// Run consumes inbound messages until ctx is cancelled. Decisions and their
// session bookkeeping run in arrival order on this goroutine; only backend
// calls are handed to the worker group so they never block intake.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("Relay dispatcher started")

	var g errgroup.Group
	limit := d.maxInFlight
	if limit <= 0 {
		limit = -1
	}
	g.SetLimit(limit)

	defer func() {
		g.Wait()
		d.sessions.Close()
		slog.Info("Relay dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.bus.Inbound:
			if _, work := d.apply(ctx, msg); work != nil {
				g.Go(func() error {
					work()
					return nil
				})
			}
		}
	}
}

// Handle evaluates one message and applies the outcome, including any
// backend call, before returning.
func (d *Dispatcher) Handle(ctx context.Context, msg *bus.InboundMessage) Decision {
	dec, work := d.apply(ctx, msg)
	if work != nil {
		work()
	}
	return dec
}

// apply runs the guard chain and the session side effects of its outcome.
// Backend I/O is returned as work for the caller to run.
func (d *Dispatcher) apply(ctx context.Context, msg *bus.InboundMessage) (Decision, func()) {
	uid := msg.SessionKey()
	readyAt, ready := d.ready.ReadyAt()
	st := State{
		TakenOver: d.sessions.Takeover.IsTakenOver(uid),
		ReadyAt:   readyAt,
		Ready:     ready,
	}

	dec := Decide(ctx, d.policy, st, msg)

	switch dec.Action {
	case ActionTakeover:
		d.sessions.Takeover.Set(uid)
		d.sessions.Timers.Cancel(uid)
		slog.Info("Human takeover", "channel", msg.Channel, "uid", uid)

	case ActionRelease:
		d.sessions.Takeover.Clear(uid)
		slog.Info("Human left, bot resumes", "channel", msg.Channel, "uid", uid)

	case ActionReset:
		d.sessions.Timers.Cancel(uid)
		return dec, func() { d.reset(ctx, msg.Channel, uid, d.resetNotice) }

	case ActionForward:
		channel := msg.Channel
		d.sessions.Timers.Schedule(uid, func() {
			d.reset(ctx, channel, uid, d.idleNotice)
		})
		slog.Info("Relaying message", "channel", channel, "uid", uid, "preview", preview(msg.Content))
		return dec, func() { d.forward(ctx, msg) }

	default:
		if dec.Reason == ReasonGroupError {
			slog.Warn("Could not resolve chat type, ignoring message", "channel", msg.Channel, "uid", uid)
		}
		if dec.ClearTakeover && d.sessions.Takeover.Clear(uid) {
			slog.Info("Cleared stale takeover flag", "uid", uid)
		}
		slog.Debug("Ignoring message", "channel", msg.Channel, "uid", uid, "reason", dec.Reason, "preview", preview(msg.Content))
	}
	return dec, nil
}

func (d *Dispatcher) forward(ctx context.Context, msg *bus.InboundMessage) {
	answer := d.backend.RequestAnswer(ctx, msg.Content, msg.SessionKey())
	d.publish(ctx, &bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: format.ForChannel(msg.Channel).Convert(answer),
		ReplyTo: msg.MessageID,
	})
}

// reset drops the remote context and tells the user. A failed reset still
// notifies, with the failure text instead of the notice. The uid is the
// chat id the notice goes to.
func (d *Dispatcher) reset(ctx context.Context, channel, uid, notice string) {
	text := notice
	if err := d.backend.ResetSession(ctx, uid); err != nil {
		slog.Warn("Session reset failed", "channel", channel, "uid", uid, "err", err)
		text = backend.ResetFailedText
	} else {
		slog.Info("Session reset", "channel", channel, "uid", uid)
	}

	d.publish(ctx, &bus.OutboundMessage{
		Channel: channel,
		ChatID:  uid,
		Content: text,
	})
}

func (d *Dispatcher) publish(ctx context.Context, msg *bus.OutboundMessage) {
	if err := d.bus.PublishOutbound(ctx, msg); err != nil {
		slog.Warn("Reply dropped on shutdown", "channel", msg.Channel, "uid", msg.ChatID)
	}
}

func preview(s string) string {
	if len(s) <= 80 {
		return s
	}
	return s[:80] + "..."
}
