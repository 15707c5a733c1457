package relay

import (
	"context"
	"strings"
	"time"

	"github.com/joebot/relaybot/internal/bus"
)

// Action is the single outcome of evaluating an inbound message.
type Action int

const (
	ActionIgnore Action = iota
	ActionTakeover
	ActionRelease
	ActionReset
	ActionForward
)

func (a Action) String() string {
	switch a {
	case ActionTakeover:
		return "takeover"
	case ActionRelease:
		return "release"
	case ActionReset:
		return "reset"
	case ActionForward:
		return "forward"
	default:
		return "ignore"
	}
}

// Reasons attached to ignore decisions.
const (
	ReasonSelfSkipped = "self-authored (skip enabled)"
	ReasonTakenOver   = "human takeover active"
	ReasonSelf        = "self-authored"
	ReasonNotReady    = "bot not ready"
	ReasonStale       = "sent before ready"
	ReasonGroup       = "group chats disabled"
	ReasonGroupError  = "group lookup failed"
)

// Decision is the result of the guard chain.
type Decision struct {
	Action Action
	Reason string
	// ClearTakeover asks the caller to drop a possibly stale takeover flag.
	ClearTakeover bool
}

// Policy is the configuration the guard chain reads.
type Policy struct {
	TakeoverCommand   string
	ReleaseCommand    string
	ResetCommand      string
	SkipSelfMessages  bool
	GroupChatsEnabled bool
}

// State is the per-message view of session state the guard chain needs.
type State struct {
	TakenOver bool
	ReadyAt   time.Time
	Ready     bool
}

// Decide runs the guard chain over msg; the first matching guard wins.
// The group resolver is only called when every earlier guard passes.
func Decide(ctx context.Context, p Policy, st State, msg *bus.InboundMessage) Decision {
	body := strings.TrimSpace(msg.Content)

	if msg.FromMe && hasCommand(body, p.TakeoverCommand) {
		return Decision{Action: ActionTakeover}
	}
	if msg.FromMe && hasCommand(body, p.ReleaseCommand) {
		return Decision{Action: ActionRelease}
	}
	if p.SkipSelfMessages && msg.FromMe {
		return ignore(ReasonSelfSkipped, false)
	}
	if st.TakenOver {
		return ignore(ReasonTakenOver, false)
	}
	if msg.FromMe && !msg.SelfNote {
		return ignore(ReasonSelf, false)
	}
	if !st.Ready {
		return ignore(ReasonNotReady, true)
	}
	// Transport timestamps can be whole seconds, so compare at that precision.
	if msg.HasTimestamp() && msg.Timestamp.Before(st.ReadyAt.Truncate(time.Second)) {
		return ignore(ReasonStale, true)
	}
	if !p.GroupChatsEnabled {
		isGroup, err := msg.Group(ctx)
		if err != nil {
			return ignore(ReasonGroupError, false)
		}
		if isGroup {
			return ignore(ReasonGroup, false)
		}
	}
	if hasCommand(body, p.ResetCommand) {
		return Decision{Action: ActionReset}
	}
	return Decision{Action: ActionForward}
}

func ignore(reason string, clear bool) Decision {
	return Decision{Action: ActionIgnore, Reason: reason, ClearTakeover: clear}
}

// hasCommand is a case-insensitive prefix match. An empty command never matches.
func hasCommand(body, cmd string) bool {
	if cmd == "" || len(body) < len(cmd) {
		return false
	}
	return strings.EqualFold(body[:len(cmd)], cmd)
}
