package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/joebot/relaybot/internal/bus"
	"github.com/joebot/relaybot/internal/config"
)

const discordMaxLen = 2000

// Discord relays messages through a discordgo gateway session.
type Discord struct {
	config  config.DiscordConfig
	bus     *bus.MessageBus
	onReady ReadyFunc
	session *discordgo.Session
}

// NewDiscord creates a Discord channel. onReady may be nil.
func NewDiscord(cfg config.DiscordConfig, b *bus.MessageBus, onReady ReadyFunc) (*Discord, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord bot token not configured")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return &Discord{config: cfg, bus: b, onReady: onReady, session: s}, nil
}

func (d *Discord) Name() string { return "discord" }

// Start opens the gateway session and blocks until ctx is cancelled.
// discordgo reconnects on its own.
func (d *Discord) Start(ctx context.Context) error {
	d.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Discord gateway READY", "user", r.User.Username)
		if d.onReady != nil {
			d.onReady(d.Name())
		}
	})
	d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		botID := ""
		if s.State != nil && s.State.User != nil {
			botID = s.State.User.ID
		}
		if msg, ok := d.toInbound(botID, m.Message); ok {
			d.bus.PublishInbound(msg)
		}
	})

	slog.Info("Connecting to Discord gateway...")
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}

	<-ctx.Done()
	return ctx.Err()
}

// Stop closes the gateway session.
func (d *Discord) Stop() error {
	return d.session.Close()
}

// Send posts a reply, split into chunks Discord accepts. Only the first
// chunk references the original message.
func (d *Discord) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	if msg.ChatID == "" {
		return errors.New("discord send: empty chat id")
	}
	for i, chunk := range splitMessage(msg.Content, discordMaxLen) {
		send := &discordgo.MessageSend{
			Content:         chunk,
			AllowedMentions: &discordgo.MessageAllowedMentions{RepliedUser: false},
		}
		if i == 0 && msg.ReplyTo != "" {
			send.Reference = &discordgo.MessageReference{MessageID: msg.ReplyTo, ChannelID: msg.ChatID}
		}
		if _, err := d.session.ChannelMessageSendComplex(msg.ChatID, send, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
	}
	return nil
}

// toInbound converts a gateway message. Messages from other bots and
// senders outside the allow list are dropped. The bot's own messages and
// those from configured operators count as self-authored.
func (d *Discord) toInbound(botID string, m *discordgo.Message) (*bus.InboundMessage, bool) {
	if m == nil || m.Author == nil || m.ChannelID == "" || m.Content == "" {
		return nil, false
	}
	own := botID != "" && m.Author.ID == botID
	if m.Author.Bot && !own {
		return nil, false
	}
	operator := slices.Contains(d.config.Operators, m.Author.ID)
	if !own && !operator && !IsAllowed(m.Author.ID, d.config.AllowFrom) {
		slog.Debug("Discord message rejected by allowlist", "sender", m.Author.ID)
		return nil, false
	}

	meta := map[string]string{"author": m.Author.Username}
	if m.GuildID != "" {
		meta["guild_id"] = m.GuildID
	}

	return &bus.InboundMessage{
		Channel:   d.Name(),
		MessageID: m.ID,
		SenderID:  m.Author.ID,
		ChatID:    m.ChannelID,
		Content:   m.Content,
		FromMe:    own || operator,
		Timestamp: m.Timestamp,
		IsGroup:   bus.StaticGroup(m.GuildID != ""),
		Metadata:  meta,
	}, true
}

// splitMessage cuts s into pieces of at most maxLen bytes, preferring
// newline boundaries in the second half of a piece.
func splitMessage(s string, maxLen int) []string {
	var out []string
	for len(s) > maxLen {
		cut := maxLen
		if i := strings.LastIndexByte(s[:maxLen], '\n'); i > maxLen/2 {
			cut = i + 1
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" || len(out) == 0 {
		out = append(out, s)
	}
	return out
}
