package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joebot/relaybot/internal/bus"
	"github.com/joebot/relaybot/internal/channel"
	"github.com/joebot/relaybot/internal/cli"
	"github.com/joebot/relaybot/internal/config"
	"github.com/joebot/relaybot/internal/heartbeat"
	"github.com/joebot/relaybot/internal/relay"
	"github.com/joebot/relaybot/internal/session"
)

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start the relay with every enabled channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			return runGateway(cmd.Context(), cfg)
		},
	}
}

func runGateway(ctx context.Context, cfg *config.Config) error {
	msgBus := bus.NewMessageBus()
	sessions := session.NewManager(nil, secondsDuration(cfg.Relay.IdleTimeoutSeconds))
	dispatcher := relay.NewDispatcher(relay.Config{
		Bus:      msgBus,
		Backend:  newBackend(cfg),
		Sessions: sessions,
		Policy: relay.Policy{
			TakeoverCommand:   cfg.Relay.TakeoverCommand,
			ReleaseCommand:    cfg.Relay.ReleaseCommand,
			ResetCommand:      cfg.Relay.ResetCommand,
			SkipSelfMessages:  cfg.Relay.SkipSelfMessages,
			GroupChatsEnabled: cfg.Relay.GroupChatsEnabled,
		},
		IdleNotice:  cfg.Relay.IdleNotice,
		ResetNotice: cfg.Relay.ResetNotice,
		MaxInFlight: cfg.Relay.MaxInFlight,
	})

	fmt.Println()
	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s relaybot Gateway", cli.Logo)))
	fmt.Println("  " + cli.DimStyle.Render("backend "+cfg.Backend.BaseURL))
	fmt.Println()

	var channels []channel.Channel
	if cfg.Channels.WhatsApp.Enabled {
		channels = append(channels, channel.NewWhatsApp(cfg.Channels.WhatsApp, msgBus, dispatcher.MarkReady))
		fmt.Println("  " + cli.OkStyle.Render("✓") + " WhatsApp")
	} else {
		fmt.Println("  " + cli.DimStyle.Render("✗") + " WhatsApp " + cli.DimStyle.Render("(not enabled)"))
	}
	if cfg.Channels.Discord.Enabled {
		discord, err := channel.NewDiscord(cfg.Channels.Discord, msgBus, dispatcher.MarkReady)
		if err != nil {
			return err
		}
		channels = append(channels, discord)
		fmt.Println("  " + cli.OkStyle.Render("✓") + " Discord")
	} else {
		fmt.Println("  " + cli.DimStyle.Render("✗") + " Discord " + cli.DimStyle.Render("(not enabled)"))
	}
	fmt.Println()

	if len(channels) == 0 {
		return fmt.Errorf("no channels enabled")
	}

	for _, ch := range channels {
		msgBus.Subscribe(ch.Name(), ch.Send)
	}

	var wg sync.WaitGroup
	run := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	run(func() { msgBus.DispatchOutbound(ctx) })
	run(func() { dispatcher.Run(ctx) })
	if hb := cfg.Services.Heartbeat; hb.Enabled {
		reporter := heartbeat.NewService(nil, secondsDuration(hb.IntervalS), sessions.Stats)
		run(func() { reporter.Run(ctx) })
	}
	for _, ch := range channels {
		ch := ch
		run(func() {
			if err := ch.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Channel error", "channel", ch.Name(), "err", err)
			}
		})
	}

	fmt.Println(cli.DimStyle.Render("  Press Ctrl+C to stop"))
	<-ctx.Done()
	fmt.Println("\n  Shutting down...")
	for _, ch := range channels {
		if err := ch.Stop(); err != nil {
			slog.Warn("Channel stop failed", "channel", ch.Name(), "err", err)
		}
	}
	wg.Wait()
	return nil
}

func secondsDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
