package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joebot/relaybot/internal/backend"
	"github.com/joebot/relaybot/internal/cli"
	"github.com/joebot/relaybot/internal/config"
	"github.com/joebot/relaybot/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "relaybot",
		Short:        "Relay chat messages to a conversational backend",
		Long:         "relaybot relays WhatsApp and Discord messages to a conversational backend, with human takeover and idle session resets.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.relaybot/config.json)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(gatewayCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(resetCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(onboardCmd())
	root.AddCommand(versionCmd())

	root.SetErr(os.Stderr)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("  %s relaybot v%s", cli.Logo, cli.Version)))
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configPath())
			if err != nil {
				fmt.Fprintln(os.Stderr, cli.ErrStyle.Render("  Warning: "+err.Error()))
			}
			cli.RunStatus(cfg, configPath())
			return nil
		},
	}
}

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Create or upgrade the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RunOnboard(configPath())
		},
	}
}

func resetCmd() *cobra.Command {
	var uid string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset one backend session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			if err := newBackend(cfg).ResetSession(cmd.Context(), uid); err != nil {
				return err
			}
			fmt.Println("  " + cli.OkStyle.Render("✓") + " Reset session " + cli.DimStyle.Render(uid))
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "conversation id to reset")
	cmd.MarkFlagRequired("uid")
	return cmd
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.ConfigPath()
}

// loadConfig loads and validates the config and installs the log handler
// writing to w.
func loadConfig(w io.Writer) (*config.Config, error) {
	cfg, err := config.LoadFrom(configPath())
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	if err := logging.Setup(w, level, cfg.Logging.Color && w == os.Stderr); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newBackend(cfg *config.Config) *backend.Client {
	return backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Version, secondsDuration(cfg.Backend.TimeoutSeconds))
}
