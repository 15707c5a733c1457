package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joebot/relaybot/internal/cli"
	"github.com/joebot/relaybot/internal/config"
)

func chatCmd() *cobra.Command {
	var (
		message string
		uid     string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the backend directly",
		RunE: func(cmd *cobra.Command, args []string) error {
			logOut, closeLog := openLogFile()
			defer closeLog()

			cfg, err := loadConfig(logOut)
			if err != nil {
				return err
			}
			chatCfg := cli.ChatConfig{
				Backend: newBackend(cfg),
				UID:     uid,
				BaseURL: cfg.Backend.BaseURL,
			}

			if message != "" {
				return cli.RunSingleMessage(cmd.Context(), chatCfg, message)
			}
			return cli.RunChat(cmd.Context(), chatCfg)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "send a single message and print the answer")
	cmd.Flags().StringVar(&uid, "uid", "cli:default", "conversation id sent to the backend")
	return cmd
}

// openLogFile keeps logs off the TUI screen.
func openLogFile() (io.Writer, func()) {
	f, err := os.OpenFile(config.LogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { f.Close() }
}
