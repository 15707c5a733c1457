package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joebot/relaybot/internal/config"
)

// RunStatus displays the current configuration status with styled output.
func RunStatus(cfg *config.Config, cfgPath string) {
	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("  %s relaybot Status", Logo)))
	fmt.Println()

	fmt.Printf("  %-12s %s  %s\n", "Config", StatusBadge(fileExists(cfgPath)), DimStyle.Render(cfgPath))
	fmt.Printf("  %-12s %s  %s\n", "Backend", StatusBadge(cfg.Backend.BaseURL != ""), cfg.Backend.BaseURL)
	fmt.Printf("  %-12s %s\n", "pd-version", cfg.Backend.Version)
	fmt.Println()

	fmt.Println("  " + BoldStyle.Render("Channels"))
	wa := cfg.Channels.WhatsApp
	fmt.Printf("    %s  WhatsApp  %s\n", StatusBadge(wa.Enabled), DimStyle.Render(wa.BridgeURL))
	dc := cfg.Channels.Discord
	fmt.Printf("    %s  Discord   %s\n", StatusBadge(dc.Enabled && dc.Token != ""), DimStyle.Render(fmt.Sprintf("%d operators", len(dc.Operators))))
	fmt.Println()

	r := cfg.Relay
	fmt.Println("  " + BoldStyle.Render("Relay"))
	fmt.Printf("    %s  Group chats\n", StatusBadge(r.GroupChatsEnabled))
	fmt.Printf("    %s  Skip self messages\n", StatusBadge(r.SkipSelfMessages))
	fmt.Printf("    %-20s %s\n", "Idle timeout", time.Duration(r.IdleTimeoutSeconds)*time.Second)
	fmt.Printf("    %-20s %s / %s / %s\n", "Commands", r.TakeoverCommand, r.ReleaseCommand, r.ResetCommand)
	fmt.Println()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
