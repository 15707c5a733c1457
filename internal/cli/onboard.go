package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joebot/relaybot/internal/config"
)

// --- existing config chooser ---

type onboardChoice int

const (
	choiceUpgrade onboardChoice = iota
	choiceOverwrite
	choiceSkip
)

type onboardModel struct {
	path    string
	choices []string
	cursor  int
	chosen  bool
	choice  onboardChoice
}

func (m onboardModel) Init() tea.Cmd { return nil }

func (m onboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.choice = choiceSkip
			m.chosen = true
			return m, tea.Quit
		case tea.KeyUp, tea.KeyShiftTab:
			if m.cursor > 0 {
				m.cursor--
			}
		case tea.KeyDown, tea.KeyTab:
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case tea.KeyEnter:
			m.choice = onboardChoice(m.cursor)
			m.chosen = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m onboardModel) View() string {
	if m.chosen {
		return ""
	}

	s := "\n"
	s += fmt.Sprintf("  Config already exists at %s\n\n", DimStyle.Render(m.path))

	for i, choice := range m.choices {
		cursor := "  "
		if i == m.cursor {
			cursor = BotLabel.Render("❯ ")
		}
		s += "  " + cursor + choice + "\n"
	}

	s += "\n" + DimStyle.Render("  ↑/↓ navigate · enter select · ctrl+c cancel") + "\n"
	return s
}

// RunOnboard creates the config file at cfgPath, or upgrades or replaces an
// existing one after asking.
func RunOnboard(cfgPath string) error {
	fmt.Println()
	fmt.Println(TitleStyle.Render(fmt.Sprintf("  %s relaybot Onboard", Logo)))

	_, err := os.Stat(cfgPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := config.SaveTo(config.DefaultConfig(), cfgPath); err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("  " + OkStyle.Render("✓") + " Created config at " + DimStyle.Render(cfgPath))
	case err != nil:
		return err
	default:
		choice, err := chooseOnboardAction(cfgPath)
		if err != nil {
			return err
		}
		fmt.Println()
		switch choice {
		case choiceUpgrade:
			if _, err := config.Upgrade(cfgPath); err != nil {
				return err
			}
			fmt.Println("  " + OkStyle.Render("✓") + " Upgraded config")
		case choiceOverwrite:
			if err := config.SaveTo(config.DefaultConfig(), cfgPath); err != nil {
				return err
			}
			fmt.Println("  " + OkStyle.Render("✓") + " Overwritten config")
		default:
			fmt.Println("  " + DimStyle.Render("Config unchanged"))
		}
	}

	fmt.Println()
	fmt.Println(OkStyle.Render("  relaybot is ready!"))
	fmt.Println()
	fmt.Println(DimStyle.Render("  Next steps:"))
	fmt.Println(DimStyle.Render("  1. Set backend.baseUrl in " + cfgPath + " (or RELAYBOT_BACKEND_URL)"))
	fmt.Println(DimStyle.Render("  2. Start the WhatsApp bridge, then run: relaybot gateway"))
	fmt.Println(DimStyle.Render("  3. Try the backend directly: relaybot chat -m \"Hello!\""))
	fmt.Println()
	return nil
}

func chooseOnboardAction(cfgPath string) (onboardChoice, error) {
	m := onboardModel{
		path: cfgPath,
		choices: []string{
			"Upgrade: add new fields, keep existing values",
			"Overwrite: replace with fresh defaults",
			"Skip: do not modify config",
		},
	}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return choiceSkip, err
	}
	return final.(onboardModel).choice, nil
}
