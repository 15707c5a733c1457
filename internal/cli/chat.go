package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/joebot/relaybot/internal/backend"
)

// --- message types ---

type answerMsg struct {
	content string
}

type resetMsg struct {
	err error
}

// ChatConfig holds what the chat TUI needs to talk to the backend.
type ChatConfig struct {
	Backend backend.Gateway
	UID     string
	BaseURL string
}

type chatEntry struct {
	role    string // "user", "assistant", "notice", "error"
	content string
}

// --- interactive chat model ---

type chatModel struct {
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	history    []chatEntry
	waiting    bool
	cancelFunc context.CancelFunc

	backend backend.Gateway
	ctx     context.Context
	uid     string
	baseURL string

	ready  bool
	width  int
	height int
}

func newChatModel(ctx context.Context, cfg ChatConfig) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Focus()
	ti.CharLimit = 0
	ti.Prompt = "❯ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(Accent)

	return chatModel{
		input:   ti,
		spinner: newSpinner(),
		backend: cfg.Backend,
		ctx:     ctx,
		uid:     cfg.UID,
		baseURL: cfg.BaseURL,
	}
}

func newSpinner() spinner.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(Accent)
	return sp
}

func (m chatModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// header + divider + viewport + divider + input + status
		vpHeight := max(msg.Height-5, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - 4
		m.renderer = newRenderer(msg.Width - 4)
		m.viewport.SetContent(m.renderHistory())
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.waiting {
				return m, nil
			}
			input := strings.TrimSpace(m.input.Value())
			if input == "" {
				return m, nil
			}
			if isExitCmd(input) {
				return m, tea.Quit
			}
			m.input.SetValue("")
			m.input.Blur()
			m.waiting = true
			msgCtx, cancel := context.WithCancel(m.ctx)
			m.cancelFunc = cancel

			var cmd tea.Cmd
			if isResetCmd(input) {
				cmd = m.reset(msgCtx)
			} else {
				m.history = append(m.history, chatEntry{role: "user", content: input})
				cmd = m.ask(msgCtx, input)
			}
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
			return m, tea.Batch(cmd, m.spinner.Tick)
		case tea.KeyEsc:
			if m.waiting && m.cancelFunc != nil {
				m.cancelFunc()
				m.cancelFunc = nil
			}
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m = m.done()
		m.history = append(m.history, chatEntry{role: "assistant", content: msg.content})
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, m.input.Focus()

	case resetMsg:
		m = m.done()
		if msg.err != nil {
			m.history = append(m.history, chatEntry{role: "error", content: msg.err.Error()})
		} else {
			m.history = append(m.history, chatEntry{role: "notice", content: "Session reset for " + m.uid})
		}
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, m.input.Focus()

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if !m.waiting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m chatModel) done() chatModel {
	m.waiting = false
	if m.cancelFunc != nil {
		m.cancelFunc()
		m.cancelFunc = nil
	}
	return m
}

func (m chatModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := TitleStyle.Render(fmt.Sprintf(" %s relaybot chat", Logo))
	divider := DimStyle.Render(strings.Repeat("─", m.width))

	var inputLine string
	if m.waiting {
		inputLine = fmt.Sprintf(" %s Waiting for the backend... (Esc to stop)", m.spinner.View())
	} else {
		inputLine = " " + m.input.View()
	}

	return header + "\n" +
		divider + "\n" +
		m.viewport.View() + "\n" +
		divider + "\n" +
		inputLine + "\n" +
		m.renderStatusBar()
}

func (m chatModel) renderHistory() string {
	if len(m.history) == 0 {
		return m.renderWelcome()
	}

	var sb strings.Builder
	for _, entry := range m.history {
		sb.WriteString("\n")
		switch entry.role {
		case "user":
			sb.WriteString("  " + UserLabel.Render("You") + "\n")
			for _, line := range strings.Split(entry.content, "\n") {
				sb.WriteString("  " + line + "\n")
			}
		case "assistant":
			sb.WriteString("  " + BotLabel.Render("backend") + "\n")
			sb.WriteString(renderAnswer(m.renderer, entry.content))
		case "notice":
			sb.WriteString("  " + DimStyle.Render(entry.content) + "\n")
		case "error":
			sb.WriteString("  " + ErrStyle.Render("Error: "+entry.content) + "\n")
		}
	}
	return sb.String()
}

func (m chatModel) renderWelcome() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(RenderBanner())
	sb.WriteString("\n")
	sb.WriteString("  " + BoldStyle.Render("Tips:") + "\n")
	sb.WriteString(DimStyle.Render("  1. Every message goes to the backend as uid "+m.uid) + "\n")
	sb.WriteString(DimStyle.Render("  2. /reset starts a fresh backend session") + "\n")
	sb.WriteString(DimStyle.Render("  3. exit or Ctrl+C to quit") + "\n")
	return sb.String()
}

func (m chatModel) renderStatusBar() string {
	left := DimStyle.Render(" uid " + m.uid)
	right := DimStyle.Render(m.baseURL + " ")

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m chatModel) ask(ctx context.Context, input string) tea.Cmd {
	gw, uid := m.backend, m.uid
	return func() tea.Msg {
		return answerMsg{content: gw.RequestAnswer(ctx, input, uid)}
	}
}

func (m chatModel) reset(ctx context.Context) tea.Cmd {
	gw, uid := m.backend, m.uid
	return func() tea.Msg {
		return resetMsg{err: gw.ResetSession(ctx, uid)}
	}
}

func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderAnswer renders markdown through glamour, falling back to indented
// plain text when no renderer is available.
func renderAnswer(r *glamour.TermRenderer, content string) string {
	if r != nil {
		if out, err := r.Render(content); err == nil {
			return out
		}
	}
	var sb strings.Builder
	for _, line := range strings.Split(content, "\n") {
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

func isExitCmd(s string) bool {
	s = strings.ToLower(s)
	return s == "exit" || s == "quit" || s == "/exit" || s == "/quit" || s == ":q"
}

func isResetCmd(s string) bool {
	return strings.EqualFold(s, "/reset")
}

// RunChat starts the interactive chat TUI.
func RunChat(ctx context.Context, cfg ChatConfig) error {
	p := tea.NewProgram(newChatModel(ctx, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// --- single message model ---

type singleModel struct {
	spinner spinner.Model
	backend backend.Gateway
	ctx     context.Context
	uid     string
	message string
	result  string
	done    bool
}

func (m singleModel) Init() tea.Cmd {
	gw, ctx, msg, uid := m.backend, m.ctx, m.message, m.uid
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			return answerMsg{content: gw.RequestAnswer(ctx, msg, uid)}
		},
	)
}

func (m singleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	case answerMsg:
		m.result = msg.content
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m singleModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("\n %s Waiting for the backend...\n", m.spinner.View())
}

// RunSingleMessage sends one message with a spinner, then prints the answer.
func RunSingleMessage(ctx context.Context, cfg ChatConfig, message string) error {
	m := singleModel{
		spinner: newSpinner(),
		backend: cfg.Backend,
		ctx:     ctx,
		uid:     cfg.UID,
		message: message,
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return err
	}
	fm := final.(singleModel)
	if !fm.done {
		return context.Canceled
	}

	fmt.Println()
	fmt.Println("  " + BotLabel.Render("backend"))
	fmt.Print(renderAnswer(newRenderer(80), fm.result))
	fmt.Println()
	return nil
}
