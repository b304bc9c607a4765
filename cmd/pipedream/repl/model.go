// Package repl is the interactive prompt: one line in, one rendered result
// out. Evaluation happens synchronously inside Update.
package repl

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"pipedream/cmd/pipedream/ui"
	"pipedream/internal/config"
	"pipedream/internal/logging"
	"pipedream/internal/output"
	"pipedream/internal/pipeline"
)

// Evaluator is the part of the shell session the prompt needs.
type Evaluator interface {
	Evaluate(line string) (pipeline.Data, error)
}

const helpText = `# pipedream

Type a Go expression and press **Enter**. The last result replaces the
previous one.

| Input | Result |
|---|---|
| ` + "`1 + 2`" + ` | a single value |
| ` + "`[]int{1, 2, 3}`" + ` | a list |
| ` + "`[]sh.Value{sh.Rec(\"a\", 1), sh.Rec(\"b\", 2)}`" + ` | a table |
| ` + "`!ls -la`" + ` | raw output of a shell command |

Commands: ` + "`:help`" + `, ` + "`:clear`" + `, ` + "`:quit`" + `. Scroll with PgUp/PgDn.
`

type configMsg struct{ cfg *config.Config }

// Model is the bubbletea model for the prompt.
type Model struct {
	input    textinput.Model
	viewport viewport.Model
	renderer *ui.Renderer
	styles   ui.Styles

	session Evaluator
	initErr error
	cfg     *config.Config
	updates <-chan *config.Config

	// last result, kept so a theme change can re-render it
	last    output.Output
	lastErr error
	help    bool

	width  int
	height int
	ready  bool
}

// New creates the prompt. initErr, when set, is shown instead of a prompt.
// updates may be nil; otherwise each received config re-themes the view.
func New(cfg *config.Config, session Evaluator, initErr error, updates <-chan *config.Config) Model {
	styles := ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))

	ti := textinput.New()
	ti.Placeholder = "Go expression or !command (Enter to run, :help, Ctrl+C to exit)"
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Width = 80
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.UserInput
	if initErr == nil {
		ti.Focus()
	}

	m := Model{
		input:    ti,
		viewport: viewport.New(80, 20),
		renderer: ui.NewRenderer(styles, cfg.UI.NothingPlaceholder),
		styles:   styles,
		session:  session,
		initErr:  initErr,
		cfg:      cfg,
		updates:  updates,
		last:     output.Empty{},
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForConfig())
}

// waitForConfig delivers the next reloaded config as a message.
func (m Model) waitForConfig() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		cfg, ok := <-updates
		if !ok {
			return nil
		}
		return configMsg{cfg: cfg}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.initErr != nil {
				return m, nil
			}
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// prompt line, divider, footer
		chrome := 3
		m.viewport.Width = max(msg.Width, 1)
		m.viewport.Height = max(msg.Height-chrome, 1)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		m.ready = true
		m.refresh()

	case configMsg:
		m.applyConfig(msg.cfg)
		cmds = append(cmds, m.waitForConfig())
	}

	if m.initErr == nil {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()

	switch strings.TrimSpace(line) {
	case ":quit", ":q":
		return m, tea.Quit
	case ":help":
		m.help = true
		m.refresh()
		return m, nil
	case ":clear":
		m.help = false
		m.last, m.lastErr = output.Empty{}, nil
		m.input.SetValue("")
		m.refresh()
		return m, nil
	}

	m.help = false
	data, err := m.session.Evaluate(line)
	if err != nil {
		logging.UIDebug("Evaluation error shown: %v", err)
		m.last, m.lastErr = nil, err
	} else {
		m.last, m.lastErr = output.Classify(data), nil
		logging.UIDebug("Rendering %s output", output.Name(m.last))
	}
	m.refresh()
	return m, nil
}

func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	logging.UI("Config reloaded: theme=%s", cfg.UI.Theme)
	m.cfg = cfg
	m.styles = ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))
	m.renderer = ui.NewRenderer(m.styles, cfg.UI.NothingPlaceholder)
	m.input.PromptStyle = m.styles.Prompt
	m.input.TextStyle = m.styles.UserInput
	m.refresh()
}

// refresh re-renders the body into the viewport.
func (m *Model) refresh() {
	var body string
	switch {
	case m.initErr != nil:
		body = m.renderer.InitError(m.initErr)
	case m.help:
		body = m.renderHelp()
	case m.lastErr != nil:
		body = m.renderer.Error(m.lastErr)
	default:
		body = m.renderer.Output(m.last)
	}
	m.viewport.SetContent(body)
	m.viewport.GotoTop()
}

func (m Model) renderHelp() string {
	style := "light"
	if m.styles.Theme.IsDark {
		style = "dark"
	}
	width := m.viewport.Width
	if width < 20 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		logging.UIError("help renderer: %v", err)
		return helpText
	}
	out, err := r.Render(helpText)
	if err != nil {
		logging.UIError("help render failed: %v", err)
		return helpText
	}
	return out
}

func (m Model) View() string {
	if m.initErr != nil {
		return m.renderer.InitError(m.initErr) + "\n"
	}

	var sb strings.Builder
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(m.styles.RenderDivider(max(m.viewport.Width, 1)))
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(m.styles.Footer.Render("Enter run · PgUp/PgDn scroll · :help · Ctrl+C quit"))
	return sb.String()
}

// Body returns the rendered result area.
func (m Model) Body() string {
	return m.viewport.View()
}
