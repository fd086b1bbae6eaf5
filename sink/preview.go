package sink

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/rootbar/internal/format"
)

// lineMsg carries a freshly published line into the preview program.
type lineMsg struct {
	line string
	at   time.Time
}

type previewKeys struct {
	Quit key.Binding
}

func (k previewKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

func (k previewKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var (
	previewTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	previewLine  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
	previewDim = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// previewModel shows the most recent line in a bordered box.
type previewModel struct {
	line    string
	updates int
	at      time.Time
	width   int
	keys    previewKeys
	help    help.Model
}

func newPreviewModel() previewModel {
	return previewModel{
		keys: previewKeys{
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
		help: help.New(),
	}
}

func (m previewModel) Init() tea.Cmd {
	return nil
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case lineMsg:
		m.line = msg.line
		m.at = msg.at
		m.updates++
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m previewModel) View() string {
	line := m.line
	if line == "" {
		line = "waiting for first line..."
	}
	if m.width > 4 {
		line = format.Truncate(line, m.width-4)
	}

	status := previewDim.Render("no updates yet")
	if m.updates > 0 {
		status = previewDim.Render(
			"updates: " + strconv.Itoa(m.updates) + "  last: " + m.at.Format(format.StatusTimeLayout))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		previewTitle.Render("rootbar preview"),
		previewLine.Render(line),
		status,
		m.help.View(m.keys),
	) + "\n"
}

// Preview shows published lines in an interactive terminal program instead
// of the configured sink.
type Preview struct {
	program *tea.Program
}

// NewPreview creates the preview program. Call Run to start it.
func NewPreview(opts ...tea.ProgramOption) *Preview {
	return &Preview{program: tea.NewProgram(newPreviewModel(), opts...)}
}

// Run blocks until the user quits.
func (p *Preview) Run() error {
	_, err := p.program.Run()
	return err
}

// Publish hands line to the program. It returns once the program has taken
// the message, or once it has exited.
func (p *Preview) Publish(ctx context.Context, line string) error {
	p.program.Send(lineMsg{line: line, at: time.Now()})
	return nil
}

var _ Sink = (*Preview)(nil)
