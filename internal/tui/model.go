// Package tui is an interactive console over the engine: type a query, press
// enter, and browse the hits. Tab switches between ranked and boolean mode.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/parser"
)

// Searcher is the console-facing subset of *executor.Executor.
type Searcher interface {
	Boolean(ctx context.Context, raw string) (*executor.SearchResult, error)
	Ranked(ctx context.Context, raw string, topK int) (*executor.SearchResult, error)
}

type searchDoneMsg struct {
	query  string
	mode   parser.Mode
	result *executor.SearchResult
	err    error
}

type Model struct {
	searcher Searcher
	topK     int
	summary  string
	input    textinput.Model
	viewport viewport.Model
	mode     parser.Mode
	result   *executor.SearchResult
	status   string
	cursor   int
	ready    bool
}

func New(searcher Searcher, topK int, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a query and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		searcher: searcher,
		topK:     topK,
		summary:  summary,
		input:    ti,
		viewport: viewport.New(0, 0),
		mode:     parser.ModeRanked,
		status:   "Index loaded. Tab switches mode.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderResults())
		return m, nil

	case searchDoneMsg:
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.result = nil
		} else {
			m.result = msg.result
			m.cursor = 0
			m.status = fmt.Sprintf("%s %q: %d hits in %.2fms", msg.mode, msg.query, msg.result.TotalHits, msg.result.TookMS)
		}
		m.viewport.SetContent(m.renderResults())
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			if m.mode == parser.ModeRanked {
				m.mode = parser.ModeBoolean
			} else {
				m.mode = parser.ModeRanked
			}
			m.status = "Mode: " + m.mode.String()
			return m, nil
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.status = "Searching..."
			return m, m.search(q, m.mode)
		case tea.KeyDown:
			if n := m.hits(); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderResults())
			}
			return m, nil
		case tea.KeyUp:
			if n := m.hits(); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderResults())
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) search(q string, mode parser.Mode) tea.Cmd {
	searcher, topK := m.searcher, m.topK
	return func() tea.Msg {
		ctx := context.Background()
		var (
			res *executor.SearchResult
			err error
		)
		if mode == parser.ModeBoolean {
			res, err = searcher.Boolean(ctx, q)
		} else {
			res, err = searcher.Ranked(ctx, q, topK)
		}
		return searchDoneMsg{query: q, mode: mode, result: res, err: err}
	}
}

func (m Model) hits() int {
	if m.result == nil {
		return 0
	}
	return len(m.result.Documents) + len(m.result.Results)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Classic IR") + "  " + modeStyle.Render("["+m.mode.String()+"]")
	summary := summaryStyle.Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderResults() string {
	if m.result == nil {
		return "No results yet."
	}
	if m.hits() == 0 {
		return "No matching documents."
	}
	var b strings.Builder
	for i, d := range m.result.Documents {
		line := fmt.Sprintf("%3d  %s", d.DocID, d.Title)
		b.WriteString(m.renderLine(i, line))
	}
	for i, r := range m.result.Results {
		line := fmt.Sprintf("%2d. %.4f  %3d  %s", i+1, r.Score, r.DocID, r.Title)
		b.WriteString(m.renderLine(i, line))
	}
	return b.String()
}

func (m Model) renderLine(i int, line string) string {
	if i == m.cursor {
		return selectedStyle.Render("> "+line) + "\n"
	}
	return "  " + line + "\n"
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	modeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	summaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
