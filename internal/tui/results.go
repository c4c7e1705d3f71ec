package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/Emberfield/autodoc/internal/analyze"
	"github.com/Emberfield/autodoc/internal/boundary"
	"github.com/Emberfield/autodoc/internal/report"
)

// maxListed caps the entity table so huge trees stay responsive.
const maxListed = 200

type resultsModel struct {
	viewport    viewport.Model
	input       textinput.Model
	renderer    *glamour.TermRenderer
	result      *analyze.Result
	filtered    []boundary.Record
	title       string
	top         int
	width       int
	height      int
	initialized bool
}

func newResultsModel(result *analyze.Result, title string, top int) resultsModel {
	ti := textinput.New()
	ti.Placeholder = "Filter by name..."
	ti.CharLimit = 200
	ti.Focus()

	return resultsModel{
		input:    ti,
		result:   result,
		filtered: result.Entities,
		title:    title,
		top:      top,
	}
}

func (m *resultsModel) initViewport(width, height int) {
	m.width = width
	m.height = height

	// Layout: viewport + status bar (1 line) + input (1 line) + gap (1 line).
	vpHeight := height - 3
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport = viewport.New(width, vpHeight)
	m.input.Width = width - 4

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err == nil {
		m.renderer = r
	}
	m.initialized = true
	m.refresh()
}

// applyFilter keeps entities whose name contains the query, ignoring case.
func applyFilter(records []boundary.Record, query string) []boundary.Record {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return records
	}
	var out []boundary.Record
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), query) {
			out = append(out, r)
		}
	}
	return out
}

func (m *resultsModel) refresh() {
	m.filtered = applyFilter(m.result.Entities, m.input.Value())
	if m.initialized {
		m.viewport.SetContent(m.renderMarkdown(m.document()))
		m.viewport.GotoTop()
	}
}

func (m resultsModel) document() string {
	sum := report.Summarize(m.filtered, m.top)
	sum.Title = m.title
	var b strings.Builder
	b.WriteString(report.Markdown(sum))
	b.WriteString("\n## Entities\n\n")
	b.WriteString(entityTable(m.filtered))
	if len(m.result.Failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, f := range m.result.Failures {
			fmt.Fprintf(&b, "- `%s`: %s\n", f.Path, f.Message)
		}
	}
	return b.String()
}

func entityTable(records []boundary.Record) string {
	if len(records) == 0 {
		return "No entities.\n"
	}
	var b strings.Builder
	b.WriteString("| Kind | Name | Location | Score |\n|---|---|---|---|\n")
	for i, r := range records {
		if i == maxListed {
			fmt.Fprintf(&b, "\n%d more not shown.\n", len(records)-maxListed)
			break
		}
		name := r.Name
		if r.IsAsync {
			name = "async " + name
		}
		fmt.Fprintf(&b, "| %s | `%s` | %s:%d | %d |\n", r.EntityType, name, r.FilePath, r.LineNumber, r.ComplexityScore)
	}
	return b.String()
}

func (m resultsModel) Update(msg tea.Msg) (resultsModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.initViewport(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			if m.input.Value() == "" {
				return m, tea.Quit
			}
			m.input.Reset()
			m.refresh()
			return m, nil
		case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if m.input.Value() != before {
			m.refresh()
		}
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m resultsModel) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

func (m resultsModel) View() string {
	if !m.initialized {
		return ""
	}

	status := statsLine(m.result.Stats)
	if len(m.filtered) != len(m.result.Entities) {
		status += fmt.Sprintf(" • showing %d", len(m.filtered))
	}
	statusBar := statusBarStyle.
		Width(m.width).
		Render(" autodoc • " + status + " • esc to quit")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewport.View(),
		statusBar,
		m.input.View(),
	)
}
