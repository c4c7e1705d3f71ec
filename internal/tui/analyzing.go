package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Emberfield/autodoc/internal/analyze"
)

type analyzingModel struct {
	spinner        spinner.Model
	filesProcessed int
	filesTotal     int
	done           bool
	result         *analyze.Result
	err            error
}

func newAnalyzingModel() analyzingModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = selectedStyle
	return analyzingModel{spinner: sp}
}

// analysisDoneMsg is sent when the directory analysis returns.
type analysisDoneMsg struct {
	result *analyze.Result
	err    error
}

// analysisProgressMsg is sent after each file.
type analysisProgressMsg struct {
	filesProcessed int
	filesTotal     int
}

func runAnalysis(ctx context.Context, cfg Config) tea.Cmd {
	return func() tea.Msg {
		acfg := cfg.Analysis
		acfg.OnProgress = func(done, total int) {
			if cfg.program != nil && cfg.program.p != nil {
				cfg.program.p.Send(analysisProgressMsg{filesProcessed: done, filesTotal: total})
			}
		}
		res, err := analyze.New(acfg).AnalyzeDirectory(ctx, cfg.Root)
		return analysisDoneMsg{result: res, err: err}
	}
}

func (m analyzingModel) Update(msg tea.Msg) (analyzingModel, tea.Cmd) {
	switch msg := msg.(type) {
	case analysisDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, nil
	case analysisProgressMsg:
		m.filesProcessed = msg.filesProcessed
		m.filesTotal = msg.filesTotal
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m analyzingModel) View(root string) string {
	s := "\n"
	s += titleStyle.Render("  Analyzing") + " " + subtitleStyle.Render(root) + "\n\n"

	if m.done && m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
		s += dimStyle.Render("  Press q to quit.") + "\n"
		return s
	}

	s += fmt.Sprintf("  %s Parsing Python files...\n", m.spinner.View())
	if m.filesTotal > 0 {
		s += fmt.Sprintf("  %d / %d files processed\n", m.filesProcessed, m.filesTotal)
	}
	return s
}

// statsLine renders the one-line run summary shown above the results.
func statsLine(st analyze.Stats) string {
	line := fmt.Sprintf("%d files (%d parsed, %d cached", st.FilesTotal, st.FilesParsed, st.FilesCached)
	if st.FilesFailed > 0 {
		line += fmt.Sprintf(", %d failed", st.FilesFailed)
	}
	return line + fmt.Sprintf(") • %d classes, %d functions, %d methods, %d endpoints",
		st.Classes, st.Functions, st.Methods, st.Endpoints)
}
