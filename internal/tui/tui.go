package tui

import (
	"context"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Emberfield/autodoc/internal/analyze"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewAnalyzing ViewState = iota
	ViewResults
)

// programRef is an indirect pointer to the tea.Program so background goroutines
// can send messages. It must be set after tea.NewProgram returns but before Run.
type programRef struct {
	p *tea.Program
}

// Config holds configuration passed from the CLI layer.
type Config struct {
	Root     string
	Analysis analyze.Config
	Top      int

	// program is set internally so background goroutines can send messages.
	program *programRef
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	ctx    context.Context
	cancel context.CancelFunc
	width  int
	height int

	analyzing analyzingModel
	results   resultsModel
}

// New creates a new TUI model with the given config.
func New(cfg Config) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		state:     ViewAnalyzing,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		analyzing: newAnalyzingModel(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.analyzing.spinner.Tick, runAnalysis(m.ctx, m.config))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.state == ViewResults {
			var c tea.Cmd
			m.results, c = m.results.Update(msg)
			return m, c
		}
		return m, nil

	case tea.KeyMsg:
		// Global quit.
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "q":
			if m.state != ViewResults {
				m.cancel()
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd

	switch m.state {
	case ViewAnalyzing:
		m.analyzing, cmd = m.analyzing.Update(msg)
		if cmd != nil {
			return m, cmd
		}
		if m.analyzing.done && m.analyzing.err == nil && m.analyzing.result != nil {
			m.transitionToResults()
		}

	case ViewResults:
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) transitionToResults() {
	m.results = newResultsModel(m.analyzing.result, filepath.Base(m.analyzing.result.Root), m.config.Top)
	if m.width > 0 {
		m.results.initViewport(m.width, m.height)
	}
	m.state = ViewResults
}

func (m Model) View() string {
	switch m.state {
	case ViewAnalyzing:
		return m.analyzing.View(m.config.Root)
	case ViewResults:
		return m.results.View()
	}
	return ""
}

// Run starts the TUI program and returns the analysis result, which is nil
// when the user quits before analysis completes.
func Run(cfg Config) (*analyze.Result, error) {
	ref := &programRef{}
	cfg.program = ref
	model := New(cfg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	ref.p = p
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	fm, ok := final.(Model)
	if !ok {
		return nil, nil
	}
	if fm.analyzing.err != nil {
		return nil, fm.analyzing.err
	}
	return fm.analyzing.result, nil
}
