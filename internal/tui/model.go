package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"vuload/internal/runner"
	"vuload/internal/stats"
	"vuload/internal/tui/live"
	"vuload/internal/tui/result"
	"vuload/internal/tui/styles"
)

var subtle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// doneMsg carries the runner's return values into the program.
type doneMsg struct {
	res *stats.Result
	err error
}

// Model switches from the live view to the result view once the run finishes. Quitting
// while the run is active cancels it and waits for the partial result.
type Model struct {
	Cfg     runner.Config
	Live    live.Model
	Result  result.Model
	Done    bool
	Err     error
	Stopped bool

	ctx     context.Context
	updates runner.StatsUpdateChan
	cancel  context.CancelFunc
}

func NewModel(ctx context.Context, r *runner.Runner, updates runner.StatsUpdateChan, cancel context.CancelFunc) Model {
	return Model{
		Cfg:     r.Cfg,
		Live:    live.NewModel(r.Gate().Duration()),
		ctx:     ctx,
		updates: updates,
		cancel:  cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return waitForUpdate(m.ctx, m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.Done {
				return m, tea.Quit
			}
			if !m.Stopped {
				m.Stopped = true
				m.cancel()
			}
			return m, nil
		}

	case stats.Snapshot:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		return m, tea.Batch(cmd, waitForUpdate(m.ctx, m.updates))

	case doneMsg:
		m.Done = true
		m.Err = msg.err
		if msg.err != nil {
			return m, tea.Quit
		}
		m.Result = result.NewModel(msg.res, m.Stopped)
		return m, nil

	case tea.WindowSizeMsg:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		m.Result, _ = m.Result.Update(msg)
		return m, cmd

	default:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}

	s.WriteString(styles.Title.Render("vuload"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("URL: %s %s | VUs: %d", m.Cfg.Method, m.Cfg.URL, m.Cfg.VUs))
	if m.Cfg.ThinkTime > 0 {
		s.WriteString(fmt.Sprintf(" | ThinkTime: %s", m.Cfg.ThinkTime))
	}
	s.WriteString("\n\n")

	switch {
	case m.Done && m.Err != nil:
		s.WriteString(styles.Error.Render("Run failed: " + m.Err.Error()))
		s.WriteString("\n")
	case m.Done:
		s.WriteString(m.Result.View())
	default:
		s.WriteString(m.Live.View())
		s.WriteString("\n")
		if m.Stopped {
			s.WriteString(styles.Warn.Render("Stopping, waiting for in-flight requests..."))
		} else {
			s.WriteString(subtle.Render("Press q to stop"))
		}
		s.WriteString("\n")
	}
	return s.String()
}

func waitForUpdate(ctx context.Context, updates runner.StatsUpdateChan) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case s := <-updates:
			return s
		case <-ctx.Done():
			return nil
		}
	}
}

// Run executes r behind the live view and returns the runner's result once the user
// leaves the result screen.
func Run(ctx context.Context, r *runner.Runner, updates runner.StatsUpdateChan, opts ...tea.ProgramOption) (*stats.Result, error) {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	uiCtx, cancelUI := context.WithCancel(context.Background())
	defer cancelUI()

	p := tea.NewProgram(NewModel(uiCtx, r, updates, cancelRun), opts...)

	runDone := make(chan doneMsg, 1)
	go func() {
		res, err := r.Run(runCtx)
		d := doneMsg{res: res, err: err}
		runDone <- d
		p.Send(d)
	}()

	// Signals land on ctx; the program only sees keys.
	go func() {
		select {
		case <-ctx.Done():
			p.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
		case <-uiCtx.Done():
		}
	}()

	if _, err := p.Run(); err != nil {
		cancelRun()
		<-runDone
		return nil, errors.Wrap(err, "running tui")
	}
	cancelUI()

	cancelRun()
	d := <-runDone
	return d.res, d.err
}
