package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vuload/internal/stats"
	"vuload/internal/tui/components"
	"vuload/internal/tui/styles"
)

// Model renders the in-progress view from runner snapshots.
type Model struct {
	Stats    stats.Snapshot
	Progress progress.Model

	RpsLine     components.Sparkline
	LatencyLine components.Sparkline

	Duration     time.Duration
	LastElapsed  time.Duration
	LastRequests int64

	Width  int
	Height int
}

func NewModel(total time.Duration) Model {
	return Model{
		Progress:    progress.New(progress.WithDefaultGradient()),
		RpsLine:     components.NewSparkline(40, "RPS", styles.Active),
		LatencyLine: components.NewSparkline(40, "Latency P90 (ms)", styles.Warn),
		Duration:    total,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stats.Snapshot:
		dt := (msg.Elapsed - m.LastElapsed).Seconds()
		if dt < 0.01 {
			dt = 0.01
		}
		m.RpsLine.Add(float64(msg.Requests-m.LastRequests) / dt)
		m.LatencyLine.Add(msg.P90Ms)

		m.Stats = msg
		m.LastRequests = msg.Requests
		m.LastElapsed = msg.Elapsed

		return m, m.Progress.SetPercent(m.Percent())

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := max(msg.Width/2-4, 10)
		m.RpsLine.Resize(half)
		m.LatencyLine.Resize(half)
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// Percent is elapsed time over the configured duration, capped at 1.
func (m Model) Percent() float64 {
	if m.Duration <= 0 {
		return 1
	}
	return min(float64(m.Stats.Elapsed)/float64(m.Duration), 1)
}

func (m Model) View() string {
	s := strings.Builder{}

	col1 := fmt.Sprintf("REQ: %d\nINF: %d", m.Stats.Requests, m.Stats.Inflight)
	col2 := fmt.Sprintf("ERR: %.2f%%\nFAIL: %d", m.Stats.ErrorRate(), m.Stats.Fail)
	col3 := fmt.Sprintf("TIME: %s/%s\nKB: %d", m.Stats.Elapsed.Round(time.Second), m.Duration, m.Stats.Bytes/1024)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(styles.ErrorRate(m.Stats.ErrorRate()).Render(col2)),
		styles.Box.Render(col3),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.RpsLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	latencies := fmt.Sprintf(
		"P50: %.2f ms  |  P90: %.2f ms  |  P99: %.2f ms  |  Max: %.2f ms",
		m.Stats.P50Ms,
		m.Stats.P90Ms,
		m.Stats.P99Ms,
		m.Stats.MaxMs,
	)
	s.WriteString(styles.Box.Render(latencies))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.ViewAs(m.Percent()))

	return s.String()
}
