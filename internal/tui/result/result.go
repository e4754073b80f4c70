package result

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"vuload/internal/stats"
	"vuload/internal/tui/styles"
)

// Model renders a finished run.
type Model struct {
	Result      *stats.Result
	Interrupted bool

	Width  int
	Height int
}

func NewModel(res *stats.Result, interrupted bool) Model {
	return Model{Result: res, Interrupted: interrupted}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
	}
	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}
	res := m.Result

	title := "Run Complete"
	if m.Interrupted {
		title = "Run Interrupted (partial results)"
	}
	s.WriteString(styles.Title.Render(title))
	s.WriteString("\n\n")

	// 1. Overview
	s.WriteString(styles.Active.Render("Overview"))
	s.WriteString("\n")
	overview := fmt.Sprintf(
		"Run ID:         %s\nDuration:       %s\nTotal Requests: %d\nSuccess:        %d\nFailed:         %d\nTotal Bytes:    %d",
		res.ID, res.Elapsed.Round(time.Millisecond), res.Count, res.Successes, res.Failed(), res.Bytes,
	)
	s.WriteString(styles.Box.Render(overview))
	s.WriteString("\n\n")

	// 2. Requested statistics
	s.WriteString(styles.Active.Render("Latency (successful requests)"))
	s.WriteString("\n")
	lines := make([]string, 0, len(res.Stats))
	for _, st := range res.Stats {
		lines = append(lines, fmt.Sprintf("%-8s %s", st.Key+":", stats.FormatValue(st)))
	}
	s.WriteString(styles.Box.Render(strings.Join(lines, "\n")))

	// 3. Failures
	if res.Failed() > 0 {
		s.WriteString("\n\n")
		s.WriteString(styles.Error.Render("Failures"))
		s.WriteString("\n")
		var fails []string
		for _, kind := range res.FailureKinds() {
			fails = append(fails, fmt.Sprintf("%d x %s", res.Failures[kind], kind))
		}
		s.WriteString(styles.Box.Render(strings.Join(fails, "\n")))
	}

	s.WriteString("\n\n")
	s.WriteString(styles.RenderKey("q", "quit"))
	s.WriteString("\n")

	return s.String()
}
