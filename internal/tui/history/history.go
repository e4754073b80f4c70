package history

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vuload/internal/storage"
	"vuload/internal/tui/result"
	"vuload/internal/tui/styles"
)

// Model browses saved runs. Enter opens a run's summary and esc returns to the table.
type Model struct {
	Items  []storage.HistoryItem
	Table  table.Model
	Detail *result.Model

	Width  int
	Height int
}

func NewModel(items []storage.HistoryItem) Model {
	columns := []table.Column{
		{Title: "Time", Width: 20},
		{Title: "URL", Width: 36},
		{Title: "VUs", Width: 6},
		{Title: "Reqs", Width: 10},
		{Title: "Failed", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	rows := make([]table.Row, len(items))
	for i, item := range items {
		rows[i] = table.Row{
			item.Timestamp.Local().Format(time.DateTime),
			item.Config.URL,
			fmt.Sprintf("%d", item.Config.VUs),
			fmt.Sprintf("%d", item.Result.Count),
			fmt.Sprintf("%d", item.Result.Failed()),
		}
	}
	t.SetRows(rows)

	return Model{Items: items, Table: t}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			m.Detail = nil
			return m, nil
		case "enter":
			if m.Detail == nil && len(m.Items) > 0 {
				item := m.Items[m.Table.Cursor()]
				d := result.NewModel(item.Result, false)
				m.Detail = &d
			}
			return m, nil
		}
	}

	if m.Detail != nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Detail != nil {
		return m.Detail.View() + styles.RenderKey("esc", "back") + "\n"
	}
	if len(m.Items) == 0 {
		return styles.Subtle.Render("No runs recorded yet.") + "\n"
	}
	return styles.Box.Render(m.Table.View()) + "\n" +
		styles.RenderKey("enter", "details") + "  " + styles.RenderKey("q", "quit") + "\n"
}
