package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/taskscribe/internal/models"
)

var (
	boardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	statusNotStarted = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // Cyan
	statusDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
)

// TaskItem implements list.Item for the board browser.
type TaskItem struct {
	Name     string
	Status   string
	Deadline string
	Epic     string
	Assignee string
}

func (i TaskItem) FilterValue() string { return i.Name }
func (i TaskItem) Title() string       { return i.Name }
func (i TaskItem) Description() string {
	desc := formatStatus(i.Status)
	if i.Assignee != "" {
		desc += " • " + i.Assignee
	}
	if i.Deadline != "" {
		desc += " • due " + i.Deadline
	}
	if i.Epic != "" {
		desc += " • " + i.Epic
	}
	return desc
}

func formatStatus(status string) string {
	switch status {
	case models.StatusNotStarted, "To Do", "Todo", "Backlog":
		return statusNotStarted.Render("● " + status)
	case models.StatusInProgress, "Doing":
		return statusInProgress.Render("● " + status)
	case models.StatusDone, "Complete", "Completed":
		return statusDone.Render("● " + status)
	default:
		return status
	}
}

// BoardModel is a read-only browser over one snapshot.
type BoardModel struct {
	list list.Model
}

// NewBoardModel creates a board browser from a snapshot.
func NewBoardModel(snap *models.BoardSnapshot) *BoardModel {
	items := make([]list.Item, 0, len(snap.Tasks))
	for _, t := range snap.Tasks {
		item := TaskItem{
			Name:     t.Name,
			Status:   t.Status,
			Deadline: t.Deadline,
			Epic:     t.Label,
		}
		if len(t.Members) > 0 {
			item.Assignee = t.Members[0].DisplayName
		}
		items = append(items, item)
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 80, 20)
	l.Title = fmt.Sprintf("Board (%d tasks)", len(snap.Tasks))
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = boardTitleStyle

	return &BoardModel{list: l}
}

// Init implements tea.Model.
func (m *BoardModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m *BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *BoardModel) View() string {
	return m.list.View()
}
