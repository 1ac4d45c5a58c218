// Package tui provides the terminal screens: a pre-apply review of
// proposed operations and a read-only board browser.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/taskscribe/internal/ops"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	skippedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // Gray
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// ReviewModel lets the user include or exclude proposed operations before
// they are applied.
type ReviewModel struct {
	batch    []ops.Operation
	included []bool
	cursor   int
	accepted bool
	done     bool
}

// NewReviewModel creates a review with every operation included.
func NewReviewModel(batch []ops.Operation) *ReviewModel {
	included := make([]bool, len(batch))
	for i := range included {
		included[i] = true
	}
	return &ReviewModel{batch: batch, included: included}
}

// Accepted reports whether the user confirmed the batch.
func (m *ReviewModel) Accepted() bool { return m.accepted }

// Selected returns the operations left included, in input order.
func (m *ReviewModel) Selected() []ops.Operation {
	var kept []ops.Operation
	for i, op := range m.batch {
		if m.included[i] {
			kept = append(kept, op)
		}
	}
	return kept
}

// Init implements tea.Model.
func (m *ReviewModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m *ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.batch)-1 {
			m.cursor++
		}
	case " ":
		if len(m.batch) > 0 {
			m.included[m.cursor] = !m.included[m.cursor]
		}
	case "a":
		for i := range m.included {
			m.included[i] = true
		}
	case "n":
		for i := range m.included {
			m.included[i] = false
		}
	case "enter":
		m.accepted = true
		m.done = true
		return m, tea.Quit
	case "q", "esc", "ctrl+c":
		m.accepted = false
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m *ReviewModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Proposed operations (%d)", len(m.batch))) + "\n\n")
	for i, op := range m.batch {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		line := fmt.Sprintf("[%s] %s", checkbox(m.included[i]), Describe(op))
		if m.included[i] {
			line = selectedStyle.Render(line)
		} else {
			line = skippedStyle.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("space toggle • a all • n none • enter apply • q cancel"))
	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "x"
	}
	return " "
}

// Describe renders one operation as a short human-readable line.
func Describe(op ops.Operation) string {
	switch v := op.(type) {
	case *ops.Create:
		extra := ""
		if v.Deadline != "" {
			extra += " due " + v.Deadline
		}
		if v.Assignee != "" {
			extra += " for " + v.Assignee
		}
		return fmt.Sprintf("Create %q%s", v.Task, extra)
	case *ops.Update:
		return fmt.Sprintf("Update %q", v.Task)
	case *ops.Delete:
		return fmt.Sprintf("Delete %q", v.Task)
	case *ops.Rename:
		return fmt.Sprintf("Rename %q to %q", v.OldName, v.NewName)
	case *ops.Comment:
		return fmt.Sprintf("Comment on %q", v.Task)
	case *ops.CreateEpic:
		return fmt.Sprintf("Create epic %q", v.Epic)
	case *ops.AssignEpic:
		return fmt.Sprintf("Assign epic %q to %q", v.Epic, v.Task)
	case *ops.AssignMember:
		return fmt.Sprintf("Assign %q to %q", v.Member, v.Task)
	case *ops.RemoveMember:
		return fmt.Sprintf("Remove %q from %q", v.Member, v.Task)
	case *ops.CreateChecklist:
		return fmt.Sprintf("Checklist %q on %q (%d items)", v.Checklist, v.Task, len(v.Items))
	case *ops.UpdateChecklistItem:
		return fmt.Sprintf("Set item %q in %q to %s", v.Item, v.Checklist, v.State)
	case *ops.DeleteChecklistItem:
		return fmt.Sprintf("Delete item %q from %q", v.Item, v.Checklist)
	case *ops.DeleteChecklist:
		return fmt.Sprintf("Delete checklist %q from %q", v.Checklist, v.Task)
	case *ops.AddReflectionPositive:
		return fmt.Sprintf("Positive reflection on %q (%d items)", v.Task, len(v.Items))
	case *ops.AddReflectionNegative:
		return fmt.Sprintf("Negative reflection on %q (%d issues)", v.Task, len(v.Issues))
	case *ops.CreateImprovementTask:
		return fmt.Sprintf("Improvement task %q (%d items)", v.TaskName, len(v.ChecklistItems))
	}
	return string(op.Kind())
}
