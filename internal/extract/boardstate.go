package extract

import (
	"fmt"
	"strings"

	"github.com/fentz26/taskscribe/internal/models"
)

// FormatBoardState renders the snapshot as the plain-text board summary
// given to the extraction model: tasks grouped by status column, with
// assignee, deadline, and epic appended when present.
func FormatBoardState(snap *models.BoardSnapshot) string {
	if snap == nil || len(snap.Tasks) == 0 {
		return "No tasks found"
	}

	byStatus := make(map[string][]models.Task)
	var order []string
	for _, t := range snap.Tasks {
		status := t.Status
		if status == "" {
			status = "Unknown"
		}
		if _, ok := byStatus[status]; !ok {
			order = append(order, status)
		}
		byStatus[status] = append(byStatus[status], t)
	}

	var b strings.Builder
	for _, status := range order {
		tasks := byStatus[status]
		fmt.Fprintf(&b, "%s (%d):\n", status, len(tasks))
		for _, t := range tasks {
			b.WriteString("  - " + t.Name)
			if len(t.Members) > 0 {
				b.WriteString(" (Assigned to: " + t.Members[0].DisplayName + ")")
			}
			if t.Deadline != "" {
				b.WriteString(" (Due: " + t.Deadline + ")")
			}
			if t.Label != "" {
				b.WriteString(" (Epic: " + t.Label + ")")
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// SummarizeResults renders one line per operation result for terminal
// output.
func SummarizeResults(results []models.OperationResult) string {
	if len(results) == 0 {
		return "No operations executed"
	}
	var b strings.Builder
	for i, r := range results {
		mark := "ok"
		if !r.Success {
			mark = "FAILED"
		}
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, mark, r.Operation)
		if target := r.Target(); target != "" {
			fmt.Fprintf(&b, ": %s", target)
		}
		if r.Detail != "" {
			fmt.Fprintf(&b, " (%s)", r.Detail)
		}
		if r.Error != "" {
			fmt.Fprintf(&b, " (%s)", r.Error)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
