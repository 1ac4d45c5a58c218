package board

import (
	"fmt"
	"strings"
)

// statusAliases maps each canonical status to the column names boards use
// for it, in fallback order. A requested status that matches no column
// literally walks its alias list before failing.
var statusAliases = map[string][]string{
	"not started": {"Not started", "To Do", "Todo", "Backlog"},
	"to do":       {"To Do", "Todo", "Not started", "Backlog"},
	"todo":        {"To Do", "Todo", "Not started", "Backlog"},
	"backlog":     {"Backlog", "To Do", "Not started"},
	"in progress": {"In Progress", "Doing", "In progress"},
	"doing":       {"Doing", "In Progress"},
	"done":        {"Done", "Complete", "Completed"},
	"complete":    {"Done", "Complete", "Completed"},
	"completed":   {"Done", "Completed", "Complete"},
}

// reflectionAliases are the dedicated retrospective columns, tried in order
// before falling back to the not-started column.
var reflectionAliases = []string{"Reflections", "Retrospective", "Retro"}

// ResolveStatus maps a requested status to one of the board's actual
// columns: literal case-insensitive match first, then the alias chain for
// the requested status.
func ResolveStatus(columns []string, requested string) (string, error) {
	want := strings.ToLower(strings.TrimSpace(requested))
	for _, col := range columns {
		if strings.ToLower(strings.TrimSpace(col)) == want {
			return col, nil
		}
	}
	for _, alias := range statusAliases[want] {
		for _, col := range columns {
			if strings.EqualFold(col, alias) {
				return col, nil
			}
		}
	}
	return "", fmt.Errorf("no board column matches status %q", requested)
}

// ResolveReflectionStatus picks the board's retrospective column, or the
// not-started column when the board has none.
func ResolveReflectionStatus(columns []string) (string, error) {
	for _, alias := range reflectionAliases {
		for _, col := range columns {
			if strings.EqualFold(col, alias) {
				return col, nil
			}
		}
	}
	return ResolveStatus(columns, "not started")
}

// FirstUnusedColor returns the first palette color not already in use,
// or fallback when the palette is exhausted. Label colors are best-effort
// unique; exhaustion is not an error.
func FirstUnusedColor(palette, used []string, fallback string) string {
	inUse := make(map[string]bool, len(used))
	for _, c := range used {
		inUse[strings.ToLower(c)] = true
	}
	for _, c := range palette {
		if !inUse[strings.ToLower(c)] {
			return c
		}
	}
	return fallback
}
