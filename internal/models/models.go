// Package models defines the core domain types for taskscribe.
package models

import "time"

// Canonical status names, written when no explicit status is given. Boards
// use arbitrary column names, so these are untyped: they flow into the
// string-typed status fields and get mapped onto actual columns through
// the provider's alias chain.
const (
	StatusNotStarted = "Not started"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

// ItemState is the completion state of a checklist item.
type ItemState string

const (
	ItemIncomplete ItemState = "incomplete"
	ItemComplete   ItemState = "complete"
)

// Member is a board member who can be assigned to tasks.
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	// Username is an alternate lookup key (Trello has one, Notion does not).
	Username string `json:"username,omitempty"`
}

// ChecklistItem is a single independently-completable entry in a checklist.
type ChecklistItem struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	State ItemState `json:"state"`
}

// Checklist is an ordered sub-list of items attached to a task. The item
// order is significant: positional references ("the second item") index
// into it.
type Checklist struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Items []ChecklistItem `json:"items"`
}

// Task is a card/page on the board. Names are the primary lookup key for
// spoken references and are not enforced unique by any provider.
type Task struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Deadline string `json:"deadline,omitempty"` // YYYY-MM-DD
	// Label is the zero-or-one "epic" tag on the task.
	Label      string      `json:"label,omitempty"`
	Members    []Member    `json:"members,omitempty"`
	Checklists []Checklist `json:"checklists,omitempty"`
	URL        string      `json:"url,omitempty"`
}

// BoardSnapshot is a point-in-time read of the whole board. It is immutable:
// all resolution within one operation batch uses one snapshot, and a refresh
// produces a new value rather than mutating this one.
type BoardSnapshot struct {
	Tasks   []Task   `json:"tasks"`
	Labels  []string `json:"labels"`
	Members []Member `json:"members"`
	// Statuses holds the provider's list/column names in board order.
	Statuses  []string  `json:"statuses"`
	FetchedAt time.Time `json:"fetched_at"`
}

// TaskByName returns the task with the given name. Fuzzy matching is the
// resolver's job; this exact lookup is what post-write verification uses.
func (s *BoardSnapshot) TaskByName(name string) (Task, bool) {
	for _, t := range s.Tasks {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

// OperationResult records the outcome of one executed operation. The batch
// executor produces exactly one per input operation; a failed operation
// never aborts its siblings.
type OperationResult struct {
	Operation string `json:"operation"`
	Task      string `json:"task,omitempty"`
	OldName   string `json:"old_name,omitempty"`
	NewName   string `json:"new_name,omitempty"`
	Epic      string `json:"epic,omitempty"`
	Member    string `json:"member,omitempty"`
	Checklist string `json:"checklist,omitempty"`
	Item      string `json:"item,omitempty"`
	Success   bool   `json:"success"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Target returns the most specific identifier of what the result touched,
// for display and history rows.
func (r OperationResult) Target() string {
	switch {
	case r.Item != "":
		return r.Item
	case r.Checklist != "":
		return r.Checklist
	case r.OldName != "":
		return r.OldName
	case r.Task != "":
		return r.Task
	case r.Epic != "":
		return r.Epic
	default:
		return ""
	}
}
