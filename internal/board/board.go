// Package board defines the provider-agnostic interface to an external
// task board. Adapters (Trello, Notion) implement Provider; everything
// above this package works in snapshot terms and never sees provider IDs
// beyond the opaque keys carried on snapshot entities.
package board

import (
	"context"

	"github.com/fentz26/taskscribe/internal/models"
)

// CreateTaskRequest carries the primary fields of a new task. Sub-effects
// (label, member, comment) are separate calls; there is no multi-entity
// transaction on any provider.
type CreateTaskRequest struct {
	Name        string
	Status      string
	Deadline    string
	Description string
}

// TaskPatch carries the fields to change on a task. Empty fields are left
// untouched.
type TaskPatch struct {
	Name        string
	Status      string
	Deadline    string
	Description string
}

// Provider is the write/read surface of one external task board. Every
// method is a single blocking HTTP call (or a small fixed sequence of
// them); partial failure is the caller's problem to report.
type Provider interface {
	Name() string

	// Snapshot fetches the full board state: tasks with their checklists,
	// labels, members, and the board's status columns in listing order.
	Snapshot(ctx context.Context) (*models.BoardSnapshot, error)

	CreateTask(ctx context.Context, req CreateTaskRequest) (taskID string, err error)
	UpdateTask(ctx context.Context, taskID string, patch TaskPatch) error
	// DeleteTask archives (Notion) or removes (Trello) a task.
	DeleteTask(ctx context.Context, taskID string) error
	AddComment(ctx context.Context, taskID, text string) error

	CreateLabel(ctx context.Context, name string) error
	AttachLabel(ctx context.Context, taskID, name string) error

	AddMember(ctx context.Context, taskID, memberID string) error
	RemoveMember(ctx context.Context, taskID, memberID string) error

	CreateChecklist(ctx context.Context, taskID, name string) (checklistID string, err error)
	AddChecklistItem(ctx context.Context, taskID, checklistID, name string, state models.ItemState) (itemID string, err error)
	SetChecklistItemState(ctx context.Context, taskID, checklistID, itemID string, state models.ItemState) error
	DeleteChecklistItem(ctx context.Context, taskID, checklistID, itemID string) error
	DeleteChecklist(ctx context.Context, taskID, checklistID string) error
}
