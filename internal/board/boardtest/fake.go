// Package boardtest provides an in-memory board.Provider for tests.
package boardtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fentz26/taskscribe/internal/board"
	"github.com/fentz26/taskscribe/internal/models"
)

// Fake is an in-memory Provider. Mutations apply to the internal state so a
// later Snapshot reflects them, which is what the verification path needs.
// Calls records every method invocation as "Method(args...)" for assertions.
type Fake struct {
	mu sync.Mutex

	Statuses []string
	Labels   []string
	Members  []models.Member
	Tasks    []models.Task

	// Fail maps a method name to an error that method should return.
	Fail map[string]error
	// FailOnce maps a method name to an error returned on the first call
	// only; later calls succeed. Used to exercise retry paths.
	FailOnce map[string]error

	Calls  []string
	nextID int
}

// New returns a Fake with the standard three status columns.
func New() *Fake {
	return &Fake{
		Statuses: []string{models.StatusNotStarted, models.StatusInProgress, models.StatusDone},
		Fail:     map[string]error{},
		FailOnce: map[string]error{},
	}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) record(method string, args ...string) error {
	f.Calls = append(f.Calls, method+"("+strings.Join(args, ",")+")")
	if err, ok := f.FailOnce[method]; ok {
		delete(f.FailOnce, method)
		return err
	}
	return f.Fail[method]
}

// CallCount returns how many recorded calls hit the given method.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, method+"(") {
			n++
		}
	}
	return n
}

func (f *Fake) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *Fake) task(taskID string) *models.Task {
	for i := range f.Tasks {
		if f.Tasks[i].ID == taskID {
			return &f.Tasks[i]
		}
	}
	return nil
}

// AddTask seeds a task and returns its generated ID.
func (f *Fake) AddTask(t models.Task) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = f.id("task")
	}
	if t.Status == "" {
		t.Status = models.StatusNotStarted
	}
	f.Tasks = append(f.Tasks, t)
	return t.ID
}

func (f *Fake) Snapshot(ctx context.Context) (*models.BoardSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Snapshot"); err != nil {
		return nil, err
	}
	snap := &models.BoardSnapshot{
		Labels:    append([]string(nil), f.Labels...),
		Members:   append([]models.Member(nil), f.Members...),
		Statuses:  append([]string(nil), f.Statuses...),
		FetchedAt: time.Now(),
	}
	for _, t := range f.Tasks {
		copied := t
		copied.Members = append([]models.Member(nil), t.Members...)
		copied.Checklists = make([]models.Checklist, len(t.Checklists))
		for i, cl := range t.Checklists {
			copied.Checklists[i] = cl
			copied.Checklists[i].Items = append([]models.ChecklistItem(nil), cl.Items...)
		}
		snap.Tasks = append(snap.Tasks, copied)
	}
	return snap, nil
}

func (f *Fake) CreateTask(ctx context.Context, req board.CreateTaskRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateTask", req.Name); err != nil {
		return "", err
	}
	status, err := board.ResolveStatus(f.Statuses, req.Status)
	if err != nil {
		return "", err
	}
	id := f.id("task")
	f.Tasks = append(f.Tasks, models.Task{
		ID:       id,
		Name:     req.Name,
		Status:   status,
		Deadline: req.Deadline,
	})
	return id, nil
}

func (f *Fake) UpdateTask(ctx context.Context, taskID string, patch board.TaskPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateTask", taskID); err != nil {
		return err
	}
	t := f.task(taskID)
	if t == nil {
		return fmt.Errorf("no such task %q", taskID)
	}
	if patch.Name != "" {
		t.Name = patch.Name
	}
	if patch.Status != "" {
		status, err := board.ResolveStatus(f.Statuses, patch.Status)
		if err != nil {
			return err
		}
		t.Status = status
	}
	if patch.Deadline != "" {
		t.Deadline = patch.Deadline
	}
	return nil
}

func (f *Fake) DeleteTask(ctx context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteTask", taskID); err != nil {
		return err
	}
	for i := range f.Tasks {
		if f.Tasks[i].ID == taskID {
			f.Tasks = append(f.Tasks[:i], f.Tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no such task %q", taskID)
}

func (f *Fake) AddComment(ctx context.Context, taskID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("AddComment", taskID, text)
}

func (f *Fake) CreateLabel(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateLabel", name); err != nil {
		return err
	}
	for _, l := range f.Labels {
		if strings.EqualFold(l, name) {
			return nil
		}
	}
	f.Labels = append(f.Labels, name)
	return nil
}

func (f *Fake) AttachLabel(ctx context.Context, taskID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AttachLabel", taskID, name); err != nil {
		return err
	}
	t := f.task(taskID)
	if t == nil {
		return fmt.Errorf("no such task %q", taskID)
	}
	t.Label = name
	return nil
}

func (f *Fake) AddMember(ctx context.Context, taskID, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddMember", taskID, memberID); err != nil {
		return err
	}
	t := f.task(taskID)
	if t == nil {
		return fmt.Errorf("no such task %q", taskID)
	}
	for _, m := range f.Members {
		if m.ID == memberID {
			t.Members = append(t.Members, m)
			return nil
		}
	}
	t.Members = append(t.Members, models.Member{ID: memberID})
	return nil
}

func (f *Fake) RemoveMember(ctx context.Context, taskID, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemoveMember", taskID, memberID); err != nil {
		return err
	}
	t := f.task(taskID)
	if t == nil {
		return fmt.Errorf("no such task %q", taskID)
	}
	for i, m := range t.Members {
		if m.ID == memberID {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *Fake) CreateChecklist(ctx context.Context, taskID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateChecklist", taskID, name); err != nil {
		return "", err
	}
	t := f.task(taskID)
	if t == nil {
		return "", fmt.Errorf("no such task %q", taskID)
	}
	id := f.id("checklist")
	t.Checklists = append(t.Checklists, models.Checklist{ID: id, Name: name})
	return id, nil
}

func (f *Fake) AddChecklistItem(ctx context.Context, taskID, checklistID, name string, state models.ItemState) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddChecklistItem", taskID, checklistID, name); err != nil {
		return "", err
	}
	t := f.task(taskID)
	if t == nil {
		return "", fmt.Errorf("no such task %q", taskID)
	}
	for i := range t.Checklists {
		if t.Checklists[i].ID == checklistID {
			id := f.id("item")
			t.Checklists[i].Items = append(t.Checklists[i].Items, models.ChecklistItem{
				ID:    id,
				Name:  name,
				State: state,
			})
			return id, nil
		}
	}
	return "", fmt.Errorf("no such checklist %q", checklistID)
}

func (f *Fake) SetChecklistItemState(ctx context.Context, taskID, checklistID, itemID string, state models.ItemState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetChecklistItemState", taskID, checklistID, itemID, string(state)); err != nil {
		return err
	}
	t := f.task(taskID)
	if t == nil {
		return fmt.Errorf("no such task %q", taskID)
	}
	for i := range t.Checklists {
		if t.Checklists[i].ID != checklistID {
			continue
		}
		for j := range t.Checklists[i].Items {
			if t.Checklists[i].Items[j].ID == itemID {
				t.Checklists[i].Items[j].State = state
				return nil
			}
		}
	}
	return fmt.Errorf("no such item %q", itemID)
}

func (f *Fake) DeleteChecklistItem(ctx context.Context, taskID, checklistID, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteChecklistItem", taskID, checklistID, itemID); err != nil {
		return err
	}
	t := f.task(taskID)
	if t == nil {
		return fmt.Errorf("no such task %q", taskID)
	}
	for i := range t.Checklists {
		if t.Checklists[i].ID != checklistID {
			continue
		}
		items := t.Checklists[i].Items
		for j := range items {
			if items[j].ID == itemID {
				t.Checklists[i].Items = append(items[:j], items[j+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("no such item %q", itemID)
}

func (f *Fake) DeleteChecklist(ctx context.Context, taskID, checklistID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteChecklist", taskID, checklistID); err != nil {
		return err
	}
	t := f.task(taskID)
	if t == nil {
		return fmt.Errorf("no such task %q", taskID)
	}
	for i := range t.Checklists {
		if t.Checklists[i].ID == checklistID {
			t.Checklists = append(t.Checklists[:i], t.Checklists[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no such checklist %q", checklistID)
}

var _ board.Provider = (*Fake)(nil)
