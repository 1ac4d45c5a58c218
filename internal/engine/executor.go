// Package engine executes operation batches against a board provider.
// Operations run sequentially in normalized order; every failure is
// captured into its own result and never aborts the rest of the batch.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fentz26/taskscribe/internal/board"
	"github.com/fentz26/taskscribe/internal/models"
	"github.com/fentz26/taskscribe/internal/ops"
	"github.com/fentz26/taskscribe/internal/resolve"
)

// Executor applies operations to one board.
type Executor struct {
	provider board.Provider
	resolver *resolve.Resolver
}

// New creates an executor for the given provider.
func New(provider board.Provider) *Executor {
	return &Executor{provider: provider, resolver: resolve.New()}
}

// Apply executes a batch and returns one result per input operation, in
// input order. Execution order differs: epics first, then creates, then the
// rest, so dependent references land on entities that already exist.
func (e *Executor) Apply(ctx context.Context, batch []ops.Operation) ([]models.OperationResult, error) {
	order := ops.Normalize(batch)

	snap, err := e.provider.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch board snapshot: %w", err)
	}

	results := make([]models.OperationResult, len(batch))
	dirty := false
	for _, idx := range order {
		op := batch[idx]
		if dirty {
			fresh, err := e.provider.Snapshot(ctx)
			if err != nil {
				log.Printf("engine: snapshot refresh failed, resolving against stale state: %v", err)
			} else {
				snap = fresh
				dirty = false
			}
		}
		results[idx] = e.execute(ctx, op, snap)
		if results[idx].Success && changesResolution(op.Kind()) {
			dirty = true
		}
	}
	return results, nil
}

// changesResolution reports whether a successful operation of this kind can
// change how later operations resolve by name.
func changesResolution(kind ops.Kind) bool {
	switch kind {
	case ops.KindCreate, ops.KindCreateEpic, ops.KindCreateChecklist,
		ops.KindRename, ops.KindDelete, ops.KindDeleteChecklist,
		ops.KindAddReflectionPositive, ops.KindAddReflectionNegative,
		ops.KindCreateImprovementTask:
		return true
	}
	return false
}

func (e *Executor) execute(ctx context.Context, op ops.Operation, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind())}
	if err := op.Validate(); err != nil {
		res.Error = err.Error()
		return res
	}

	switch v := op.(type) {
	case *ops.Create:
		return e.create(ctx, v, snap)
	case *ops.Update:
		return e.update(ctx, v, snap)
	case *ops.Delete:
		return e.deleteTask(ctx, v, snap)
	case *ops.Rename:
		return e.rename(ctx, v, snap)
	case *ops.Comment:
		return e.comment(ctx, v, snap)
	case *ops.CreateEpic:
		return e.createEpic(ctx, v, snap)
	case *ops.AssignEpic:
		return e.assignEpic(ctx, v, snap)
	case *ops.AssignMember:
		return e.assignMember(ctx, v, snap)
	case *ops.RemoveMember:
		return e.removeMember(ctx, v, snap)
	case *ops.CreateChecklist:
		return e.createChecklist(ctx, v, snap)
	case *ops.UpdateChecklistItem:
		return e.updateChecklistItem(ctx, v, snap)
	case *ops.DeleteChecklistItem:
		return e.deleteChecklistItem(ctx, v, snap)
	case *ops.DeleteChecklist:
		return e.deleteChecklist(ctx, v, snap)
	case *ops.AddReflectionPositive:
		return e.addReflectionPositive(ctx, v, snap)
	case *ops.AddReflectionNegative:
		return e.addReflectionNegative(ctx, v, snap)
	case *ops.CreateImprovementTask:
		return e.createImprovementTask(ctx, v, snap)
	}

	res.Error = fmt.Sprintf("unsupported operation %q", op.Kind())
	return res
}

// --- resolution helpers ---

func (e *Executor) resolveTask(snap *models.BoardSnapshot, name string) (*models.Task, error) {
	candidates := make([]resolve.Candidate, len(snap.Tasks))
	for i, t := range snap.Tasks {
		candidates[i] = resolve.Candidate{ID: t.ID, Name: t.Name}
	}
	m, err := e.resolver.Resolve(resolve.KindTask, name, candidates)
	if err != nil {
		return nil, err
	}
	return &snap.Tasks[m.Index], nil
}

func (e *Executor) resolveMember(snap *models.BoardSnapshot, name string) (models.Member, error) {
	candidates := make([]resolve.Candidate, len(snap.Members))
	for i, member := range snap.Members {
		candidates[i] = resolve.Candidate{ID: member.ID, Name: member.DisplayName, Alt: member.Username}
	}
	m, err := e.resolver.Resolve(resolve.KindMember, name, candidates)
	if err != nil {
		return models.Member{}, err
	}
	return snap.Members[m.Index], nil
}

func (e *Executor) resolveChecklist(task *models.Task, name string) (*models.Checklist, error) {
	candidates := make([]resolve.Candidate, len(task.Checklists))
	for i, cl := range task.Checklists {
		candidates[i] = resolve.Candidate{ID: cl.ID, Name: cl.Name}
	}
	m, err := e.resolver.Resolve(resolve.KindChecklist, name, candidates)
	if err != nil {
		return nil, err
	}
	return &task.Checklists[m.Index], nil
}

// similarChecklist finds an existing checklist with a similar name, with no
// positional or single-candidate fallback: an unrelated name must miss so
// the caller creates a new checklist instead of absorbing into one.
func (e *Executor) similarChecklist(task *models.Task, name string) (*models.Checklist, error) {
	candidates := make([]resolve.Candidate, len(task.Checklists))
	for i, cl := range task.Checklists {
		candidates[i] = resolve.Candidate{ID: cl.ID, Name: cl.Name}
	}
	m, err := e.resolver.ResolveSimilar(resolve.KindChecklist, name, candidates)
	if err != nil {
		return nil, err
	}
	return &task.Checklists[m.Index], nil
}

func (e *Executor) resolveItem(cl *models.Checklist, name string) (*models.ChecklistItem, error) {
	candidates := make([]resolve.Candidate, len(cl.Items))
	for i, item := range cl.Items {
		candidates[i] = resolve.Candidate{ID: item.ID, Name: item.Name}
	}
	m, err := e.resolver.Resolve(resolve.KindChecklistItem, name, candidates)
	if err != nil {
		return nil, err
	}
	return &cl.Items[m.Index], nil
}

// labelExists does a case-insensitive existence check over snapshot labels.
func labelExists(snap *models.BoardSnapshot, name string) (string, bool) {
	for _, l := range snap.Labels {
		if strings.EqualFold(strings.TrimSpace(l), strings.TrimSpace(name)) {
			return l, true
		}
	}
	return "", false
}

// ensureLabel creates the label unless an equivalent one already exists.
func (e *Executor) ensureLabel(ctx context.Context, snap *models.BoardSnapshot, name string) error {
	if _, ok := labelExists(snap, name); ok {
		return nil
	}
	return e.provider.CreateLabel(ctx, name)
}

func failed(res models.OperationResult, err error) models.OperationResult {
	res.Error = err.Error()
	return res
}

// --- per-kind execution ---

func (e *Executor) create(ctx context.Context, op *ops.Create, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task}

	status := op.Status
	if status == "" {
		status = models.StatusNotStarted
	}
	taskID, err := e.provider.CreateTask(ctx, board.CreateTaskRequest{
		Name:        op.Task,
		Status:      status,
		Deadline:    op.Deadline,
		Description: op.Description,
	})
	if err != nil {
		return failed(res, err)
	}
	res.Success = true

	// Sub-effects are best effort. The task exists at this point; a failed
	// label or member attach is logged and noted, never rolled back.
	var partial []string
	if op.Epic != "" {
		res.Epic = op.Epic
		err := e.ensureLabel(ctx, snap, op.Epic)
		if err == nil {
			err = e.provider.AttachLabel(ctx, taskID, op.Epic)
		}
		if err != nil {
			log.Printf("engine: create %q: attach epic %q: %v", op.Task, op.Epic, err)
			partial = append(partial, fmt.Sprintf("epic %q: %v", op.Epic, err))
		}
	}
	if op.Assignee != "" {
		res.Member = op.Assignee
		member, err := e.resolveMember(snap, op.Assignee)
		if err == nil {
			err = e.provider.AddMember(ctx, taskID, member.ID)
		}
		if err != nil {
			log.Printf("engine: create %q: assign %q: %v", op.Task, op.Assignee, err)
			partial = append(partial, fmt.Sprintf("assignee %q: %v", op.Assignee, err))
		}
	}
	if op.Comment != "" {
		if err := e.provider.AddComment(ctx, taskID, op.Comment); err != nil {
			log.Printf("engine: create %q: comment: %v", op.Task, err)
			partial = append(partial, fmt.Sprintf("comment: %v", err))
		}
	}
	if len(partial) > 0 {
		res.Detail = "created with incomplete sub-effects: " + strings.Join(partial, "; ")
	}
	return res
}

func (e *Executor) update(ctx context.Context, op *ops.Update, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task}
	task, err := e.resolveTask(snap, op.Task)
	if err != nil {
		return failed(res, err)
	}
	res.Task = task.Name

	patch := board.TaskPatch{
		Status:      op.Status,
		Deadline:    op.Deadline,
		Description: op.Description,
	}
	if patch != (board.TaskPatch{}) {
		if err := e.provider.UpdateTask(ctx, task.ID, patch); err != nil {
			return failed(res, err)
		}
	}
	if op.Assignee != "" {
		res.Member = op.Assignee
		member, err := e.resolveMember(snap, op.Assignee)
		if err == nil {
			err = e.provider.AddMember(ctx, task.ID, member.ID)
		}
		if err != nil {
			return failed(res, err)
		}
	}
	if op.Epic != "" {
		res.Epic = op.Epic
		if err := e.ensureLabel(ctx, snap, op.Epic); err != nil {
			return failed(res, err)
		}
		if err := e.provider.AttachLabel(ctx, task.ID, op.Epic); err != nil {
			return failed(res, err)
		}
	}
	res.Success = true
	return res
}

func (e *Executor) deleteTask(ctx context.Context, op *ops.Delete, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task}
	task, err := e.resolveTask(snap, op.Task)
	if err != nil {
		return failed(res, err)
	}
	res.Task = task.Name
	if err := e.provider.DeleteTask(ctx, task.ID); err != nil {
		return failed(res, err)
	}
	res.Success = true
	return res
}

func (e *Executor) rename(ctx context.Context, op *ops.Rename, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), OldName: op.OldName, NewName: op.NewName}
	task, err := e.resolveTask(snap, op.OldName)
	if err != nil {
		return failed(res, err)
	}
	if err := e.provider.UpdateTask(ctx, task.ID, board.TaskPatch{Name: op.NewName}); err != nil {
		return failed(res, err)
	}
	res.Success = true
	return res
}

func (e *Executor) comment(ctx context.Context, op *ops.Comment, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task}
	task, err := e.resolveTask(snap, op.Task)
	if err != nil {
		return failed(res, err)
	}
	res.Task = task.Name
	if err := e.provider.AddComment(ctx, task.ID, op.Text); err != nil {
		return failed(res, err)
	}
	res.Success = true
	return res
}

func (e *Executor) createEpic(ctx context.Context, op *ops.CreateEpic, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Epic: op.Epic}
	if existing, ok := labelExists(snap, op.Epic); ok {
		res.Success = true
		res.Detail = fmt.Sprintf("epic %q already exists", existing)
		return res
	}
	if err := e.provider.CreateLabel(ctx, op.Epic); err != nil {
		return failed(res, err)
	}
	res.Success = true
	return res
}

func (e *Executor) assignEpic(ctx context.Context, op *ops.AssignEpic, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task, Epic: op.Epic}
	task, err := e.resolveTask(snap, op.Task)
	if err != nil {
		return failed(res, err)
	}
	res.Task = task.Name
	if err := e.ensureLabel(ctx, snap, op.Epic); err != nil {
		return failed(res, err)
	}
	if err := e.provider.AttachLabel(ctx, task.ID, op.Epic); err != nil {
		return failed(res, err)
	}
	res.Success = true
	return res
}

func (e *Executor) assignMember(ctx context.Context, op *ops.AssignMember, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task, Member: op.Member}
	task, err := e.resolveTask(snap, op.Task)
	if err != nil {
		return failed(res, err)
	}
	res.Task = task.Name
	member, err := e.resolveMember(snap, op.Member)
	if err != nil {
		return failed(res, err)
	}
	res.Member = member.DisplayName
	if err := e.provider.AddMember(ctx, task.ID, member.ID); err != nil {
		return failed(res, err)
	}
	res.Success = true
	return res
}

func (e *Executor) removeMember(ctx context.Context, op *ops.RemoveMember, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task, Member: op.Member}
	task, err := e.resolveTask(snap, op.Task)
	if err != nil {
		return failed(res, err)
	}
	res.Task = task.Name
	member, err := e.resolveMember(snap, op.Member)
	if err != nil {
		return failed(res, err)
	}
	res.Member = member.DisplayName
	if err := e.provider.RemoveMember(ctx, task.ID, member.ID); err != nil {
		return failed(res, err)
	}
	res.Success = true
	return res
}

func (e *Executor) createChecklist(ctx context.Context, op *ops.CreateChecklist, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task, Checklist: op.Checklist}
	task, err := e.resolveTask(snap, op.Task)
	if err != nil {
		return failed(res, err)
	}
	res.Task = task.Name

	// Append to a similarly named existing checklist unless explicitly
	// forced new. Similarity only: a task's lone checklist must not absorb
	// an unrelated name.
	var checklistID string
	if !op.ForceNew {
		if existing, err := e.similarChecklist(task, op.Checklist); err == nil {
			checklistID = existing.ID
			res.Checklist = existing.Name
			res.Detail = fmt.Sprintf("appended to existing checklist %q", existing.Name)
		}
	}
	if checklistID == "" {
		checklistID, err = e.provider.CreateChecklist(ctx, task.ID, op.Checklist)
		if err != nil {
			return failed(res, err)
		}
	}

	var partial []string
	for _, item := range op.Items {
		if _, err := e.provider.AddChecklistItem(ctx, task.ID, checklistID, item, models.ItemIncomplete); err != nil {
			log.Printf("engine: checklist %q: add item %q: %v", op.Checklist, item, err)
			partial = append(partial, fmt.Sprintf("item %q: %v", item, err))
		}
	}
	if len(partial) > 0 {
		res.Detail = strings.TrimSpace(res.Detail + " incomplete items: " + strings.Join(partial, "; "))
	}
	res.Success = true
	return res
}

func (e *Executor) updateChecklistItem(ctx context.Context, op *ops.UpdateChecklistItem, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task, Checklist: op.Checklist, Item: op.Item}
	task, err := e.resolveTask(snap, op.Task)
	if err != nil {
		return failed(res, err)
	}
	res.Task = task.Name
	cl, err := e.resolveChecklist(task, op.Checklist)
	if err != nil {
		return failed(res, err)
	}
	res.Checklist = cl.Name

	state := parseItemState(op.State)
	item, err := e.resolveItem(cl, op.Item)
	switch {
	case resolve.IsNotFound(err):
		// Conversational phrasing often introduces an item and its state in
		// the same sentence, so a missing item is created, not rejected.
		if _, err := e.provider.AddChecklistItem(ctx, task.ID, cl.ID, op.Item, state); err != nil {
			return failed(res, err)
		}
		res.Detail = fmt.Sprintf("item %q created with state %s", op.Item, state)
	case err != nil:
		return failed(res, err)
	default:
		res.Item = item.Name
		if err := e.provider.SetChecklistItemState(ctx, task.ID, cl.ID, item.ID, state); err != nil {
			return failed(res, err)
		}
	}
	// Item state never cascades into the parent task's status.
	res.Success = true
	return res
}

func (e *Executor) deleteChecklistItem(ctx context.Context, op *ops.DeleteChecklistItem, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task, Checklist: op.Checklist, Item: op.Item}
	task, err := e.resolveTask(snap, op.Task)
	if err != nil {
		return failed(res, err)
	}
	res.Task = task.Name
	cl, err := e.resolveChecklist(task, op.Checklist)
	if err != nil {
		return failed(res, err)
	}
	res.Checklist = cl.Name
	item, err := e.resolveItem(cl, op.Item)
	if err != nil {
		return failed(res, err)
	}
	res.Item = item.Name
	if err := e.provider.DeleteChecklistItem(ctx, task.ID, cl.ID, item.ID); err != nil {
		return failed(res, err)
	}
	res.Success = true
	return res
}

func (e *Executor) deleteChecklist(ctx context.Context, op *ops.DeleteChecklist, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task, Checklist: op.Checklist}
	task, err := e.resolveTask(snap, op.Task)
	if err != nil {
		return failed(res, err)
	}
	res.Task = task.Name
	cl, err := e.resolveChecklist(task, op.Checklist)
	if err != nil {
		return failed(res, err)
	}
	res.Checklist = cl.Name
	if err := e.provider.DeleteChecklist(ctx, task.ID, cl.ID); err != nil {
		return failed(res, err)
	}
	res.Success = true
	return res
}

// --- retrospective composites ---

func bulleted(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Executor) addReflectionPositive(ctx context.Context, op *ops.AddReflectionPositive, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task}
	column, err := board.ResolveReflectionStatus(snap.Statuses)
	if err != nil {
		return failed(res, err)
	}
	_, err = e.provider.CreateTask(ctx, board.CreateTaskRequest{
		Name:        "What went well: " + op.Task,
		Status:      column,
		Description: bulleted(op.Items),
	})
	if err != nil {
		return failed(res, err)
	}
	res.Success = true
	return res
}

func (e *Executor) addReflectionNegative(ctx context.Context, op *ops.AddReflectionNegative, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.Task}
	column, err := board.ResolveReflectionStatus(snap.Statuses)
	if err != nil {
		return failed(res, err)
	}
	taskID, err := e.provider.CreateTask(ctx, board.CreateTaskRequest{
		Name:        "What didn't go well: " + op.Task,
		Status:      column,
		Description: bulleted(op.Issues),
	})
	if err != nil {
		return failed(res, err)
	}
	res.Success = true
	if len(op.LessonsLearned) > 0 {
		comment := "Lessons learned:\n" + bulleted(op.LessonsLearned)
		if err := e.provider.AddComment(ctx, taskID, comment); err != nil {
			log.Printf("engine: reflection %q: lessons comment: %v", op.Task, err)
			res.Detail = fmt.Sprintf("lessons comment failed: %v", err)
		}
	}
	return res
}

func (e *Executor) createImprovementTask(ctx context.Context, op *ops.CreateImprovementTask, snap *models.BoardSnapshot) models.OperationResult {
	res := models.OperationResult{Operation: string(op.Kind()), Task: op.TaskName}
	column, err := board.ResolveReflectionStatus(snap.Statuses)
	if err != nil {
		return failed(res, err)
	}
	taskID, err := e.provider.CreateTask(ctx, board.CreateTaskRequest{
		Name:        op.TaskName,
		Status:      column,
		Description: op.Description,
	})
	if err != nil {
		return failed(res, err)
	}
	res.Success = true
	if len(op.ChecklistItems) > 0 {
		checklistID, err := e.provider.CreateChecklist(ctx, taskID, "Improvements")
		if err != nil {
			log.Printf("engine: improvement %q: create checklist: %v", op.TaskName, err)
			res.Detail = fmt.Sprintf("checklist failed: %v", err)
			return res
		}
		for _, item := range op.ChecklistItems {
			if _, err := e.provider.AddChecklistItem(ctx, taskID, checklistID, item, models.ItemIncomplete); err != nil {
				log.Printf("engine: improvement %q: add item %q: %v", op.TaskName, item, err)
			}
		}
	}
	return res
}

// parseItemState maps conversational state words onto the two item states.
func parseItemState(raw string) models.ItemState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "complete", "completed", "done", "checked", "finished":
		return models.ItemComplete
	}
	return models.ItemIncomplete
}
