// Package ops defines the closed set of board operations that can be
// proposed against a snapshot, their validation rules, their execution
// ordering, and their deduplication signatures.
package ops

import (
	"fmt"
	"sort"
	"strings"
)

// Kind names an operation variant. The set is closed: decoding rejects
// anything else.
type Kind string

const (
	KindCreate                Kind = "create"
	KindUpdate                Kind = "update"
	KindDelete                Kind = "delete"
	KindRename                Kind = "rename"
	KindComment               Kind = "comment"
	KindCreateEpic            Kind = "create_epic"
	KindAssignEpic            Kind = "assign_epic"
	KindAssignMember          Kind = "assign_member"
	KindRemoveMember          Kind = "remove_member"
	KindCreateChecklist       Kind = "create_checklist"
	KindUpdateChecklistItem   Kind = "update_checklist_item"
	KindDeleteChecklistItem   Kind = "delete_checklist_item"
	KindDeleteChecklist       Kind = "delete_checklist"
	KindAddReflectionPositive Kind = "add_reflection_positive"
	KindAddReflectionNegative Kind = "add_reflection_negative"
	KindCreateImprovementTask Kind = "create_improvement_task"
)

// Operation is one structured instruction to mutate board state. Each
// variant carries only the fields relevant to its kind. Operations are
// transient: constructed per batch, never persisted.
type Operation interface {
	Kind() Kind
	// Validate reports a MalformedError if a required field is missing.
	Validate() error
	// Signature is the identity string used by the streaming dedup ledger.
	Signature() string
}

// MalformedError reports a required field missing for the operation's kind.
// It fails that single operation; sibling operations are unaffected.
type MalformedError struct {
	Op    Kind
	Field string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Op, e.Field)
}

// UnknownKindError reports an operation kind outside the closed set.
type UnknownKindError struct {
	Value string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown operation kind %q", e.Value)
}

func missing(k Kind, field string) error {
	return &MalformedError{Op: k, Field: field}
}

// Create adds a new task. Deadline, assignee, epic, description and comment
// are best-effort sub-effects applied after the primary creation.
type Create struct {
	Task        string
	Status      string
	Deadline    string
	Assignee    string
	Epic        string
	Description string
	Comment     string
}

func (o *Create) Kind() Kind { return KindCreate }

func (o *Create) Validate() error {
	if o.Task == "" {
		return missing(KindCreate, "task")
	}
	return nil
}

func (o *Create) Signature() string { return "create:" + o.Task }

// Update changes only the fields present on it; absent fields are untouched.
type Update struct {
	Task        string
	Status      string
	Deadline    string
	Assignee    string
	Epic        string
	Description string
}

func (o *Update) Kind() Kind { return KindUpdate }

func (o *Update) Validate() error {
	if o.Task == "" {
		return missing(KindUpdate, "task")
	}
	return nil
}

// Signature includes the sorted set of updated field names so that an
// update touching different fields in a later transcript window is not
// suppressed as a duplicate.
func (o *Update) Signature() string {
	var fields []string
	if o.Status != "" {
		fields = append(fields, "status")
	}
	if o.Deadline != "" {
		fields = append(fields, "deadline")
	}
	if o.Assignee != "" {
		fields = append(fields, "assignee")
	}
	if o.Epic != "" {
		fields = append(fields, "epic")
	}
	if o.Description != "" {
		fields = append(fields, "description")
	}
	sort.Strings(fields)
	return "update:" + o.Task + ":" + strings.Join(fields, ",")
}

// Delete archives (Notion) or removes (Trello) a task. A missing target is
// a failure, not a no-op.
type Delete struct {
	Task string
}

func (o *Delete) Kind() Kind { return KindDelete }

func (o *Delete) Validate() error {
	if o.Task == "" {
		return missing(KindDelete, "task")
	}
	return nil
}

func (o *Delete) Signature() string { return "delete:" + o.Task }

// Rename changes a task's name, resolved by its old name.
type Rename struct {
	OldName string
	NewName string
}

func (o *Rename) Kind() Kind { return KindRename }

func (o *Rename) Validate() error {
	if o.OldName == "" {
		return missing(KindRename, "old_name")
	}
	if o.NewName == "" {
		return missing(KindRename, "new_name")
	}
	return nil
}

func (o *Rename) Signature() string { return "rename:" + o.OldName + ":" + o.NewName }

// Comment appends a comment to a task without altering any other field.
type Comment struct {
	Task string
	Text string
}

func (o *Comment) Kind() Kind { return KindComment }

func (o *Comment) Validate() error {
	if o.Task == "" {
		return missing(KindComment, "task")
	}
	if o.Text == "" {
		return missing(KindComment, "comment")
	}
	return nil
}

func (o *Comment) Signature() string { return "comment:" + o.Task }

// CreateEpic creates a label. If an equivalent label already exists
// (case-insensitive) the executor treats it as an idempotent no-op.
type CreateEpic struct {
	Epic string
}

func (o *CreateEpic) Kind() Kind { return KindCreateEpic }

func (o *CreateEpic) Validate() error {
	if o.Epic == "" {
		return missing(KindCreateEpic, "epic")
	}
	return nil
}

func (o *CreateEpic) Signature() string { return "create_epic::" + o.Epic }

// AssignEpic attaches a label to a task, creating the label on demand.
type AssignEpic struct {
	Task string
	Epic string
}

func (o *AssignEpic) Kind() Kind { return KindAssignEpic }

func (o *AssignEpic) Validate() error {
	if o.Task == "" {
		return missing(KindAssignEpic, "task")
	}
	if o.Epic == "" {
		return missing(KindAssignEpic, "epic")
	}
	return nil
}

func (o *AssignEpic) Signature() string { return "assign_epic:" + o.Task + ":" + o.Epic }

// AssignMember attaches a member to a task, resolved by display name or
// username.
type AssignMember struct {
	Task   string
	Member string
}

func (o *AssignMember) Kind() Kind { return KindAssignMember }

func (o *AssignMember) Validate() error {
	if o.Task == "" {
		return missing(KindAssignMember, "task")
	}
	if o.Member == "" {
		return missing(KindAssignMember, "member")
	}
	return nil
}

func (o *AssignMember) Signature() string { return "assign_member:" + o.Task }

// RemoveMember detaches a member from a task.
type RemoveMember struct {
	Task   string
	Member string
}

func (o *RemoveMember) Kind() Kind { return KindRemoveMember }

func (o *RemoveMember) Validate() error {
	if o.Task == "" {
		return missing(KindRemoveMember, "task")
	}
	if o.Member == "" {
		return missing(KindRemoveMember, "member")
	}
	return nil
}

func (o *RemoveMember) Signature() string { return "remove_member:" + o.Task }

// CreateChecklist adds a checklist with optional initial items. Unless
// ForceNew is set, a similarly-named existing checklist on the task absorbs
// the items instead of a duplicate being created.
type CreateChecklist struct {
	Task      string
	Checklist string
	Items     []string
	ForceNew  bool
}

func (o *CreateChecklist) Kind() Kind { return KindCreateChecklist }

func (o *CreateChecklist) Validate() error {
	if o.Task == "" {
		return missing(KindCreateChecklist, "card")
	}
	if o.Checklist == "" {
		return missing(KindCreateChecklist, "checklist")
	}
	return nil
}

func (o *CreateChecklist) Signature() string { return "create_checklist:" + o.Task }

// UpdateChecklistItem sets an item's state, creating the item first when it
// does not exist yet. It never touches the parent task's status.
type UpdateChecklistItem struct {
	Task      string
	Checklist string
	Item      string
	State     string
}

func (o *UpdateChecklistItem) Kind() Kind { return KindUpdateChecklistItem }

func (o *UpdateChecklistItem) Validate() error {
	if o.Task == "" {
		return missing(KindUpdateChecklistItem, "card")
	}
	if o.Item == "" {
		return missing(KindUpdateChecklistItem, "item")
	}
	return nil
}

func (o *UpdateChecklistItem) Signature() string { return "update_checklist_item:" + o.Task }

// DeleteChecklistItem removes an item. A missing checklist or item is a
// failure, never a silent no-op.
type DeleteChecklistItem struct {
	Task      string
	Checklist string
	Item      string
}

func (o *DeleteChecklistItem) Kind() Kind { return KindDeleteChecklistItem }

func (o *DeleteChecklistItem) Validate() error {
	if o.Task == "" {
		return missing(KindDeleteChecklistItem, "card")
	}
	if o.Item == "" {
		return missing(KindDeleteChecklistItem, "item")
	}
	return nil
}

func (o *DeleteChecklistItem) Signature() string { return "delete_checklist_item:" + o.Task }

// DeleteChecklist removes an entire checklist including all items.
type DeleteChecklist struct {
	Task      string
	Checklist string
}

func (o *DeleteChecklist) Kind() Kind { return KindDeleteChecklist }

func (o *DeleteChecklist) Validate() error {
	if o.Task == "" {
		return missing(KindDeleteChecklist, "card")
	}
	if o.Checklist == "" {
		return missing(KindDeleteChecklist, "checklist")
	}
	return nil
}

func (o *DeleteChecklist) Signature() string { return "delete_checklist:" + o.Task }

// AddReflectionPositive records what went well on a task as an itemized
// retrospective note.
type AddReflectionPositive struct {
	Task  string
	Items []string
}

func (o *AddReflectionPositive) Kind() Kind { return KindAddReflectionPositive }

func (o *AddReflectionPositive) Validate() error {
	if o.Task == "" {
		return missing(KindAddReflectionPositive, "task")
	}
	if len(o.Items) == 0 {
		return missing(KindAddReflectionPositive, "items")
	}
	return nil
}

func (o *AddReflectionPositive) Signature() string { return "add_reflection_positive:" + o.Task }

// AddReflectionNegative records issues and their paired lessons learned.
// The issue/lesson pairing is an upstream contract and is not re-validated
// here.
type AddReflectionNegative struct {
	Task           string
	Issues         []string
	LessonsLearned []string
}

func (o *AddReflectionNegative) Kind() Kind { return KindAddReflectionNegative }

func (o *AddReflectionNegative) Validate() error {
	if o.Task == "" {
		return missing(KindAddReflectionNegative, "task")
	}
	if len(o.Issues) == 0 {
		return missing(KindAddReflectionNegative, "issues")
	}
	return nil
}

func (o *AddReflectionNegative) Signature() string { return "add_reflection_negative:" + o.Task }

// CreateImprovementTask creates a follow-up task whose checklist carries the
// lessons learned from a retrospective.
type CreateImprovementTask struct {
	TaskName       string
	ChecklistItems []string
	Description    string
}

func (o *CreateImprovementTask) Kind() Kind { return KindCreateImprovementTask }

func (o *CreateImprovementTask) Validate() error {
	if o.TaskName == "" {
		return missing(KindCreateImprovementTask, "task_name")
	}
	return nil
}

func (o *CreateImprovementTask) Signature() string { return "create_improvement_task:" + o.TaskName }
