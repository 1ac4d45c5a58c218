package ops

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawOp is the flat wire shape produced by the extraction step: an
// "operation" discriminator plus whichever kind-specific fields apply.
// Trello-era transcripts say "card" where Notion-era ones say "task", and
// "member" where older prompts said "assignee"; both spellings are accepted.
type rawOp struct {
	Operation      string   `json:"operation"`
	Task           string   `json:"task"`
	Card           string   `json:"card"`
	TaskName       string   `json:"task_name"`
	OldName        string   `json:"old_name"`
	NewName        string   `json:"new_name"`
	Status         string   `json:"status"`
	Deadline       string   `json:"deadline"`
	Assignee       string   `json:"assignee"`
	Member         string   `json:"member"`
	Epic           string   `json:"epic"`
	Comment        string   `json:"comment"`
	Description    string   `json:"description"`
	Checklist      string   `json:"checklist"`
	Item           string   `json:"item"`
	Items          []string `json:"items"`
	State          string   `json:"state"`
	ForceNew       bool     `json:"force_new"`
	Issues         []string `json:"issues"`
	LessonsLearned []string `json:"lessons_learned"`
	ChecklistItems []string `json:"checklist_items"`
}

func (r *rawOp) taskOrCard() string {
	if r.Task != "" {
		return r.Task
	}
	return r.Card
}

func (r *rawOp) assigneeOrMember() string {
	if r.Assignee != "" {
		return r.Assignee
	}
	return r.Member
}

// Decode parses a JSON array of flat operation objects into typed
// operations. Unknown kinds are rejected here, at construction time, rather
// than deep in execution. Decode does not run per-kind field validation;
// the executor validates each operation individually so that one malformed
// operation cannot fail the whole batch.
func Decode(data []byte) ([]Operation, error) {
	var raws []rawOp
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode operations: %w", err)
	}
	out := make([]Operation, 0, len(raws))
	for i, r := range raws {
		op, err := fromRaw(&r)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		out = append(out, op)
	}
	return out, nil
}

func fromRaw(r *rawOp) (Operation, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(r.Operation))) {
	case KindCreate:
		return &Create{
			Task:        r.Task,
			Status:      r.Status,
			Deadline:    r.Deadline,
			Assignee:    r.assigneeOrMember(),
			Epic:        r.Epic,
			Description: r.Description,
			Comment:     r.Comment,
		}, nil
	case KindUpdate:
		return &Update{
			Task:        r.Task,
			Status:      r.Status,
			Deadline:    r.Deadline,
			Assignee:    r.assigneeOrMember(),
			Epic:        r.Epic,
			Description: r.Description,
		}, nil
	case KindDelete:
		return &Delete{Task: r.Task}, nil
	case KindRename:
		return &Rename{OldName: r.OldName, NewName: r.NewName}, nil
	case KindComment:
		return &Comment{Task: r.Task, Text: r.Comment}, nil
	case KindCreateEpic:
		return &CreateEpic{Epic: r.Epic}, nil
	case KindAssignEpic:
		return &AssignEpic{Task: r.Task, Epic: r.Epic}, nil
	case KindAssignMember:
		return &AssignMember{Task: r.Task, Member: r.assigneeOrMember()}, nil
	case KindRemoveMember:
		return &RemoveMember{Task: r.Task, Member: r.assigneeOrMember()}, nil
	case KindCreateChecklist:
		return &CreateChecklist{
			Task:      r.taskOrCard(),
			Checklist: r.Checklist,
			Items:     r.Items,
			ForceNew:  r.ForceNew,
		}, nil
	case KindUpdateChecklistItem:
		return &UpdateChecklistItem{
			Task:      r.taskOrCard(),
			Checklist: r.Checklist,
			Item:      r.Item,
			State:     r.State,
		}, nil
	case KindDeleteChecklistItem:
		return &DeleteChecklistItem{
			Task:      r.taskOrCard(),
			Checklist: r.Checklist,
			Item:      r.Item,
		}, nil
	case KindDeleteChecklist:
		return &DeleteChecklist{Task: r.taskOrCard(), Checklist: r.Checklist}, nil
	case KindAddReflectionPositive:
		return &AddReflectionPositive{Task: r.taskOrCard(), Items: r.Items}, nil
	case KindAddReflectionNegative:
		return &AddReflectionNegative{
			Task:           r.taskOrCard(),
			Issues:         r.Issues,
			LessonsLearned: r.LessonsLearned,
		}, nil
	case KindCreateImprovementTask:
		return &CreateImprovementTask{
			TaskName:       r.TaskName,
			ChecklistItems: r.ChecklistItems,
			Description:    r.Description,
		}, nil
	default:
		return nil, &UnknownKindError{Value: r.Operation}
	}
}
