package ops

import (
	"errors"
	"testing"
)

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`[{"operation": "explode", "task": "X"}]`))
	if err == nil {
		t.Fatal("Expected error for unknown operation kind")
	}
	// Decode wraps the error with the operation's batch position.
	var uk *UnknownKindError
	if !errors.As(err, &uk) {
		t.Fatalf("Expected UnknownKindError, got %T: %v", err, err)
	}
	if uk.Value != "explode" {
		t.Errorf("Expected offending kind in error, got %q", uk.Value)
	}
}

func TestDecodeAllKinds(t *testing.T) {
	input := `[
		{"operation": "create", "task": "Write docs", "status": "To Do", "deadline": "2024-03-01", "assignee": "Priya"},
		{"operation": "update", "task": "Fix login bug", "status": "Done"},
		{"operation": "rename", "old_name": "Old", "new_name": "New"},
		{"operation": "comment", "task": "Write docs", "comment": "Draft ready"},
		{"operation": "create_epic", "epic": "roadmap"},
		{"operation": "assign_epic", "task": "Write docs", "epic": "roadmap"},
		{"operation": "create_checklist", "card": "Write docs", "checklist": "Steps", "items": ["One", "Two"], "force_new": true},
		{"operation": "update_checklist_item", "card": "Write docs", "checklist": "Steps", "item": "One", "state": "complete"},
		{"operation": "add_reflection_negative", "task": "Launch", "issues": ["late"], "lessons_learned": ["start earlier"]},
		{"operation": "create_improvement_task", "task_name": "Improve Process", "checklist_items": ["template"], "description": "do better"}
	]`
	batch, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(batch) != 10 {
		t.Fatalf("Expected 10 operations, got %d", len(batch))
	}

	create, ok := batch[0].(*Create)
	if !ok {
		t.Fatalf("Expected *Create, got %T", batch[0])
	}
	if create.Task != "Write docs" || create.Deadline != "2024-03-01" || create.Assignee != "Priya" {
		t.Errorf("Create fields wrong: %+v", create)
	}

	cl, ok := batch[6].(*CreateChecklist)
	if !ok {
		t.Fatalf("Expected *CreateChecklist, got %T", batch[6])
	}
	if cl.Task != "Write docs" || !cl.ForceNew || len(cl.Items) != 2 {
		t.Errorf("CreateChecklist fields wrong: %+v", cl)
	}

	neg, ok := batch[8].(*AddReflectionNegative)
	if !ok {
		t.Fatalf("Expected *AddReflectionNegative, got %T", batch[8])
	}
	if len(neg.Issues) != 1 || len(neg.LessonsLearned) != 1 {
		t.Errorf("Reflection fields wrong: %+v", neg)
	}
}

func TestDecodeMemberAlias(t *testing.T) {
	batch, err := Decode([]byte(`[{"operation": "assign_member", "task": "X", "member": "Jon"}]`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if am := batch[0].(*AssignMember); am.Member != "Jon" {
		t.Errorf("Expected member Jon, got %q", am.Member)
	}
}

func TestValidateMissingFields(t *testing.T) {
	cases := []struct {
		op    Operation
		field string
	}{
		{&Create{}, "task"},
		{&Rename{OldName: "X"}, "new_name"},
		{&Rename{NewName: "Y"}, "old_name"},
		{&CreateEpic{}, "epic"},
		{&UpdateChecklistItem{Task: "X"}, "item"},
		{&CreateImprovementTask{}, "task_name"},
	}
	for _, tc := range cases {
		err := tc.op.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.op.Kind())
			continue
		}
		var me *MalformedError
		if !errors.As(err, &me) {
			t.Errorf("%s: expected MalformedError, got %T", tc.op.Kind(), err)
			continue
		}
		if me.Field != tc.field {
			t.Errorf("%s: expected missing field %q, got %q", tc.op.Kind(), tc.field, me.Field)
		}
	}
}

func TestSignatures(t *testing.T) {
	cases := []struct {
		op   Operation
		want string
	}{
		{&Create{Task: "Ship v1"}, "create:Ship v1"},
		{&Update{Task: "X", Status: "Done", Deadline: "2024-01-01"}, "update:X:deadline,status"},
		{&Rename{OldName: "A", NewName: "B"}, "rename:A:B"},
		{&CreateEpic{Epic: "Roadmap"}, "create_epic::Roadmap"},
		{&AssignEpic{Task: "X", Epic: "Roadmap"}, "assign_epic:X:Roadmap"},
		{&Delete{Task: "X"}, "delete:X"},
		{&CreateChecklist{Task: "X", Checklist: "Steps"}, "create_checklist:X"},
	}
	for _, tc := range cases {
		if got := tc.op.Signature(); got != tc.want {
			t.Errorf("%s: expected signature %q, got %q", tc.op.Kind(), tc.want, got)
		}
	}
}

// Update signatures must differ when different fields change, so a later
// update touching new fields is not suppressed as a duplicate.
func TestUpdateSignatureFieldSensitive(t *testing.T) {
	a := (&Update{Task: "X", Status: "Done"}).Signature()
	b := (&Update{Task: "X", Deadline: "2024-01-01"}).Signature()
	if a == b {
		t.Errorf("Signatures should differ: %q vs %q", a, b)
	}
}

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"shoptalk product": "Shoptalk Product",
		"ROADMAP":          "Roadmap",
		"  mixed  CASE ":   "Mixed Case",
		"épico grande":     "Épico Grande",
		"":                 "",
	}
	for in, want := range cases {
		if got := TitleCase(in); got != want {
			t.Errorf("TitleCase(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestNormalizeOrdering(t *testing.T) {
	batch := []Operation{
		&AssignEpic{Task: "X", Epic: "y epic"},
		&CreateEpic{Epic: "y epic"},
		&Create{Task: "X"},
	}
	order := Normalize(batch)
	if len(order) != 3 {
		t.Fatalf("Expected 3 indices, got %d", len(order))
	}
	// Execution order: create_epic, create, assign_epic.
	wantKinds := []Kind{KindCreateEpic, KindCreate, KindAssignEpic}
	for i, idx := range order {
		if batch[idx].Kind() != wantKinds[i] {
			t.Errorf("Position %d: expected %s, got %s", i, wantKinds[i], batch[idx].Kind())
		}
	}
}

func TestNormalizeTitleCasesEpics(t *testing.T) {
	batch := []Operation{
		&CreateEpic{Epic: "agilow product"},
		&AssignEpic{Task: "X", Epic: "agilow product"},
	}
	Normalize(batch)
	if e := batch[0].(*CreateEpic).Epic; e != "Agilow Product" {
		t.Errorf("Expected title-cased epic, got %q", e)
	}
	if e := batch[1].(*AssignEpic).Epic; e != "Agilow Product" {
		t.Errorf("Expected title-cased epic, got %q", e)
	}
}

func TestNormalizeStableWithinGroups(t *testing.T) {
	batch := []Operation{
		&Create{Task: "A"},
		&Create{Task: "B"},
		&Delete{Task: "C"},
		&Delete{Task: "D"},
	}
	order := Normalize(batch)
	want := []int{0, 1, 2, 3}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("Expected stable order %v, got %v", want, order)
		}
	}
}
