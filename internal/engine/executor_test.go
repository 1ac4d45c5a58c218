package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/fentz26/taskscribe/internal/board/boardtest"
	"github.com/fentz26/taskscribe/internal/models"
	"github.com/fentz26/taskscribe/internal/ops"
)

func TestCreateEndToEnd(t *testing.T) {
	fake := boardtest.New()
	fake.Members = []models.Member{{ID: "m1", DisplayName: "Priya"}}

	batch := []ops.Operation{
		&ops.Create{Task: "Write onboarding docs", Deadline: "2024-03-01", Assignee: "Priya"},
	}
	results, err := New(fake).Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(results) != 1 || !results[0].Success {
		t.Fatalf("Expected one successful result, got %+v", results)
	}

	snap, err := fake.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.Tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(snap.Tasks))
	}
	task := snap.Tasks[0]
	if task.Name != "Write onboarding docs" {
		t.Errorf("Expected task name preserved, got %q", task.Name)
	}
	if task.Status != models.StatusNotStarted {
		t.Errorf("Expected default status %q, got %q", models.StatusNotStarted, task.Status)
	}
	if task.Deadline != "2024-03-01" {
		t.Errorf("Expected deadline set, got %q", task.Deadline)
	}
	if len(task.Members) != 1 || task.Members[0].ID != "m1" {
		t.Errorf("Expected Priya assigned, got %+v", task.Members)
	}
}

func TestBatchPartialFailure(t *testing.T) {
	fake := boardtest.New()
	fake.AddTask(models.Task{Name: "Exists"})

	batch := []ops.Operation{
		&ops.Delete{Task: "Completely Unrelated Thing"},
		&ops.Comment{Task: "Exists", Text: "still here"},
	}
	results, err := New(fake).Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Success {
		t.Error("Expected first operation to fail")
	}
	if results[0].Error == "" {
		t.Error("Expected failure to carry an error message")
	}
	if !results[1].Success {
		t.Errorf("Expected second operation to succeed despite first failing: %+v", results[1])
	}
}

func TestCreateEpicIdempotent(t *testing.T) {
	fake := boardtest.New()
	executor := New(fake)

	first, err := executor.Apply(context.Background(), []ops.Operation{&ops.CreateEpic{Epic: "Roadmap"}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !first[0].Success {
		t.Fatalf("First create_epic failed: %+v", first[0])
	}

	// Same epic, different casing: idempotent no-op, still a success.
	second, err := executor.Apply(context.Background(), []ops.Operation{&ops.CreateEpic{Epic: "roadmap"}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !second[0].Success {
		t.Fatalf("Second create_epic failed: %+v", second[0])
	}
	if len(fake.Labels) != 1 {
		t.Errorf("Expected exactly one label, got %v", fake.Labels)
	}
	if fake.CallCount("CreateLabel") != 1 {
		t.Errorf("Expected one CreateLabel call, got %d", fake.CallCount("CreateLabel"))
	}
}

func TestOrderingInvariant(t *testing.T) {
	fake := boardtest.New()
	// Input order is backwards: the epic assignment references a task and an
	// epic that only exist after the later operations run.
	batch := []ops.Operation{
		&ops.AssignEpic{Task: "X", Epic: "Y"},
		&ops.CreateEpic{Epic: "Y"},
		&ops.Create{Task: "X"},
	}
	results, err := New(fake).Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	for i, r := range results {
		if !r.Success {
			t.Errorf("Operation %d failed: %+v", i, r)
		}
	}
	// Results map back to input order.
	if results[0].Operation != "assign_epic" || results[2].Operation != "create" {
		t.Errorf("Results not in input order: %+v", results)
	}

	snap, _ := fake.Snapshot(context.Background())
	if len(snap.Tasks) != 1 || snap.Tasks[0].Label != "Y" {
		t.Errorf("Expected task X labeled Y, got %+v", snap.Tasks)
	}
}

func TestAssignEpicCreatesLabelOnDemand(t *testing.T) {
	fake := boardtest.New()
	fake.AddTask(models.Task{Name: "Ship v1"})

	results, err := New(fake).Apply(context.Background(), []ops.Operation{
		&ops.AssignEpic{Task: "Ship v1", Epic: "Launch"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !results[0].Success {
		t.Fatalf("assign_epic failed: %+v", results[0])
	}
	if fake.CallCount("CreateLabel") != 1 {
		t.Errorf("Expected label created on demand, got %d calls", fake.CallCount("CreateLabel"))
	}
	if fake.CallCount("AttachLabel") != 1 {
		t.Errorf("Expected label attached, got %d calls", fake.CallCount("AttachLabel"))
	}
}

func TestCreateOnUpdateChecklistItem(t *testing.T) {
	fake := boardtest.New()
	taskID := fake.AddTask(models.Task{Name: "Release"})
	if err := seedChecklist(fake, taskID, "Setup"); err != nil {
		t.Fatal(err)
	}

	results, err := New(fake).Apply(context.Background(), []ops.Operation{
		&ops.UpdateChecklistItem{Task: "Release", Checklist: "Setup", Item: "Write tests", State: "complete"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !results[0].Success {
		t.Fatalf("update_checklist_item failed: %+v", results[0])
	}

	snap, _ := fake.Snapshot(context.Background())
	items := snap.Tasks[0].Checklists[0].Items
	if len(items) != 1 {
		t.Fatalf("Expected item created, got %+v", items)
	}
	if items[0].Name != "Write tests" || items[0].State != models.ItemComplete {
		t.Errorf("Expected complete item, got %+v", items[0])
	}
	// Create-on-update must never touch the parent task's status.
	if snap.Tasks[0].Status != models.StatusNotStarted {
		t.Errorf("Task status changed to %q", snap.Tasks[0].Status)
	}
}

func TestCreateChecklistAppendsUnlessForced(t *testing.T) {
	fake := boardtest.New()
	taskID := fake.AddTask(models.Task{Name: "Release"})
	if err := seedChecklist(fake, taskID, "Launch steps"); err != nil {
		t.Fatal(err)
	}

	executor := New(fake)
	results, err := executor.Apply(context.Background(), []ops.Operation{
		&ops.CreateChecklist{Task: "Release", Checklist: "launch steps", Items: []string{"Tag release"}},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !results[0].Success {
		t.Fatalf("create_checklist failed: %+v", results[0])
	}
	if fake.CallCount("CreateChecklist") != 1 {
		t.Errorf("Expected no new checklist, got %d creates", fake.CallCount("CreateChecklist"))
	}

	// Forced: a second checklist with the same name.
	_, err = executor.Apply(context.Background(), []ops.Operation{
		&ops.CreateChecklist{Task: "Release", Checklist: "Launch steps", ForceNew: true},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if fake.CallCount("CreateChecklist") != 2 {
		t.Errorf("Expected forced checklist creation, got %d creates", fake.CallCount("CreateChecklist"))
	}
}

// A task's lone checklist must not absorb a create_checklist with an
// unrelated name; the lone-checklist shortcut is for references to an
// existing checklist, not for naming a new one.
func TestCreateChecklistUnrelatedNameCreatesNew(t *testing.T) {
	fake := boardtest.New()
	taskID := fake.AddTask(models.Task{Name: "Release"})
	if err := seedChecklist(fake, taskID, "Launch steps"); err != nil {
		t.Fatal(err)
	}

	results, err := New(fake).Apply(context.Background(), []ops.Operation{
		&ops.CreateChecklist{Task: "Release", Checklist: "Marketing assets", Items: []string{"Draft banner"}},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !results[0].Success {
		t.Fatalf("create_checklist failed: %+v", results[0])
	}
	if fake.CallCount("CreateChecklist") != 2 {
		t.Errorf("Expected a second checklist, got %d creates", fake.CallCount("CreateChecklist"))
	}
	snap, _ := fake.Snapshot(context.Background())
	if n := len(snap.Tasks[0].Checklists); n != 2 {
		t.Fatalf("Expected 2 checklists, got %d", n)
	}
	if len(snap.Tasks[0].Checklists[0].Items) != 0 {
		t.Errorf("Existing checklist gained items: %+v", snap.Tasks[0].Checklists[0].Items)
	}
}

func TestDeleteChecklistItemStrict(t *testing.T) {
	fake := boardtest.New()
	taskID := fake.AddTask(models.Task{Name: "Release"})
	if err := seedChecklist(fake, taskID, "Setup"); err != nil {
		t.Fatal(err)
	}

	results, err := New(fake).Apply(context.Background(), []ops.Operation{
		&ops.DeleteChecklistItem{Task: "Release", Checklist: "Setup", Item: "No such item"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if results[0].Success {
		t.Error("Expected delete of missing item to fail, not silently no-op")
	}
}

func TestMalformedOperationFailsAlone(t *testing.T) {
	fake := boardtest.New()
	results, err := New(fake).Apply(context.Background(), []ops.Operation{
		&ops.Rename{NewName: "Only new"},
		&ops.Create{Task: "Fine"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if results[0].Success {
		t.Error("Expected malformed rename to fail")
	}
	if !results[1].Success {
		t.Errorf("Expected sibling create to succeed: %+v", results[1])
	}
}

func TestRename(t *testing.T) {
	fake := boardtest.New()
	fake.AddTask(models.Task{Name: "Team Competency Evaluation"})

	results, err := New(fake).Apply(context.Background(), []ops.Operation{
		&ops.Rename{OldName: "Team Competency Evaluation", NewName: "Team Competency Analysis"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !results[0].Success {
		t.Fatalf("rename failed: %+v", results[0])
	}
	snap, _ := fake.Snapshot(context.Background())
	if snap.Tasks[0].Name != "Team Competency Analysis" {
		t.Errorf("Expected renamed task, got %q", snap.Tasks[0].Name)
	}
}

func TestReflectionOperations(t *testing.T) {
	fake := boardtest.New()
	fake.Statuses = append(fake.Statuses, "Reflections")

	results, err := New(fake).Apply(context.Background(), []ops.Operation{
		&ops.AddReflectionPositive{Task: "Pitch Deck", Items: []string{"Great design"}},
		&ops.AddReflectionNegative{Task: "Pitch Deck", Issues: []string{"Rushed ending"}, LessonsLearned: []string{"Practice first"}},
		&ops.CreateImprovementTask{TaskName: "Improve Presentation Process", ChecklistItems: []string{"Practice with a friend"}, Description: "Rehearse before pitch day"},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	for i, r := range results {
		if !r.Success {
			t.Errorf("Operation %d failed: %+v", i, r)
		}
	}

	snap, _ := fake.Snapshot(context.Background())
	if len(snap.Tasks) != 3 {
		t.Fatalf("Expected 3 reflection tasks, got %d", len(snap.Tasks))
	}
	for _, task := range snap.Tasks {
		if task.Status != "Reflections" {
			t.Errorf("Expected task %q in Reflections column, got %q", task.Name, task.Status)
		}
	}
	if fake.CallCount("AddComment") != 1 {
		t.Errorf("Expected lessons learned comment, got %d calls", fake.CallCount("AddComment"))
	}
	improvement := snap.Tasks[2]
	if len(improvement.Checklists) != 1 || len(improvement.Checklists[0].Items) != 1 {
		t.Errorf("Expected improvement checklist with one item, got %+v", improvement.Checklists)
	}
}

func seedChecklist(fake *boardtest.Fake, taskID, name string) error {
	if _, err := fake.CreateChecklist(context.Background(), taskID, name); err != nil {
		return fmt.Errorf("seed checklist: %w", err)
	}
	return nil
}
