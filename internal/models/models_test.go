package models

import "testing"

// The canonical status constants are plain column names and must be usable
// wherever a board status string goes.
func TestStatusConstantsAreColumnNames(t *testing.T) {
	task := Task{Name: "X", Status: StatusNotStarted}
	snap := BoardSnapshot{
		Tasks:    []Task{task},
		Statuses: []string{StatusNotStarted, StatusInProgress, StatusDone},
	}
	if snap.Tasks[0].Status != "Not started" {
		t.Errorf("Expected literal column name, got %q", snap.Tasks[0].Status)
	}
	var s string = StatusDone
	if s != "Done" {
		t.Errorf("Expected Done, got %q", s)
	}
}

func TestTaskByName(t *testing.T) {
	snap := &BoardSnapshot{Tasks: []Task{
		{ID: "1", Name: "Write docs"},
		{ID: "2", Name: "Ship v1"},
	}}
	got, ok := snap.TaskByName("Ship v1")
	if !ok || got.ID != "2" {
		t.Errorf("Expected task 2, got %+v (found=%v)", got, ok)
	}
	// Exact lookup only; near misses are the resolver's business.
	if _, ok := snap.TaskByName("ship v1"); ok {
		t.Error("Expected case-sensitive miss")
	}
}

func TestResultTarget(t *testing.T) {
	cases := []struct {
		res  OperationResult
		want string
	}{
		{OperationResult{Task: "X"}, "X"},
		{OperationResult{Task: "X", Checklist: "Steps"}, "Steps"},
		{OperationResult{Task: "X", Checklist: "Steps", Item: "One"}, "One"},
		{OperationResult{OldName: "Old", NewName: "New"}, "Old"},
		{OperationResult{Epic: "Roadmap"}, "Roadmap"},
		{OperationResult{}, ""},
	}
	for _, tc := range cases {
		if got := tc.res.Target(); got != tc.want {
			t.Errorf("Target(%+v): expected %q, got %q", tc.res, tc.want, got)
		}
	}
}
