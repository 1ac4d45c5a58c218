package board

import "testing"

func TestResolveStatusLiteral(t *testing.T) {
	columns := []string{"Not started", "In Progress", "Done"}
	got, err := ResolveStatus(columns, "in progress")
	if err != nil {
		t.Fatalf("ResolveStatus failed: %v", err)
	}
	if got != "In Progress" {
		t.Errorf("Expected literal column, got %q", got)
	}
}

func TestResolveStatusAliasChain(t *testing.T) {
	// A Trello-style board without a "Not started" column still accepts the
	// canonical status via its alias chain.
	columns := []string{"To Do", "Doing", "Done"}
	got, err := ResolveStatus(columns, "Not started")
	if err != nil {
		t.Fatalf("ResolveStatus failed: %v", err)
	}
	if got != "To Do" {
		t.Errorf("Expected alias To Do, got %q", got)
	}

	got, err = ResolveStatus(columns, "in progress")
	if err != nil {
		t.Fatalf("ResolveStatus failed: %v", err)
	}
	if got != "Doing" {
		t.Errorf("Expected alias Doing, got %q", got)
	}
}

func TestResolveStatusNoMatch(t *testing.T) {
	if _, err := ResolveStatus([]string{"Icebox"}, "Done"); err == nil {
		t.Error("Expected error when no column matches")
	}
}

func TestResolveReflectionStatus(t *testing.T) {
	got, err := ResolveReflectionStatus([]string{"To Do", "Retrospective", "Done"})
	if err != nil {
		t.Fatalf("ResolveReflectionStatus failed: %v", err)
	}
	if got != "Retrospective" {
		t.Errorf("Expected Retrospective, got %q", got)
	}

	// Without a retrospective column, reflections land in not-started.
	got, err = ResolveReflectionStatus([]string{"To Do", "Done"})
	if err != nil {
		t.Fatalf("ResolveReflectionStatus failed: %v", err)
	}
	if got != "To Do" {
		t.Errorf("Expected To Do fallback, got %q", got)
	}
}

func TestFirstUnusedColor(t *testing.T) {
	palette := []string{"green", "yellow", "red"}

	if got := FirstUnusedColor(palette, nil, "blue"); got != "green" {
		t.Errorf("Expected first color, got %q", got)
	}
	if got := FirstUnusedColor(palette, []string{"Green", "yellow"}, "blue"); got != "red" {
		t.Errorf("Expected red, got %q", got)
	}
	if got := FirstUnusedColor(palette, []string{"green", "yellow", "red"}, "blue"); got != "blue" {
		t.Errorf("Expected fallback on exhaustion, got %q", got)
	}
}
