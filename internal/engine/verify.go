package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/fentz26/taskscribe/internal/models"
	"github.com/fentz26/taskscribe/internal/ops"
)

// TurnState tracks one conversational turn through execution and
// verification.
type TurnState string

const (
	StateIdle               TurnState = "idle"
	StateAwaitingOperations TurnState = "awaiting_operations"
	StateExecuting          TurnState = "executing"
	StateVerifying          TurnState = "verifying"
	StateRetrying           TurnState = "retrying"
	StateDone               TurnState = "done"
)

// Turn executes one batch and then verifies that every created task is
// visible on a fresh snapshot. A create whose task is missing afterwards is
// re-executed exactly once, sub-effects included. No backoff, no further
// retries; the provider APIs are rate limited.
type Turn struct {
	executor *Executor
	state    TurnState
}

// NewTurn creates an idle turn over the given executor.
func NewTurn(executor *Executor) *Turn {
	return &Turn{executor: executor, state: StateIdle}
}

// State returns the turn's current state.
func (t *Turn) State() TurnState { return t.state }

// Run applies the batch with post-write verification of creates. Results
// come back in input order, like Executor.Apply.
func (t *Turn) Run(ctx context.Context, batch []ops.Operation) ([]models.OperationResult, error) {
	t.state = StateAwaitingOperations
	if len(batch) == 0 {
		t.state = StateDone
		return nil, nil
	}

	t.state = StateExecuting
	results, err := t.executor.Apply(ctx, batch)
	if err != nil {
		t.state = StateDone
		return nil, err
	}

	t.state = StateVerifying
	missing, err := t.missingCreates(ctx, batch, results)
	if err != nil {
		log.Printf("engine: verification snapshot failed, skipping retry: %v", err)
		t.state = StateDone
		return results, nil
	}

	if len(missing) > 0 {
		t.state = StateRetrying
		t.state = StateExecuting
		for _, idx := range missing {
			retried, err := t.executor.Apply(ctx, []ops.Operation{batch[idx]})
			if err != nil {
				results[idx].Success = false
				results[idx].Error = err.Error()
				continue
			}
			results[idx] = retried[0]
			results[idx].Detail = appendDetail(results[idx].Detail, "retried after verification miss")
		}

		t.state = StateVerifying
		still, err := t.missingCreates(ctx, batch, results)
		if err != nil {
			log.Printf("engine: final verification snapshot failed: %v", err)
		}
		for _, idx := range still {
			results[idx].Success = false
			results[idx].Error = fmt.Sprintf("task %q not found on board after retry", createName(batch[idx]))
		}
	}

	t.state = StateDone
	return results, nil
}

// missingCreates re-fetches the snapshot and returns the indices of create
// operations that reported success but whose task is absent by exact name.
func (t *Turn) missingCreates(ctx context.Context, batch []ops.Operation, results []models.OperationResult) ([]int, error) {
	hasCreate := false
	for _, op := range batch {
		if op.Kind() == ops.KindCreate {
			hasCreate = true
			break
		}
	}
	if !hasCreate {
		return nil, nil
	}

	snap, err := t.executor.provider.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var missing []int
	for i, op := range batch {
		if op.Kind() != ops.KindCreate || !results[i].Success {
			continue
		}
		if _, ok := snap.TaskByName(createName(op)); !ok {
			missing = append(missing, i)
		}
	}
	return missing, nil
}

func createName(op ops.Operation) string {
	if c, ok := op.(*ops.Create); ok {
		return c.Task
	}
	return ""
}

func appendDetail(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
