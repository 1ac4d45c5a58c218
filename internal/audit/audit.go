// Package audit records executed operations to the history store.
package audit

import (
	"log"

	"github.com/fentz26/taskscribe/internal/models"
	"github.com/fentz26/taskscribe/internal/ops"
	"github.com/fentz26/taskscribe/internal/store"
)

// Recorder writes one history row per executed operation.
type Recorder struct {
	store     *store.Store
	sessionID string
}

// NewRecorder creates a recorder bound to one session.
func NewRecorder(s *store.Store, sessionID string) *Recorder {
	return &Recorder{store: s, sessionID: sessionID}
}

// Record persists the outcome of one operation. Persistence failures are
// logged and swallowed; an audit miss must not fail the batch.
func (r *Recorder) Record(op ops.Operation, result models.OperationResult) {
	detail := result.Detail
	if !result.Success && result.Error != "" {
		detail = result.Error
	}
	if _, err := r.store.RecordHistory(
		r.sessionID,
		string(op.Kind()),
		op.Signature(),
		result.Target(),
		result.Success,
		detail,
	); err != nil {
		log.Printf("audit: record %s: %v", op.Kind(), err)
	}
}

// RecordBatch persists outcomes for a batch; ops and results are paired by
// index.
func (r *Recorder) RecordBatch(batch []ops.Operation, results []models.OperationResult) {
	for i, op := range batch {
		if i >= len(results) {
			break
		}
		r.Record(op, results[i])
	}
}
