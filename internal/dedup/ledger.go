// Package dedup suppresses re-execution of operations already applied in a
// session. Streaming transcription re-sends overlapping context, so the
// same instruction tends to reappear across consecutive chunks; the ledger
// keys every operation by its signature and drops repeats.
package dedup

import (
	"log"
	"sync"

	"github.com/fentz26/taskscribe/internal/ops"
	"github.com/fentz26/taskscribe/internal/store"
)

// Ledger tracks which operation signatures a session has executed.
type Ledger interface {
	// Seen reports whether the operation's signature is already recorded.
	Seen(op ops.Operation) (bool, error)
	// Record marks the operation's signature as executed.
	Record(op ops.Operation) error
}

// MemoryLedger is an in-process Ledger for single-run sessions.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]bool)}
}

func (l *MemoryLedger) Seen(op ops.Operation) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[op.Signature()], nil
}

func (l *MemoryLedger) Record(op ops.Operation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[op.Signature()] = true
	return nil
}

// StoreLedger persists signatures per session, so a resumed session keeps
// its dedup state across process restarts.
type StoreLedger struct {
	store     *store.Store
	sessionID string
}

// NewStoreLedger creates a ledger backed by the given session's signature
// table.
func NewStoreLedger(s *store.Store, sessionID string) *StoreLedger {
	return &StoreLedger{store: s, sessionID: sessionID}
}

func (l *StoreLedger) Seen(op ops.Operation) (bool, error) {
	return l.store.SeenSignature(l.sessionID, op.Signature())
}

func (l *StoreLedger) Record(op ops.Operation) error {
	return l.store.RecordSignature(l.sessionID, op.Signature())
}

// Filter returns the operations whose signatures are not yet recorded, in
// input order, recording each kept signature as it goes. Ledger errors fail
// open: the operation is kept and the error logged, because dropping a
// user's instruction is worse than the occasional duplicate.
func Filter(ledger Ledger, batch []ops.Operation) []ops.Operation {
	var kept []ops.Operation
	for _, op := range batch {
		seen, err := ledger.Seen(op)
		if err != nil {
			log.Printf("dedup: seen check for %q failed, keeping operation: %v", op.Signature(), err)
			kept = append(kept, op)
			continue
		}
		if seen {
			continue
		}
		if err := ledger.Record(op); err != nil {
			log.Printf("dedup: record %q failed: %v", op.Signature(), err)
		}
		kept = append(kept, op)
	}
	return kept
}
