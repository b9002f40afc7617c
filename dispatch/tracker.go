package dispatch

import (
	"sync"
	"time"
)

// runRecord is the bookkeeping for one dispatch run.
type runRecord struct {
	RunID     string
	StartedAt time.Time
}

// Tracker enforces the one-run-per-job invariant: at most one dispatch run is
// in flight per job id. Runs for different jobs are independent. Since the
// dispatcher is a single process, the state lives in memory.
type Tracker struct {
	mu     sync.RWMutex
	active map[string]runRecord // key: job id
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]runRecord)}
}

// Begin marks a run in flight for jobID. It returns false when a run for the
// same job is already active; the caller drops the duplicate event.
func (t *Tracker) Begin(jobID, runID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, inFlight := t.active[jobID]; inFlight {
		return false
	}
	t.active[jobID] = runRecord{RunID: runID, StartedAt: time.Now()}
	return true
}

// End clears the in-flight mark for jobID.
func (t *Tracker) End(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, jobID)
}

// InFlight reports whether a run is active for jobID.
func (t *Tracker) InFlight(jobID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.active[jobID]
	return ok
}

// ActiveRuns returns a snapshot of in-flight runs keyed by job id, for
// monitoring and debugging.
func (t *Tracker) ActiveRuns() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := make(map[string]string, len(t.active))
	for jobID, rec := range t.active {
		snapshot[jobID] = rec.RunID
	}
	return snapshot
}
