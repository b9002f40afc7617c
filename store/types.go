package store

import (
	"context"
	"fmt"
	"time"

	"job-pubsub-dispatcher/geo"
)

// CandidateRow is one joined location+specialization row returned by the store.
// A worker with several specializations produces several rows; ranking collapses
// them to the best match.
type CandidateRow struct {
	WorkerID   string
	Name       string
	Phone      string
	Location   geo.Coordinate
	RecordedAt time.Time

	// Specialization fields; HasSpec is false when the worker has no
	// specialization record at all (category-agnostic, still eligible).
	HasSpec     bool
	Category    string
	IsPrimary   bool
	Proficiency int
}

// Store is the read-only query interface to the worker location/specialization data.
type Store interface {
	// FindCandidatesNear returns fresh location records inside the bounding box of
	// the given radius around center. An empty category disables category
	// filtering; with a category set, workers without any specialization are
	// still included.
	FindCandidatesNear(ctx context.Context, center geo.Coordinate, radiusKm float64, category string, freshness time.Duration) ([]CandidateRow, error)
	Ping(ctx context.Context) error
}

// QueryError wraps a store failure so callers can tell "query failed" apart from
// "zero nearby workers" in logs and metrics.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("store query %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
