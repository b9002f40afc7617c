package postgres

import (
	"context"
	"time"

	"job-pubsub-dispatcher/geo"
	"job-pubsub-dispatcher/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Store implements store.Store against the marketplace Postgres database. All
// access is read-only point/range queries; status transitions and writes belong
// to the API services.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pgx pool for the given DSN and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// No LIMIT here: ranking needs the full candidate set for a radius, and the
// bounding box is a superset of the circle anyway.
const findCandidatesSQL = `
SELECT w.id, w.full_name, COALESCE(w.phone_number, ''),
       l.lat, l.lng, l.created_at,
       s.category, COALESCE(s.is_primary, false), COALESCE(s.proficiency, 0)
FROM workers w
JOIN workers_location l ON l.worker_id = w.id
LEFT JOIN specializations s ON s.worker_id = w.id
WHERE l.lat BETWEEN $1 AND $2
  AND l.lng BETWEEN $3 AND $4
  AND l.created_at >= $5
  AND ($6 = '' OR s.category = $6 OR s.category IS NULL)
`

func (s *Store) FindCandidatesNear(ctx context.Context, center geo.Coordinate, radiusKm float64, category string, freshness time.Duration) ([]store.CandidateRow, error) {
	box := geo.BoundingBox(center, radiusKm)
	cutoff := time.Now().Add(-freshness)

	rows, err := s.pool.Query(ctx, findCandidatesSQL,
		box.LatMin, box.LatMax, box.LngMin, box.LngMax, cutoff, category)
	if err != nil {
		return nil, &store.QueryError{Op: "find_candidates", Err: err}
	}
	defer rows.Close()

	var out []store.CandidateRow
	for rows.Next() {
		var (
			r        store.CandidateRow
			specName *string
		)
		if err := rows.Scan(&r.WorkerID, &r.Name, &r.Phone,
			&r.Location.Lat, &r.Location.Lng, &r.RecordedAt,
			&specName, &r.IsPrimary, &r.Proficiency); err != nil {
			return nil, &store.QueryError{Op: "scan_candidate", Err: err}
		}
		if specName != nil {
			r.HasSpec = true
			r.Category = *specName
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &store.QueryError{Op: "iterate_candidates", Err: err}
	}

	log.Debug().Float64("radiusKm", radiusKm).Str("category", category).Int("rows", len(out)).Msg("store: candidate query complete")
	return out, nil
}
