package dispatch

import (
	"sort"
	"time"

	"job-pubsub-dispatcher/geo"
	"job-pubsub-dispatcher/store"
)

// Candidate is a worker matched to one dispatch attempt. It is derived fresh
// per attempt and never persisted.
type Candidate struct {
	WorkerID   string
	Name       string
	Phone      string
	Location   geo.Coordinate
	RecordedAt time.Time
	DistanceKm float64

	// Best-matching specialization; zero values when the worker has none.
	HasSpec     bool
	Category    string
	IsPrimary   bool
	Proficiency int
}

// Rank turns raw store rows into an ordered, capped candidate list.
//
// Rows beyond radiusKm are dropped: the bounding-box prefilter is a superset of
// the circle and keeps false positives near the corners. Workers appearing in
// several rows (one per specialization) collapse to their best specialization.
// The sort is stable with key: primary specialization first, then higher
// proficiency, then shorter distance. Truncation to limit happens after
// sorting so ranking sees the full per-radius set.
func Rank(rows []store.CandidateRow, center geo.Coordinate, radiusKm float64, limit int) []Candidate {
	byWorker := make(map[string]int, len(rows))
	candidates := make([]Candidate, 0, len(rows))

	for _, row := range rows {
		d := geo.DistanceKm(row.Location, center)
		if d > radiusKm {
			continue
		}
		c := Candidate{
			WorkerID:    row.WorkerID,
			Name:        row.Name,
			Phone:       row.Phone,
			Location:    row.Location,
			RecordedAt:  row.RecordedAt,
			DistanceKm:  d,
			HasSpec:     row.HasSpec,
			Category:    row.Category,
			IsPrimary:   row.HasSpec && row.IsPrimary,
			Proficiency: row.Proficiency,
		}
		if !row.HasSpec {
			c.Proficiency = 0
		}
		if i, seen := byWorker[row.WorkerID]; seen {
			if specLess(candidates[i], c) {
				candidates[i] = c
			}
			continue
		}
		byWorker[row.WorkerID] = len(candidates)
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.IsPrimary != b.IsPrimary {
			return a.IsPrimary
		}
		if a.Proficiency != b.Proficiency {
			return a.Proficiency > b.Proficiency
		}
		return a.DistanceKm < b.DistanceKm
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// specLess reports whether b carries a better specialization than a.
func specLess(a, b Candidate) bool {
	if a.IsPrimary != b.IsPrimary {
		return b.IsPrimary
	}
	return b.Proficiency > a.Proficiency
}
