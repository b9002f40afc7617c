package dispatch

import (
	"testing"
	"time"

	"job-pubsub-dispatcher/geo"
	"job-pubsub-dispatcher/store"
)

var rankCenter = geo.Coordinate{Lat: 22.6734, Lng: 88.3743}

// offsetKm places a point roughly km kilometers north of rankCenter.
func offsetKm(km float64) geo.Coordinate {
	return geo.Coordinate{Lat: rankCenter.Lat + km/111.32, Lng: rankCenter.Lng}
}

func row(id string, km float64, hasSpec, primary bool, prof int) store.CandidateRow {
	return store.CandidateRow{
		WorkerID:    id,
		Location:    offsetKm(km),
		RecordedAt:  time.Now(),
		HasSpec:     hasSpec,
		Category:    "plumber",
		IsPrimary:   primary,
		Proficiency: prof,
	}
}

func ids(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.WorkerID
	}
	return out
}

func TestRank_Order(t *testing.T) {
	tests := []struct {
		name string
		rows []store.CandidateRow
		want []string
	}{
		{
			name: "primary before non-primary",
			rows: []store.CandidateRow{row("far-primary", 4, true, true, 1), row("near-secondary", 1, true, false, 5)},
			want: []string{"far-primary", "near-secondary"},
		},
		{
			name: "proficiency breaks primary tie",
			rows: []store.CandidateRow{row("p3", 1, true, true, 3), row("p5", 4, true, true, 5)},
			want: []string{"p5", "p3"},
		},
		{
			name: "distance breaks full tie",
			rows: []store.CandidateRow{row("far", 4, true, true, 4), row("near", 1, true, true, 4)},
			want: []string{"near", "far"},
		},
		{
			name: "no specialization sorts last",
			rows: []store.CandidateRow{row("none", 0.5, false, false, 0), row("spec", 4, true, false, 1)},
			want: []string{"spec", "none"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Rank(tt.rows, rankCenter, 5, 10))
			if len(got) != len(tt.want) {
				t.Fatalf("Rank() got=%#v want=%#v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Rank() got=%#v want=%#v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestRank_ExactDistanceFilter(t *testing.T) {
	// Bounding-box corners pass the prefilter but exceed the radius.
	corner := geo.Coordinate{
		Lat: rankCenter.Lat + 5/111.32,
		Lng: rankCenter.Lng + 5/(111.32*0.923), // ~cos(22.67 deg)
	}
	rows := []store.CandidateRow{
		{WorkerID: "corner", Location: corner, HasSpec: true, IsPrimary: true, Proficiency: 5},
		row("inside", 3, true, true, 1),
	}
	got := Rank(rows, rankCenter, 5, 10)
	if len(got) != 1 || got[0].WorkerID != "inside" {
		t.Errorf("Rank() got=%#v want only 'inside'", ids(got))
	}
	for _, c := range got {
		if c.DistanceKm > 5 {
			t.Errorf("candidate %s beyond radius: %#v", c.WorkerID, c.DistanceKm)
		}
	}
}

func TestRank_TruncatesAfterSorting(t *testing.T) {
	rows := []store.CandidateRow{
		row("weak-near", 0.1, true, false, 1),
		row("strong-far", 4.5, true, true, 5),
		row("mid", 2, true, false, 3),
	}
	got := Rank(rows, rankCenter, 5, 2)
	if len(got) != 2 {
		t.Fatalf("Rank() len=%d want 2", len(got))
	}
	// The best-ranked candidate must survive truncation even though it is the
	// farthest row.
	if got[0].WorkerID != "strong-far" {
		t.Errorf("Rank() top got=%#v want strong-far", got[0].WorkerID)
	}
}

func TestRank_CollapsesMultipleSpecializations(t *testing.T) {
	primary := row("w1", 2, true, true, 2)
	secondary := row("w1", 2, true, false, 5)
	got := Rank([]store.CandidateRow{secondary, primary}, rankCenter, 5, 10)
	if len(got) != 1 {
		t.Fatalf("Rank() len=%d want 1", len(got))
	}
	if !got[0].IsPrimary || got[0].Proficiency != 2 {
		t.Errorf("best specialization not kept: %#v", got[0])
	}
}

func TestRank_Idempotent(t *testing.T) {
	rows := []store.CandidateRow{
		row("a", 1, true, true, 5),
		row("b", 2, true, true, 5),
		row("c", 3, true, false, 2),
	}
	first := ids(Rank(rows, rankCenter, 5, 10))
	second := ids(Rank(rows, rankCenter, 5, 10))
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Rank() unstable: %#v vs %#v", first, second)
		}
	}
}
