package queues

import (
	"encoding/json"
	"testing"

	"job-pubsub-dispatcher/geo"
)

func TestJobEvent_Channels(t *testing.T) {
	tests := []struct {
		name      string
		job       JobEvent
		workerID  string
		wantUser  string
		wantWorkr string
	}{
		{"uuid ids", JobEvent{RequesterID: "4f2c"}, "9a1b", "user-4f2c", "worker-9a1b"},
		{"empty ids", JobEvent{}, "", "user-", "worker-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.job.RequesterChannel(); got != tt.wantUser {
				t.Errorf("RequesterChannel() got=%#v want=%#v", got, tt.wantUser)
			}
			if got := WorkerChannel(tt.workerID); got != tt.wantWorkr {
				t.Errorf("WorkerChannel() got=%#v want=%#v", got, tt.wantWorkr)
			}
		})
	}
}

func TestJobEvent_Location(t *testing.T) {
	j := JobEvent{Lat: 22.6734, Lng: 88.3743}
	want := geo.Coordinate{Lat: 22.6734, Lng: 88.3743}
	if got := j.Location(); got != want {
		t.Errorf("Location() got=%#v want=%#v", got, want)
	}
}

func TestJobEvent_WireFormat(t *testing.T) {
	// The inbound wire format is owned by the job-creation API; keep the field
	// names pinned.
	raw := []byte(`{"id":"j1","userId":"u1","description":"my tap is leaking","lat":22.6734,"lng":88.3743,"durationMinutes":60}`)
	var j JobEvent
	if err := json.Unmarshal(raw, &j); err != nil {
		t.Fatalf("unmarshal err: %#v", err)
	}
	if j.ID != "j1" || j.RequesterID != "u1" || j.DurationMinutes != 60 {
		t.Errorf("unexpected decode: %#v", j)
	}
	if j.Category != "" {
		t.Errorf("missing category should decode empty, got %#v", j.Category)
	}
}
