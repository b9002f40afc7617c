package queues

import (
	"context"
	"fmt"

	"job-pubsub-dispatcher/geo"
)

// JobEvent is the inbound message published when a requester submits a new job.
// The dispatch engine never mutates it.
type JobEvent struct {
	ID              string  `json:"id" validate:"required"`
	RequesterID     string  `json:"userId" validate:"required"`
	Description     string  `json:"description" validate:"required"`
	Category        string  `json:"category,omitempty"`
	Lat             float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng             float64 `json:"lng" validate:"gte=-180,lte=180"`
	DurationMinutes int     `json:"durationMinutes,omitempty" validate:"omitempty,gt=0"`
}

// Location returns the job's coordinate.
func (j *JobEvent) Location() geo.Coordinate {
	return geo.Coordinate{Lat: j.Lat, Lng: j.Lng}
}

// RequesterChannel returns the logical channel of the job's requester.
func (j *JobEvent) RequesterChannel() string {
	return fmt.Sprintf("user-%s", j.RequesterID)
}

// WorkerChannel returns the logical channel for a worker id.
func WorkerChannel(workerID string) string {
	return fmt.Sprintf("worker-%s", workerID)
}

// WorkerOffer is delivered to each matched worker's channel.
type WorkerOffer struct {
	EnvelopeVersion string         `json:"envelopeVersion"`
	Type            string         `json:"type"`
	Job             JobEvent       `json:"job"`
	DistanceKm      float64        `json:"distanceKm"`
	WorkerLocation  geo.Coordinate `json:"workerLocation"`
}

type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
)

// JobOutcome is the single message delivered to the requester's channel at the
// end of a dispatch run.
type JobOutcome struct {
	EnvelopeVersion string        `json:"envelopeVersion"`
	Type            string        `json:"type"`
	JobID           string        `json:"jobId"`
	Status          OutcomeStatus `json:"status"`
	Message         string        `json:"message"`
	NotifiedWorkers int           `json:"notifiedWorkers,omitempty"`
}

type Subscriber interface {
	Start(ctx context.Context, handler func(context.Context, *JobEvent) error) error
}

// Notifier delivers real-time messages to logical channels. It is injected into
// the dispatcher so tests can substitute a fake.
type Notifier interface {
	NotifyWorker(ctx context.Context, channel string, offer *WorkerOffer) error
	NotifyRequester(ctx context.Context, channel string, outcome *JobOutcome) error
}
