package dispatch

import (
	"context"
	"fmt"
	"time"

	"job-pubsub-dispatcher/metrics"
	"job-pubsub-dispatcher/queues"
	"job-pubsub-dispatcher/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Run outcomes reported via metrics.
const (
	outcomeNotified         = "notified"
	outcomeNoWorkers        = "no_workers"
	outcomeStoreUnavailable = "store_unavailable"
	outcomeAbandoned        = "abandoned"
)

// Policy is the escalation and timing policy for dispatch runs.
type Policy struct {
	// SearchRadiiKm is the ordered escalation list; the last entry is also the
	// radius of the final retry.
	SearchRadiiKm []float64
	// FreshnessWindow is the maximum age of a worker location record.
	FreshnessWindow time.Duration
	// InitialWait gives workers time to join their channels after a job is
	// posted. A bounded safety net, not a correctness guarantee.
	InitialWait time.Duration
	// RetryWait precedes the single final retry at the maximum radius.
	RetryWait time.Duration
	// RunTimeout caps the wall-clock time of one run.
	RunTimeout time.Duration
	// MaxWorkers caps the fan-out size after ranking.
	MaxWorkers int
}

func DefaultPolicy() Policy {
	return Policy{
		SearchRadiiKm:   []float64{5, 10, 15, 20},
		FreshnessWindow: 5 * time.Minute,
		InitialWait:     2 * time.Second,
		RetryWait:       3 * time.Second,
		RunTimeout:      30 * time.Second,
		MaxWorkers:      10,
	}
}

// Dispatcher owns the flow from "job submitted" to "workers notified" or
// "no workers found". The notifier is injected so tests can substitute a fake
// and instances never contend on process-wide state.
type Dispatcher struct {
	store    store.Store
	notifier queues.Notifier
	policy   Policy
	tracker  *Tracker
}

func New(st store.Store, n queues.Notifier, p Policy) *Dispatcher {
	if len(p.SearchRadiiKm) == 0 {
		p.SearchRadiiKm = DefaultPolicy().SearchRadiiKm
	}
	if p.MaxWorkers <= 0 {
		p.MaxWorkers = DefaultPolicy().MaxWorkers
	}
	if p.FreshnessWindow <= 0 {
		p.FreshnessWindow = DefaultPolicy().FreshnessWindow
	}
	if p.RunTimeout <= 0 {
		p.RunTimeout = DefaultPolicy().RunTimeout
	}
	return &Dispatcher{store: st, notifier: n, policy: p, tracker: NewTracker()}
}

// Tracker exposes the in-flight run tracker for monitoring.
func (d *Dispatcher) Tracker() *Tracker { return d.tracker }

// Handle processes one job event end to end. Errors internal to the run are
// resolved into a requester outcome; Handle only returns an error when the
// event could not be processed at all and should be redelivered.
func (d *Dispatcher) Handle(ctx context.Context, job *queues.JobEvent) error {
	runID := uuid.NewString()
	if !d.tracker.Begin(job.ID, runID) {
		log.Warn().Str("jobId", job.ID).Msg("dispatcher: run already in flight for job, dropping duplicate event")
		return nil
	}
	defer d.tracker.End(job.ID)

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, d.policy.RunTimeout)
	defer cancel()

	category := Classify(job.Description, job.Category)
	log.Info().Str("jobId", job.ID).Str("runId", runID).Str("category", category).
		Float64("lat", job.Lat).Float64("lng", job.Lng).Msg("dispatcher: run started")

	// Give workers a moment to come online and join their channels.
	if err := wait(ctx, d.policy.InitialWait); err != nil {
		return d.abandon(job, runID, start, err)
	}

	center := job.Location()
	queries, failures := 0, 0
	var ranked []Candidate

	for _, radius := range d.policy.SearchRadiiKm {
		rows, err := d.store.FindCandidatesNear(ctx, center, radius, category, d.policy.FreshnessWindow)
		queries++
		if err != nil {
			// Recoverable: treat as zero candidates at this radius and escalate.
			failures++
			log.Error().Err(err).Str("jobId", job.ID).Float64("radiusKm", radius).Msg("dispatcher: radius query failed")
			continue
		}
		ranked = Rank(rows, center, radius, d.policy.MaxWorkers)
		log.Debug().Str("jobId", job.ID).Float64("radiusKm", radius).Int("candidates", len(ranked)).Msg("dispatcher: radius searched")
		if len(ranked) > 0 {
			// First non-empty radius wins.
			break
		}
	}

	if len(ranked) == 0 {
		// One deliberate wait-then-retry at the maximum radius: workers may
		// still be registering their location and channel membership.
		if err := wait(ctx, d.policy.RetryWait); err != nil {
			return d.abandon(job, runID, start, err)
		}
		maxRadius := d.policy.SearchRadiiKm[len(d.policy.SearchRadiiKm)-1]
		rows, err := d.store.FindCandidatesNear(ctx, center, maxRadius, category, d.policy.FreshnessWindow)
		queries++
		if err != nil {
			failures++
			log.Error().Err(err).Str("jobId", job.ID).Float64("radiusKm", maxRadius).Msg("dispatcher: final retry query failed")
		} else {
			ranked = Rank(rows, center, maxRadius, d.policy.MaxWorkers)
		}
	}

	if len(ranked) == 0 {
		if failures == queries {
			// Every query failed: the store was unreachable, which is not the
			// same as a genuine lack of nearby workers.
			return d.finish(ctx, job, runID, start, outcomeStoreUnavailable, &queues.JobOutcome{
				EnvelopeVersion: "1.0",
				Type:            "job-outcome",
				JobID:           job.ID,
				Status:          queues.OutcomeError,
				Message:         "Worker matching is temporarily unavailable. Please try again shortly.",
			})
		}
		return d.finish(ctx, job, runID, start, outcomeNoWorkers, &queues.JobOutcome{
			EnvelopeVersion: "1.0",
			Type:            "job-outcome",
			JobID:           job.ID,
			Status:          queues.OutcomeError,
			Message:         "Sorry, no workers found near your location. Please try again later.",
		})
	}

	// Fan out offers; each delivery is independent and best-effort.
	notified := 0
	for _, c := range ranked {
		offer := &queues.WorkerOffer{
			EnvelopeVersion: "1.0",
			Type:            "job-offer",
			Job:             *job,
			DistanceKm:      c.DistanceKm,
			WorkerLocation:  c.Location,
		}
		if err := d.notifier.NotifyWorker(ctx, queues.WorkerChannel(c.WorkerID), offer); err != nil {
			log.Error().Err(err).Str("jobId", job.ID).Str("workerId", c.WorkerID).Msg("dispatcher: worker offer delivery failed")
			continue
		}
		notified++
	}
	metrics.WorkersNotified.Observe(float64(notified))

	return d.finish(ctx, job, runID, start, outcomeNotified, &queues.JobOutcome{
		EnvelopeVersion: "1.0",
		Type:            "job-outcome",
		JobID:           job.ID,
		Status:          queues.OutcomeSuccess,
		Message:         fmt.Sprintf("Job posted successfully! %d workers have been notified.", notified),
		NotifiedWorkers: notified,
	})
}

// finish records run metrics and delivers the single requester outcome.
func (d *Dispatcher) finish(ctx context.Context, job *queues.JobEvent, runID string, start time.Time, outcome string, msg *queues.JobOutcome) error {
	duration := time.Since(start)
	metrics.DispatchDuration.Observe(duration.Seconds())
	metrics.DispatchRunsTotal.WithLabelValues(outcome).Inc()

	if err := d.notifier.NotifyRequester(ctx, job.RequesterChannel(), msg); err != nil {
		// Best-effort: redelivering the whole job would re-offer it to workers.
		log.Error().Err(err).Str("jobId", job.ID).Str("runId", runID).Msg("dispatcher: requester outcome delivery failed")
	}
	log.Info().Str("jobId", job.ID).Str("runId", runID).Str("outcome", outcome).
		Dur("duration", duration).Int("notifiedWorkers", msg.NotifiedWorkers).Msg("dispatcher: run finished")
	return nil
}

// abandon ends a run whose wall-clock budget expired before it could conclude.
func (d *Dispatcher) abandon(job *queues.JobEvent, runID string, start time.Time, cause error) error {
	metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	metrics.DispatchRunsTotal.WithLabelValues(outcomeAbandoned).Inc()
	log.Error().Err(cause).Str("jobId", job.ID).Str("runId", runID).Msg("dispatcher: run abandoned")
	return nil
}

// wait blocks for d or until ctx is done, whichever comes first. The wait is
// scoped to one run and never pauses other jobs.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
