package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"job-pubsub-dispatcher/queues"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

type Subscriber struct {
	projectID        string
	subscriptionName string
	credsFile        string
	client           *gpubsub.Client
	sub              *gpubsub.Subscription
	validate         *validator.Validate
}

func NewSubscriber(projectID, subscriptionName, credsFile string) *Subscriber {
	return &Subscriber{
		projectID:        projectID,
		subscriptionName: subscriptionName,
		credsFile:        credsFile,
		validate:         validator.New(),
	}
}

func (s *Subscriber) Start(ctx context.Context, handler func(context.Context, *queues.JobEvent) error) error {
	if s.client == nil {
		var (
			client *gpubsub.Client
			err    error
		)
		if s.credsFile != "" {
			log.Debug().Str("projectID", s.projectID).Str("subscription", s.subscriptionName).Str("credsFile", s.credsFile).Msg("initializing pubsub subscriber with explicit credentials")
			client, err = gpubsub.NewClient(ctx, s.projectID, option.WithCredentialsFile(s.credsFile))
		} else {
			log.Debug().Str("projectID", s.projectID).Str("subscription", s.subscriptionName).Msg("initializing pubsub subscriber with default credentials")
			client, err = gpubsub.NewClient(ctx, s.projectID)
		}
		if err != nil {
			log.Error().Err(err).Str("projectID", s.projectID).Str("subscription", s.subscriptionName).Msg("failed to create pubsub client for subscriber")
			return err
		}
		s.client = client
		s.sub = client.Subscription(s.subscriptionName)
		log.Info().Str("subscription", s.subscriptionName).Msg("pubsub subscriber initialized")
	}

	// Receive blocks and runs the callback concurrently per message; the
	// callback is the top-level guard, so one bad message never stops the loop.
	return s.sub.Receive(ctx, func(ctx context.Context, m *gpubsub.Message) {
		log.Debug().Str("messageID", m.ID).Int("size", len(m.Data)).Msg("received job event")
		recvAt := time.Now()

		var job queues.JobEvent
		if err := json.Unmarshal(m.Data, &job); err != nil {
			// Unparseable by definition; drop rather than retry. The requester
			// gets no feedback for these.
			log.Error().Err(err).Str("messageID", m.ID).Msg("failed to unmarshal job event; dropping")
			m.Ack()
			return
		}
		if err := s.validate.Struct(&job); err != nil {
			log.Error().Err(err).Str("jobId", job.ID).Msg("invalid job event payload; dropping")
			m.Ack()
			return
		}

		log.Info().Str("jobId", job.ID).Str("userId", job.RequesterID).Msg("handling job event")
		if err := handler(ctx, &job); err != nil {
			log.Error().Err(err).Str("jobId", job.ID).Msg("handler failed; will retry")
			m.Nack()
			return
		}
		log.Debug().Str("jobId", job.ID).Dur("latency", time.Since(recvAt)).Msg("handler succeeded; acking message")
		m.Ack()
	})
}
