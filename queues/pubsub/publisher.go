package pubsub

import (
	"context"
	"encoding/json"

	"job-pubsub-dispatcher/queues"

	gpubsub "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// Publisher implements queues.Notifier on a single Pub/Sub notification topic.
// The logical channel travels as a message attribute; the socket bridge on the
// other side routes each message to the named room.
type Publisher struct {
	projectID   string
	notifyTopic string
	credsFile   string
	client      *gpubsub.Client
	topic       *gpubsub.Topic
}

func NewPublisher(projectID, notifyTopic, credsFile string) *Publisher {
	return &Publisher{projectID: projectID, notifyTopic: notifyTopic, credsFile: credsFile}
}

func (p *Publisher) NotifyWorker(ctx context.Context, channel string, offer *queues.WorkerOffer) error {
	return p.publish(ctx, channel, offer.Job.ID, offer)
}

func (p *Publisher) NotifyRequester(ctx context.Context, channel string, outcome *queues.JobOutcome) error {
	return p.publish(ctx, channel, outcome.JobID, outcome)
}

func (p *Publisher) publish(ctx context.Context, channel, jobID string, payload any) error {
	if p.client == nil {
		var (
			client *gpubsub.Client
			err    error
		)
		if p.credsFile != "" {
			log.Debug().Str("projectID", p.projectID).Str("topic", p.notifyTopic).Str("credsFile", p.credsFile).Msg("initializing pubsub publisher with explicit credentials")
			client, err = gpubsub.NewClient(ctx, p.projectID, option.WithCredentialsFile(p.credsFile))
		} else {
			log.Debug().Str("projectID", p.projectID).Str("topic", p.notifyTopic).Msg("initializing pubsub publisher with default credentials")
			client, err = gpubsub.NewClient(ctx, p.projectID)
		}
		if err != nil {
			log.Error().Err(err).Str("projectID", p.projectID).Str("topic", p.notifyTopic).Msg("failed to create pubsub client for publisher")
			return err
		}
		p.client = client
		p.topic = client.Topic(p.notifyTopic)
		log.Info().Str("topic", p.notifyTopic).Msg("pubsub publisher initialized")
	}

	b, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("failed to marshal notification payload")
		return err
	}
	// Publish and wait for server ack.
	r := p.topic.Publish(ctx, &gpubsub.Message{
		Data:       b,
		Attributes: map[string]string{"channel": channel},
	})
	id, err := r.Get(ctx)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Str("jobId", jobID).Msg("failed to publish notification")
		return err
	}
	log.Debug().Str("messageID", id).Str("channel", channel).Str("jobId", jobID).Msg("published notification")
	return nil
}
