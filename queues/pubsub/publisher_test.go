package pubsub

import (
	"context"
	"testing"

	"job-pubsub-dispatcher/geo"
	"job-pubsub-dispatcher/queues"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPublisher_Notify(t *testing.T) {
	if testing.Short() {
		t.Skip("short")
	}

	// Start in-memory Pub/Sub server
	srv := pstest.NewServer()
	defer srv.Close()

	ctx := context.Background()
	conn, err := grpc.Dial(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial error: %#v", err)
	}
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	if err != nil {
		t.Fatalf("client error: %#v", err)
	}
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "notify-topic")
	if err != nil {
		t.Fatalf("create topic: %#v", err)
	}

	offer := &queues.WorkerOffer{
		EnvelopeVersion: "1.0",
		Type:            "job-offer",
		Job:             queues.JobEvent{ID: "j1", RequesterID: "u1", Description: "leaking tap"},
		DistanceKm:      1.1,
		WorkerLocation:  geo.Coordinate{Lat: 22.68, Lng: 88.37},
	}
	outcome := &queues.JobOutcome{
		EnvelopeVersion: "1.0",
		Type:            "job-outcome",
		JobID:           "j1",
		Status:          queues.OutcomeSuccess,
		Message:         "ok",
		NotifiedWorkers: 1,
	}

	tests := []struct {
		name        string
		setup       func() *Publisher
		publish     func(p *Publisher) error
		wantChannel string
		wantErr     bool
	}{
		{
			name: "worker offer carries channel attribute",
			setup: func() *Publisher {
				return &Publisher{projectID: "test-project", notifyTopic: "notify-topic", client: client, topic: topic}
			},
			publish:     func(p *Publisher) error { return p.NotifyWorker(ctx, "worker-w1", offer) },
			wantChannel: "worker-w1",
			wantErr:     false,
		},
		{
			name: "requester outcome carries channel attribute",
			setup: func() *Publisher {
				return &Publisher{projectID: "test-project", notifyTopic: "notify-topic", client: client, topic: topic}
			},
			publish:     func(p *Publisher) error { return p.NotifyRequester(ctx, "user-u1", outcome) },
			wantChannel: "user-u1",
			wantErr:     false,
		},
		{
			name: "missing topic error",
			setup: func() *Publisher {
				missing := client.Topic("missing-topic")
				return &Publisher{projectID: "test-project", notifyTopic: "missing-topic", client: client, topic: missing}
			},
			publish: func(p *Publisher) error { return p.NotifyWorker(ctx, "worker-w1", offer) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.setup()
			before := len(srv.Messages())
			err := tt.publish(p)
			gotErr := (err != nil)
			if gotErr != tt.wantErr {
				t.Fatalf("publish error mismatch\ngotErr: %#v\nwantErr: %#v\nerr: %#v", gotErr, tt.wantErr, err)
			}
			if tt.wantErr {
				return
			}
			msgs := srv.Messages()
			if len(msgs) != before+1 {
				t.Fatalf("expected one new message, got %d", len(msgs)-before)
			}
			got := msgs[len(msgs)-1]
			if got.Attributes["channel"] != tt.wantChannel {
				t.Errorf("channel attribute got=%#v want=%#v", got.Attributes["channel"], tt.wantChannel)
			}
		})
	}
}
