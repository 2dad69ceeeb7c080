package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ottie-ai/scrapequeue/shared/rabbitmq"
)

// JobEvent notifies downstream consumers (dashboard notifications, import
// pipeline) that a job reached a terminal state.
type JobEvent struct {
	JobID        string    `json:"job_id"`
	SourceURL    string    `json:"source_url"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher emits job lifecycle events to the broker. A nil Publisher is
// valid and publishes nothing, so event emission stays optional wiring.
type Publisher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewPublisher creates a Publisher over an AMQP client
func NewPublisher(client *rabbitmq.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
	}
}

// PublishJobEvent publishes a single event. Failures are the caller's to
// log; they must never fail the job itself.
func (p *Publisher) PublishJobEvent(ctx context.Context, event *JobEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	if err := p.client.Publish(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}

	p.logger.Debug("Job event published",
		slog.String("job_id", event.JobID),
		slog.String("status", event.Status),
	)

	return nil
}
