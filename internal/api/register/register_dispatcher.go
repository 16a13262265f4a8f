package register

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chatterly/registration-service/app/queue"
	"github.com/chatterly/registration-service/internal/types"
)

// JobDispatcher hands a job to its named queue with at-least-once delivery:
// once Enqueue returns nil the job may be delivered more than once, but it is
// never silently dropped.
type JobDispatcher interface {
	Enqueue(ctx context.Context, job types.Job) error
}

var _ JobDispatcher = (*AMQPDispatcher)(nil)

// AMQPDispatcher publishes jobs to the broker queue named after the job
// kind, with publisher confirms backing the enqueue acknowledgment.
type AMQPDispatcher struct {
	logger    *slog.Logger
	publisher *queue.Publisher
}

func NewAMQPDispatcher(publisher *queue.Publisher, logger *slog.Logger) *AMQPDispatcher {
	return &AMQPDispatcher{
		logger:    logger,
		publisher: publisher,
	}
}

func (d *AMQPDispatcher) Enqueue(ctx context.Context, job types.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("dispatcher: failed to marshal %s job: %w", job.Kind, err)
	}

	if err := d.publisher.Publish(ctx, string(job.Kind), "application/json", body); err != nil {
		return fmt.Errorf("dispatcher: enqueue %s failed: %w", job.Kind, err)
	}

	d.logger.DebugContext(ctx, "Job enqueued", slog.String("kind", string(job.Kind)))
	return nil
}
