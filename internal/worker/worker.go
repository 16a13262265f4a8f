// Package worker drains the registration job queues. Delivery is
// at-least-once and handlers are idempotent, so parallel consumers yield
// effectively-once outcomes.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/chatterly/registration-service/app/observability/metrics"
	"github.com/chatterly/registration-service/app/queue"
)

// ErrPermanent marks a job that must not be retried (malformed payload,
// unresolvable conflict). The delivery is rejected without requeue, which
// routes it to the dead-letter queue for manual inspection.
var ErrPermanent = errors.New("permanent job failure")

// JobHandler consumes one delivery from its queue. A nil return acknowledges
// the job; ErrPermanent dead-letters it; any other error requeues it.
type JobHandler interface {
	Queue() string
	Handle(ctx context.Context, body []byte) error
}

// Runner owns the consumer goroutines for every registered handler.
type Runner struct {
	logger    *slog.Logger
	manager   *queue.Manager
	metrics   *metrics.PipelineMetrics
	prefetch  int
	consumers int
}

func NewRunner(manager *queue.Manager, m *metrics.PipelineMetrics, prefetch, consumers int, logger *slog.Logger) *Runner {
	if consumers < 1 {
		consumers = 1
	}
	return &Runner{
		logger:    logger,
		manager:   manager,
		metrics:   m,
		prefetch:  prefetch,
		consumers: consumers,
	}
}

// Run blocks until ctx is cancelled, keeping the configured number of
// consumers per queue alive across channel failures.
func (r *Runner) Run(ctx context.Context, handlers ...JobHandler) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, h := range handlers {
		for i := 0; i < r.consumers; i++ {
			handler := h
			g.Go(func() error {
				return r.consumeLoop(ctx, handler)
			})
		}
	}
	return g.Wait()
}

func (r *Runner) consumeLoop(ctx context.Context, h JobHandler) error {
	for {
		if err := r.consume(ctx, h); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("Consumer stopped, restarting",
				slog.String("queue", h.Queue()),
				slog.Any("error", err),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}

func (r *Runner) consume(ctx context.Context, h JobHandler) error {
	ch, err := r.manager.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if r.prefetch > 0 {
		if err := ch.Qos(r.prefetch, 0, false); err != nil {
			return err
		}
	}

	deliveries, err := ch.Consume(
		h.Queue(),
		"",    // consumer tag generated by the broker
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	r.logger.Info("Consumer started", slog.String("queue", h.Queue()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("worker: delivery channel closed")
			}
			r.handleDelivery(ctx, h, d)
		}
	}
}

// handleDelivery acknowledges only after the handler succeeded; a transient
// failure requeues for redelivery, a permanent one dead-letters.
func (r *Runner) handleDelivery(ctx context.Context, h JobHandler, d amqp.Delivery) {
	err := h.Handle(ctx, d.Body)
	switch {
	case err == nil:
		r.metrics.JobsProcessedTotal.WithLabelValues(h.Queue(), metrics.JobOutcomeProcessed).Inc()
		if ackErr := d.Ack(false); ackErr != nil {
			r.logger.Error("Failed to ack delivery",
				slog.String("queue", h.Queue()),
				slog.Any("error", ackErr),
			)
		}

	case errors.Is(err, ErrPermanent):
		r.metrics.JobsProcessedTotal.WithLabelValues(h.Queue(), metrics.JobOutcomeDeadLetter).Inc()
		r.logger.Error("Job dead-lettered",
			slog.String("queue", h.Queue()),
			slog.Any("error", err),
		)
		if nackErr := d.Nack(false, false); nackErr != nil {
			r.logger.Error("Failed to nack delivery", slog.Any("error", nackErr))
		}

	default:
		r.metrics.JobsProcessedTotal.WithLabelValues(h.Queue(), metrics.JobOutcomeRequeued).Inc()
		r.logger.Warn("Job failed, requeueing",
			slog.String("queue", h.Queue()),
			slog.Any("error", err),
		)
		if nackErr := d.Nack(false, true); nackErr != nil {
			r.logger.Error("Failed to nack delivery", slog.Any("error", nackErr))
		}
	}
}
