package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes persistent messages on the default exchange with
// publisher confirms. An enqueue only counts once the broker has confirmed
// it; that is what makes the dispatcher's at-least-once promise honest.
type Publisher struct {
	logger *slog.Logger

	mu      sync.Mutex
	channel *amqp.Channel
	manager *Manager
}

// NewPublisher opens a confirm-mode channel on the shared connection.
func NewPublisher(manager *Manager, logger *slog.Logger) (*Publisher, error) {
	p := &Publisher{manager: manager, logger: logger}
	if err := p.resetChannel(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) resetChannel() error {
	ch, err := p.manager.Channel()
	if err != nil {
		return err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("queue: failed to put channel in confirm mode: %w", err)
	}
	p.channel = ch
	return nil
}

// Publish sends body to the named queue and waits for the broker's confirm.
// The message is marked persistent so an acknowledged job survives a broker
// restart.
func (p *Publisher) Publish(ctx context.Context, queueName string, contentType string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		if err := p.resetChannel(); err != nil {
			return err
		}
	}

	confirmation, err := p.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  contentType,
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("queue: failed to publish to %q: %w", queueName, err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("queue: waiting for confirm on %q: %w", queueName, err)
	}
	if !acked {
		return fmt.Errorf("queue: broker rejected publish to %q", queueName)
	}
	return nil
}

// Close closes the publisher channel.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil && !p.channel.IsClosed() {
		if err := p.channel.Close(); err != nil {
			p.logger.Error("Error closing publisher channel", slog.Any("error", err))
			return err
		}
	}
	return nil
}
