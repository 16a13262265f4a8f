// Package queue wraps the AMQP broker connection shared by the job
// dispatcher and the background workers.
package queue

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeadLetterExchange receives jobs that permanently failed processing.
const DeadLetterExchange = "registration.dlx"

// DeadLetterSuffix is appended to a queue name to form its dead-letter queue.
const DeadLetterSuffix = ".dlq"

// Manager owns the single AMQP connection and hands out channels. It is
// injected explicitly everywhere it is needed; there is no package-level
// instance.
type Manager struct {
	url    string
	logger *slog.Logger

	mu         sync.RWMutex
	connection *amqp.Connection
}

// NewManager dials the broker and starts a background reconnect watch.
func NewManager(url string, logger *slog.Logger) (*Manager, error) {
	m := &Manager{url: url, logger: logger}
	if _, err := m.getConnection(); err != nil {
		return nil, fmt.Errorf("queue: initial connection failed: %w", err)
	}
	go m.handleReconnect()
	return m, nil
}

func (m *Manager) getConnection() (*amqp.Connection, error) {
	m.mu.RLock()
	if m.connection != nil && !m.connection.IsClosed() {
		m.mu.RUnlock()
		return m.connection, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have reconnected while we waited for the lock.
	if m.connection != nil && !m.connection.IsClosed() {
		return m.connection, nil
	}

	conn, err := amqp.Dial(m.url)
	if err != nil {
		return nil, fmt.Errorf("queue: failed to dial broker: %w", err)
	}
	m.connection = conn
	m.logger.Info("AMQP connection established")
	return m.connection, nil
}

// Channel opens a new channel on the shared connection.
func (m *Manager) Channel() (*amqp.Channel, error) {
	conn, err := m.getConnection()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("queue: failed to open channel: %w", err)
	}
	return ch, nil
}

func (m *Manager) handleReconnect() {
	for {
		time.Sleep(10 * time.Second)

		m.mu.RLock()
		closed := m.connection == nil || m.connection.IsClosed()
		m.mu.RUnlock()
		if !closed {
			continue
		}

		m.logger.Warn("AMQP connection lost, attempting to reconnect...")
		if _, err := m.getConnection(); err != nil {
			m.logger.Error("AMQP reconnect failed", slog.Any("error", err))
		}
	}
}

// Close closes the shared connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connection != nil && !m.connection.IsClosed() {
		if err := m.connection.Close(); err != nil {
			return fmt.Errorf("queue: failed to close connection: %w", err)
		}
	}
	return nil
}

// DeclareTopology declares the durable work queues, the dead-letter exchange
// and one dead-letter queue per work queue. Safe to call from every process;
// declarations are idempotent on the broker side.
func DeclareTopology(ch *amqp.Channel, queues ...string) error {
	if err := ch.ExchangeDeclare(
		DeadLetterExchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("queue: failed to declare dead-letter exchange: %w", err)
	}

	for _, q := range queues {
		dlq := q + DeadLetterSuffix
		if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue: failed to declare dead-letter queue %q: %w", dlq, err)
		}
		if err := ch.QueueBind(dlq, q, DeadLetterExchange, false, nil); err != nil {
			return fmt.Errorf("queue: failed to bind dead-letter queue %q: %w", dlq, err)
		}

		// Rejected deliveries from the work queue route to the DLX with the
		// queue name as routing key.
		args := amqp.Table{"x-dead-letter-exchange": DeadLetterExchange}
		if _, err := ch.QueueDeclare(q, true, false, false, false, args); err != nil {
			return fmt.Errorf("queue: failed to declare queue %q: %w", q, err)
		}
	}
	return nil
}
