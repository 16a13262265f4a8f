package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chatterly/registration-service/internal/email"
	"github.com/chatterly/registration-service/internal/types"
)

// NotificationWorker sends the welcome email. A duplicate delivery produces
// at most a harmless duplicate mail.
type NotificationWorker struct {
	logger *slog.Logger
	sender email.Sender
}

func NewNotificationWorker(sender email.Sender, logger *slog.Logger) *NotificationWorker {
	return &NotificationWorker{
		logger: logger,
		sender: sender,
	}
}

func (w *NotificationWorker) Queue() string {
	return string(types.JobSendWelcomeEmail)
}

func (w *NotificationWorker) Handle(ctx context.Context, body []byte) error {
	var job types.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: undecodable job envelope: %w", ErrPermanent, err)
	}

	var payload types.WelcomeEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: undecodable welcome-email payload: %w", ErrPermanent, err)
	}
	if payload.Email == "" {
		return fmt.Errorf("%w: welcome-email payload has no recipient", ErrPermanent)
	}

	if err := w.sender.SendWelcome(ctx, payload.Email, payload.Username); err != nil {
		return err
	}

	w.logger.DebugContext(ctx, "Welcome email dispatched", slog.String("to", payload.Email))
	return nil
}
