package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatterly/registration-service/internal/types"
)

type fakeSender struct {
	sent []string
	fail bool
}

func (s *fakeSender) SendWelcome(_ context.Context, to, _ string) error {
	if s.fail {
		return errors.New("smtp timeout")
	}
	s.sent = append(s.sent, to)
	return nil
}

func welcomeJobBody(t *testing.T, payload types.WelcomeEmailPayload) []byte {
	t.Helper()
	job, err := types.NewJob(types.JobSendWelcomeEmail, payload)
	require.NoError(t, err)
	body, err := json.Marshal(job)
	require.NoError(t, err)
	return body
}

func TestNotificationWorkerHandle(t *testing.T) {
	sender := &fakeSender{}
	w := NewNotificationWorker(sender, slog.Default())

	body := welcomeJobBody(t, types.WelcomeEmailPayload{
		ID:       uuid.New(),
		Username: "Qanny",
		Email:    "poerty@gmail.com",
	})

	require.NoError(t, w.Handle(context.Background(), body))
	assert.Equal(t, []string{"poerty@gmail.com"}, sender.sent)
}

func TestNotificationWorkerMalformedEnvelope(t *testing.T) {
	w := NewNotificationWorker(&fakeSender{}, slog.Default())

	err := w.Handle(context.Background(), []byte(`not json`))

	require.ErrorIs(t, err, ErrPermanent)
}

func TestNotificationWorkerMissingRecipient(t *testing.T) {
	w := NewNotificationWorker(&fakeSender{}, slog.Default())

	body := welcomeJobBody(t, types.WelcomeEmailPayload{ID: uuid.New(), Username: "Qanny"})

	require.ErrorIs(t, w.Handle(context.Background(), body), ErrPermanent)
}

func TestNotificationWorkerSendFailureIsRetryable(t *testing.T) {
	w := NewNotificationWorker(&fakeSender{fail: true}, slog.Default())

	body := welcomeJobBody(t, types.WelcomeEmailPayload{
		ID:       uuid.New(),
		Username: "Qanny",
		Email:    "poerty@gmail.com",
	})

	err := w.Handle(context.Background(), body)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermanent)
}
