package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/chatterly/registration-service/internal/api/register"
	"github.com/chatterly/registration-service/internal/assets"
	"github.com/chatterly/registration-service/internal/types"
)

// PersistenceWorker mirrors cached users into durable storage. The upsert is
// keyed by identifier, so redelivering the same job is a no-op.
type PersistenceWorker struct {
	logger   *slog.Logger
	repo     register.Repository
	uploader assets.Uploader // optional; nil skips avatar uploads
}

func NewPersistenceWorker(repo register.Repository, uploader assets.Uploader, logger *slog.Logger) *PersistenceWorker {
	return &PersistenceWorker{
		logger:   logger,
		repo:     repo,
		uploader: uploader,
	}
}

func (w *PersistenceWorker) Queue() string {
	return string(types.JobPersistUser)
}

func (w *PersistenceWorker) Handle(ctx context.Context, body []byte) error {
	var job types.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: undecodable job envelope: %w", ErrPermanent, err)
	}

	var payload types.PersistUserPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("%w: undecodable persist-user payload: %w", ErrPermanent, err)
	}
	if payload.ID == uuid.Nil || payload.Username == "" || payload.Email == "" {
		return fmt.Errorf("%w: persist-user payload missing identity fields", ErrPermanent)
	}

	user := payload.UserRecord()

	if w.uploader != nil && user.AvatarImage != "" {
		ref, err := w.uploader.UploadAvatar(ctx, user.ID.String(), user.AvatarImage)
		if err != nil {
			// Storage hiccup: let redelivery retry the whole job.
			return fmt.Errorf("avatar upload failed: %w", err)
		}
		user.AvatarImage = ref
	}

	if err := w.repo.UpsertUser(ctx, user); err != nil {
		if errors.Is(err, register.ErrConflict) {
			// A different identifier owns these credentials; retrying can
			// never succeed.
			return fmt.Errorf("%w: credentials owned by another user: %w", ErrPermanent, err)
		}
		return err
	}

	w.logger.DebugContext(ctx, "User persisted", slog.String("user_id", user.ID.String()))
	return nil
}
