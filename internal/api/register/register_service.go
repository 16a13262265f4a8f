package register

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chatterly/registration-service/app/observability/metrics"
	"github.com/chatterly/registration-service/config"
	"github.com/chatterly/registration-service/internal/types"
)

// Cache and broker calls sit on the client-facing latency path and get short
// bounded timeouts; durable storage and email, reached from workers, may take
// longer.
const (
	cacheTimeout    = 500 * time.Millisecond
	dispatchTimeout = 2 * time.Second
)

// DurabilityRecorder is told about users that are cached but have no
// acknowledged persist-user job, so an out-of-band sweep can still get them
// to durable storage.
type DurabilityRecorder interface {
	RecordRisk(user *types.UserRecord)
}

// Service runs one registration from validation through job dispatch. The
// pipeline never revisits a stage and never retries inside the synchronous
// path; retries belong to the workers.
type Service interface {
	Register(ctx context.Context, req types.RegistrationRequest) (*Response, error)
}

var _ Service = (*ServiceImpl)(nil)

type ServiceImpl struct {
	logger     *slog.Logger
	jwtCfg     config.JWTConfig
	repo       Repository
	cache      CredentialCache
	dispatcher JobDispatcher
	hasher     PasswordHasher
	risks      DurabilityRecorder
	metrics    *metrics.PipelineMetrics
}

func NewService(
	repo Repository,
	cache CredentialCache,
	dispatcher JobDispatcher,
	hasher PasswordHasher,
	risks DurabilityRecorder,
	m *metrics.PipelineMetrics,
	jwtCfg config.JWTConfig,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		jwtCfg:     jwtCfg,
		repo:       repo,
		cache:      cache,
		dispatcher: dispatcher,
		hasher:     hasher,
		risks:      risks,
		metrics:    m,
	}
}

// Register walks the pipeline: Validating, CheckingUniqueness, Committing,
// Dispatching, Completed. Errors before the cache commit abort the request;
// errors after it are isolated to background processing and never invalidate
// the issued session.
func (s *ServiceImpl) Register(ctx context.Context, req types.RegistrationRequest) (*Response, error) {
	start := time.Now()
	defer func() {
		s.metrics.RegistrationDurationSec.Observe(time.Since(start).Seconds())
	}()

	// Validating
	normalized, vErr := ValidateSignup(req)
	if vErr != nil {
		s.logger.WarnContext(ctx, "Signup rejected by validation",
			slog.String("username", req.Username),
			slog.Any("violations", vErr.Fields),
		)
		s.metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeRejectedValidation).Inc()
		return nil, vErr
	}

	// CheckingUniqueness. The durable store, not the cache, is the
	// completeness source: a user persisted in an earlier run and since
	// evicted must still be found.
	existing, err := s.repo.FindByUsernameOrEmail(ctx, normalized.Username, normalized.Email)
	if err != nil {
		return nil, fmt.Errorf("uniqueness check failed: %w", err)
	}
	if existing != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeRejectedConflict).Inc()
		return nil, ErrConflict
	}

	// Committing
	digest, err := s.hasher.Hash(normalized.Password)
	if err != nil {
		return nil, err
	}

	user := &types.UserRecord{
		ID:           uuid.New(),
		Username:     normalized.Username,
		Email:        normalized.Email,
		PasswordHash: digest,
		AvatarColor:  normalized.AvatarColor,
		AvatarImage:  normalized.AvatarImage,
		CreatedAt:    time.Now().UTC(),
	}

	// The claim is the compare-and-set against the durable uniqueness index:
	// of two racing registrations with the same credentials, exactly one
	// passes this point.
	if err := s.repo.ClaimCredentials(ctx, user.ID, user.Username, user.Email); err != nil {
		if errors.Is(err, ErrConflict) {
			s.metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeRejectedConflict).Inc()
			return nil, ErrConflict
		}
		return nil, err
	}

	cacheCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	if err := s.cache.Put(cacheCtx, user.ID.String(), user); err != nil {
		s.logger.ErrorContext(ctx, "Credential cache write failed, aborting registration",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err),
		)
		// Free the claimed credentials so the client can retry.
		if relErr := s.repo.ReleaseClaim(ctx, user.ID); relErr != nil {
			s.logger.ErrorContext(ctx, "Failed to release credential claim",
				slog.String("user_id", user.ID.String()),
				slog.Any("error", relErr),
			)
		}
		s.metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeFailedCache).Inc()
		return nil, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}

	// Dispatching. From here on the registration has happened: failures are
	// logged and compensated, never surfaced as request errors.
	s.dispatchJobs(ctx, user)

	token, err := mintSessionToken(s.jwtCfg, user)
	if err != nil {
		// The user is committed and readable; a signing failure is a server
		// fault, not a rejection.
		return nil, err
	}

	s.metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
	s.logger.InfoContext(ctx, "User registered",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username),
	)

	// Completed
	return &Response{
		Message: "User created successfully.",
		User:    user,
		Token:   token,
	}, nil
}

// dispatchJobs enqueues the persist-user and send-welcome-email jobs on their
// independent queues. Ordering between them is not guaranteed and neither
// worker may rely on it.
func (s *ServiceImpl) dispatchJobs(ctx context.Context, user *types.UserRecord) {
	dispatchCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	persistJob, err := types.NewJob(types.JobPersistUser, types.PersistUserPayloadFrom(user))
	if err == nil {
		err = s.dispatcher.Enqueue(dispatchCtx, persistJob)
	}
	if err != nil {
		// The client still gets success: the user exists in the cache and can
		// operate. But a cached-only user with no persist job is a durability
		// risk and must be reconciled out of band.
		s.metrics.DurabilityRisksTotal.Inc()
		s.risks.RecordRisk(user)
		s.logger.ErrorContext(ctx, "Durability risk: persist-user job not enqueued",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err),
		)
	}

	emailJob, err := types.NewJob(types.JobSendWelcomeEmail, types.WelcomeEmailPayload{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err == nil {
		err = s.dispatcher.Enqueue(dispatchCtx, emailJob)
	}
	if err != nil {
		// A missing welcome email is tolerable.
		s.logger.WarnContext(ctx, "Welcome email job not enqueued",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err),
		)
	}
}
