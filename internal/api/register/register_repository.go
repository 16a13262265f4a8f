package register

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatterly/registration-service/internal/types"
)

// PGXPool is the subset of pgxpool.Pool the repository uses; pgxmock
// satisfies it in tests.
type PGXPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ PGXPool = (*pgxpool.Pool)(nil)

// Repository is the durable-storage collaborator. The cache cannot serve as
// the completeness source for uniqueness, so lookups go here.
type Repository interface {
	// FindByUsernameOrEmail returns the matching record, or (nil, nil) when
	// no user matches. Email matches case-insensitively.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*types.UserRecord, error)

	// ClaimCredentials atomically reserves the username/email pair for the
	// given identifier on the durable uniqueness index. When two
	// registrations race on the same credentials, exactly one claim
	// succeeds; the loser gets ErrConflict.
	ClaimCredentials(ctx context.Context, id uuid.UUID, username, email string) error

	// ReleaseClaim undoes a claim whose registration aborted before the
	// cache commit, so the credentials become available again.
	ReleaseClaim(ctx context.Context, id uuid.UUID) error

	// UpsertUser writes the record keyed by its identifier. Re-applying the
	// same record is a no-op; a unique collision on username/email with a
	// different identifier yields ErrConflict.
	UpsertUser(ctx context.Context, user *types.UserRecord) error
}

var _ Repository = (*PostgresRepository)(nil)

type PostgresRepository struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresRepository(pgpool PGXPool, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

const findUserQuery = `SELECT id, username, email, password_hash, avatar_color, avatar_image,
       posts_count, followers_count, following_count, created_at
  FROM users
 WHERE username = $1 OR lower(email) = lower($2)
 LIMIT 1`

func (r *PostgresRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*types.UserRecord, error) {
	var u types.UserRecord
	err := r.pgpool.QueryRow(ctx, findUserQuery, username, email).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AvatarColor, &u.AvatarImage,
		&u.PostsCount, &u.FollowersCount, &u.FollowingCount, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: query failed: %w", err)
	}
	return &u, nil
}

const claimCredentialsQuery = `INSERT INTO credential_claims (username, email, user_id)
VALUES ($1, lower($2), $3)`

func (r *PostgresRepository) ClaimCredentials(ctx context.Context, id uuid.UUID, username, email string) error {
	_, err := r.pgpool.Exec(ctx, claimCredentialsQuery, username, email, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("claim credentials: db insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx, `DELETE FROM credential_claims WHERE user_id = $1`, id)
	if err != nil {
		return fmt.Errorf("release claim: db delete failed: %w", err)
	}
	return nil
}

const upsertUserQuery = `INSERT INTO users (id, username, email, password_hash, avatar_color, avatar_image,
                   posts_count, followers_count, following_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING`

func (r *PostgresRepository) UpsertUser(ctx context.Context, user *types.UserRecord) error {
	_, err := r.pgpool.Exec(ctx, upsertUserQuery,
		user.ID, user.Username, user.Email, user.PasswordHash, user.AvatarColor, user.AvatarImage,
		user.PostsCount, user.FollowersCount, user.FollowingCount, user.CreatedAt,
	)
	if err != nil {
		// Unique violations on username/lower(email) mean a different
		// identifier already owns the credentials: the losing side of a race.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("upsert user: db insert failed: %w", err)
	}
	return nil
}
