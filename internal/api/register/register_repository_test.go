package register

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatterly/registration-service/internal/types"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewPostgresRepository(mockPool, slog.Default())
}

func TestFindByUsernameOrEmailNoMatch(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	mockPool.ExpectQuery("SELECT id, username, email").
		WithArgs("Qanny", "poerty@gmail.com").
		WillReturnError(pgx.ErrNoRows)

	user, err := repo.FindByUsernameOrEmail(context.Background(), "Qanny", "poerty@gmail.com")

	require.NoError(t, err)
	assert.Nil(t, user)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestFindByUsernameOrEmailMatch(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	id := uuid.New()
	createdAt := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "username", "email", "password_hash", "avatar_color", "avatar_image",
		"posts_count", "followers_count", "following_count", "created_at",
	}).AddRow(id, "Qanny", "poerty@gmail.com", "$2a$10$digest", "yellow", "https://cdn.example.com/a.png", 0, 0, 0, createdAt)

	mockPool.ExpectQuery("SELECT id, username, email").
		WithArgs("Qanny", "poerty@gmail.com").
		WillReturnRows(rows)

	user, err := repo.FindByUsernameOrEmail(context.Background(), "Qanny", "poerty@gmail.com")

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "Qanny", user.Username)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestClaimCredentials(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	id := uuid.New()
	mockPool.ExpectExec("INSERT INTO credential_claims").
		WithArgs("Qanny", "poerty@gmail.com", id).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.ClaimCredentials(context.Background(), id, "Qanny", "poerty@gmail.com")

	require.NoError(t, err)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestClaimCredentialsUniqueViolation(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	id := uuid.New()
	mockPool.ExpectExec("INSERT INTO credential_claims").
		WithArgs("Qanny", "poerty@gmail.com", id).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "credential_claims_username_key"})

	err := repo.ClaimCredentials(context.Background(), id, "Qanny", "poerty@gmail.com")

	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestReleaseClaim(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	id := uuid.New()
	mockPool.ExpectExec("DELETE FROM credential_claims").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.ReleaseClaim(context.Background(), id))
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpsertUser(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	user := &types.UserRecord{
		ID:           uuid.New(),
		Username:     "Qanny",
		Email:        "poerty@gmail.com",
		PasswordHash: "$2a$10$digest",
		AvatarColor:  "yellow",
		AvatarImage:  "https://cdn.example.com/a.png",
		CreatedAt:    time.Now().UTC(),
	}

	mockPool.ExpectExec("INSERT INTO users").
		WithArgs(user.ID, user.Username, user.Email, user.PasswordHash, user.AvatarColor, user.AvatarImage,
			user.PostsCount, user.FollowersCount, user.FollowingCount, user.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.UpsertUser(context.Background(), user))
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpsertUserCredentialsOwnedElsewhere(t *testing.T) {
	mockPool, repo := newMockRepo(t)

	user := &types.UserRecord{ID: uuid.New(), Username: "Qanny", Email: "poerty@gmail.com"}
	mockPool.ExpectExec("INSERT INTO users").
		WithArgs(user.ID, user.Username, user.Email, user.PasswordHash, user.AvatarColor, user.AvatarImage,
			user.PostsCount, user.FollowersCount, user.FollowingCount, user.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err := repo.UpsertUser(context.Background(), user)

	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mockPool.ExpectationsWereMet())
}
