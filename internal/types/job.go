package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobPersistUser      JobKind = "persist-user"
	JobSendWelcomeEmail JobKind = "send-welcome-email"
)

// Job is a named unit of asynchronous work. Jobs are immutable once enqueued;
// the payload carries the identifier plus the minimal fields its consumer
// needs, never the raw password.
type Job struct {
	Kind         JobKind         `json:"kind"`
	DispatchedAt time.Time       `json:"dispatchedAt"`
	Payload      json.RawMessage `json:"payload"`
}

// PersistUserPayload is what the persistence worker needs to mirror a cached
// user into durable storage. The password here is the bcrypt digest, never
// plaintext.
type PersistUserPayload struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"passwordHash"`
	AvatarColor    string    `json:"avatarColor"`
	AvatarImage    string    `json:"avatarImage"`
	PostsCount     int       `json:"postsCount"`
	FollowersCount int       `json:"followersCount"`
	FollowingCount int       `json:"followingCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UserRecord converts the payload back into the canonical entity.
func (p *PersistUserPayload) UserRecord() *UserRecord {
	return &UserRecord{
		ID:             p.ID,
		Username:       p.Username,
		Email:          p.Email,
		PasswordHash:   p.PasswordHash,
		AvatarColor:    p.AvatarColor,
		AvatarImage:    p.AvatarImage,
		PostsCount:     p.PostsCount,
		FollowersCount: p.FollowersCount,
		FollowingCount: p.FollowingCount,
		CreatedAt:      p.CreatedAt,
	}
}

// PersistUserPayloadFrom builds the queue payload for a cached record.
func PersistUserPayloadFrom(u *UserRecord) PersistUserPayload {
	return PersistUserPayload{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		AvatarColor:    u.AvatarColor,
		AvatarImage:    u.AvatarImage,
		PostsCount:     u.PostsCount,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		CreatedAt:      u.CreatedAt,
	}
}

// WelcomeEmailPayload is the minimal slice of the user the notification
// worker needs.
type WelcomeEmailPayload struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// NewJob marshals a payload into an immutable Job envelope.
func NewJob(kind JobKind, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, err
	}
	return Job{Kind: kind, DispatchedAt: time.Now().UTC(), Payload: raw}, nil
}
