package types

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationRequest is the signup input. It lives only for the duration of
// one registration call; the raw password never leaves the synchronous path.
type RegistrationRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	AvatarColor string `json:"avatarColor"`
	AvatarImage string `json:"avatarImage"`
}

// UserRecord is the canonical user entity. The identifier is generated at
// registration time, never by the durable store, and is immutable once
// assigned. Username and email are unique system-wide (email
// case-insensitively).
type UserRecord struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	AvatarColor    string    `json:"avatarColor"`
	AvatarImage    string    `json:"avatarImage"`
	PostsCount     int       `json:"postsCount"`
	FollowersCount int       `json:"followersCount"`
	FollowingCount int       `json:"followingCount"`
	CreatedAt      time.Time `json:"createdAt"`
}
