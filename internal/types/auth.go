package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT claim set bound to a freshly registered user. The token
// is self-contained; nothing is stored server-side for it.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}
