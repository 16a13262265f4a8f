package register

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chatterly/registration-service/config"
	"github.com/chatterly/registration-service/internal/types"
)

// mintSessionToken signs an HS256 access token bound to the new identifier.
// The token is self-contained; no server-side session row backs it.
func mintSessionToken(jwtCfg config.JWTConfig, user *types.UserRecord) (string, error) {
	now := time.Now()

	claims := types.Claims{
		UserID:   user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    jwtCfg.Issuer,
			Audience:  jwt.ClaimStrings{jwtCfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtCfg.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtCfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}
