package register

import (
	"errors"

	"github.com/chatterly/registration-service/internal/types"
)

// ErrConflict is returned when the username or the email is already taken.
// The message is deliberately generic: revealing which field collided would
// let callers enumerate accounts.
var ErrConflict = errors.New("Invalid Credentials")

// ErrCacheUnavailable aborts the whole registration. A token must never be
// issued for state no component can read yet.
var ErrCacheUnavailable = errors.New("credential cache unavailable")

// FieldError names one violated validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violated constraint; the first one is what
// the client sees, the full list is for logging.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return e.Fields[0].Message
}

// Response is the success payload: the public-safe view of the record (the
// password hash is excluded by its json tag) plus the session token.
type Response struct {
	Message string            `json:"message"`
	User    *types.UserRecord `json:"user"`
	Token   string            `json:"token"`
}
