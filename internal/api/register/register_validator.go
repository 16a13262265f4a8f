package register

import (
	"regexp"
	"strings"

	"github.com/chatterly/registration-service/internal/types"
)

const (
	usernameMinLen = 4
	usernameMaxLen = 8
	passwordMinLen = 4
	passwordMaxLen = 8
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// ValidateSignup applies the structural rules to a signup request. It returns
// the normalized request (email lowercased) or every violated constraint, not
// just the first. Uniqueness is a separate, explicit check against durable
// storage.
func ValidateSignup(req types.RegistrationRequest) (types.RegistrationRequest, *ValidationError) {
	var fields []FieldError

	switch {
	case req.Username == "":
		fields = append(fields, FieldError{Field: "username", Message: "Username is a required field"})
	case len(req.Username) < usernameMinLen || len(req.Username) > usernameMaxLen:
		fields = append(fields, FieldError{Field: "username", Message: "Invalid Username"})
	}

	switch {
	case req.Password == "":
		fields = append(fields, FieldError{Field: "password", Message: "Password is a required field"})
	case len(req.Password) < passwordMinLen || len(req.Password) > passwordMaxLen:
		fields = append(fields, FieldError{Field: "password", Message: "Invalid Password"})
	}

	switch {
	case req.Email == "":
		fields = append(fields, FieldError{Field: "email", Message: "Email is a required field"})
	case !emailPattern.MatchString(req.Email):
		fields = append(fields, FieldError{Field: "email", Message: "Email must be valid"})
	}

	if req.AvatarColor == "" {
		fields = append(fields, FieldError{Field: "avatarColor", Message: "Avatar color is required"})
	}
	if req.AvatarImage == "" {
		fields = append(fields, FieldError{Field: "avatarImage", Message: "Avatar image is required"})
	}

	if len(fields) > 0 {
		return types.RegistrationRequest{}, &ValidationError{Fields: fields}
	}

	req.Email = strings.ToLower(req.Email)
	return req, nil
}
