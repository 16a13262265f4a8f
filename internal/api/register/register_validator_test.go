package register

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatterly/registration-service/internal/types"
)

func validSignup() types.RegistrationRequest {
	return types.RegistrationRequest{
		Username:    "Qanny",
		Email:       "poerty@gmail.com",
		Password:    "pwert2y",
		AvatarColor: "yellow",
		AvatarImage: "https://cdn.example.com/avatar.png",
	}
}

func TestValidateSignup(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.RegistrationRequest)
		wantMsg string
	}{
		{
			name:    "EmptyUsername",
			mutate:  func(r *types.RegistrationRequest) { r.Username = "" },
			wantMsg: "Username is a required field",
		},
		{
			name:    "UsernameTooShort",
			mutate:  func(r *types.RegistrationRequest) { r.Username = "mad" },
			wantMsg: "Invalid Username",
		},
		{
			name:    "UsernameTooLong",
			mutate:  func(r *types.RegistrationRequest) { r.Username = "madeklngvkl" },
			wantMsg: "Invalid Username",
		},
		{
			name:    "EmptyPassword",
			mutate:  func(r *types.RegistrationRequest) { r.Password = "" },
			wantMsg: "Password is a required field",
		},
		{
			name:    "PasswordTooLong",
			mutate:  func(r *types.RegistrationRequest) { r.Password = "qwerty54564" },
			wantMsg: "Invalid Password",
		},
		{
			name:    "PasswordTooShort",
			mutate:  func(r *types.RegistrationRequest) { r.Password = "qw" },
			wantMsg: "Invalid Password",
		},
		{
			name:    "EmptyEmail",
			mutate:  func(r *types.RegistrationRequest) { r.Email = "" },
			wantMsg: "Email is a required field",
		},
		{
			name:    "MalformedEmail",
			mutate:  func(r *types.RegistrationRequest) { r.Email = "not valid" },
			wantMsg: "Email must be valid",
		},
		{
			name:    "MissingAvatarColor",
			mutate:  func(r *types.RegistrationRequest) { r.AvatarColor = "" },
			wantMsg: "Avatar color is required",
		},
		{
			name:    "MissingAvatarImage",
			mutate:  func(r *types.RegistrationRequest) { r.AvatarImage = "" },
			wantMsg: "Avatar image is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSignup()
			tt.mutate(&req)

			_, vErr := ValidateSignup(req)
			require.NotNil(t, vErr)
			assert.Equal(t, tt.wantMsg, vErr.Error())
		})
	}
}

func TestValidateSignupCollectsAllViolations(t *testing.T) {
	req := types.RegistrationRequest{}

	_, vErr := ValidateSignup(req)
	require.NotNil(t, vErr)
	// Every constraint is reported, not just the first.
	assert.Len(t, vErr.Fields, 5)
	assert.Equal(t, "Username is a required field", vErr.Error())
}

func TestValidateSignupNormalizesEmail(t *testing.T) {
	req := validSignup()
	req.Email = "Poerty@Gmail.COM"

	normalized, vErr := ValidateSignup(req)
	require.Nil(t, vErr)
	assert.Equal(t, "poerty@gmail.com", normalized.Email)
}
