package register

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chatterly/registration-service/internal/api"
	"github.com/chatterly/registration-service/internal/types"
)

// MockService is a mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, req types.RegistrationRequest) (*Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Response), args.Error(1)
}

func performSignup(t *testing.T, service Service, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewHandler(service, slog.Default())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.Signup(rr, req)
	return rr
}

func TestSignupHandlerCreated(t *testing.T) {
	mockService := new(MockService)
	user := &types.UserRecord{ID: uuid.New(), Username: "Qanny", Email: "poerty@gmail.com"}
	mockService.On("Register", mock.Anything, mock.AnythingOfType("types.RegistrationRequest")).
		Return(&Response{Message: "User created successfully.", User: user, Token: "signed.jwt.token"}, nil).Once()

	rr := performSignup(t, mockService, `{"username":"Qanny","email":"poerty@gmail.com","password":"pwert2y","avatarColor":"yellow","avatarImage":"data:image/png;base64,AAAA"}`)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "User created successfully.", resp.Message)
	assert.Equal(t, "signed.jwt.token", resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "Qanny", resp.User.Username)
	// The digest never crosses the wire.
	assert.NotContains(t, rr.Body.String(), "passwordHash")
	mockService.AssertExpectations(t)
}

func TestSignupHandlerValidationError(t *testing.T) {
	mockService := new(MockService)
	vErr := &ValidationError{Fields: []FieldError{{Field: "username", Message: "Invalid Username"}}}
	mockService.On("Register", mock.Anything, mock.Anything).Return(nil, vErr).Once()

	rr := performSignup(t, mockService, `{"username":"mad"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var envelope api.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.Equal(t, http.StatusBadRequest, envelope.StatusCode)
	assert.Equal(t, "Invalid Username", envelope.Message)
}

func TestSignupHandlerConflict(t *testing.T) {
	mockService := new(MockService)
	mockService.On("Register", mock.Anything, mock.Anything).Return(nil, ErrConflict).Once()

	rr := performSignup(t, mockService, `{"username":"Qanny","email":"poerty@gmail.com","password":"pwert2y","avatarColor":"yellow","avatarImage":"x"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var envelope api.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.Equal(t, "Invalid Credentials", envelope.Message)
}

func TestSignupHandlerInternalError(t *testing.T) {
	mockService := new(MockService)
	mockService.On("Register", mock.Anything, mock.Anything).
		Return(nil, errors.New("cache commit failed: connection refused")).Once()

	rr := performSignup(t, mockService, `{"username":"Qanny","email":"poerty@gmail.com","password":"pwert2y","avatarColor":"yellow","avatarImage":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var envelope api.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	assert.Equal(t, http.StatusInternalServerError, envelope.StatusCode)
	assert.Equal(t, "Unable to complete registration. Please try again.", envelope.Message)
	// The internal cause stays out of the response.
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestSignupHandlerMalformedBody(t *testing.T) {
	mockService := new(MockService)

	rr := performSignup(t, mockService, `{"username":`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mockService.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}
