package register

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/chatterly/registration-service/internal/api"
	"github.com/chatterly/registration-service/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// Signup handles POST /api/v1/signup. Validation and conflict rejections map
// to 400 with the rule message; everything after the cache commit succeeded
// can only produce success.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req types.RegistrationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Register(ctx, req)
	if err != nil {
		var vErr *ValidationError
		switch {
		case errors.As(err, &vErr):
			api.ErrorResponse(w, r, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, ErrConflict):
			api.ErrorResponse(w, r, http.StatusBadRequest, ErrConflict.Error())
		default:
			// Internal detail never reaches the client.
			h.logger.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Unable to complete registration. Please try again.")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, resp)
}
