package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/dualfolio/dualfolio/internal/application/errors"
	"github.com/dualfolio/dualfolio/internal/application/services"
	"github.com/dualfolio/dualfolio/internal/domain/entities"
)

// Envelope statuses.
const (
	statusOK    = "ok"
	statusError = "error"
)

// apiResponse is the JSON envelope of every endpoint.
type apiResponse struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, apiResponse{Status: statusOK, Data: data})
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, apiResponse{Status: statusError, Message: message})
}

// writeError maps application errors onto HTTP status codes.
// Unknown errors are logged by the caller and reported as 500 without detail.
func writeError(w http.ResponseWriter, err error) int {
	var (
		validationErr *apperrors.ValidationError
		rateErr       *apperrors.RateLimitError
		moderationErr *apperrors.ModerationError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Status:  statusError,
			Message: validationErr.Error(),
			Data:    validationErr.Details,
		})
		return http.StatusBadRequest
	case errors.As(err, &rateErr):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rateErr.RetryAfter.Seconds()))))
		writeMessage(w, http.StatusTooManyRequests, rateErr.Error())
		return http.StatusTooManyRequests
	case errors.As(err, &moderationErr):
		// The rule name stays server side
		writeMessage(w, http.StatusUnprocessableEntity, "message was rejected")
		return http.StatusUnprocessableEntity
	case errors.Is(err, entities.ErrPersonaNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
		return http.StatusNotFound
	case errors.Is(err, services.ErrControllerClosed), errors.Is(err, ErrSessionsClosed):
		writeMessage(w, http.StatusServiceUnavailable, "session is no longer available")
		return http.StatusServiceUnavailable
	default:
		writeMessage(w, http.StatusInternalServerError, "internal error")
		return http.StatusInternalServerError
	}
}
