package httpapi

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/dualfolio/dualfolio/internal/application/dto"
	apperrors "github.com/dualfolio/dualfolio/internal/application/errors"
)

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBodyBytes)

	var req dto.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewValidationError("body", "request body is not a JSON object", err.Error()))
		return
	}

	resp, err := s.contact.Submit(r.Context(), clientKey(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, resp)
}

// clientKey identifies the caller for rate limiting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
