package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	e "github.com/gartstein/arctecfox/internal/arctecfox/errors"
	"go.uber.org/zap"
)

// errorBody is the wire shape of every API error.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return fmt.Errorf("%w: %v", e.ErrInvalidInput, errMissingBody)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", e.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// mapServiceError maps domain or repository errors to HTTP statuses and
// wire error codes.
func (h *APIHandler) mapServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, e.CodeNoRows
	case errors.Is(err, e.ErrDuplicateName):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, e.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return http.StatusInternalServerError, "internal"
	}
}
