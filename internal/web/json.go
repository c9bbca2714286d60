package web

import (
	"encoding/json"
	"net/http"

	"codeberg.org/mutker/fanctl/internal/errors"
)

// JSONError is the body of every failed request.
type JSONError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrInvalidArgument, errors.ErrUnknownCommand:
		return http.StatusBadRequest
	case errors.ErrUnknownAttribute:
		return http.StatusNotFound
	case errors.ErrModeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, ok := errors.CodeOf(err)
	if !ok {
		code = errors.ErrInternal
	}

	writeJSON(w, statusFor(code), JSONError{
		Error:   string(code),
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
