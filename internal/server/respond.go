package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/ytq/internal/shared"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// statusFor maps sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrSessionNotFound),
		errors.Is(err, shared.ErrNothingPlaying):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrQueueCapacityExceeded),
		errors.Is(err, shared.ErrPlaybackAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, shared.ErrUnresolvableSource),
		errors.Is(err, shared.ErrRelatedTrackNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrServiceUnavailable),
		errors.Is(err, shared.ErrSessionClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	return nil
}
