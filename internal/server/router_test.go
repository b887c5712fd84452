package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/ytq/internal/shared"
)

func TestBasicRouter(t *testing.T) {
	t.Run("middleware wraps in order", func(t *testing.T) {
		var calls []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					calls = append(calls, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(tag("first"), tag("second"))
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls = append(calls, "handler")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		if got := strings.Join(calls, ","); got != "first,second,handler" {
			t.Errorf("call order = %s", got)
		}
	})

	t.Run("method mismatch", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	t.Run("path values", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/sessions/{id}", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			_, _ = w.Write([]byte(req.PathValue("id")))
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/guild-1", nil))
		if rec.Body.String() != "guild-1" {
			t.Errorf("body = %q", rec.Body.String())
		}
	})
}

func TestRecover(t *testing.T) {
	h := Recover(shared.DiscardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{shared.ErrInvalidInput, http.StatusBadRequest},
		{shared.ErrIndexOutOfRange, http.StatusBadRequest},
		{shared.ErrSessionNotFound, http.StatusNotFound},
		{shared.ErrQueueCapacityExceeded, http.StatusConflict},
		{shared.ErrUnresolvableSource, http.StatusUnprocessableEntity},
		{shared.ErrNetwork, http.StatusBadGateway},
		{shared.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{http.ErrBodyNotAllowed, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
