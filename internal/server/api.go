package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytq/internal/player"
	"github.com/desertthunder/ytq/internal/shared"
	"github.com/desertthunder/ytq/internal/tasks"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIOpts configures [NewAPI].
type APIOpts struct {
	Playlists         tasks.PlaylistSource // optional, enables playlist import
	RequestsPerSecond float64              // import throttle, 0 disables
	Logger            *log.Logger
}

// NewAPI builds the router for the queue service: the session endpoints plus /health and /metrics.
func NewAPI(registry *player.Registry, opts APIOpts) *BasicRouter {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	r := NewBasicRouter()
	r.Use(Recover(logger), Logging(logger))

	r.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": len(registry.Sessions())})
	}))
	r.Handle(http.MethodGet, "/metrics", promhttp.Handler())
	r.Handler(NewQueueHandler(registry, opts.Playlists, opts.RequestsPerSecond, logger))
	return r
}
