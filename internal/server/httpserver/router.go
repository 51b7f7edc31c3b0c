package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/Niro-Programe/Fergando-MD/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Name is shown on the liveness page.
	Name string

	// Status is the session the probes report on.
	Status handler.StatusSource

	// Metrics serves /metrics. Nil disables the endpoint.
	Metrics http.Handler

	Logger *slog.Logger
}

// NewRouter builds the route table with its middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	log := cfg.Logger.With("component", "http")

	h := handler.New(cfg.Status, cfg.Name, log)
	mux := http.NewServeMux()

	// Order: Recover -> RequestID -> AccessLog -> handler
	mux.Handle("/", Chain(h, Recover(log), RequestID(), AccessLog(log)))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, Recover(log)))
	}
	return mux
}
