package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/chat-relay/backend/internal/config"
	"github.com/zhouzirui/chat-relay/backend/internal/handler/relay"
	"github.com/zhouzirui/chat-relay/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/chat-relay/backend/internal/middleware"
	"github.com/zhouzirui/chat-relay/backend/internal/session"
	"github.com/zhouzirui/chat-relay/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(deps session.Deps, relayCfg config.RelayConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	relayHandler := relay.New(deps, relayCfg)
	relayHandler.RegisterRoutes(r)

	return r
}
