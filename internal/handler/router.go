/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file defines the main Router, applying logging, CORS and recovery middleware
before delegating to the health, metrics and websocket endpoints.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"socialchat/internal/pkg/limiter"
	"socialchat/internal/pkg/logx"
	"socialchat/internal/pkg/resp"
)

const (
	// ConnectRate is the sustained number of /ws handshakes allowed per second and IP.
	ConnectRate = 0.5

	// ConnectBurst is the number of /ws handshakes an IP may make back to back.
	ConnectBurst = 10

	handshakeTimeout = 10 * time.Second
)

// Router sets up the HTTP routing table. The returned cleanup function stops
// the background work of the rate limiter.
func Router(deps *AppDeps) (http.Handler, func()) {
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		presence := deps.Supervisor.Presence()

		resp.RespondSuccess(w, r, map[string]any{
			"status":      "ok",
			"service":     "Social Chat Server",
			"onlineUsers": presence.Len(),
			"connections": presence.ConnectionCount(),
		})
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.With(connectLimiter.Middleware).Get("/ws", HandleWebSocket(deps))

	return r, connectLimiter.Stop
}
