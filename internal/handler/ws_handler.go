/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file contains the websocket entry point. The chat Supervisor performs authentication,
the upgrade and the rest of the connection lifecycle.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"socialchat/internal/configs"
	"socialchat/internal/pkg/limiter"
	"socialchat/internal/pkg/logx"
)

// HandleWebSocket returns the handler for websocket connection requests. Rate limiting
// is applied in front of it by the router.
func HandleWebSocket(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logx.Debug("WebSocket connection requested.", "ip", limiter.ClientIP(r))
		deps.Supervisor.ServeWS(w, r)
	}
}

// NewUpgrader builds the websocket upgrader. Outside development only the
// configured origins may open chat connections.
func NewUpgrader(cfg *configs.AppConfig) websocket.Upgrader {
	allowedOrigins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HandshakeTimeout: handshakeTimeout,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}
}
