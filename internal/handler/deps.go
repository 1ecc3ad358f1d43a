package handler

import (
	"github.com/prometheus/client_golang/prometheus"

	"socialchat/internal/app/chat"
	"socialchat/internal/configs"
)

// AppDeps bundles what the HTTP layer needs to serve requests.
type AppDeps struct {
	Supervisor *chat.Supervisor
	Config     *configs.AppConfig

	// Gatherer backs the /metrics endpoint.
	Gatherer prometheus.Gatherer
}
