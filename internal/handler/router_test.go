package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"socialchat/internal/app/chat"
	"socialchat/internal/configs"
	"socialchat/internal/pkg/auth/jwt"
	"socialchat/internal/pkg/resp"
)

func newTestDeps(t *testing.T, env string) *AppDeps {
	t.Helper()

	cfg := &configs.AppConfig{
		Environment:       env,
		AllowedOrigins:    []string{"https://social.example"},
		JWTSecret:         "test-secret",
		SessionCookieName: "session",
	}

	registry := prometheus.NewRegistry()
	supervisor := chat.NewSupervisor(chat.Options{
		Resolver: jwt.NewResolver(cfg.SessionCookieName, cfg.JWTSecret),
		Upgrader: NewUpgrader(cfg),
		Metrics:  chat.NewMetrics(registry),
	})
	t.Cleanup(func() { _ = supervisor.Stop() })

	return &AppDeps{Supervisor: supervisor, Config: cfg, Gatherer: registry}
}

func TestHealthReportsPresence(t *testing.T) {
	h, cleanup := Router(newTestDeps(t, "production"))
	defer cleanup()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		resp.JSONResponse
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Data["status"] != "ok" || body.Data["onlineUsers"] != float64(0) {
		t.Fatalf("unexpected health payload %+v", body.Data)
	}
	if body.RequestID == "" {
		t.Fatal("expected a request id")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, cleanup := Router(newTestDeps(t, "production"))
	defer cleanup()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestWebSocketRequiresSession(t *testing.T) {
	h, cleanup := Router(newTestDeps(t, "production"))
	defer cleanup()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebSocketRateLimited(t *testing.T) {
	h, cleanup := Router(newTestDeps(t, "production"))
	defer cleanup()

	limited := false
	for i := 0; i < ConnectBurst+1; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}

	if !limited {
		t.Fatal("expected the burst to be exhausted")
	}
}

func TestUpgraderCheckOrigin(t *testing.T) {
	cases := []struct {
		env    string
		origin string
		want   bool
	}{
		{"production", "https://social.example", true},
		{"production", "https://evil.example", false},
		{"production", "", false},
		{"development", "https://evil.example", true},
	}

	for _, tc := range cases {
		cfg := &configs.AppConfig{Environment: tc.env, AllowedOrigins: []string{"https://social.example"}}
		upgrader := NewUpgrader(cfg)

		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}

		if got := upgrader.CheckOrigin(r); got != tc.want {
			t.Fatalf("%s origin %q: expected %v, got %v", tc.env, tc.origin, tc.want, got)
		}
	}
}
