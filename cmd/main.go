/*
Package main is the entry point for the Social Chat server.

It is responsible for loading configuration, initializing the global logging system,
connecting the friendship store, starting the chat Supervisor and the HTTP server,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
so every chat connection is closed before the process exits.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"socialchat/internal/app/chat"
	"socialchat/internal/app/db"
	"socialchat/internal/app/docstore"
	"socialchat/internal/configs"
	"socialchat/internal/handler"
	"socialchat/internal/pkg/auth/jwt"
	"socialchat/internal/pkg/logx"
)

// store is what the chat core needs from the persistence backend.
type store interface {
	chat.FriendshipOracle
	chat.UserDirectory
}

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store_driver", cfg.StoreDriver).
		Int("chat_max_length", cfg.ChatMaxLength).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, feed := openStore(ctx, cfg)
	defer closeBackend()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	supervisor := chat.NewSupervisor(chat.Options{
		Resolver:      jwt.NewResolver(cfg.SessionCookieName, cfg.JWTSecret),
		Oracle:        backend,
		Directory:     chat.NewCachedDirectory(backend, cfg.UsernameCacheTTL),
		Upgrader:      handler.NewUpgrader(cfg),
		MaxLength:     cfg.ChatMaxLength,
		LookupTimeout: cfg.ChatLookupTimeout,
		Metrics:       chat.NewMetrics(registry),
	})

	// Profile-wall pushes are only available with the Postgres backend.
	feedDone := make(chan struct{})
	if feed != nil {
		go func() {
			defer close(feedDone)
			feed.Run(ctx, func(ctx context.Context, msg db.ProfileMessage) {
				supervisor.NotifyProfileMessage(ctx, chat.ProfileMessage{
					ID:   msg.ID,
					From: msg.From,
					To:   msg.To,
					Body: msg.Body,
					Time: msg.Time,
				})
			})
		}()
	} else {
		close(feedDone)
	}

	// Setup HTTP server and routes
	router, cleanupRouter := handler.Router(&handler.AppDeps{
		Supervisor: supervisor,
		Config:     cfg,
		Gatherer:   registry,
	})
	defer cleanupRouter()

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info("Social Chat Server starting.", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Hijacked websocket connections are not tracked by Shutdown; the Supervisor closes them.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := supervisor.Stop(); err != nil {
		logx.Error(err, "Errors while closing chat connections")
	}
	<-feedDone

	logx.Info("Server gracefully stopped.")
}

// openStore connects the configured backend. The returned feed is nil when the
// backend cannot announce profile messages.
func openStore(ctx context.Context, cfg *configs.AppConfig) (store, func(), *db.ProfileFeed) {
	switch cfg.StoreDriver {
	case configs.StoreDriverMongo:
		mongoStore, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logx.Fatal(err, "Failed to connect to MongoDB")
		}

		return mongoStore, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mongoStore.Close(closeCtx); err != nil {
				logx.Error(err, "Failed to disconnect from MongoDB")
			}
		}, nil

	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to connect to PostgreSQL")
		}
		logx.Info("Connected to PostgreSQL.")

		return db.NewStore(pool), pool.Close, db.NewProfileFeed(pool)
	}
}
