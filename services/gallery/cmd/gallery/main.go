package main

import (
	"errors"
	"log"
	"log/slog"
	"net/http"
	"time"

	"memorylane/internal/util"
	"memorylane/pkg/gateway"
	"memorylane/pkg/session"
	"memorylane/pkg/storage"
	"memorylane/services/gallery/internal/app"
	"memorylane/services/gallery/internal/config"
	"memorylane/services/gallery/internal/server"
)

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		log.Fatalf("database URL required")
	}
	if cfg.MinioEndpoint == "" {
		log.Fatalf("minio endpoint required")
	}
	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}
	gw, err := gateway.NewGormGateway(cfg.DatabaseURL, objects)
	if err != nil {
		log.Fatalf("failed to init gateway: %v", err)
	}

	sessions, err := buildSessions(cfg, sessionTTL)
	if err != nil {
		log.Fatalf("failed to init sessions: %v", err)
	}

	appCore, err := app.New(app.Config{
		Gateway:           gw,
		Users:             gw,
		Sessions:          sessions,
		SessionTTL:        sessionTTL,
		SearchMinQueryLen: cfg.SearchMinQueryLen,
		Logger:            logger,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer := server.New(server.Config{
		App:               appCore,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		AllowedExtensions: cfg.AllowedExtensions,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("gallery listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

// buildSessions picks the session backend: a hosted Supabase project
// when configured, otherwise JWT or Redis.
func buildSessions(cfg config.FileConfig, ttl time.Duration) (session.Store, error) {
	switch {
	case cfg.SupabaseURL != "":
		return session.NewSupabaseVerifier(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey)
	case cfg.JWTSecret != "":
		return session.NewJWTStore(cfg.JWTSecret, ttl), nil
	case cfg.RedisAddr != "":
		return session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, ttl), nil
	default:
		return nil, errors.New("session backend required (supabaseURL, jwtSecret, or redisAddr)")
	}
}
