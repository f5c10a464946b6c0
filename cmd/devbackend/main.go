// devbackend runs an in-memory fake of the verification and inventory backend for local development.
// OTPs are readable at GET /dev/otp?session_id=. Refuses to start unless DEV_BACKEND_ENABLED=true.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"session-issuance-console/internal/config"
	"session-issuance-console/internal/devbackend"
	"session-issuance-console/internal/devotp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if !cfg.DevBackendEnabled {
		log.Fatal("devbackend: set DEV_BACKEND_ENABLED=true to run the dev backend")
	}
	if cfg.DevAdminPassword == "" {
		log.Fatal("devbackend: DEV_ADMIN_PASSWORD must be set")
	}

	otps := devotp.NewMemoryStore()
	backend, err := devbackend.New(devbackend.Config{
		AdminPassword: cfg.DevAdminPassword,
		TwoFactor:     cfg.DevTwoFactorPasswords(),
	}, otps)
	if err != nil {
		log.Fatalf("devbackend: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.DevBackendAddr,
		Handler:           devbackend.NewRouter(backend, otps),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("dev backend listening", "component", "devbackend", "addr", cfg.DevBackendAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down dev backend", "component", "devbackend")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("shutdown", "component", "devbackend", "error", err)
	}
}
