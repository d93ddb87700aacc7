// main.go
// FieldLog Central API - field survey collection backend.
// Wires configuration, Firestore persistence, the token codec, the sync
// reconciler and the HTTP surface together.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldlog/auth"
	"fieldlog/config"
	"fieldlog/handlers"
	"fieldlog/middleware"
	"fieldlog/models"
	"fieldlog/store"
	"fieldlog/syncer"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	cfg := config.Load()

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("starting FieldLog API",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port))

	ctx := context.Background()
	db, err := store.NewFirestoreStore(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	if err != nil {
		logger.Fatal("failed to initialize Firestore", zap.Error(err))
	}
	defer db.Close()

	codec := auth.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	logger.Info("token codec initialized",
		zap.Duration("access_ttl", cfg.JWT.AccessTokenTTL),
		zap.Duration("refresh_ttl", cfg.JWT.RefreshTokenTTL))

	if err := ensureBootstrapAdmin(ctx, db, cfg.Bootstrap, logger); err != nil {
		logger.Fatal("failed to bootstrap admin account", zap.Error(err))
	}

	reconciler := syncer.NewReconciler(db, db, cfg.Sync.ClockSkewTolerance, logger)

	authHandler := handlers.NewAuthHandler(db, codec, logger)
	recordsHandler := handlers.NewRecordsHandler(reconciler, logger)
	adminHandler := handlers.NewAdminHandler(db, db, logger)
	exportHandler := handlers.NewExportHandler(db, logger)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	limiter.CleanupOldLimiters()

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(limiter.Middleware())

	// Public endpoints
	r.Get("/health", handleHealth)
	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/refresh", authHandler.Refresh)

	// Protected endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(codec, logger))

		r.Post("/records", recordsHandler.Submit)
		r.Get("/records", recordsHandler.List)

		reviewers := middleware.RequireRole(logger, models.RoleAdmin, models.RoleSupervisor)
		r.With(reviewers).Patch("/records/{id}", recordsHandler.Correct)
		r.With(reviewers).Get("/export/records", exportHandler.Records)
		r.With(reviewers).Post("/supervisor/reset-password", adminHandler.ResetPassword)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logger, models.RoleAdmin))
			r.Get("/users", adminHandler.GetUsers)
			r.Post("/users", adminHandler.CreateUser)
			r.Patch("/users", adminHandler.UpdateUser)
			r.Delete("/users", adminHandler.DeleteUser)
			r.Get("/work-types", adminHandler.GetWorkTypes)
			r.Post("/work-types", adminHandler.CreateWorkType)
			r.Get("/companies", adminHandler.GetCompanies)
			r.Post("/companies", adminHandler.CreateCompany)
		})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped gracefully")
}

// handleHealth reports liveness; unauthenticated by design.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// ensureBootstrapAdmin creates the configured admin account on first start
// so a fresh deployment has a way in. No-op when the account exists or no
// bootstrap credentials are configured.
func ensureBootstrapAdmin(ctx context.Context, users store.UserStore, cfg config.BootstrapConfig, logger *zap.Logger) error {
	if cfg.AdminEmail == "" {
		return nil
	}

	if _, err := users.GetUserByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("lookup bootstrap admin: %w", err)
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash bootstrap admin password: %w", err)
	}

	admin := &models.User{
		ID:          uuid.NewString(),
		Email:       cfg.AdminEmail,
		Role:        models.RoleAdmin,
		DisplayName: "Bootstrap Admin",
	}
	if err := users.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	if err := users.StorePasswordHash(ctx, admin.ID, hash); err != nil {
		return fmt.Errorf("store bootstrap admin credentials: %w", err)
	}

	logger.Info("bootstrap admin created", zap.String("email", cfg.AdminEmail))
	return nil
}
