package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-school/internal/app"
	"github.com/odyssey-erp/odyssey-school/internal/auth"
	"github.com/odyssey-erp/odyssey-school/internal/portal"
	"github.com/odyssey-erp/odyssey-school/internal/rbac"
	rbachttp "github.com/odyssey-erp/odyssey-school/internal/rbac/http"
	"github.com/odyssey-erp/odyssey-school/internal/shared"
	"github.com/odyssey-erp/odyssey-school/internal/users"
	"github.com/odyssey-erp/odyssey-school/internal/view"
	"github.com/odyssey-erp/odyssey-school/jobs"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	deps, closeDeps, err := app.Bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDeps()

	sessionManager := shared.NewSessionManager(deps.Redis, "odyssey_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	metrics := deps.Metrics

	guards := rbac.Guards{Renderer: rbachttp.NewGuardRenderer(logger, templates), Recorder: metrics}
	rbacMiddleware := rbac.Middleware{Logger: logger, Recorder: metrics}

	usersRepo := users.NewRepository(deps.Pool)
	identity := users.NewIdentityProvider(usersRepo, deps.Permissions, cfg.IdentityTimeout, logger)

	authService := auth.NewService(auth.NewRepository(deps.Pool))
	inspector := asynq.NewInspector(cfg.AsynqRedis())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Identity:         identity,
		AuthHandler:      auth.NewHandler(logger, authService, templates, sessionManager, csrfManager),
		UsersHandler:     users.NewHandler(logger, users.NewService(usersRepo), templates, csrfManager, guards),
		PortalHandler:    portal.NewHandler(logger, templates, csrfManager, guards),
		PermissionsAPI:   rbachttp.NewHandler(logger, deps.Permissions),
		PermissionsAdmin: rbachttp.NewAdminHandler(logger, deps.Permissions, templates, csrfManager),
		RBACMiddleware:   rbacMiddleware,
		Guards:           guards,
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
