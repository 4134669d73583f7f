package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nariz-encantado/server/internal/api"
	"github.com/nariz-encantado/server/internal/api/middleware"
	"github.com/nariz-encantado/server/internal/auth"
	"github.com/nariz-encantado/server/internal/config"
	"github.com/nariz-encantado/server/internal/domain/documents"
	"github.com/nariz-encantado/server/internal/domain/events"
	"github.com/nariz-encantado/server/internal/domain/users"
	"github.com/nariz-encantado/server/internal/email"
	"github.com/nariz-encantado/server/internal/metrics"
	"github.com/nariz-encantado/server/internal/storage/local"
	"github.com/nariz-encantado/server/internal/storage/postgres"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables
- Bootstrap an admin account if the ADMIN_* env vars are set
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Msg("starting nariz encantado server")

	metrics.AppInfo.WithLabelValues(Version, GitCommit).Set(1)

	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := postgres.NewPool(poolCtx, cfg.Database)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repos, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("init repositories: %w", err)
	}

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("init email service: %w", err)
	}

	files, err := local.NewStore(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("init upload store: %w", err)
	}

	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer)
	userService := users.NewService(repos.Users(), repos.PasswordResets(), mailer, cfg.Server.BaseURL, cfg.Auth.ResetExpiry, logger)
	eventService := events.NewService(repos.Events(), logger)
	documentService := documents.NewService(repos.Documents(), files, logger)
	guard := auth.NewGuard(tokens, userService)

	bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := bootstrapAdminUser(bootstrapCtx, cfg, userService, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	bootstrapCancel()

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	defer limiter.Stop()

	router := api.NewRouter(api.Dependencies{
		Config:      cfg,
		Logger:      logger,
		Pool:        pool,
		Guard:       guard,
		Tokens:      tokens,
		Users:       userService,
		Events:      eventService,
		Documents:   documentService,
		Files:       files,
		RateLimiter: limiter,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	shutdown(server, logger)
	return nil
}

// bootstrapAdminUser creates the configured admin account on first start.
// An existing account with the same email wins; the bootstrap is a no-op then.
func bootstrapAdminUser(ctx context.Context, cfg config.Config, userService *users.Service, logger zerolog.Logger) error {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Email == "" || bootstrap.Password == "" {
		logger.Debug().Msg("admin bootstrap env vars not set; skipping")
		return nil
	}

	if _, found, err := userService.PrincipalByEmail(ctx, bootstrap.Email); err != nil {
		return fmt.Errorf("check admin user: %w", err)
	} else if found {
		return nil
	}

	fullName := bootstrap.FullName
	if fullName == "" {
		fullName = "Administrator"
	}

	if _, err := userService.Bootstrap(ctx, users.RegisterParams{
		FullName: fullName,
		CPF:      bootstrap.CPF,
		Email:    bootstrap.Email,
		Password: bootstrap.Password,
	}); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	logger.Info().Str("email", bootstrap.Email).Msg("bootstrapped admin user")
	return nil
}

func shutdown(server *http.Server, logger zerolog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
