package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/schoolcare/healthd/internal/config"
	"github.com/schoolcare/healthd/internal/domain/directory"
	"github.com/schoolcare/healthd/internal/domain/healthcheck"
	"github.com/schoolcare/healthd/internal/domain/inventory"
	"github.com/schoolcare/healthd/internal/domain/medicalevent"
	"github.com/schoolcare/healthd/internal/domain/medication"
	"github.com/schoolcare/healthd/internal/domain/timeline"
	"github.com/schoolcare/healthd/internal/domain/vaccination"
	"github.com/schoolcare/healthd/internal/platform/auth"
	"github.com/schoolcare/healthd/internal/platform/db"
	"github.com/schoolcare/healthd/internal/platform/events"
	"github.com/schoolcare/healthd/internal/platform/middleware"
	"github.com/schoolcare/healthd/internal/platform/ws"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "health-server",
		Short: "School health workflow engine API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID(logger))
	e.Use(middleware.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevMiddleware())
	} else {
		e.Use(auth.Middleware(auth.JWTConfig{
			Secret: []byte(cfg.JWTSecret),
			Issuer: cfg.JWTIssuer,
		}))
	}

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	e.GET("/health", db.HealthHandler(pool))

	// Event fan-out to websocket clients
	dispatcher := events.NewDispatcher(256, logger)
	defer dispatcher.Close()

	hub := ws.NewHub(logger)
	dispatcher.Subscribe(hub)
	wsHandler := ws.NewHandler(hub)
	wsHandler.RegisterRoutes(apiV1)

	// -- Register Domain Handlers --

	directoryRepo := directory.NewRepoPG(pool)

	invRepo := inventory.NewRepoPG(pool)
	invSvc := inventory.NewService(invRepo, cfg.ReserveMaxRetries, logger)
	invHandler := inventory.NewHandler(invSvc)
	invHandler.RegisterRoutes(apiV1)

	eventRepo := medicalevent.NewRepoPG(pool)
	eventSvc := medicalevent.NewService(eventRepo, invSvc, directoryRepo,
		cfg.EventLookbackDays, dispatcher, logger)
	eventHandler := medicalevent.NewHandler(eventSvc)
	eventHandler.RegisterRoutes(apiV1)

	medReqRepo := medication.NewRepoPG(pool)
	medSvc := medication.NewService(medReqRepo, directoryRepo, dispatcher)
	medHandler := medication.NewHandler(medSvc)
	medHandler.RegisterRoutes(apiV1)

	campaignRepo := vaccination.NewCampaignRepoPG(pool)
	consentRepo := vaccination.NewConsentRepoPG(pool)
	recordRepo := vaccination.NewRecordRepoPG(pool)
	followUpRepo := vaccination.NewFollowUpRepoPG(pool)
	vacSvc := vaccination.NewService(campaignRepo, consentRepo, recordRepo, followUpRepo,
		directoryRepo, cfg.ConsentAllowRevision, dispatcher)
	vacHandler := vaccination.NewHandler(vacSvc)
	vacHandler.RegisterRoutes(apiV1)

	checkRepo := healthcheck.NewRepoPG(pool)
	checkSvc := healthcheck.NewService(checkRepo, directoryRepo, dispatcher)
	checkHandler := healthcheck.NewHandler(checkSvc)
	checkHandler.RegisterRoutes(apiV1)

	tlSvc := timeline.NewService(eventSvc, recordRepo, checkSvc)
	tlHandler := timeline.NewHandler(tlSvc)
	tlHandler.RegisterRoutes(apiV1)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	return nil
}
