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

	"github.com/fhirbridge/fhirbridge/internal/config"
	"github.com/fhirbridge/fhirbridge/internal/domain/convert"
	"github.com/fhirbridge/fhirbridge/internal/domain/lock"
	"github.com/fhirbridge/fhirbridge/internal/domain/queue"
	"github.com/fhirbridge/fhirbridge/internal/domain/rule"
	"github.com/fhirbridge/fhirbridge/internal/domain/script"
	bridgesync "github.com/fhirbridge/fhirbridge/internal/domain/sync"
	"github.com/fhirbridge/fhirbridge/internal/domain/transform"
	"github.com/fhirbridge/fhirbridge/internal/platform/auth"
	"github.com/fhirbridge/fhirbridge/internal/platform/cache"
	"github.com/fhirbridge/fhirbridge/internal/platform/db"
	"github.com/fhirbridge/fhirbridge/internal/platform/dhis"
	"github.com/fhirbridge/fhirbridge/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bridge-server",
		Short: "FHIR to tracker transformation bridge",
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
		Short: "Start the bridge server",
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
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
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
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
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
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Tracker client; discover the API version unless pinned.
	tracker := dhis.NewClient(cfg.DHISBaseURL, cfg.DHISUsername, cfg.DHISPassword)
	version := cfg.DHISVersion
	if version == "" {
		info, err := tracker.SystemInfo(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to discover tracker version")
		}
		version = info.Version
	}
	logger.Info().Str("version", version).Msg("tracker connection configured")

	// Script engine
	evaluator := script.NewGojaEvaluator(cfg.ScriptCacheSize, cfg.ScriptCacheTTL)
	executor := script.NewExecutor(evaluator, logger)
	scriptRepo := script.NewCachedRepo(script.NewRepoPG(pool), cache.NewStore())
	scriptSvc := script.NewService(scriptRepo, evaluator)

	// Rules
	ruleRepo := rule.NewCachedRepo(rule.NewRepoPG(pool), cache.NewStore())
	ruleSvc := rule.NewService(ruleRepo)

	// Transformation
	conv := convert.NewDefaultRegistry()
	locks := lock.NewManager(lock.NewAdvisoryProvider(pool))
	registry := transform.NewRegistry()
	registry.Register(version, transform.NewTrackedEntityTransformer(ruleRepo, scriptRepo, executor, conv))
	registry.Register(version, transform.NewEnrollmentTransformer(ruleRepo, scriptRepo, executor, conv))
	registry.Register(version, transform.NewEventTransformer(ruleRepo, scriptRepo, executor, conv))
	orch := transform.NewOrchestrator(ruleRepo, scriptRepo, executor, registry, locks, tracker, version, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Inbound FHIR endpoint
	fhirGroup := e.Group("/fhir")
	transform.NewHandler(orch).RegisterRoutes(fhirGroup)

	// Admin metadata API
	secret := cfg.AdminJWTSecret
	if cfg.IsDev() {
		secret = ""
	}
	apiV1 := e.Group("/api/v1", auth.Middleware(secret), auth.RequireRole("admin"))
	rule.NewHandler(ruleSvc).RegisterRoutes(apiV1)
	script.NewHandler(scriptSvc).RegisterRoutes(apiV1)

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Asynchronous tracker polling
	syncCtx, stopSync := context.WithCancel(ctx)
	defer stopSync()
	if cfg.PollEnabled {
		retriever := queue.NewRetriever(dhis.NewEventSource(tracker), cfg.PollBatchSize, logger)
		changes := bridgesync.NewChangeHandler(
			string(dhis.ResourceEvent), tracker, bridgesync.NewProcessedRepoPG(pool), logger)
		syncSvc := bridgesync.NewService(
			string(dhis.ResourceEvent),
			retriever,
			queue.NewStorePG(pool),
			bridgesync.NewWatermarkRepoPG(pool),
			changes.Process,
			cfg.PollInterval,
			logger,
		)
		go func() {
			if err := syncSvc.Run(syncCtx); err != nil && err != context.Canceled {
				logger.Error().Err(err).Msg("sync loop stopped")
			}
		}()
	}

	// Graceful shutdown
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

	logger.Info().Msg("shutting down server")
	stopSync()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
