package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/domain/chat"
	"github.com/medvault/medvault/internal/domain/dashboard"
	"github.com/medvault/medvault/internal/domain/ingest"
	"github.com/medvault/medvault/internal/domain/patient"
	"github.com/medvault/medvault/internal/domain/report"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/docintel"
	"github.com/medvault/medvault/internal/platform/embedding"
	"github.com/medvault/medvault/internal/platform/llm"
	"github.com/medvault/medvault/internal/platform/mediastore"
	"github.com/medvault/medvault/internal/platform/middleware"
	"github.com/medvault/medvault/internal/platform/retrieval"
	"github.com/medvault/medvault/internal/platform/vectorindex"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medvault-server",
		Short: "Medical report vault API server",
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
				return err
			}
			for _, st := range statuses {
				state := "pending"
				if st.Applied {
					state = "applied"
				}
				fmt.Printf("%04d  %-40s  %s\n", st.Version, st.Name, state)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// patientDirectory resolves ids to names straight off the patient store, so
// the report service and the patient service can be built without depending
// on each other.
type patientDirectory struct {
	repo patient.Repository
}

func (d *patientDirectory) NameOf(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Name, nil
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
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// External service clients
	analyzer, err := docintel.NewClient(cfg.DocIntelEndpoint, cfg.DocIntelKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("document analysis client")
	}
	generator, err := llm.NewClient(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("generation client")
	}
	encoder, err := embedding.NewClient(cfg.EmbedURL, cfg.EmbedDim, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("embedding client")
	}
	index, err := vectorindex.NewClient(cfg.VectorIndexHost, cfg.VectorIndexKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("vector index client")
	}
	indexer := retrieval.NewIndexer(encoder, index, logger)

	// Domain wiring
	patientRepo := patient.NewRepo(pool)
	reportRepo := report.NewRepo(pool)
	media := mediastore.NewFSStore(cfg.MediaDir)

	reportSvc := report.NewService(
		reportRepo,
		ingest.NewExtractor(analyzer),
		ingest.NewEnhancer(generator, cfg.IngestModel),
		indexer,
		&patientDirectory{repo: patientRepo},
		media,
		logger,
	)
	patientSvc := patient.NewService(patientRepo, reportSvc, indexer, media, logger)
	chatSvc := chat.NewService(generator, indexer, &patientDirectory{repo: patientRepo},
		cfg.ChatModel, cfg.LabChatModel, logger)
	dashboardSvc := dashboard.NewService(dashboard.NewRepo(pool), logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(2 * time.Minute))
	e.Use(middleware.BodyLimit("25MB"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// API routes
	api := e.Group("/api")
	report.NewHandler(reportSvc).RegisterRoutes(api)
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	chat.NewHandler(chatSvc).RegisterRoutes(api)
	dashboard.NewHandler(dashboardSvc).RegisterRoutes(api)

	// DB health check endpoint
	e.GET("/health/db", db.HealthHandler(pool))

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
