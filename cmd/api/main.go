package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/ecochamp/ecochamp-backend/api/controllers"
	"github.com/ecochamp/ecochamp-backend/api/routes"
	"github.com/ecochamp/ecochamp-backend/internal/accounts"
	"github.com/ecochamp/ecochamp-backend/internal/auth"
	"github.com/ecochamp/ecochamp-backend/internal/insights"
	"github.com/ecochamp/ecochamp-backend/internal/ledger"
	"github.com/ecochamp/ecochamp-backend/internal/rankings"
	"github.com/ecochamp/ecochamp-backend/internal/rewards"
	"github.com/ecochamp/ecochamp-backend/internal/uploads"
	"github.com/ecochamp/ecochamp-backend/internal/usage"
	"github.com/ecochamp/ecochamp-backend/pkg/auth/session"
	"github.com/ecochamp/ecochamp-backend/pkg/config"
	"github.com/ecochamp/ecochamp-backend/pkg/db"
	"github.com/ecochamp/ecochamp-backend/pkg/logger"
	"github.com/ecochamp/ecochamp-backend/pkg/migrate"
	"github.com/ecochamp/ecochamp-backend/pkg/redis"
	"github.com/ecochamp/ecochamp-backend/pkg/storage/gcs"
	"github.com/ecochamp/ecochamp-backend/pkg/storage/local"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	blobStore, err := newBlobStore(ctx, cfg, logg, readiness)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap blob storage", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()

	authService, err := auth.NewService(auth.ServiceParams{
		AccountRepo:    accounts.NewRepository(gormDB),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	rewardsService, err := rewards.NewService(rewards.NewRepository(gormDB))
	if err != nil {
		logg.Error(ctx, "failed to create rewards service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(gormDB), dbClient, rewardsService, rewardsService)
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	usageRepo := usage.NewRepository(gormDB)
	usageService, err := usage.NewService(usageRepo)
	if err != nil {
		logg.Error(ctx, "failed to create usage service", err)
		os.Exit(1)
	}

	rankingsService, err := rankings.NewService(rankings.NewRepository(gormDB), usageRepo, dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create rankings service", err)
		os.Exit(1)
	}

	uploadQueue := uploads.NewQueue(cfg.Uploads.QueueSize)
	uploadsRepo := uploads.NewRepository(gormDB)
	uploadsService, err := uploads.NewService(uploadsRepo, blobStore, uploadQueue, cfg.Uploads, logg)
	if err != nil {
		logg.Error(ctx, "failed to create uploads service", err)
		os.Exit(1)
	}
	processor, err := uploads.NewProcessor(uploadsRepo, blobStore, ledgerService, cfg.Uploads, logg)
	if err != nil {
		logg.Error(ctx, "failed to create upload processor", err)
		os.Exit(1)
	}
	// The workers outlive the shutdown signal on purpose: server.Shutdown keeps
	// serving in-flight requests that may still enqueue uploads, so the worker
	// context is cancelled only after the queue has drained.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	uploadQueue.Start(workerCtx, cfg.Uploads.Workers, processor)

	insightsService, err := insights.NewService(usageService, insights.NewClient(cfg.OpenAI))
	if err != nil {
		logg.Error(ctx, "failed to create insights service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	instance := os.Getenv("DYNO")
	if instance == "" {
		instance = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, sessionManager, readiness, routes.Services{
			Auth:     authService,
			Ledger:   ledgerService,
			Rewards:  rewardsService,
			Rankings: rankingsService,
			Usage:    usageService,
			Uploads:  uploadsService,
			Insights: insightsService,
		}),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutdown signal received")
	}

	if err := shutdown(server, uploadQueue, logg); err != nil {
		logg.Error(context.Background(), "shutdown finished with errors", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api server stopped")
}

// shutdown drains in-flight requests first so no new uploads are enqueued,
// then waits for the upload workers to finish the queue.
func shutdown(server *http.Server, queue *uploads.Queue, logg *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	if err := server.Shutdown(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	queue.Close()
	return errs
}

// newBlobStore prefers the configured GCS bucket and falls back to local disk
// for development. The GCS client joins the readiness map so /health/ready
// reflects bucket availability.
func newBlobStore(ctx context.Context, cfg *config.Config, logg *logger.Logger, readiness map[string]controllers.Pinger) (uploads.BlobStore, error) {
	if cfg.Storage.BucketName != "" {
		client, err := gcs.NewClient(ctx, cfg.Storage, logg)
		if err != nil {
			return nil, err
		}
		readiness["storage"] = client
		return client, nil
	}
	logg.Warn(ctx, "no storage bucket configured, using local disk store")
	return local.NewStore(cfg.Storage.LocalDir)
}
