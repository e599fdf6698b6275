package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/LDThien999/ptitclassroom-score-api/internal/handler"
	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/internal/repository"
	"github.com/LDThien999/ptitclassroom-score-api/internal/service"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/cache"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/config"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/database"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/events"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/jobs"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/storage"
)

// scoreSource serves both the paged drain and single student lookups.
type scoreSource interface {
	service.ScorePageFetcher
	StudentScores(ctx context.Context, username string) ([]models.ScoreRecord, error)
}

type notificationStore interface {
	Save(ctx context.Context, n models.Notification) error
	List(ctx context.Context, viewID string) ([]models.Notification, error)
	Delete(ctx context.Context, viewID, id string) error
}

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

// app owns every long lived dependency of the server.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db    *sqlx.DB
	redis *redis.Client
	bus   *events.Bus
	queue *jobs.Queue

	metrics       *service.MetricsService
	tokens        *service.TokenService
	classrooms    *service.ClassroomService
	scores        *service.ScoreService
	notifications *service.NotificationService
	exportJobs    *service.ExportJobService
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logr, metrics: service.NewMetricsService()}

	if cfg.Database.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
	}
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis, 5*time.Second)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
	}

	upstream := repository.NewClassroomAPI(cfg.Upstream.BaseURL, nil, cfg.Upstream.Timeout, logr.Named("upstream"))
	var source scoreSource = upstream
	switch cfg.Upstream.ScoreSource {
	case config.ScoreSourcePostgres:
		if a.db == nil {
			a.Close()
			return nil, fmt.Errorf("SCORE_SOURCE=%s requires DB_ENABLED=true", config.ScoreSourcePostgres)
		}
		source = repository.NewScoreRepository(a.db)
	case config.ScoreSourceHTTP, "":
	default:
		a.Close()
		return nil, fmt.Errorf("unknown SCORE_SOURCE %q", cfg.Upstream.ScoreSource)
	}

	accumulator := service.NewScoreAccumulator(source, service.AccumulatorConfig{
		PageSize:     cfg.Accumulator.PageSize,
		MaxPages:     cfg.Accumulator.MaxPages,
		MaxRetries:   cfg.Accumulator.MaxRetries,
		RetryBackoff: cfg.Accumulator.RetryBackoff,
	}, a.metrics, logr.Named("accumulator"))

	bus, err := events.NewBus(events.BusConfig{
		Backend:       cfg.Notifications.Bus,
		KafkaBrokers:  cfg.Notifications.KafkaBrokers,
		ConsumerGroup: cfg.Notifications.KafkaGroup,
	}, logr.Named("bus"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.bus = bus

	var store notificationStore = repository.NewMemoryNotificationStore()
	if a.redis != nil {
		store = repository.NewNotificationRepository(a.redis)
	}
	a.notifications = service.NewNotificationService(bus.Publisher, store, service.NotificationConfig{
		Topic: cfg.Notifications.KafkaTopic,
		TTL:   cfg.Notifications.TTL,
	}, a.metrics, logr.Named("notifications"))
	go func() {
		if err := a.notifications.Run(ctx, bus.Subscriber); err != nil {
			logr.Error("notification consumer stopped", zap.Error(err))
		}
	}()

	cacheSvc := service.NewCacheService(nil, a.metrics, cfg.Classrooms.CacheTTL, logr, false)
	if a.redis != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(a.redis, logr), a.metrics, cfg.Classrooms.CacheTTL, logr, true)
	}
	a.classrooms = service.NewClassroomService(upstream, source, cacheSvc, service.ClassroomServiceConfig{
		CacheTTL: cfg.Classrooms.CacheTTL,
		PageSize: cfg.Classrooms.PageSize,
	}, logr.Named("classrooms"))

	a.scores = service.NewScoreService(service.ScoreServiceParams{
		Accumulator: accumulator,
		Tracker:     service.NewSelectionTracker(),
		Notifier:    a.notifications,
		Metrics:     a.metrics,
		Logger:      logr.Named("scores"),
	})

	if cfg.Exports.Enabled {
		if err := a.startExports(ctx, accumulator, upstream, source); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.tokens = service.NewTokenService(cfg.JWT.Secret)
	return a, nil
}

func (a *app) startExports(ctx context.Context, accumulator *service.ScoreAccumulator, upstream *repository.ClassroomAPI, source scoreSource) error {
	cfg := a.cfg.Exports
	files, err := storage.NewFileStore(cfg.StorageDir)
	if err != nil {
		return fmt.Errorf("prepare export storage: %w", err)
	}
	exporter := service.NewExportService(service.ExportServiceParams{
		Scores:        accumulator,
		Directory:     upstream,
		StudentScores: source,
		Storage:       files,
		Signer:        storage.NewDownloadSigner(cfg.SignedURLSecret, cfg.SignedURLTTL),
		Config: service.ExportConfig{
			APIPrefix:         a.cfg.APIPrefix,
			ResultTTL:         cfg.SignedURLTTL,
			ClassroomPageSize: a.cfg.Classrooms.PageSize,
		},
		Logger: a.logger.Named("exports"),
	})

	var jobStore exportJobStore = repository.NewMemoryExportStore()
	if a.db != nil {
		jobStore = repository.NewExportRepository(a.db)
	}

	worker := service.NewExportWorker(jobStore, exporter, a.notifications, a.metrics, cfg.WorkerRetries, a.logger.Named("export-worker"))
	a.queue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		RetryDelay: 2 * time.Second,
		JobTimeout: cfg.JobTimeout,
		OnFailure:  worker.OnFailure,
		Logger:     a.logger,
	})
	a.queue.Start(ctx)

	a.exportJobs = service.NewExportJobService(jobStore, a.queue, exporter, a.metrics, a.logger.Named("export-jobs"), service.ExportJobConfig{
		ResultTTL:       cfg.SignedURLTTL,
		CleanupInterval: cfg.CleanupInterval,
	})
	a.exportJobs.RecoverPendingJobs(ctx)
	a.exportJobs.StartCleanup(ctx)
	return nil
}

func (a *app) readinessChecks() map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{}
	if a.db != nil {
		checks["postgres"] = func(ctx context.Context) error { return a.db.PingContext(ctx) }
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	if a.queue != nil {
		checks["exports"] = func(context.Context) error {
			if !a.queue.Stats().Running {
				return fmt.Errorf("export queue stopped")
			}
			return nil
		}
	}
	return checks
}

// Close stops background workers and releases connections.
func (a *app) Close() {
	if a.queue != nil {
		a.queue.Stop()
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.Warn("closing bus", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// Router builds the HTTP routes.
func (a *app) Router() *gin.Engine {
	return newRouter(a)
}
