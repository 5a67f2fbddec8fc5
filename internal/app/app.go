package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/curator/internal/acquisitions"
	"github.com/MrSnakeDoc/curator/internal/blob"
	"github.com/MrSnakeDoc/curator/internal/config"
	"github.com/MrSnakeDoc/curator/internal/httpserver"
	"github.com/MrSnakeDoc/curator/internal/httpserver/deps"
	"github.com/MrSnakeDoc/curator/internal/logger"
	"github.com/MrSnakeDoc/curator/internal/redis"
	redisstore "github.com/MrSnakeDoc/curator/internal/store/redis"
	"github.com/MrSnakeDoc/curator/internal/utils"
	"github.com/MrSnakeDoc/curator/internal/version"
)

// Extra room on top of the image limit for the other multipart fields.
const formOverhead = 1 << 20

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	closers     map[string]io.Closer
}

// New builds every component from cfg. Store failures do not abort startup:
// the service comes up degraded and answers 503 on stateful endpoints.
func New(ctx context.Context, cfg *config.Config) *App {
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	closers := map[string]io.Closer{}

	redisClient := connectRecordStore(ctx, cfg, loggerClient)
	bucket := openBucket(ctx, cfg, loggerClient, closers)

	records := redisstore.NewStore(redisClient)
	images := blob.NewImageStore(bucket, cfg.MaxImageBytes())
	service := acquisitions.NewService(records, images, loggerClient)

	if !service.Ready() {
		loggerClient.Warn("running degraded, stateful endpoints will answer 503",
			logger.Bool("record_store", records.Ready()),
			logger.Bool("image_store", images.Ready()))
	}

	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		Acquisitions: service,
		Records:      records,
		Images:       images,
		ServeImages:  cfg.BlobBackend != config.BlobBackendGCS,
		MaxBodySize:  images.MaxSize() + formOverhead,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		closers:     closers,
	}
}

func connectRecordStore(ctx context.Context, cfg *config.Config, log logger.Logger) *goredis.Client {
	if !cfg.RecordStoreConfigured() {
		log.Warn("record store not configured, set CURATOR_REDIS_ADDR")
		return nil
	}

	client, err := redis.New(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		log.Error("record store unavailable", logger.Error(err))
		return nil
	}
	return client
}

// openBucket returns nil (not a typed nil) when no bucket can be opened.
func openBucket(ctx context.Context, cfg *config.Config, log logger.Logger, closers map[string]io.Closer) blob.Bucket {
	if !cfg.BlobConfigured() {
		log.Warn("image store not configured, set CURATOR_BUCKET",
			logger.String("backend", cfg.BlobBackend))
		return nil
	}

	localBase := cfg.PublicBaseURL + "/images"

	switch cfg.BlobBackend {
	case config.BlobBackendGCS:
		bucket, err := blob.NewGCSBucket(ctx, cfg.Bucket)
		if err != nil {
			log.Error("image store unavailable", logger.String("bucket", cfg.Bucket), logger.Error(err))
			return nil
		}
		closers["gcs"] = bucket
		log.Info("image store ready", logger.String("backend", cfg.BlobBackend), logger.String("bucket", cfg.Bucket))
		return bucket

	case config.BlobBackendDirectory:
		bucket, err := blob.NewDirectoryBucket(cfg.BlobDir, localBase)
		if err != nil {
			log.Error("image store unavailable", logger.String("dir", cfg.BlobDir), logger.Error(err))
			return nil
		}
		log.Info("image store ready", logger.String("backend", cfg.BlobBackend), logger.String("dir", cfg.BlobDir))
		return bucket

	default:
		log.Warn("using in-memory image store, images are lost on restart")
		return blob.NewMemoryBucket("memory", localBase)
	}
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting "+version.String(), logger.String("addr", a.cfg.ListenPort))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
	case err := <-errCh:
		a.close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.close()
	a.logger.Info("curator stopped cleanly")
	_ = a.logger.Sync()
	return nil
}

func (a *App) close() {
	if a.redisClient != nil {
		utils.MustClose(a.redisClient, "redis", a.logger)
	}
	for name, c := range a.closers {
		utils.MustClose(c, name, a.logger)
	}
}
