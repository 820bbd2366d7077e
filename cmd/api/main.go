package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"linkpage/internal/api"
	"linkpage/internal/auth"
	"linkpage/internal/config"
	"linkpage/internal/database"
	"linkpage/internal/live"
	"linkpage/internal/mail"
	"linkpage/internal/repository"
	"linkpage/internal/service"
	"linkpage/internal/storage"
	"linkpage/internal/tasks"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// .env 仅用于本地开发，缺失时忽略。
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	defer database.Close(db, logger)
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host),
		slog.String("db", cfg.Database.Name),
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	var liveRedis redis.UniversalClient = redisClient
	var publisher live.Publisher = live.NewRedisPublisher(redisClient)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		if cfg.Analytics.Queue == config.AnalyticsQueueAsynq {
			log.Fatalf("ping redis: %v", err)
		}
		logger.Warn("redis unavailable, login guard and live analytics disabled", slog.Any("error", err))
		liveRedis = nil
		publisher = live.Nop{}
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	if err != nil {
		log.Fatalf("init token service: %v", err)
	}

	images, assets, err := newImageStore(ctx, cfg)
	if err != nil {
		log.Fatalf("init image store: %v", err)
	}

	var scanner storage.Scanner = storage.NopScanner{}
	if cfg.Uploads.ClamdAddr != "" {
		scanner = storage.NewClamdScanner(cfg.Uploads.ClamdAddr)
	}

	mailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		log.Fatalf("init mailer: %v", err)
	}

	repos := repository.New(db)
	analytics := service.NewAnalyticsService(repos, publisher, logger)

	var queue tasks.Dispatcher
	switch cfg.Analytics.Queue {
	case config.AnalyticsQueueAsynq:
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		queue = tasks.NewAsynqDispatcher(asynqClient, logger)
	default:
		queue = tasks.NewInlineDispatcher(analytics, logger, cfg.Analytics.InlineWorkers, cfg.Analytics.InlineBuffer)
	}
	dispatcher := tasks.NewRateLimited(queue, cfg.Analytics.IngestRate, cfg.Analytics.IngestBurst)

	router, err := api.NewRouter(cfg, logger)
	if err != nil {
		log.Fatalf("init router: %v", err)
	}
	api.RegisterRoutes(router, api.Deps{
		Config:     cfg,
		Logger:     logger,
		Tokens:     tokens,
		Auth:       service.NewAuthService(repos, tokens, mailer, images, logger, service.AuthOptions{ClientURL: cfg.API.ClientURL, VerifyTokenTTL: cfg.Auth.VerifyTokenTTL, ResetTokenTTL: cfg.Auth.ResetTokenTTL}),
		Profiles:   service.NewProfileService(repos, images, logger),
		Links:      service.NewLinkService(repos),
		Analytics:  analytics,
		Public:     service.NewPublicService(repos),
		Dispatcher: dispatcher,
		Redis:      liveRedis,
		Assets:     assets,
		Scanner:    scanner,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("api server stopped", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 先停止接收请求，再排空统计队列，最后由 defer 依次关闭 Redis 与数据库。
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", slog.Any("error", err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Error("drain analytics queue failed", slog.Any("error", err))
	}
	logger.Info("api stopped")
}

// newImageStore 返回上传图片的存储后端；MinIO 后端同时作为公开资产路由的签名器。
func newImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, api.AssetSigner, error) {
	if cfg.Uploads.Backend != config.UploadsBackendMinIO {
		return storage.InlineStore{}, nil, nil
	}
	client, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewObjectStore(client), client, nil
}

func newMailer(cfg config.MailConfig, logger *slog.Logger) (mail.Mailer, error) {
	if cfg.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY not set, mail will only be logged")
		return mail.NewLogMailer(logger), nil
	}
	return mail.NewResendMailer(cfg.ResendAPIKey, cfg.From)
}
