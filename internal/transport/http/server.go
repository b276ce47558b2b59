package http

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"adsboard/internal/cache"
	"adsboard/internal/config"
	"adsboard/internal/database"
	"adsboard/internal/handler"
	"adsboard/internal/logger"
	"adsboard/internal/metrics"
	"adsboard/internal/queue"
	"adsboard/internal/redis"
	"adsboard/internal/repository"
	"adsboard/internal/service"
	"adsboard/internal/storage"
	"adsboard/internal/worker"
)

// Run wires every dependency, serves HTTP and blocks until SIGINT/SIGTERM.
func Run() error {
	// 1. Load configuration and logger
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Logger)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Postgres (users, tokens, saved ads)
	db, err := database.Connect(cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	// 3. Connect to MongoDB (ads)
	mongoClient, err := database.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	adDB := mongoClient.Database(cfg.Mongo.Database)
	if err := repository.EnsureAdIndexes(ctx, adDB); err != nil {
		return fmt.Errorf("failed to create ad indexes: %w", err)
	}

	// 4. Gateways
	m := metrics.New()

	store, err := storage.New(ctx, cfg.ObjectStore, log)
	if err != nil {
		return fmt.Errorf("failed to init object store: %w", err)
	}

	push, err := newPushSender(ctx, cfg.Push, log)
	if err != nil {
		return fmt.Errorf("failed to init push sender: %w", err)
	}

	// 5. Repositories and services
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	savedAdRepo := repository.NewSavedAdRepository(db)
	adRepo := repository.NewAdRepository(adDB)

	mediaService := service.NewMediaService(store, log, m)
	notificationService := service.NewNotificationService(userRepo, push, log, m)

	var (
		profiles cache.ProfileCache
		events   service.AdEventPublisher
		workers  *worker.Manager
		inline   *service.InlineEventPublisher
	)
	if cfg.Redis.URL != "" {
		rdb, err := redis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()

		profiles = cache.NewProfileCache(rdb.Client, cfg.Redis.ProfileCacheTTL)
		events = service.NewStreamEventPublisher(queue.NewPublisher(rdb.Client, cfg.Worker.StreamMaxLen, log))

		workers = worker.NewManager(
			queue.NewConsumer(rdb.Client, log),
			worker.NewHandler(notificationService, savedAdRepo, cfg.Worker.FanoutTimeout, log),
			worker.ManagerConfig{
				WorkerCount:  cfg.Worker.Count,
				BatchSize:    cfg.Worker.BatchSize,
				BlockTimeout: cfg.Worker.BlockTimeout,
			},
			log,
		)
		if err := workers.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		defer workers.Stop()
	} else {
		log.Info("REDIS_URL not set, running ad events in-process")
		inline = service.NewInlineEventPublisher(notificationService, savedAdRepo, cfg.Worker.FanoutTimeout, log)
		events = inline
		defer inline.Wait()
	}

	owners := service.NewOwnerResolver(userRepo, profiles, log)
	adService := service.NewAdService(
		adRepo,
		service.NewQuotaEnforcer(adRepo),
		service.NewImageProcessor(mediaService, log),
		owners,
		events,
		log,
		m,
	)
	listingService := service.NewListingService(adRepo, owners, log)
	savedAdService := service.NewSavedAdService(savedAdRepo, adRepo, owners, log)
	userService := service.NewUserService(userRepo, mediaService, log)
	authService := service.NewAuthService(refreshTokenRepo, cfg.Auth, log)

	go pruneSessions(ctx, authService, cfg.Auth.PruneInterval, log)

	// 6. Router and server
	router := NewRouter(RouterConfig{
		AuthHandler:    handler.NewAuthHandler(userService, authService, log),
		AdHandler:      handler.NewAdHandler(adService, listingService, log),
		SavedAdHandler: handler.NewSavedAdHandler(savedAdService, log),
		Tokens:         authService,
		Metrics:        m.Handler(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Logger:         log,
	})

	srv := &stdhttp.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func newPushSender(ctx context.Context, cfg config.PushConfig, log *zap.Logger) (service.PushSender, error) {
	if cfg.Provider == config.PushProviderFCM {
		return service.NewFCMClient(ctx, cfg.FCMProjectID, cfg.FCMClientEmail, cfg.FCMPrivateKey, log)
	}
	return service.NewExpoPushClient(cfg.ExpoEndpoint, cfg.Timeout, log), nil
}

// pruneSessions deletes long-dead refresh tokens every interval.
func pruneSessions(ctx context.Context, auth *service.AuthService, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := auth.PruneSessions(ctx)
		if err != nil && ctx.Err() == nil {
			log.Warn("refresh token cleanup failed", zap.Error(err))
		} else if n > 0 {
			log.Info("expired refresh tokens removed", zap.Int64("rows", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
