package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"redesocial/internal/cache"
	"redesocial/internal/config"
	"redesocial/internal/database"
	"redesocial/internal/handler"
	"redesocial/internal/metrics"
	"redesocial/internal/queue"
	"redesocial/internal/realtime"
	redisclient "redesocial/internal/redis"
	"redesocial/internal/repository"
	"redesocial/internal/service"
	authmw "redesocial/internal/transport/http/middleware"
	"redesocial/internal/worker"
)

const (
	shutdownTimeout    = 10 * time.Second
	limiterCleanupTick = time.Minute
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// 3. Redis is optional; without it notifications are written inline and
	// the feed is always read from Postgres.
	var (
		rdb       *redisclient.Client
		publisher queue.Publisher
		timeline  cache.TimelineCache
		hub       realtime.Hub
	)
	if cfg.RedisURL != "" {
		rdb, err = redisclient.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()

		publisher = queue.NewPublisher(rdb.Client)
		timeline = cache.NewTimelineCache(rdb.Client)
		hub = realtime.NewRedisHub(rdb.Client)
		log.Println("[Server] Redis connected")
	} else {
		log.Println("[Server] REDIS_URL not set, running without queue, timeline cache and realtime")
	}

	// 4. Repositories
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// 5. External providers
	storage, err := newImageStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to configure image storage: %w", err)
	}
	pusher, err := newPusher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to configure push provider: %w", err)
	}
	m := metrics.New()

	// 6. Services
	authService := service.NewAuthService(cfg.JWTSecret, time.Duration(cfg.TokenTTLSeconds)*time.Second)
	mediaService := service.NewMediaService(storage)
	notificationService := service.NewNotificationService(notificationRepo, hub, pusher, m)

	var notifier service.Notifier = notificationService
	if publisher != nil {
		notifier = service.NewQueuedNotifier(publisher)
	}

	userService := service.NewUserService(userRepo, followRepo, authService, mediaService)
	socialService := service.NewSocialService(db, userRepo, followRepo, favoriteRepo, publisher, notifier)
	friendService := service.NewFriendService(db, userRepo, friendRepo, notifier)
	postService := service.NewPostService(db, postRepo, userRepo, mediaService, publisher, notifier)
	feedService := service.NewFeedService(timeline, postRepo)
	commentService := service.NewCommentService(db, commentRepo, postRepo, userRepo, notifier)

	// 7. Workers
	var workers *worker.Manager
	if rdb != nil {
		eventHandler := worker.NewHandler(timeline, followRepo, postRepo, notificationService, m)
		workerCfg := worker.DefaultManagerConfig()
		workerCfg.WorkerCount = cfg.WorkerCount
		workers = worker.NewManager(queue.NewConsumer(rdb.Client), eventHandler, workerCfg)
		if err := workers.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
	}

	// 8. Router
	trustedProxies, err := authmw.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to parse TRUSTED_PROXIES: %w", err)
	}
	limiter := authmw.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
	limiter.StartCleanup(limiterCleanupTick, ctx.Done())

	router := NewRouter(RouterConfig{
		AuthHandler:         handler.NewAuthHandler(userService),
		UserHandler:         handler.NewUserHandler(userService),
		SocialHandler:       handler.NewSocialHandler(socialService, friendService),
		PostHandler:         handler.NewPostHandler(postService, feedService, mediaService),
		CommentHandler:      handler.NewCommentHandler(commentService),
		NotificationHandler: handler.NewNotificationHandler(notificationService, hub),
		Verifier:            authService,
		AuthLimiter:         limiter,
		Metrics:             m,
		TrustedProxies:      trustedProxies,
	})

	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Println("[Server] Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Graceful shutdown failed: %v", err)
	}

	if workers != nil {
		workers.Stop()
	}
	return nil
}

// newImageStorage returns nil when the selected provider has no
// credentials; uploads then answer with a configuration error.
func newImageStorage(ctx context.Context, cfg *config.Config) (service.ImageStorage, error) {
	switch cfg.StorageProvider {
	case config.StorageCloudinary:
		if cfg.CloudinaryURL == "" {
			break
		}
		return service.NewCloudinaryStorage(cfg.CloudinaryURL)
	default:
		if !cfg.R2Configured() {
			break
		}
		return service.NewR2Storage(ctx, cfg)
	}
	log.Printf("[Server] No image storage configured for provider %q, uploads disabled", cfg.StorageProvider)
	return nil, nil
}

func newPusher(ctx context.Context, cfg *config.Config) (service.Pusher, error) {
	switch cfg.PushProvider {
	case config.PushOneSignal:
		if cfg.OneSignalAppID != "" && cfg.OneSignalAPIKey != "" {
			return service.NewOneSignalClient(cfg.OneSignalAppID, cfg.OneSignalAPIKey), nil
		}
	case config.PushFCM:
		if cfg.FirebaseProjectID != "" {
			return service.NewFCMClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseClientEmail, cfg.FirebasePrivateKey)
		}
	}
	log.Println("[Server] Push notifications disabled")
	return nil, nil
}
