package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/naturalys/internal/config"
	"github.com/naturalys/internal/content"
	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/handler"
	"github.com/naturalys/internal/logging"
	"github.com/naturalys/internal/provider"
	"github.com/naturalys/internal/realtime"
	"github.com/naturalys/internal/router"
	"github.com/naturalys/internal/service"
	"github.com/naturalys/internal/snapshot"
	"github.com/naturalys/internal/status"
	"github.com/naturalys/internal/storage"
	"github.com/naturalys/internal/storage/cloudstore"
	"github.com/naturalys/internal/storage/local"
	"github.com/naturalys/internal/upload"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabaseDriver, cfg.DatabasePath); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	sdb, err := db.NewSQLX(db.DB)
	if err != nil {
		logger.Fatal("failed to open sqlx handle", zap.Error(err))
	}
	created, err := db.EnsureUser(db.DB, cfg.SuperRootUserName, cfg.SuperRootPassword)
	if err != nil {
		logger.Fatal("failed to ensure admin user", zap.Error(err))
	}
	if created {
		logger.Info("admin user created", zap.String("username", cfg.SuperRootUserName))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(logger)
	services := service.NewRegistry(db.DB, sdb, hub)

	objects, err := newObjectStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize object storage", zap.Error(err))
	}
	uploader := upload.NewChain(logger,
		upload.NewBucketStrategy(objects, cfg.StorageBucket, cfg.StorageFallbackBucket),
		upload.NewFileIOStrategy(cfg.FallbackHostAURL, nil),
		upload.NewImgBBStrategy(cfg.FallbackHostBURL, nil),
		upload.InlineStrategy{MaxBytes: cfg.InlineImageMaxBytes},
	)

	backend, closeBackend := newSnapshotBackend(ctx, cfg, logger)
	defer closeBackend()
	cache := snapshot.New(backend, cfg.CacheTTL, logger)

	store := provider.New(provider.ServiceFetcher{
		Products: services.Products,
		Buttons:  services.Buttons,
		Settings: services.Settings,
	}, cache, logger)
	if err := store.Start(ctx); err != nil {
		// 首次加载失败不阻塞启动，页面展示错误提示，后续变更会重新拉取
		logger.Error("initial store load failed", zap.Error(err))
	}
	store.Watch(ctx, hub)

	loc, err := status.LoadLocation(cfg.StoreTimezone)
	if err != nil {
		logger.Warn("invalid store timezone, using UTC", zap.String("timezone", cfg.StoreTimezone), zap.Error(err))
		loc = time.UTC
	}
	monitor := status.NewMonitor(func() *db.StoreSettings {
		return store.Snapshot().Settings
	}, loc, cfg.StatusInterval, hub, logger)
	go monitor.Run(ctx)

	pageContent, err := content.Load(cfg.ContentFile)
	if err != nil {
		logger.Fatal("failed to load page content", zap.Error(err))
	}

	api := handler.NewAPI(db.DB, handler.Dependencies{
		Services:      services,
		Hub:           hub,
		Provider:      store,
		Monitor:       monitor,
		Content:       pageContent,
		Objects:       objects,
		LibraryBucket: cfg.LibraryBucket,
		Uploader:      uploader,
		MaxDimension:  cfg.ImageMaxDimension,
		UploadTimeout: cfg.UploadTimeout,
		Logger:        logger,
	})

	// 设置并运行 Gin 服务器
	r, err := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		SecureCookie:  cfg.GinMode == gin.ReleaseMode,
		StaticDir:     cfg.StaticDir,
		UploadDir:     uploadDirFor(cfg),
		UploadURLPath: cfg.UploadURLPath,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("failed to set up router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	store.Wait()
	logger.Info("server exited")
}

func newObjectStore(cfg config.AppConfig, logger *zap.Logger) (storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case "cloudinary":
		logger.Info("using cloudinary object storage")
		return cloudstore.New(cfg.CloudinaryURL)
	default:
		store, err := local.NewStore(cfg.UploadDir, cfg.UploadURLPath, logger)
		if err != nil {
			return nil, err
		}
		for _, bucket := range []string{cfg.StorageBucket, cfg.StorageFallbackBucket, cfg.LibraryBucket} {
			if err := store.EnsureBucket(bucket); err != nil {
				return nil, err
			}
		}
		logger.Info("using local object storage", zap.String("dir", cfg.UploadDir))
		return store, nil
	}
}

// newSnapshotBackend 选择快照缓存后端，redis 不可用时退回数据库
func newSnapshotBackend(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (snapshot.Backend, func()) {
	if cfg.CacheBackend == "redis" {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		backend, err := snapshot.NewRedisBackend(pingCtx, snapshot.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			logger.Info("using redis snapshot cache", zap.String("addr", cfg.RedisAddr))
			return backend, func() { backend.Close() }
		}
		logger.Warn("redis unavailable, falling back to database cache", zap.Error(err))
	}
	return snapshot.NewGormBackend(db.DB), func() {}
}

func uploadDirFor(cfg config.AppConfig) string {
	if cfg.StorageBackend == "cloudinary" {
		return ""
	}
	return cfg.UploadDir
}
