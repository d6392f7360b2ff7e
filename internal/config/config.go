package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabaseDriver    string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	LogLevel          string
	LogEncoding       string
	StaticDir         string
	UploadDir         string
	UploadURLPath     string
	SuperRootUserName string
	SuperRootPassword string

	StorageBackend        string
	StorageBucket         string
	StorageFallbackBucket string
	LibraryBucket         string
	CloudinaryURL         string
	FallbackHostAURL      string
	FallbackHostBURL      string
	UploadTimeout         time.Duration
	ImageMaxDimension     int
	InlineImageMaxBytes   int

	CacheBackend  string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StoreTimezone  string
	StatusInterval time.Duration
	ContentFile    string

	MigrationsDir  string
	BackendRESTURL string
	BackendAPIKey  string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envOr("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabaseDriver:    strings.ToLower(envOr("DATABASE_DRIVER", "sqlite")),
		DatabasePath:      envOr("DATABASE_PATH", "naturalys.db"),
		SessionSecret:     envOr("SESSION_SECRET", "naturalys-dev-secret"),
		GinMode:           envOr("GIN_MODE", "release"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogEncoding:       envOr("LOG_ENCODING", "json"),
		StaticDir:         envOr("STATIC_DIR", "web/static"),
		UploadDir:         envOr("UPLOAD_DIR", "web/static/uploads"),
		UploadURLPath:     envOr("UPLOAD_URL_PATH", "/static/uploads"),
		SuperRootUserName: strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME")),
		SuperRootPassword: strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),

		StorageBackend:        strings.ToLower(envOr("STORAGE_BACKEND", "local")),
		StorageBucket:         envOr("STORAGE_BUCKET", "store-assets"),
		StorageFallbackBucket: envOr("STORAGE_FALLBACK_BUCKET", "public"),
		LibraryBucket:         envOr("LIBRARY_BUCKET", "images"),
		CloudinaryURL:         strings.TrimSpace(os.Getenv("CLOUDINARY_URL")),
		FallbackHostAURL:      envOr("FALLBACK_HOST_A_URL", "https://file.io/?expires=1d"),
		FallbackHostBURL:      envOr("FALLBACK_HOST_B_URL", "https://imgbb.com/json"),
		UploadTimeout:         envDuration("UPLOAD_TIMEOUT", 20*time.Second),
		ImageMaxDimension:     envInt("IMAGE_MAX_DIMENSION", 500),
		InlineImageMaxBytes:   envInt("INLINE_IMAGE_MAX_BYTES", 2<<20),

		CacheBackend:  strings.ToLower(envOr("CACHE_BACKEND", "db")),
		CacheTTL:      envDuration("CACHE_TTL", 5*time.Minute),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:       envInt("REDIS_DB", 0),

		StoreTimezone:  envOr("STORE_TIMEZONE", "America/Sao_Paulo"),
		StatusInterval: envDuration("STATUS_INTERVAL", time.Minute),
		ContentFile:    strings.TrimSpace(os.Getenv("CONTENT_FILE")),

		MigrationsDir:  envOr("MIGRATIONS_DIR", "migrations"),
		BackendRESTURL: strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_REST_URL")), "/"),
		BackendAPIKey:  strings.TrimSpace(os.Getenv("BACKEND_API_KEY")),
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// envDuration 同时接受 time.ParseDuration 格式与纯秒数。
func envDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
