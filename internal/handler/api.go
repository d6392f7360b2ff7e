package handler

import (
	"time"

	"github.com/naturalys/internal/content"
	"github.com/naturalys/internal/imageref"
	"github.com/naturalys/internal/provider"
	"github.com/naturalys/internal/realtime"
	"github.com/naturalys/internal/service"
	"github.com/naturalys/internal/status"
	"github.com/naturalys/internal/storage"
	"github.com/naturalys/internal/upload"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies 汇总 handler 需要的后台组件
type Dependencies struct {
	Services      *service.Registry
	Hub           *realtime.Hub
	Provider      *provider.Provider
	Monitor       *status.Monitor
	Content       *content.Content
	Objects       storage.ObjectStore
	LibraryBucket string
	Uploader      *upload.Chain
	MaxDimension  int
	UploadTimeout time.Duration
	Logger        *zap.Logger
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db            *gorm.DB
	products      *service.ProductService
	buttons       *service.ButtonService
	settings      *service.StoreSettingService
	images        *service.ImageAssetService
	catalog       *service.CatalogService
	hub           *realtime.Hub
	store         *provider.Provider
	monitor       *status.Monitor
	resolver      *imageref.Resolver
	content       *content.Content
	objects       storage.ObjectStore
	libraryBucket string
	uploader      *upload.Chain
	maxDimension  int
	uploadTimeout time.Duration
	logger        *zap.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, deps Dependencies) *API {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Content
	if c == nil {
		c = &content.Content{}
	}
	timeout := deps.UploadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	services := deps.Services
	return &API{
		db:            gdb,
		products:      services.Products,
		buttons:       services.Buttons,
		settings:      services.Settings,
		images:        services.Images,
		catalog:       services.Catalog,
		hub:           deps.Hub,
		store:         deps.Provider,
		monitor:       deps.Monitor,
		resolver:      imageref.NewResolver(services.Images.LookupURLs),
		content:       c,
		objects:       deps.Objects,
		libraryBucket: deps.LibraryBucket,
		uploader:      deps.Uploader,
		maxDimension:  deps.MaxDimension,
		uploadTimeout: timeout,
		logger:        logger,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
