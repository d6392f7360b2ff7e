package service

import (
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

// Registry 持有全部后台服务，供 handler 与数据加载共用
type Registry struct {
	Products *ProductService
	Buttons  *ButtonService
	Settings *StoreSettingService
	Images   *ImageAssetService
	Catalog  *CatalogService
}

// NewRegistry 用同一个 Publisher 构造全部服务
func NewRegistry(gdb *gorm.DB, sdb *sqlx.DB, pub Publisher) *Registry {
	return &Registry{
		Products: NewProductService(gdb, pub),
		Buttons:  NewButtonService(gdb, pub),
		Settings: NewStoreSettingService(gdb, pub),
		Images:   NewImageAssetService(gdb, pub),
		Catalog:  NewCatalogService(sdb, pub),
	}
}
