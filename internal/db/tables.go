package db

// 表名常量，供实时通知与原生 SQL 使用
const (
	TableProducts        = "products"
	TableMainButtons     = "main_buttons"
	TableStoreSettings   = "store_settings"
	TableImages          = "images"
	TableBrands          = "brands"
	TableCatalogProducts = "catalog_products"
)
