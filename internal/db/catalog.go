package db

import "time"

// Brand 次级目录中的品牌。
// 该表由 CatalogService 通过原生 SQL 读写，因此同时声明 db 标签。
type Brand struct {
	ID        string    `gorm:"primaryKey;size:36" db:"id" json:"id"`
	Name      string    `gorm:"size:120;not null" db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CatalogProduct 品牌下的目录商品
type CatalogProduct struct {
	ID          string    `gorm:"primaryKey;size:36" db:"id" json:"id"`
	Name        string    `gorm:"size:200;not null" db:"name" json:"name"`
	Description string    `gorm:"type:text" db:"description" json:"description"`
	Image       string    `gorm:"size:16777216" db:"image" json:"image"`
	BrandID     string    `gorm:"size:36;not null;index" db:"brand_id" json:"brand_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
