package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product 定义了店铺首页展示的商品
// Price/PromoPrice 保存为展示文本（如 "R$ 29,90"），不参与计算
// Image 可以是绝对 URL、data URL 或图片库中的 UUID，MySQL 下为 mediumtext
type Product struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Name       string    `gorm:"size:200;not null" json:"name"`
	Price      string    `gorm:"size:50;not null" json:"price"`
	PromoPrice string    `gorm:"size:50" json:"promo_price,omitempty"`
	Image      string    `gorm:"size:16777216" json:"image"`
	OrderIndex int       `gorm:"default:0;index" json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BeforeCreate 在插入前生成 UUID 主键
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
