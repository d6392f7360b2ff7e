package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// ButtonStatusNormal 普通按钮
	ButtonStatusNormal = "normal"
	// ButtonStatusHighlight 突出显示（destaque）的按钮，前台总是排在普通按钮之前
	ButtonStatusHighlight = "destaque"
)

// MainButton 首页的推广链接按钮
type MainButton struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Icon        string    `gorm:"size:50;not null" json:"icon"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Link        string    `gorm:"size:500;not null" json:"link"`
	Status      string    `gorm:"size:20;not null" json:"status"`
	OrderIndex  int       `gorm:"default:0;index" json:"order_index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 与历史表名保持一致
func (MainButton) TableName() string {
	return "main_buttons"
}

// BeforeCreate 在插入前生成 UUID 主键
func (b *MainButton) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Highlighted 判断按钮是否为突出显示
func (b MainButton) Highlighted() bool {
	return b.Status == ButtonStatusHighlight
}
