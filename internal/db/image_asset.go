package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImageAsset 后台图片库条目
// FilePath 为对外可访问的地址，StorageKey 记录 bucket/路径，便于删除时清理对象
type ImageAsset struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	FilePath    string    `gorm:"type:text;not null" json:"file_path"`
	StorageKey  string    `gorm:"size:500" json:"storage_key,omitempty"`
	FileType    string    `gorm:"size:50" json:"file_type"`
	FileSize    int64     `json:"file_size"`
	AltText     string    `gorm:"size:255" json:"alt_text"`
	Tags        []string  `gorm:"type:text;serializer:json" json:"tags"`
	IsActive    bool      `gorm:"index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 图片库沿用 images 表名
func (ImageAsset) TableName() string {
	return "images"
}

// BeforeCreate 在插入前生成 UUID 主键
func (a *ImageAsset) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
