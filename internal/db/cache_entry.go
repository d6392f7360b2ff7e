package db

import "time"

// CacheEntry 以键值形式持久化缓存数据，ExpiresAt 仅作参考，过期判定由调用方负责。
// 快照可能内嵌多张 data URL 图片，MySQL 下 Value 映射为 longblob。
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:128"`
	Value     []byte    `gorm:"size:4294967295"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (CacheEntry) TableName() string {
	return "cache_entries"
}
