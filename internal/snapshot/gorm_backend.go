package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/naturalys/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBackend stores entries in the cache_entries table.
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend creates a table-backed cache backend.
func NewGormBackend(gdb *gorm.DB) *GormBackend {
	return &GormBackend{db: gdb}
}

func (b *GormBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry db.CacheEntry
	err := b.db.WithContext(ctx).Where(map[string]interface{}{"key": key}).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (b *GormBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := db.CacheEntry{Key: key, Value: value, ExpiresAt: time.Now().Add(ttl)}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

func (b *GormBackend) Delete(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).Where(map[string]interface{}{"key": key}).Delete(&db.CacheEntry{}).Error
}
