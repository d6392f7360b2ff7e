package service

import (
	"fmt"
	"strings"

	"github.com/naturalys/internal/realtime"
	"gorm.io/gorm"
)

// Publisher 接收数据变更通知，realtime.Hub 满足该接口
type Publisher interface {
	Publish(realtime.Event)
}

func notify(pub Publisher, table string, kind realtime.EventType, id string) {
	if pub == nil {
		return
	}
	pub.Publish(realtime.Event{Table: table, Type: kind, RecordID: id})
}

// nextOrderIndex 返回追加到末尾时使用的 order_index（从 0 开始）
func nextOrderIndex(gdb *gorm.DB, model interface{}) (int, error) {
	var maxOrder int
	if err := gdb.Model(model).
		Select("COALESCE(MAX(order_index), -1)").
		Scan(&maxOrder).Error; err != nil {
		return 0, fmt.Errorf("resolve next order index: %w", err)
	}
	return maxOrder + 1, nil
}

// reorder 按给定顺序依次写入 0,1,2...，未包含的记录保持原值
func reorder(gdb *gorm.DB, model interface{}, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return gdb.Transaction(func(tx *gorm.DB) error {
		for index, id := range ids {
			if err := tx.Model(model).Where("id = ?", strings.TrimSpace(id)).Update("order_index", index).Error; err != nil {
				return fmt.Errorf("reorder: %w", err)
			}
		}
		return nil
	})
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
