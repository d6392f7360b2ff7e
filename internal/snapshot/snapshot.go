package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/naturalys/internal/db"
	"go.uber.org/zap"
)

// Key 是快照在后端中使用的固定键名
const Key = "store_data_cache"

// DefaultTTL 快照有效期
const DefaultTTL = 5 * time.Minute

// Snapshot 是店铺首页数据的一次完整拷贝，Timestamp 为毫秒
type Snapshot struct {
	Products    []db.Product      `json:"products"`
	MainButtons []db.MainButton   `json:"mainButtons"`
	Settings    *db.StoreSettings `json:"settings"`
	Timestamp   int64             `json:"timestamp"`
}

// Age 返回快照相对 now 的存活时间
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(s.Timestamp))
}

// Backend 是快照的键值存储
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache 在 Backend 之上实现 TTL 与损坏数据清理
type Cache struct {
	backend Backend
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// New 构造 Cache，ttl <= 0 时使用默认值
func New(backend Backend, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{backend: backend, ttl: ttl, logger: logger, now: time.Now}
}

// TTL 返回有效期
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Load 读取快照。不存在、损坏或过期时返回 nil，后两种情况会删除该条目。
func (c *Cache) Load(ctx context.Context) *Snapshot {
	raw, ok, err := c.backend.Get(ctx, Key)
	if err != nil {
		c.logger.Warn("snapshot cache read failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil || snap.Timestamp == 0 {
		c.logger.Warn("discarding corrupt snapshot cache entry", zap.Error(err))
		c.remove(ctx)
		return nil
	}

	if snap.Age(c.now()) > c.ttl {
		c.remove(ctx)
		return nil
	}
	return &snap
}

// Save 写入快照并记录当前时间戳，覆盖旧值
func (c *Cache) Save(ctx context.Context, snap Snapshot) error {
	snap.Timestamp = c.now().UnixMilli()
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, Key, raw, c.ttl)
}

// Clear 删除快照
func (c *Cache) Clear(ctx context.Context) error {
	return c.backend.Delete(ctx, Key)
}

func (c *Cache) remove(ctx context.Context) {
	if err := c.backend.Delete(ctx, Key); err != nil {
		c.logger.Warn("snapshot cache delete failed", zap.Error(err))
	}
}
