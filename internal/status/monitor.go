package status

import (
	"context"
	"sync"
	"time"

	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/realtime"
	"go.uber.org/zap"
)

// Table 营业状态变化时发布的事件表名
const Table = "store_status"

// SettingsSource 返回最新的店铺配置
type SettingsSource func() *db.StoreSettings

// Publisher receives status change events.
type Publisher interface {
	Publish(realtime.Event)
}

// Monitor 按固定间隔重新计算营业状态，开关变化时发布事件
type Monitor struct {
	source   SettingsSource
	loc      *time.Location
	interval time.Duration
	pub      Publisher
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	current Status
	started bool
}

// NewMonitor 构造 Monitor，loc 为空时使用 UTC，interval <= 0 时为一分钟
func NewMonitor(source SettingsSource, loc *time.Location, interval time.Duration, pub Publisher, logger *zap.Logger) *Monitor {
	if loc == nil {
		loc = time.UTC
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		source:   source,
		loc:      loc,
		interval: interval,
		pub:      pub,
		logger:   logger,
		now:      time.Now,
	}
}

// Current 立即按当前时间计算状态
func (m *Monitor) Current() Status {
	return Evaluate(m.source(), m.now().In(m.loc))
}

// Last 返回最近一次 tick 的结果
func (m *Monitor) Last() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Run 阻塞运行直到 ctx 结束
func (m *Monitor) Run(ctx context.Context) {
	m.tick()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Monitor) tick() {
	next := m.Current()

	m.mu.Lock()
	changed := m.started && next.Open != m.current.Open
	m.current = next
	m.started = true
	m.mu.Unlock()

	if !changed {
		return
	}
	m.logger.Info("store status changed", zap.Bool("open", next.Open), zap.String("message", next.Message))
	if m.pub != nil {
		m.pub.Publish(realtime.Event{Table: Table, Type: realtime.EventUpdate})
	}
}

// LoadLocation 解析门店时区，失败时回退到 UTC
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}
