package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/realtime"
	"github.com/naturalys/internal/snapshot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher 读取首页所需的三类数据
type Fetcher interface {
	FetchProducts(ctx context.Context) ([]db.Product, error)
	FetchButtons(ctx context.Context) ([]db.MainButton, error)
	FetchSettings(ctx context.Context) (*db.StoreSettings, error)
}

// Subscriber 是 realtime.Hub 的订阅能力
type Subscriber interface {
	Subscribe(filter realtime.Filter, buffer int) (<-chan realtime.Event, func())
}

// State 是对外暴露的只读状态副本
type State struct {
	Products   []db.Product      `json:"products"`
	Buttons    []db.MainButton   `json:"main_buttons"`
	Settings   *db.StoreSettings `json:"settings"`
	Loading    bool              `json:"loading"`
	Error      string            `json:"error,omitempty"`
	LastUpdate time.Time         `json:"last_update"`
	FromCache  bool              `json:"from_cache"`
}

// watchedTables 中任一表变更都会触发刷新
var watchedTables = map[string]struct{}{
	db.TableProducts:      {},
	db.TableMainButtons:   {},
	db.TableStoreSettings: {},
	db.TableImages:        {},
}

// Provider 持有店铺首页数据，并负责从缓存恢复与后台刷新
type Provider struct {
	fetcher Fetcher
	cache   *snapshot.Cache
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	state State

	refreshMu sync.Mutex
	wg        sync.WaitGroup
}

// New 构造 Provider，cache 可以为 nil
func New(fetcher Fetcher, cache *snapshot.Cache, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
		state:   State{Loading: true},
	}
}

// Snapshot 返回当前状态的拷贝
func (p *Provider) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := p.state
	out.Products = append([]db.Product(nil), p.state.Products...)
	out.Buttons = append([]db.MainButton(nil), p.state.Buttons...)
	if p.state.Settings != nil {
		settings := *p.state.Settings
		out.Settings = &settings
	}
	return out
}

// Start 命中缓存时立即使用缓存并在后台刷新一次，否则同步刷新
func (p *Provider) Start(ctx context.Context) error {
	if p.cache != nil {
		if snap := p.cache.Load(ctx); snap != nil {
			p.mu.Lock()
			p.state = State{
				Products:   snap.Products,
				Buttons:    snap.MainButtons,
				Settings:   snap.Settings,
				LastUpdate: time.UnixMilli(snap.Timestamp),
				FromCache:  true,
			}
			p.mu.Unlock()
			p.logger.Info("store data restored from cache",
				zap.Int("products", len(snap.Products)),
				zap.Int("buttons", len(snap.MainButtons)))

			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				if err := p.Refresh(ctx); err != nil {
					p.logger.Warn("background revalidation failed", zap.Error(err))
				}
			}()
			return nil
		}
	}
	return p.Refresh(ctx)
}

// Refresh 并发读取三类数据，全部成功后一起替换；失败时保留旧数据并记录错误
func (p *Provider) Refresh(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	p.mu.Lock()
	p.state.Loading = true
	p.mu.Unlock()

	var (
		products []db.Product
		buttons  []db.MainButton
		settings *db.StoreSettings
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := p.fetcher.FetchProducts(gctx)
		if err != nil {
			return fmt.Errorf("fetch products: %w", err)
		}
		products = items
		return nil
	})
	g.Go(func() error {
		items, err := p.fetcher.FetchButtons(gctx)
		if err != nil {
			return fmt.Errorf("fetch main buttons: %w", err)
		}
		buttons = items
		return nil
	})
	g.Go(func() error {
		item, err := p.fetcher.FetchSettings(gctx)
		if err != nil {
			return fmt.Errorf("fetch settings: %w", err)
		}
		settings = item
		return nil
	})

	if err := g.Wait(); err != nil {
		p.mu.Lock()
		p.state.Loading = false
		p.state.Error = err.Error()
		p.mu.Unlock()
		return err
	}

	now := p.now()
	p.mu.Lock()
	p.state = State{
		Products:   products,
		Buttons:    buttons,
		Settings:   settings,
		LastUpdate: now,
	}
	p.mu.Unlock()

	if p.cache != nil {
		snap := snapshot.Snapshot{Products: products, MainButtons: buttons, Settings: settings}
		if err := p.cache.Save(ctx, snap); err != nil {
			p.logger.Warn("failed to write store snapshot", zap.Error(err))
		}
	}
	return nil
}

// Watch 订阅数据变更并刷新，ctx 结束时退出
func (p *Provider) Watch(ctx context.Context, sub Subscriber) {
	events, cancel := sub.Subscribe(realtime.Filter{}, 32)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if _, watched := watchedTables[e.Table]; !watched {
					continue
				}
				drain(events)
				if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
					p.logger.Warn("refresh after change failed",
						zap.String("table", e.Table), zap.Error(err))
				}
			}
		}
	}()
}

// Wait 等待所有后台任务结束
func (p *Provider) Wait() {
	p.wg.Wait()
}

// drain 合并已排队的事件，一次刷新即可覆盖
func drain(events <-chan realtime.Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
