package handler

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/naturalys/internal/realtime"
	"github.com/naturalys/internal/status"
	"github.com/naturalys/internal/storefront"
	"go.uber.org/zap"
)

const (
	sseBuffer        = 16
	sseKeepAlive     = 25 * time.Second
	refreshTimeout   = 15 * time.Second
	storeErrorPublic = "Erro ao carregar dados da loja"
)

func (a *API) currentStatus() status.Status {
	if a.monitor != nil {
		return a.monitor.Current()
	}
	return status.Evaluate(a.store.Snapshot().Settings, time.Now())
}

func (a *API) buildPage() storefront.Page {
	page, err := storefront.Build(a.store.Snapshot(), a.currentStatus(), a.resolver, a.content)
	if err != nil {
		a.logger.Warn("build storefront page", zap.Error(err))
	}
	return page
}

// ShowHome 渲染店铺首页
func (a *API) ShowHome(c *gin.Context) {
	page := a.buildPage()
	c.HTML(http.StatusOK, "home.html", gin.H{
		"title": page.StoreName,
		"page":  page,
	})
}

// GetStore 返回原始店铺数据与当前营业状态
func (a *API) GetStore(c *gin.Context) {
	state := a.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"products":     state.Products,
		"main_buttons": state.Buttons,
		"settings":     state.Settings,
		"loading":      state.Loading,
		"error":        state.Error,
		"last_update":  state.LastUpdate,
		"from_cache":   state.FromCache,
		"status":       a.currentStatus(),
	})
}

// GetStorePage 返回首页渲染模型，图片已解析
func (a *API) GetStorePage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"page": a.buildPage()})
}

// GetStoreStatus 返回当前营业状态
func (a *API) GetStoreStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": a.currentStatus()})
}

// RefreshStore 重新加载店铺数据；失败时保留旧数据
func (a *API) RefreshStore(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), refreshTimeout)
	defer cancel()

	if err := a.store.Refresh(ctx); err != nil {
		a.logger.Warn("manual store refresh failed", zap.Error(err))
		state := a.store.Snapshot()
		c.JSON(http.StatusBadGateway, gin.H{
			"error":       storeErrorPublic,
			"last_update": state.LastUpdate,
		})
		return
	}

	state := a.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{"message": "Dados atualizados", "last_update": state.LastUpdate})
}

// StreamEvents 以 SSE 推送数据变更，可用 table 与 event 查询参数过滤
func (a *API) StreamEvents(c *gin.Context) {
	if a.hub == nil {
		respondError(c, http.StatusServiceUnavailable, "Tempo real indisponível")
		return
	}

	eventType := strings.ToUpper(strings.TrimSpace(c.Query("event")))
	if eventType == "*" {
		eventType = ""
	}
	filter := realtime.Filter{
		Table: strings.TrimSpace(c.Query("table")),
		Type:  realtime.EventType(eventType),
	}

	events, cancel := a.hub.Subscribe(filter, sseBuffer)
	defer cancel()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"table": filter.Table, "event": string(filter.Type)})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("change", event)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// Healthz 存活检查
func (a *API) Healthz(c *gin.Context) {
	state := a.store.Snapshot()
	subscribers := 0
	if a.hub != nil {
		subscribers = a.hub.Subscribers()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"last_update": state.LastUpdate,
		"from_cache":  state.FromCache,
		"subscribers": subscribers,
	})
}
