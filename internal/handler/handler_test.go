package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/naturalys/internal/content"
	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/provider"
	"github.com/naturalys/internal/realtime"
	"github.com/naturalys/internal/service"
	"github.com/naturalys/internal/snapshot"
	"github.com/naturalys/internal/status"
	"github.com/naturalys/internal/storage/local"
	"github.com/naturalys/internal/upload"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	api      *API
	db       *gorm.DB
	hub      *realtime.Hub
	services *service.Registry
	provider *provider.Provider
	baseDir  string
}

func setupTestAPI(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	sdb, err := db.NewSQLX(gdb)
	if err != nil {
		t.Fatalf("failed to open sqlx: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	hub := realtime.NewHub(nil)
	services := service.NewRegistry(gdb, sdb, hub)
	cache := snapshot.New(snapshot.NewGormBackend(gdb), time.Minute, nil)
	store := provider.New(provider.ServiceFetcher{
		Products: services.Products,
		Buttons:  services.Buttons,
		Settings: services.Settings,
	}, cache, nil)
	monitor := status.NewMonitor(func() *db.StoreSettings {
		return store.Snapshot().Settings
	}, time.UTC, time.Minute, hub, nil)

	baseDir := t.TempDir()
	objects, err := local.NewStore(baseDir, "/static/uploads", nil)
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	c, err := content.Default()
	if err != nil {
		t.Fatalf("failed to load content: %v", err)
	}

	api := NewAPI(gdb, Dependencies{
		Services:      services,
		Hub:           hub,
		Provider:      store,
		Monitor:       monitor,
		Content:       c,
		Objects:       objects,
		LibraryBucket: "images",
		Uploader:      upload.NewChain(nil, upload.NewBucketStrategy(objects, "store-assets", "public"), upload.InlineStrategy{}),
		MaxDimension:  500,
	})
	return &testEnv{api: api, db: gdb, hub: hub, services: services, provider: store, baseDir: baseDir}
}

func jsonRequest(method, target string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func newContext(req *http.Request, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = params
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json response %q: %v", w.Body.String(), err)
	}
	return out
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, target, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if data != nil {
		part, err := writer.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(data)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestCreateProductValidation(t *testing.T) {
	env := setupTestAPI(t)

	c, w := newContext(jsonRequest(http.MethodPost, "/admin/api/products", map[string]any{"name": "Granola"}))
	env.api.CreateProduct(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	c, w = newContext(jsonRequest(http.MethodPost, "/admin/api/products", map[string]any{"name": "Granola", "price": "R$ 20"}))
	env.api.CreateProduct(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	product := decodeBody(t, w)["product"].(map[string]any)
	if product["order_index"].(float64) != 0 {
		t.Fatalf("expected first product at index 0, got %v", product["order_index"])
	}
}

func TestUpdateAndDeleteProductNotFound(t *testing.T) {
	env := setupTestAPI(t)
	missing := "7f1d1c8e-4b7a-4c54-9d1e-0b7a8f3e2c11"

	c, w := newContext(jsonRequest(http.MethodPut, "/admin/api/products/"+missing, map[string]any{"name": "x", "price": "1"}),
		gin.Param{Key: "id", Value: missing})
	env.api.UpdateProduct(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	c, w = newContext(httptest.NewRequest(http.MethodDelete, "/admin/api/products/nope", nil), gin.Param{Key: "id", Value: "nope"})
	env.api.DeleteProduct(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for malformed id, got %d", w.Code)
	}
}

func TestReorderProducts(t *testing.T) {
	env := setupTestAPI(t)
	a, _ := env.services.Products.Create(service.ProductInput{Name: "A", Price: "1"})
	b, _ := env.services.Products.Create(service.ProductInput{Name: "B", Price: "2"})

	c, w := newContext(jsonRequest(http.MethodPost, "/admin/api/products/reorder", map[string]any{"ids": []string{b.ID, a.ID}}))
	env.api.ReorderProducts(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	products, err := env.services.Products.ListOrdered()
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if products[0].ID != b.ID || products[1].ID != a.ID {
		t.Fatalf("unexpected order after reorder: %v, %v", products[0].Name, products[1].Name)
	}
}

func TestCreateButtonRejectsUnknownStatus(t *testing.T) {
	env := setupTestAPI(t)

	c, w := newContext(jsonRequest(http.MethodPost, "/admin/api/buttons", map[string]any{
		"name": "WhatsApp", "link": "https://wa.me/1", "status": "vip",
	}))
	env.api.CreateButton(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	c, w = newContext(jsonRequest(http.MethodPost, "/admin/api/buttons", map[string]any{
		"name": "WhatsApp", "link": "https://wa.me/1", "status": "destaque",
	}))
	env.api.CreateButton(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}
	button := decodeBody(t, w)["main_button"].(map[string]any)
	if button["icon"] != "🔗" || button["status"] != db.ButtonStatusHighlight {
		t.Fatalf("unexpected button %v", button)
	}
}

func TestUpdateSettingsValidatesHours(t *testing.T) {
	env := setupTestAPI(t)

	c, w := newContext(jsonRequest(http.MethodPut, "/admin/api/settings", map[string]any{
		"store_name":         "Naturalys",
		"open_weekdays":      true,
		"weekday_open_time":  "18:00",
		"weekday_close_time": "08:00",
	}))
	env.api.UpdateSettings(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	c, w = newContext(jsonRequest(http.MethodPut, "/admin/api/settings", map[string]any{
		"store_name":         "Naturalys",
		"instagram_handle":   "@naturalys",
		"open_weekdays":      true,
		"weekday_open_time":  "08:00",
		"weekday_close_time": "18:00",
	}))
	env.api.UpdateSettings(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	settings := decodeBody(t, w)["settings"].(map[string]any)
	if settings["instagram_handle"] != "naturalys" {
		t.Fatalf("expected handle without @, got %v", settings["instagram_handle"])
	}
}

func TestImageLibraryLifecycle(t *testing.T) {
	env := setupTestAPI(t)

	req := multipartRequest(t, "/admin/api/images", "image", "loja.png", pngBytes(t, 40, 20), map[string]string{
		"title": "Fachada",
		"tags":  "Loja, fachada",
	})
	c, w := newContext(req)
	env.api.CreateImage(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	asset := decodeBody(t, w)["image"].(map[string]any)
	id := asset["id"].(string)
	if asset["storage_key"] == "" || asset["is_active"] != true {
		t.Fatalf("unexpected image %v", asset)
	}

	c, w = newContext(httptest.NewRequest(http.MethodGet, "/admin/api/images?tags=loja", nil))
	env.api.GetImages(c)
	if images := decodeBody(t, w)["images"].([]any); len(images) != 1 {
		t.Fatalf("expected one tagged image, got %d", len(images))
	}

	c, w = newContext(httptest.NewRequest(http.MethodDelete, "/admin/api/images/"+id, nil), gin.Param{Key: "id", Value: id})
	env.api.DeleteImage(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if _, err := env.services.Images.Get(id); !errors.Is(err, service.ErrImageNotFound) {
		t.Fatalf("expected image to be deleted, got %v", err)
	}
}

func TestCreateImageRejectsNonImages(t *testing.T) {
	env := setupTestAPI(t)

	req := multipartRequest(t, "/admin/api/images", "image", "notes.txt", []byte("plain text"), map[string]string{"title": "x"})
	c, w := newContext(req)
	env.api.CreateImage(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	c, w = newContext(multipartRequest(t, "/admin/api/images", "image", "", nil, nil))
	env.api.CreateImage(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without file, got %d", w.Code)
	}
}

func TestUploadImageUsesFirstStrategy(t *testing.T) {
	env := setupTestAPI(t)

	req := multipartRequest(t, "/admin/api/uploads", "image", "produto.png", pngBytes(t, 800, 400), map[string]string{"square": "true"})
	c, w := newContext(req)
	env.api.UploadImage(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["provider"] != "storage" {
		t.Fatalf("expected storage provider, got %v", body["provider"])
	}
	if body["width"].(float64) != 500 || body["height"].(float64) != 500 {
		t.Fatalf("expected square 500x500, got %vx%v", body["width"], body["height"])
	}
}

func TestCatalogBrandConflict(t *testing.T) {
	env := setupTestAPI(t)

	c, w := newContext(jsonRequest(http.MethodPost, "/admin/api/brands", map[string]any{"name": "Mãe Terra"}))
	env.api.CreateBrand(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}
	brandID := decodeBody(t, w)["brand"].(map[string]any)["id"].(string)

	c, w = newContext(jsonRequest(http.MethodPost, "/admin/api/brands", map[string]any{"name": "mãe terra"}))
	env.api.CreateBrand(c)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}

	c, w = newContext(jsonRequest(http.MethodPost, "/admin/api/catalog-products", map[string]any{
		"name": "Granola", "brand_id": brandID,
	}))
	env.api.CreateCatalogProduct(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	c, w = newContext(httptest.NewRequest(http.MethodGet, "/admin/api/catalog-products?brand_id="+brandID, nil))
	env.api.GetCatalogProducts(c)
	if products := decodeBody(t, w)["products"].([]any); len(products) != 1 {
		t.Fatalf("expected one catalog product, got %d", len(products))
	}
}

func TestStoreEndpointsReflectRefresh(t *testing.T) {
	env := setupTestAPI(t)
	if _, err := env.services.Products.Create(service.ProductInput{Name: "Mel", Price: "R$ 30", PromoPrice: "R$ 25"}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	c, w := newContext(httptest.NewRequest(http.MethodPost, "/api/store/refresh", nil))
	env.api.RefreshStore(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	c, w = newContext(httptest.NewRequest(http.MethodGet, "/api/store", nil))
	env.api.GetStore(c)
	body := decodeBody(t, w)
	if products := body["products"].([]any); len(products) != 1 {
		t.Fatalf("expected one product, got %d", len(products))
	}
	if body["settings"].(map[string]any)["store_name"] != "Naturalys" {
		t.Fatalf("expected default settings, got %v", body["settings"])
	}
	if _, ok := body["status"].(map[string]any)["message"]; !ok {
		t.Fatalf("expected status message")
	}

	c, w = newContext(httptest.NewRequest(http.MethodGet, "/api/store/page", nil))
	env.api.GetStorePage(c)
	page := decodeBody(t, w)["page"].(map[string]any)
	product := page["products"].([]any)[0].(map[string]any)
	if product["has_promo"] != true || product["image"] != "/static/img/default-product.svg" {
		t.Fatalf("unexpected product card %v", product)
	}
}

// streamRecorder 为 gin 的 Stream 提供 CloseNotify
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestStreamEventsDeliversChanges(t *testing.T) {
	env := setupTestAPI(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/realtime?table=products&event=*", nil).WithContext(ctx)
	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.api.StreamEvents(c)
	}()

	deadline := time.After(2 * time.Second)
	for env.hub.Subscribers() == 0 {
		select {
		case <-deadline:
			t.Fatalf("stream never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	env.hub.Publish(realtime.Event{Table: "main_buttons", Type: realtime.EventInsert})
	env.hub.Publish(realtime.Event{Table: "products", Type: realtime.EventInsert, RecordID: "p1"})

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event:change") || !strings.Contains(body, `"record_id":"p1"`) {
		t.Fatalf("expected product change in stream, got %q", body)
	}
	if strings.Contains(body, "main_buttons") {
		t.Fatalf("filtered table leaked into stream: %q", body)
	}
}
