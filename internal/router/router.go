package router

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/naturalys/internal/handler"
	"github.com/naturalys/web"
	"go.uber.org/zap"
)

const sessionName = "naturalys_session"

// Options 路由层配置
type Options struct {
	SessionSecret string
	SecureCookie  bool
	// StaticDir 对应 /static，为空时不挂载
	StaticDir string
	// UploadDir 通过 /uploads 以及 UploadURLPath 对外提供
	UploadDir     string
	UploadURLPath string
	Logger        *zap.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) (*gin.Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(requestLogger(logger), recovery(logger))

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(web.Templates, "template/*.html")
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	// 静态文件服务
	if opts.StaticDir != "" {
		r.Static("/static", opts.StaticDir)
	}
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
		urlPath := "/" + strings.Trim(opts.UploadURLPath, "/")
		if urlPath != "/" && urlPath != "/uploads" && !strings.HasPrefix(urlPath, "/static/") {
			r.Static(urlPath, opts.UploadDir)
		}
	}

	r.GET("/", api.ShowHome)
	r.GET("/healthz", api.Healthz)
	r.GET("/realtime", api.StreamEvents)

	public := r.Group("/api/store")
	{
		public.GET("", api.GetStore)
		public.GET("/page", api.GetStorePage)
		public.GET("/status", api.GetStoreStatus)
		public.POST("/refresh", api.RefreshStore)
	}

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.POST("/logout", api.Logout)

		// 需要认证的后台 API
		auth := admin.Group("/api")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/me", api.Me)

			auth.GET("/products", api.GetProducts)
			auth.POST("/products", api.CreateProduct)
			auth.POST("/products/reorder", api.ReorderProducts)
			auth.PUT("/products/:id", api.UpdateProduct)
			auth.DELETE("/products/:id", api.DeleteProduct)

			auth.GET("/buttons", api.GetButtons)
			auth.POST("/buttons", api.CreateButton)
			auth.POST("/buttons/reorder", api.ReorderButtons)
			auth.PUT("/buttons/:id", api.UpdateButton)
			auth.DELETE("/buttons/:id", api.DeleteButton)

			auth.GET("/settings", api.GetSettings)
			auth.PUT("/settings", api.UpdateSettings)
			auth.PUT("/settings/images", api.UpdateSettingsImages)

			auth.GET("/images", api.GetImages)
			auth.POST("/images", api.CreateImage)
			auth.PUT("/images/:id", api.UpdateImage)
			auth.DELETE("/images/:id", api.DeleteImage)

			auth.GET("/brands", api.GetBrands)
			auth.POST("/brands", api.CreateBrand)
			auth.DELETE("/brands/:id", api.DeleteBrand)

			auth.GET("/catalog-products", api.GetCatalogProducts)
			auth.GET("/catalog-products/:id", api.GetCatalogProduct)
			auth.POST("/catalog-products", api.CreateCatalogProduct)
			auth.PUT("/catalog-products/:id", api.UpdateCatalogProduct)
			auth.DELETE("/catalog-products/:id", api.DeleteCatalogProduct)

			auth.POST("/uploads", api.UploadImage)
			auth.POST("/refresh", api.RefreshStore)
		}
	}

	return r, nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"stars": func(rating int) string {
			if rating < 0 {
				rating = 0
			}
			if rating > 5 {
				rating = 5
			}
			return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
		},
	}
}
