package storefront

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/naturalys/internal/content"
	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/imageref"
	"github.com/naturalys/internal/provider"
	"github.com/naturalys/internal/status"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// PreviewCount 首页默认展示的商品数量，其余折叠在“Ver mais”后
const PreviewCount = 2

// ProductCard 首页商品卡片，Image 已经过 imageURL 过滤，可能是 data URL
type ProductCard struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Price      string       `json:"price"`
	PromoPrice string       `json:"promo_price,omitempty"`
	HasPromo   bool         `json:"has_promo"`
	Image      template.URL `json:"image"`
	OrderLink  string       `json:"order_link,omitempty"`
}

// LinkButton 首页推广按钮，Link 允许 tel:、whatsapp: 等协议
type LinkButton struct {
	ID          string       `json:"id"`
	Icon        string       `json:"icon"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Link        template.URL `json:"link"`
	Highlight   bool         `json:"highlight"`
}

// Page 是首页渲染所需的全部数据
type Page struct {
	StoreName       string                `json:"store_name"`
	Description     string                `json:"description"`
	DescriptionHTML template.HTML         `json:"description_html"`
	Address         string                `json:"address"`
	StoreImage      template.URL          `json:"store_image"`
	Logo            template.URL          `json:"logo"`
	WhatsAppLink    string                `json:"whatsapp_link,omitempty"`
	InstagramLink   string                `json:"instagram_link,omitempty"`
	Status          status.Status         `json:"status"`
	Buttons         []LinkButton          `json:"buttons"`
	Products        []ProductCard         `json:"products"`
	PreviewCount    int                   `json:"preview_count"`
	Benefits        []content.Benefit     `json:"benefits"`
	Testimonials    []content.Testimonial `json:"testimonials"`
	LastUpdate      time.Time             `json:"last_update"`
	Error           string                `json:"error,omitempty"`
	Year            int                   `json:"-"`
}

// Build 把 provider 状态转换为首页模型。
// 图片解析失败只影响对应图片（回退占位图），错误一并返回供记录。
func Build(state provider.State, st status.Status, resolver *imageref.Resolver, c *content.Content) (Page, error) {
	settings := state.Settings
	if settings == nil {
		defaults := db.DefaultStoreSettings()
		settings = &defaults
	}

	page := Page{
		StoreName:    settings.StoreName,
		Description:  settings.Description,
		Address:      settings.Address,
		Status:       st,
		PreviewCount: PreviewCount,
		LastUpdate:   state.LastUpdate,
		Error:        state.Error,
		Year:         time.Now().Year(),
	}

	descriptionHTML, err := renderMarkdown(settings.Description)
	if err != nil {
		return page, err
	}
	page.DescriptionHTML = descriptionHTML
	page.WhatsAppLink = WhatsAppLink(settings.WhatsAppNumber, "")
	page.InstagramLink = InstagramLink(settings.InstagramHandle)
	page.Buttons = OrderButtons(state.Buttons)

	if c != nil {
		page.Benefits = c.Benefits
		page.Testimonials = c.Testimonials
	}

	productImages := make([]string, len(state.Products))
	for i, p := range state.Products {
		productImages[i] = p.Image
	}
	resolvedProducts, lookupErr := resolver.DisplayURLs(productImages, imageref.DefaultProductImage)

	storeImages, storeErr := resolver.DisplayURLs([]string{settings.StoreImage, settings.LogoURL}, imageref.DefaultStoreImage)
	page.StoreImage = imageURL(storeImages[0], imageref.DefaultStoreImage)
	page.Logo = imageURL(storeImages[1], imageref.DefaultStoreImage)
	if strings.TrimSpace(settings.LogoURL) == "" {
		page.Logo = imageref.DefaultLogo
	}

	page.Products = make([]ProductCard, 0, len(state.Products))
	for i, p := range state.Products {
		promo := strings.TrimSpace(p.PromoPrice)
		page.Products = append(page.Products, ProductCard{
			ID:         p.ID,
			Name:       p.Name,
			Price:      p.Price,
			PromoPrice: promo,
			HasPromo:   promo != "",
			Image:      imageURL(resolvedProducts[i], imageref.DefaultProductImage),
			OrderLink:  WhatsAppLink(settings.WhatsAppNumber, fmt.Sprintf("Olá! Tenho interesse no produto %s", p.Name)),
		})
	}

	if lookupErr != nil {
		return page, lookupErr
	}
	return page, storeErr
}

// OrderButtons 所有 destaque 按钮排在 normal 之前，组内按 order_index
func OrderButtons(buttons []db.MainButton) []LinkButton {
	sorted := append([]db.MainButton(nil), buttons...)
	sort.SliceStable(sorted, func(i, j int) bool {
		hi, hj := sorted[i].Highlighted(), sorted[j].Highlighted()
		if hi != hj {
			return hi
		}
		return sorted[i].OrderIndex < sorted[j].OrderIndex
	})

	out := make([]LinkButton, 0, len(sorted))
	for _, b := range sorted {
		out = append(out, LinkButton{
			ID:          b.ID,
			Icon:        b.Icon,
			Name:        b.Name,
			Description: b.Description,
			Link:        buttonLink(b.Link),
			Highlight:   b.Highlighted(),
		})
	}
	return out
}

// imageURL 只放行站内路径、http(s) 与 data:image 地址，其余使用占位图
func imageURL(resolved, placeholder string) template.URL {
	ref := imageref.Parse(resolved)
	switch ref.Kind {
	case imageref.KindRemoteURL, imageref.KindInlineData:
		return template.URL(ref.Value)
	}
	return template.URL(placeholder)
}

var linkSchemes = map[string]struct{}{
	"http":     {},
	"https":    {},
	"mailto":   {},
	"tel":      {},
	"sms":      {},
	"whatsapp": {},
}

// buttonLink 放行相对地址与白名单协议，javascript: 等其它协议替换为 #
func buttonLink(raw string) template.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "#"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "#"
	}
	if u.Scheme == "" {
		return template.URL(raw)
	}
	if _, ok := linkSchemes[strings.ToLower(u.Scheme)]; !ok {
		return "#"
	}
	return template.URL(raw)
}

// WhatsAppLink 只保留号码中的数字，号码为空时返回空串
func WhatsAppLink(number, message string) string {
	var digits strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	link := "https://wa.me/" + digits.String()
	if message != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link
}

// InstagramLink 由账号名生成主页地址
func InstagramLink(handle string) string {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return ""
	}
	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		return handle
	}
	return "https://instagram.com/" + handle
}

func renderMarkdown(source string) (template.HTML, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())), nil
}
