package storefront

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/naturalys/internal/content"
	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/imageref"
	"github.com/naturalys/internal/provider"
	"github.com/naturalys/internal/status"
)

const libraryID = "7f1d1c8e-4b7a-4c54-9d1e-0b7a8f3e2c11"

func TestOrderButtonsPutsHighlightsFirst(t *testing.T) {
	buttons := []db.MainButton{
		{ID: "n0", Status: db.ButtonStatusNormal, OrderIndex: 0},
		{ID: "d5", Status: db.ButtonStatusHighlight, OrderIndex: 5},
		{ID: "n1", Status: db.ButtonStatusNormal, OrderIndex: 1},
		{ID: "d2", Status: db.ButtonStatusHighlight, OrderIndex: 2},
	}

	ordered := OrderButtons(buttons)
	got := make([]string, len(ordered))
	for i, b := range ordered {
		got[i] = b.ID
	}
	if strings.Join(got, ",") != "d2,d5,n0,n1" {
		t.Fatalf("unexpected order %v", got)
	}
	if !ordered[0].Highlight || ordered[2].Highlight {
		t.Fatalf("highlight flag not propagated: %+v", ordered)
	}
}

func TestWhatsAppAndInstagramLinks(t *testing.T) {
	if got := WhatsAppLink("+55 (11) 99999-0000", ""); got != "https://wa.me/5511999990000" {
		t.Fatalf("unexpected whatsapp link %s", got)
	}
	if got := WhatsAppLink("", "oi"); got != "" {
		t.Fatalf("expected empty link without number, got %s", got)
	}
	if got := WhatsAppLink("11 9", "Olá mel"); got != "https://wa.me/119?text=Ol%C3%A1+mel" {
		t.Fatalf("unexpected message link %s", got)
	}
	if got := InstagramLink("@naturalys"); got != "https://instagram.com/naturalys" {
		t.Fatalf("unexpected instagram link %s", got)
	}
	if got := InstagramLink(""); got != "" {
		t.Fatalf("expected empty instagram link")
	}
}

func TestBuildResolvesImagesAndPromo(t *testing.T) {
	resolver := imageref.NewResolver(func(ids []string) (map[string]string, error) {
		return map[string]string{libraryID: "/static/uploads/images/loja.jpg"}, nil
	})
	state := provider.State{
		Products: []db.Product{
			{ID: "p1", Name: "Granola", Price: "R$ 20", PromoPrice: " R$ 15 ", Image: "https://cdn.example.com/g.jpg"},
			{ID: "p2", Name: "Mel", Price: "R$ 30", Image: "not-a-url"},
		},
		Settings: &db.StoreSettings{
			StoreName:      "Naturalys",
			Description:    "**Produtos** naturais <script>alert(1)</script>",
			WhatsAppNumber: "11 99999-0000",
			StoreImage:     libraryID,
		},
	}
	st := status.Status{Open: true, Message: "🟢 Aberto agora!"}
	c := &content.Content{Benefits: []content.Benefit{{Icon: "heart", Text: "Natural"}}}

	page, err := Build(state, st, resolver, c)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if !page.Products[0].HasPromo || page.Products[0].PromoPrice != "R$ 15" {
		t.Fatalf("expected promo on first product: %+v", page.Products[0])
	}
	if page.Products[1].HasPromo || page.Products[1].Image != imageref.DefaultProductImage {
		t.Fatalf("unexpected second product: %+v", page.Products[1])
	}
	if page.StoreImage != "/static/uploads/images/loja.jpg" {
		t.Fatalf("store image not resolved: %s", page.StoreImage)
	}
	if page.Logo != imageref.DefaultLogo {
		t.Fatalf("expected default logo, got %s", page.Logo)
	}
	html := string(page.DescriptionHTML)
	if !strings.Contains(html, "<strong>Produtos</strong>") || strings.Contains(html, "<script>") {
		t.Fatalf("description not rendered safely: %s", html)
	}
	if !strings.HasPrefix(page.Products[0].OrderLink, "https://wa.me/11999990000?text=") {
		t.Fatalf("unexpected order link %s", page.Products[0].OrderLink)
	}
	if len(page.Benefits) != 1 || page.Status.Message != st.Message {
		t.Fatalf("content or status missing: %+v", page)
	}
}

func TestBuildWithoutSettingsUsesDefaults(t *testing.T) {
	page, err := Build(provider.State{}, status.Evaluate(nil, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)), imageref.NewResolver(nil), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if page.StoreName != "Naturalys" || page.StoreImage != imageref.DefaultStoreImage {
		t.Fatalf("unexpected defaults %+v", page)
	}
	if page.WhatsAppLink != "" {
		t.Fatalf("expected no whatsapp link")
	}
}

func TestBuildReportsLookupErrors(t *testing.T) {
	resolver := imageref.NewResolver(func([]string) (map[string]string, error) {
		return nil, errors.New("db down")
	})
	state := provider.State{Products: []db.Product{{ID: "p", Name: "x", Price: "1", Image: libraryID}}}

	page, err := Build(state, status.Status{}, resolver, nil)
	if err == nil {
		t.Fatalf("expected lookup error")
	}
	if page.Products[0].Image != imageref.DefaultProductImage {
		t.Fatalf("expected placeholder on failure")
	}
}

func TestBuildKeepsInlineImages(t *testing.T) {
	inline := "data:image/png;base64,iVBORw0KGgo="
	libraryInline := "data:image/jpeg;base64,/9j/4AAQ"
	resolver := imageref.NewResolver(func(ids []string) (map[string]string, error) {
		return map[string]string{libraryID: libraryInline}, nil
	})
	state := provider.State{
		Products: []db.Product{{ID: "p", Name: "Mel", Price: "R$ 30", Image: inline}},
		Settings: &db.StoreSettings{StoreName: "Naturalys", StoreImage: libraryID, LogoURL: inline},
	}

	page, err := Build(state, status.Status{}, resolver, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if string(page.Products[0].Image) != inline {
		t.Fatalf("inline product image dropped: %s", page.Products[0].Image)
	}
	if string(page.StoreImage) != libraryInline || string(page.Logo) != inline {
		t.Fatalf("inline store images dropped: %s / %s", page.StoreImage, page.Logo)
	}
}

func TestButtonLinkSchemes(t *testing.T) {
	cases := map[string]string{
		"https://example.com/a":        "https://example.com/a",
		"tel:+5511999990000":           "tel:+5511999990000",
		"whatsapp://send?phone=5511":   "whatsapp://send?phone=5511",
		"mailto:loja@example.com":      "mailto:loja@example.com",
		"/catalogo":                    "/catalogo",
		"javascript:alert(1)":          "#",
		" JavaScript:alert(document) ": "#",
		"":                             "#",
	}
	for raw, want := range cases {
		if got := buttonLink(raw); string(got) != want {
			t.Fatalf("buttonLink(%q) = %q, want %q", raw, got, want)
		}
	}
}
