package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/naturalys/internal/config"
	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/service"
)

// 演示数据生成器
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := db.Init(cfg.DatabaseDriver, cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}
	sdb, err := db.NewSQLX(db.DB)
	if err != nil {
		log.Fatal("sqlx 初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	if _, err := db.EnsureUser(db.DB, "admin", "admin123"); err != nil {
		log.Fatal("创建管理员失败:", err)
	}
	// 直接写库，不经过实时推送
	if err := seedStore(context.Background(), service.NewRegistry(db.DB, sdb, nil)); err != nil {
		log.Fatal("生成测试数据失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Println("用户: admin (密码: admin123)")
}

var demoProducts = []service.ProductInput{
	{Name: "Granola Artesanal 500g", Price: "R$ 24,90", PromoPrice: "R$ 19,90"},
	{Name: "Mel Silvestre 300g", Price: "R$ 32,00"},
	{Name: "Castanha do Pará 200g", Price: "R$ 18,50"},
	{Name: "Chá Verde Orgânico", Price: "R$ 14,90", PromoPrice: "R$ 12,90"},
	{Name: "Pasta de Amendoim Integral", Price: "R$ 21,00"},
}

var demoButtons = []service.ButtonInput{
	{Icon: "🛒", Name: "Catálogo completo", Description: "Veja todos os produtos", Link: "https://example.com/catalogo", Status: db.ButtonStatusNormal},
	{Icon: "🔥", Name: "Promoções da semana", Description: "Ofertas por tempo limitado", Link: "https://example.com/promocoes", Status: db.ButtonStatusHighlight},
	{Icon: "📍", Name: "Como chegar", Link: "https://maps.google.com/?q=Naturalys", Status: db.ButtonStatusNormal},
}

var demoBrands = []string{"Mãe Terra", "Jasmine", "Native"}

// seedStore 写入演示用的店铺数据，已有商品时跳过
func seedStore(ctx context.Context, reg *service.Registry) error {
	existing, err := reg.Products.ListOrdered()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		fmt.Println("商品已存在，跳过创建")
		return nil
	}

	if _, err := reg.Settings.Update(service.StoreSettingsInput{
		StoreName:         "Naturalys",
		Description:       "Produtos **naturais** e saudáveis para o seu dia a dia.",
		WhatsAppNumber:    "(11) 99999-0000",
		InstagramHandle:   "@naturalys",
		Address:           "Rua das Flores, 123 - Centro",
		OpenWeekdays:      true,
		OpenSaturday:      true,
		WeekdayOpenTime:   "08:00",
		WeekdayCloseTime:  "19:00",
		SaturdayOpenTime:  "08:00",
		SaturdayCloseTime: "13:00",
		SundayOpenTime:    "08:00",
		SundayCloseTime:   "12:00",
	}); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	fmt.Println("✅ 店铺配置创建完成")

	for _, input := range demoProducts {
		if _, err := reg.Products.Create(input); err != nil {
			return fmt.Errorf("product %q: %w", input.Name, err)
		}
	}
	fmt.Println("✅ 测试商品创建完成")

	for _, input := range demoButtons {
		if _, err := reg.Buttons.Create(input); err != nil {
			return fmt.Errorf("button %q: %w", input.Name, err)
		}
	}
	fmt.Println("✅ 测试按钮创建完成")

	for _, name := range demoBrands {
		brand, err := reg.Catalog.CreateBrand(ctx, name)
		if errors.Is(err, service.ErrBrandExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("brand %q: %w", name, err)
		}
		if _, err := reg.Catalog.CreateProduct(ctx, service.CatalogProductInput{
			Name:    name + " Linha Tradicional",
			BrandID: brand.ID,
		}); err != nil {
			return fmt.Errorf("catalog product for %q: %w", name, err)
		}
	}
	fmt.Println("✅ 测试品牌与目录创建完成")
	return nil
}
