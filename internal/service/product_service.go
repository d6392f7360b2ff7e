package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/realtime"
	"gorm.io/gorm"
)

var (
	// ErrProductNotFound 在指定商品不存在时返回
	ErrProductNotFound = errors.New("product not found")
	// ErrProductInvalidInput 在名称或价格缺失时返回
	ErrProductInvalidInput = errors.New("invalid product input")
)

// ProductService 负责首页商品的增删改查与排序
type ProductService struct {
	db  *gorm.DB
	pub Publisher
}

// ProductInput 创建或更新商品时可设置的字段
// OrderIndex 使用指针判断是否显式传入
type ProductInput struct {
	Name       string
	Price      string
	PromoPrice string
	Image      string
	OrderIndex *int
}

// NewProductService 构造 ProductService
func NewProductService(gdb *gorm.DB, pub Publisher) *ProductService {
	return &ProductService{db: gdb, pub: pub}
}

// ListOrdered 按 order_index 升序返回全部商品
func (s *ProductService) ListOrdered() ([]db.Product, error) {
	var items []db.Product
	if err := s.db.Order("order_index ASC").Order("created_at ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return items, nil
}

// Get 根据主键获取商品
func (s *ProductService) Get(id string) (*db.Product, error) {
	var item db.Product
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &item, nil
}

// Create 新建商品，未指定排序时追加到末尾
func (s *ProductService) Create(input ProductInput) (*db.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	orderIndex := 0
	if input.OrderIndex != nil {
		orderIndex = *input.OrderIndex
	} else {
		next, err := nextOrderIndex(s.db, &db.Product{})
		if err != nil {
			return nil, err
		}
		orderIndex = next
	}

	item := db.Product{
		Name:       strings.TrimSpace(input.Name),
		Price:      strings.TrimSpace(input.Price),
		PromoPrice: strings.TrimSpace(input.PromoPrice),
		Image:      strings.TrimSpace(input.Image),
		OrderIndex: orderIndex,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	notify(s.pub, db.TableProducts, realtime.EventInsert, item.ID)
	return &item, nil
}

// Update 更新指定商品，OrderIndex 为空时保持原排序
func (s *ProductService) Update(id string, input ProductInput) (*db.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	item.Name = strings.TrimSpace(input.Name)
	item.Price = strings.TrimSpace(input.Price)
	item.PromoPrice = strings.TrimSpace(input.PromoPrice)
	item.Image = strings.TrimSpace(input.Image)
	if input.OrderIndex != nil {
		item.OrderIndex = *input.OrderIndex
	}

	if err := s.db.Save(item).Error; err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	notify(s.pub, db.TableProducts, realtime.EventUpdate, item.ID)
	return item, nil
}

// Delete 删除指定商品
func (s *ProductService) Delete(id string) error {
	result := s.db.Delete(&db.Product{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	notify(s.pub, db.TableProducts, realtime.EventDelete, id)
	return nil
}

// Reorder 按传入顺序重排商品
func (s *ProductService) Reorder(ids []string) error {
	if err := reorder(s.db, &db.Product{}, ids); err != nil {
		return err
	}
	notify(s.pub, db.TableProducts, realtime.EventUpdate, "")
	return nil
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrProductInvalidInput)
	}
	if strings.TrimSpace(input.Price) == "" {
		return fmt.Errorf("%w: price is required", ErrProductInvalidInput)
	}
	return nil
}
