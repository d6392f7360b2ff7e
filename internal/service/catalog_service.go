package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/realtime"
)

var (
	ErrBrandNotFound          = errors.New("brand not found")
	ErrBrandExists            = errors.New("brand already exists")
	ErrBrandInvalidInput      = errors.New("invalid brand input")
	ErrCatalogProductNotFound = errors.New("catalog product not found")
	ErrCatalogInvalidInput    = errors.New("invalid catalog product input")
)

// CatalogService 维护品牌与目录商品，直接执行 SQL
type CatalogService struct {
	db  *sqlx.DB
	pub Publisher
}

// CatalogProductInput 目录商品可编辑字段
type CatalogProductInput struct {
	Name        string
	Description string
	Image       string
	BrandID     string
}

// NewCatalogService 构造 CatalogService
func NewCatalogService(sdb *sqlx.DB, pub Publisher) *CatalogService {
	return &CatalogService{db: sdb, pub: pub}
}

// ListBrands 按名称排序返回全部品牌
func (s *CatalogService) ListBrands(ctx context.Context) ([]db.Brand, error) {
	brands := []db.Brand{}
	query := `SELECT id, name, created_at, updated_at FROM brands ORDER BY name ASC`
	if err := s.db.SelectContext(ctx, &brands, query); err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return brands, nil
}

// CreateBrand 新建品牌，名称忽略大小写去重
func (s *CatalogService) CreateBrand(ctx context.Context, name string) (*db.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrBrandInvalidInput)
	}

	var count int
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(`SELECT COUNT(*) FROM brands WHERE LOWER(name) = LOWER(?)`), name); err != nil {
		return nil, fmt.Errorf("check brand: %w", err)
	}
	if count > 0 {
		return nil, ErrBrandExists
	}

	now := time.Now().UTC()
	brand := db.Brand{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	insert := `INSERT INTO brands (id, name, created_at, updated_at) VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, insert, brand); err != nil {
		return nil, fmt.Errorf("create brand: %w", err)
	}

	notify(s.pub, db.TableBrands, realtime.EventInsert, brand.ID)
	return &brand, nil
}

// DeleteBrand 删除品牌及其下所有目录商品
func (s *CatalogService) DeleteBrand(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete brand: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM catalog_products WHERE brand_id = ?`), id); err != nil {
		return fmt.Errorf("delete brand products: %w", err)
	}
	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM brands WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete brand: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrBrandNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete brand: %w", err)
	}

	notify(s.pub, db.TableBrands, realtime.EventDelete, id)
	return nil
}

// ListProducts 返回目录商品，brandID 非空时只返回该品牌
func (s *CatalogService) ListProducts(ctx context.Context, brandID string) ([]db.CatalogProduct, error) {
	items := []db.CatalogProduct{}
	query := `SELECT id, name, description, image, brand_id, created_at, updated_at FROM catalog_products`
	args := []interface{}{}
	if brandID = strings.TrimSpace(brandID); brandID != "" {
		query += ` WHERE brand_id = ?`
		args = append(args, brandID)
	}
	query += ` ORDER BY name ASC`

	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list catalog products: %w", err)
	}
	return items, nil
}

// GetProduct 根据主键读取目录商品
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*db.CatalogProduct, error) {
	var item db.CatalogProduct
	query := s.db.Rebind(`SELECT id, name, description, image, brand_id, created_at, updated_at FROM catalog_products WHERE id = ?`)
	if err := s.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCatalogProductNotFound
		}
		return nil, fmt.Errorf("get catalog product: %w", err)
	}
	return &item, nil
}

// CreateProduct 新建目录商品，品牌必须存在
func (s *CatalogService) CreateProduct(ctx context.Context, input CatalogProductInput) (*db.CatalogProduct, error) {
	input = normalizeCatalogInput(input)
	if err := s.validateCatalogInput(ctx, input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := db.CatalogProduct{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Image:       input.Image,
		BrandID:     input.BrandID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	insert := `INSERT INTO catalog_products (id, name, description, image, brand_id, created_at, updated_at)
		VALUES (:id, :name, :description, :image, :brand_id, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, insert, item); err != nil {
		return nil, fmt.Errorf("create catalog product: %w", err)
	}

	notify(s.pub, db.TableCatalogProducts, realtime.EventInsert, item.ID)
	return &item, nil
}

// UpdateProduct 更新目录商品
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input CatalogProductInput) (*db.CatalogProduct, error) {
	input = normalizeCatalogInput(input)
	if err := s.validateCatalogInput(ctx, input); err != nil {
		return nil, err
	}

	item, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Name = input.Name
	item.Description = input.Description
	item.Image = input.Image
	item.BrandID = input.BrandID
	item.UpdatedAt = time.Now().UTC()

	update := `UPDATE catalog_products SET name = :name, description = :description, image = :image,
		brand_id = :brand_id, updated_at = :updated_at WHERE id = :id`
	if _, err := s.db.NamedExecContext(ctx, update, item); err != nil {
		return nil, fmt.Errorf("update catalog product: %w", err)
	}

	notify(s.pub, db.TableCatalogProducts, realtime.EventUpdate, item.ID)
	return item, nil
}

// DeleteProduct 删除目录商品
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM catalog_products WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete catalog product: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrCatalogProductNotFound
	}

	notify(s.pub, db.TableCatalogProducts, realtime.EventDelete, id)
	return nil
}

func (s *CatalogService) validateCatalogInput(ctx context.Context, input CatalogProductInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if input.BrandID == "" {
		return fmt.Errorf("%w: brand is required", ErrCatalogInvalidInput)
	}

	var count int
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(`SELECT COUNT(*) FROM brands WHERE id = ?`), input.BrandID); err != nil {
		return fmt.Errorf("check brand: %w", err)
	}
	if count == 0 {
		return ErrBrandNotFound
	}
	return nil
}

func normalizeCatalogInput(input CatalogProductInput) CatalogProductInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Image = strings.TrimSpace(input.Image)
	input.BrandID = strings.TrimSpace(input.BrandID)
	return input
}
