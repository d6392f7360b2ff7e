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
	ErrImageNotFound     = errors.New("image asset not found")
	ErrImageInvalidInput = errors.New("invalid image asset input")
)

const defaultImagePageSize = 100

// ImageAssetService manages the admin image library.
type ImageAssetService struct {
	db  *gorm.DB
	pub Publisher
}

// ImageFilter narrows the library listing. Tags must all be present on an asset.
type ImageFilter struct {
	Active *bool
	Tags   []string
	Limit  int
	Offset int
}

// ImageAssetInput represents editable library metadata.
// FilePath, StorageKey, FileType and FileSize come from the upload step.
type ImageAssetInput struct {
	Title       string
	Description string
	FilePath    string
	StorageKey  string
	FileType    string
	FileSize    int64
	AltText     string
	Tags        []string
	IsActive    *bool
}

// NewImageAssetService creates an ImageAssetService instance.
func NewImageAssetService(gdb *gorm.DB, pub Publisher) *ImageAssetService {
	return &ImageAssetService{db: gdb, pub: pub}
}

// List returns library assets newest first.
func (s *ImageAssetService) List(filter ImageFilter) ([]db.ImageAsset, error) {
	query := s.db.Model(&db.ImageAsset{})
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}

	var items []db.ImageAsset
	if err := query.Order("created_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	// tags 以 JSON 文本保存，包含关系在内存中判断
	wanted := normalizeTags(filter.Tags)
	if len(wanted) > 0 {
		filtered := items[:0]
		for _, item := range items {
			if hasAllTags(item.Tags, wanted) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	offset := normalizeOffset(filter.Offset)
	limit := normalizeLimit(filter.Limit, defaultImagePageSize)
	if offset >= len(items) {
		return []db.ImageAsset{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

// Get fetches an asset by id.
func (s *ImageAssetService) Get(id string) (*db.ImageAsset, error) {
	var item db.ImageAsset
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("get image: %w", err)
	}
	return &item, nil
}

// Create stores metadata for an uploaded image. New assets are active unless told otherwise.
func (s *ImageAssetService) Create(input ImageAssetInput) (*db.ImageAsset, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrImageInvalidInput)
	}
	if strings.TrimSpace(input.FilePath) == "" {
		return nil, fmt.Errorf("%w: file path is required", ErrImageInvalidInput)
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	item := db.ImageAsset{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		FilePath:    strings.TrimSpace(input.FilePath),
		StorageKey:  strings.TrimSpace(input.StorageKey),
		FileType:    strings.TrimSpace(input.FileType),
		FileSize:    input.FileSize,
		AltText:     strings.TrimSpace(input.AltText),
		Tags:        normalizeTags(input.Tags),
		IsActive:    active,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}

	notify(s.pub, db.TableImages, realtime.EventInsert, item.ID)
	return &item, nil
}

// Update changes metadata only; the stored file stays as uploaded.
func (s *ImageAssetService) Update(id string, input ImageAssetInput) (*db.ImageAsset, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrImageInvalidInput)
	}

	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	item.Title = strings.TrimSpace(input.Title)
	item.Description = strings.TrimSpace(input.Description)
	item.AltText = strings.TrimSpace(input.AltText)
	item.Tags = normalizeTags(input.Tags)
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}

	// Save 会忽略零值的 bool，这里显式列出字段
	if err := s.db.Model(item).Select("title", "description", "alt_text", "tags", "is_active").Updates(item).Error; err != nil {
		return nil, fmt.Errorf("update image: %w", err)
	}

	notify(s.pub, db.TableImages, realtime.EventUpdate, item.ID)
	return item, nil
}

// Delete removes the row and returns it so the caller can remove the stored object.
func (s *ImageAssetService) Delete(id string) (*db.ImageAsset, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Delete(item).Error; err != nil {
		return nil, fmt.Errorf("delete image: %w", err)
	}

	notify(s.pub, db.TableImages, realtime.EventDelete, item.ID)
	return item, nil
}

// LookupURLs maps active asset ids to their file paths in a single query.
// Unknown or inactive ids are absent from the result.
func (s *ImageAssetService) LookupURLs(ids []string) (map[string]string, error) {
	result := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var items []db.ImageAsset
	if err := s.db.Select("id", "file_path").
		Where("id IN ?", ids).
		Where("is_active = ?", true).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("lookup images: %w", err)
	}
	for _, item := range items {
		result[item.ID] = item.FilePath
	}
	return result, nil
}

// ParseTags splits a comma separated tag list.
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return normalizeTags(strings.Split(raw, ","))
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		result = append(result, tag)
	}
	return result
}

func hasAllTags(have, wanted []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, tag := range have {
		set[strings.ToLower(tag)] = struct{}{}
	}
	for _, tag := range wanted {
		if _, ok := set[tag]; !ok {
			return false
		}
	}
	return true
}
