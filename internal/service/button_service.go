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
	ErrButtonNotFound      = errors.New("main button not found")
	ErrButtonInvalidInput  = errors.New("invalid main button input")
	ErrButtonStatusInvalid = errors.New("main button status is invalid")
)

const defaultButtonIcon = "🔗"

// ButtonService handles CRUD for the storefront promotional buttons.
type ButtonService struct {
	db  *gorm.DB
	pub Publisher
}

// ButtonInput represents fields accepted when creating or updating a button.
type ButtonInput struct {
	Icon        string
	Name        string
	Description string
	Link        string
	Status      string
	OrderIndex  *int
}

// NewButtonService creates a ButtonService instance.
func NewButtonService(gdb *gorm.DB, pub Publisher) *ButtonService {
	return &ButtonService{db: gdb, pub: pub}
}

// ListOrdered returns every button ordered by order_index.
func (s *ButtonService) ListOrdered() ([]db.MainButton, error) {
	var items []db.MainButton
	if err := s.db.Order("order_index ASC").Order("created_at ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list main buttons: %w", err)
	}
	return items, nil
}

// Get fetches a button by id.
func (s *ButtonService) Get(id string) (*db.MainButton, error) {
	var item db.MainButton
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrButtonNotFound
		}
		return nil, fmt.Errorf("get main button: %w", err)
	}
	return &item, nil
}

// Create inserts a new button at the end of the list unless an order is given.
func (s *ButtonService) Create(input ButtonInput) (*db.MainButton, error) {
	status, err := validateButtonInput(input)
	if err != nil {
		return nil, err
	}

	orderIndex := 0
	if input.OrderIndex != nil {
		orderIndex = *input.OrderIndex
	} else if orderIndex, err = nextOrderIndex(s.db, &db.MainButton{}); err != nil {
		return nil, err
	}

	item := db.MainButton{
		Icon:        normalizeButtonIcon(input.Icon),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Link:        strings.TrimSpace(input.Link),
		Status:      status,
		OrderIndex:  orderIndex,
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create main button: %w", err)
	}

	notify(s.pub, db.TableMainButtons, realtime.EventInsert, item.ID)
	return &item, nil
}

// Update modifies an existing button.
func (s *ButtonService) Update(id string, input ButtonInput) (*db.MainButton, error) {
	status, err := validateButtonInput(input)
	if err != nil {
		return nil, err
	}

	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	item.Icon = normalizeButtonIcon(input.Icon)
	item.Name = strings.TrimSpace(input.Name)
	item.Description = strings.TrimSpace(input.Description)
	item.Link = strings.TrimSpace(input.Link)
	item.Status = status
	if input.OrderIndex != nil {
		item.OrderIndex = *input.OrderIndex
	}

	if err := s.db.Save(item).Error; err != nil {
		return nil, fmt.Errorf("update main button: %w", err)
	}

	notify(s.pub, db.TableMainButtons, realtime.EventUpdate, item.ID)
	return item, nil
}

// Delete removes a button.
func (s *ButtonService) Delete(id string) error {
	result := s.db.Delete(&db.MainButton{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete main button: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrButtonNotFound
	}

	notify(s.pub, db.TableMainButtons, realtime.EventDelete, id)
	return nil
}

// Reorder rewrites order_index following the given id sequence.
func (s *ButtonService) Reorder(ids []string) error {
	if err := reorder(s.db, &db.MainButton{}, ids); err != nil {
		return err
	}
	notify(s.pub, db.TableMainButtons, realtime.EventUpdate, "")
	return nil
}

func validateButtonInput(input ButtonInput) (string, error) {
	if strings.TrimSpace(input.Name) == "" {
		return "", fmt.Errorf("%w: name is required", ErrButtonInvalidInput)
	}
	if strings.TrimSpace(input.Link) == "" {
		return "", fmt.Errorf("%w: link is required", ErrButtonInvalidInput)
	}
	return normalizeButtonStatus(input.Status)
}

// normalizeButtonStatus 空值视为 normal，highlight 视为 destaque 的别名
func normalizeButtonStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", db.ButtonStatusNormal:
		return db.ButtonStatusNormal, nil
	case db.ButtonStatusHighlight, "highlight":
		return db.ButtonStatusHighlight, nil
	default:
		return "", ErrButtonStatusInvalid
	}
}

func normalizeButtonIcon(icon string) string {
	icon = strings.TrimSpace(icon)
	if icon == "" {
		return defaultButtonIcon
	}
	return icon
}
