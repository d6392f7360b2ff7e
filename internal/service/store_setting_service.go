package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/realtime"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrSettingsInvalidTime 营业时间不是 HH:MM
	ErrSettingsInvalidTime = errors.New("store hours must use HH:MM")
	// ErrSettingsInvalidRange 营业分组开启时必须 open < close
	ErrSettingsInvalidRange = errors.New("store opening time must be before closing time")
	// ErrSettingsInvalidInput 店铺名称为空
	ErrSettingsInvalidInput = errors.New("invalid store settings input")
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// StoreSettingService 管理唯一的 store_settings 行
type StoreSettingService struct {
	db  *gorm.DB
	pub Publisher
}

// StoreSettingsInput 后台保存店铺配置时提交的字段
type StoreSettingsInput struct {
	StoreName         string
	Description       string
	WhatsAppNumber    string
	InstagramHandle   string
	Address           string
	OpenWeekdays      bool
	OpenSaturday      bool
	OpenSunday        bool
	WeekdayOpenTime   string
	WeekdayCloseTime  string
	SaturdayOpenTime  string
	SaturdayCloseTime string
	SundayOpenTime    string
	SundayCloseTime   string
}

// NewStoreSettingService 构造 StoreSettingService
func NewStoreSettingService(gdb *gorm.DB, pub Publisher) *StoreSettingService {
	return &StoreSettingService{db: gdb, pub: pub}
}

// Get 读取第一行配置，表为空时写入默认配置
func (s *StoreSettingService) Get() (*db.StoreSettings, error) {
	var settings db.StoreSettings
	err := s.db.Order("created_at ASC").First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load store settings: %w", err)
	}

	// 默认行使用固定主键，并发初始化时只有一次插入生效
	settings = db.DefaultStoreSettings()
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&settings)
	if result.Error != nil {
		return nil, fmt.Errorf("create default store settings: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		notify(s.pub, db.TableStoreSettings, realtime.EventInsert, settings.ID)
	}

	var current db.StoreSettings
	if err := s.db.Order("created_at ASC").First(&current).Error; err != nil {
		return nil, fmt.Errorf("load store settings: %w", err)
	}
	return &current, nil
}

// Update 校验并覆盖店铺配置，图片字段不在此处修改
func (s *StoreSettingService) Update(input StoreSettingsInput) (*db.StoreSettings, error) {
	input = normalizeSettingsInput(input)
	if err := validateSettingsInput(input); err != nil {
		return nil, err
	}

	settings, err := s.Get()
	if err != nil {
		return nil, err
	}

	settings.StoreName = input.StoreName
	settings.Description = input.Description
	settings.WhatsAppNumber = input.WhatsAppNumber
	settings.InstagramHandle = input.InstagramHandle
	settings.Address = input.Address
	settings.OpenWeekdays = input.OpenWeekdays
	settings.OpenSaturday = input.OpenSaturday
	settings.OpenSunday = input.OpenSunday
	settings.WeekdayOpenTime = input.WeekdayOpenTime
	settings.WeekdayCloseTime = input.WeekdayCloseTime
	settings.SaturdayOpenTime = input.SaturdayOpenTime
	settings.SaturdayCloseTime = input.SaturdayCloseTime
	settings.SundayOpenTime = input.SundayOpenTime
	settings.SundayCloseTime = input.SundayCloseTime

	if err := s.db.Save(settings).Error; err != nil {
		return nil, fmt.Errorf("update store settings: %w", err)
	}

	notify(s.pub, db.TableStoreSettings, realtime.EventUpdate, settings.ID)
	return settings, nil
}

// UpdateImages 只更新门店照片和 logo，nil 表示不修改
func (s *StoreSettingService) UpdateImages(storeImage, logoURL *string) (*db.StoreSettings, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if storeImage != nil {
		updates["store_image"] = strings.TrimSpace(*storeImage)
	}
	if logoURL != nil {
		updates["logo_url"] = strings.TrimSpace(*logoURL)
	}
	if len(updates) == 0 {
		return settings, nil
	}

	if err := s.db.Model(settings).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update store images: %w", err)
	}

	notify(s.pub, db.TableStoreSettings, realtime.EventUpdate, settings.ID)
	return s.Get()
}

func normalizeSettingsInput(input StoreSettingsInput) StoreSettingsInput {
	input.StoreName = strings.TrimSpace(input.StoreName)
	input.Description = strings.TrimSpace(input.Description)
	input.WhatsAppNumber = strings.TrimSpace(input.WhatsAppNumber)
	input.InstagramHandle = strings.TrimPrefix(strings.TrimSpace(input.InstagramHandle), "@")
	input.Address = strings.TrimSpace(input.Address)
	input.WeekdayOpenTime = strings.TrimSpace(input.WeekdayOpenTime)
	input.WeekdayCloseTime = strings.TrimSpace(input.WeekdayCloseTime)
	input.SaturdayOpenTime = strings.TrimSpace(input.SaturdayOpenTime)
	input.SaturdayCloseTime = strings.TrimSpace(input.SaturdayCloseTime)
	input.SundayOpenTime = strings.TrimSpace(input.SundayOpenTime)
	input.SundayCloseTime = strings.TrimSpace(input.SundayCloseTime)
	return input
}

func validateSettingsInput(input StoreSettingsInput) error {
	if input.StoreName == "" {
		return fmt.Errorf("%w: store name is required", ErrSettingsInvalidInput)
	}

	groups := []struct {
		open        bool
		start, stop string
	}{
		{input.OpenWeekdays, input.WeekdayOpenTime, input.WeekdayCloseTime},
		{input.OpenSaturday, input.SaturdayOpenTime, input.SaturdayCloseTime},
		{input.OpenSunday, input.SundayOpenTime, input.SundayCloseTime},
	}
	for _, g := range groups {
		for _, value := range []string{g.start, g.stop} {
			if value != "" && !clockPattern.MatchString(value) {
				return fmt.Errorf("%w: %q", ErrSettingsInvalidTime, value)
			}
		}
		if !g.open {
			continue
		}
		if g.start == "" || g.stop == "" {
			return fmt.Errorf("%w: open days need both times", ErrSettingsInvalidTime)
		}
		if g.start >= g.stop {
			return ErrSettingsInvalidRange
		}
	}
	return nil
}
