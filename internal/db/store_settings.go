package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StoreSettings 店铺配置，整张表只应存在一行。
// 营业时间按 工作日 / 周六 / 周日 三个分组保存，时间为 "HH:MM" 字符串。
type StoreSettings struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	StoreName         string    `gorm:"size:120" json:"store_name"`
	Description       string    `gorm:"type:text" json:"description"`
	WhatsAppNumber    string    `gorm:"column:whatsapp_number;size:40" json:"whatsapp_number"`
	InstagramHandle   string    `gorm:"size:80" json:"instagram_handle"`
	Address           string    `gorm:"size:255" json:"address"`
	OpenWeekdays      bool      `json:"open_weekdays"`
	OpenSaturday      bool      `json:"open_saturday"`
	OpenSunday        bool      `json:"open_sunday"`
	WeekdayOpenTime   string    `gorm:"size:5" json:"weekday_open_time"`
	WeekdayCloseTime  string    `gorm:"size:5" json:"weekday_close_time"`
	SaturdayOpenTime  string    `gorm:"size:5" json:"saturday_open_time"`
	SaturdayCloseTime string    `gorm:"size:5" json:"saturday_close_time"`
	SundayOpenTime    string    `gorm:"size:5" json:"sunday_open_time"`
	SundayCloseTime   string    `gorm:"size:5" json:"sunday_close_time"`
	StoreImage        string    `gorm:"size:16777216" json:"store_image"`
	LogoURL           string    `gorm:"size:16777216" json:"logo_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName 自定义表名以保持命名一致。
func (StoreSettings) TableName() string {
	return "store_settings"
}

// BeforeCreate 在插入前生成 UUID 主键
func (s *StoreSettings) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// DefaultStoreSettingsID 空表时写入的默认行主键
const DefaultStoreSettingsID = "00000000-0000-0000-0000-000000000001"

// DefaultStoreSettings 返回空表时写入的初始配置。
func DefaultStoreSettings() StoreSettings {
	return StoreSettings{
		ID:          DefaultStoreSettingsID,
		StoreName:   "Naturalys",
		Description: "Produtos Naturais",
	}
}
