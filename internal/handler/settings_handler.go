package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/naturalys/internal/service"
	"go.uber.org/zap"
)

type settingsPayload struct {
	StoreName         string `json:"store_name"`
	Description       string `json:"description"`
	WhatsAppNumber    string `json:"whatsapp_number"`
	InstagramHandle   string `json:"instagram_handle"`
	Address           string `json:"address"`
	OpenWeekdays      bool   `json:"open_weekdays"`
	OpenSaturday      bool   `json:"open_saturday"`
	OpenSunday        bool   `json:"open_sunday"`
	WeekdayOpenTime   string `json:"weekday_open_time"`
	WeekdayCloseTime  string `json:"weekday_close_time"`
	SaturdayOpenTime  string `json:"saturday_open_time"`
	SaturdayCloseTime string `json:"saturday_close_time"`
	SundayOpenTime    string `json:"sunday_open_time"`
	SundayCloseTime   string `json:"sunday_close_time"`
}

func (p settingsPayload) toInput() service.StoreSettingsInput {
	return service.StoreSettingsInput{
		StoreName:         p.StoreName,
		Description:       p.Description,
		WhatsAppNumber:    p.WhatsAppNumber,
		InstagramHandle:   p.InstagramHandle,
		Address:           p.Address,
		OpenWeekdays:      p.OpenWeekdays,
		OpenSaturday:      p.OpenSaturday,
		OpenSunday:        p.OpenSunday,
		WeekdayOpenTime:   p.WeekdayOpenTime,
		WeekdayCloseTime:  p.WeekdayCloseTime,
		SaturdayOpenTime:  p.SaturdayOpenTime,
		SaturdayCloseTime: p.SaturdayCloseTime,
		SundayOpenTime:    p.SundayOpenTime,
		SundayCloseTime:   p.SundayCloseTime,
	}
}

type settingsImagesPayload struct {
	StoreImage *string `json:"store_image"`
	LogoURL    *string `json:"logo_url"`
}

// GetSettings 返回店铺配置，不存在时创建默认配置
func (a *API) GetSettings(c *gin.Context) {
	settings, err := a.settings.Get()
	if err != nil {
		a.logger.Error("load store settings", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Erro ao carregar configurações")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateSettings 保存店铺信息与营业时间
func (a *API) UpdateSettings(c *gin.Context) {
	var payload settingsPayload
	if !bindJSON(c, &payload, "Dados de configuração inválidos") {
		return
	}

	settings, err := a.settings.Update(payload.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSettingsInvalidInput):
			respondError(c, http.StatusBadRequest, "O nome da loja é obrigatório")
		case errors.Is(err, service.ErrSettingsInvalidTime):
			respondError(c, http.StatusBadRequest, "Horários devem estar no formato HH:MM")
		case errors.Is(err, service.ErrSettingsInvalidRange):
			respondError(c, http.StatusBadRequest, "O horário de abertura deve ser anterior ao de fechamento")
		default:
			a.logger.Error("update store settings", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "Erro ao salvar configurações")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Configurações salvas com sucesso", "settings": settings})
}

// UpdateSettingsImages 只更新门店照片和 logo
func (a *API) UpdateSettingsImages(c *gin.Context) {
	var payload settingsImagesPayload
	if !bindJSON(c, &payload, "Dados de imagem inválidos") {
		return
	}

	settings, err := a.settings.UpdateImages(payload.StoreImage, payload.LogoURL)
	if err != nil {
		a.logger.Error("update store images", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Erro ao salvar imagens")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Imagens atualizadas com sucesso", "settings": settings})
}
