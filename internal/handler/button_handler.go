package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/naturalys/internal/service"
	"go.uber.org/zap"
)

type buttonPayload struct {
	Icon        string `json:"icon"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Status      string `json:"status"`
	OrderIndex  *int   `json:"order_index"`
}

func (p buttonPayload) toInput() service.ButtonInput {
	return service.ButtonInput{
		Icon:        p.Icon,
		Name:        p.Name,
		Description: p.Description,
		Link:        p.Link,
		Status:      p.Status,
		OrderIndex:  p.OrderIndex,
	}
}

// GetButtons 返回全部按钮
func (a *API) GetButtons(c *gin.Context) {
	buttons, err := a.buttons.ListOrdered()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Erro ao carregar botões")
		return
	}
	c.JSON(http.StatusOK, gin.H{"main_buttons": buttons})
}

// CreateButton 新增按钮
func (a *API) CreateButton(c *gin.Context) {
	var payload buttonPayload
	if !bindJSON(c, &payload, "Dados do botão inválidos") {
		return
	}

	button, err := a.buttons.Create(payload.toInput())
	if err != nil {
		a.respondButtonError(c, err, "Erro ao criar botão")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Botão criado com sucesso", "main_button": button})
}

// UpdateButton 更新按钮
func (a *API) UpdateButton(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "ID de botão inválido")
		return
	}

	var payload buttonPayload
	if !bindJSON(c, &payload, "Dados do botão inválidos") {
		return
	}

	button, err := a.buttons.Update(id, payload.toInput())
	if err != nil {
		a.respondButtonError(c, err, "Erro ao atualizar botão")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Botão atualizado com sucesso", "main_button": button})
}

// DeleteButton 删除按钮
func (a *API) DeleteButton(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "ID de botão inválido")
		return
	}

	if err := a.buttons.Delete(id); err != nil {
		a.respondButtonError(c, err, "Erro ao excluir botão")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Botão excluído com sucesso"})
}

// ReorderButtons 重排按钮
func (a *API) ReorderButtons(c *gin.Context) {
	var payload reorderPayload
	if !bindJSON(c, &payload, "Lista de IDs inválida") {
		return
	}

	if err := a.buttons.Reorder(payload.IDs); err != nil {
		a.respondButtonError(c, err, "Erro ao reordenar botões")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ordem atualizada"})
}

func (a *API) respondButtonError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrButtonInvalidInput):
		respondError(c, http.StatusBadRequest, "Nome e link são obrigatórios")
	case errors.Is(err, service.ErrButtonStatusInvalid):
		respondError(c, http.StatusBadRequest, "Status deve ser normal ou destaque")
	case errors.Is(err, service.ErrButtonNotFound):
		respondError(c, http.StatusNotFound, "Botão não encontrado")
	default:
		a.logger.Error(fallback, zap.Error(err))
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
