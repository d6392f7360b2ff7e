package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/naturalys/internal/service"
	"go.uber.org/zap"
)

type productPayload struct {
	Name       string `json:"name"`
	Price      string `json:"price"`
	PromoPrice string `json:"promo_price"`
	Image      string `json:"image"`
	OrderIndex *int   `json:"order_index"`
}

func (p productPayload) toInput() service.ProductInput {
	return service.ProductInput{
		Name:       p.Name,
		Price:      p.Price,
		PromoPrice: p.PromoPrice,
		Image:      p.Image,
		OrderIndex: p.OrderIndex,
	}
}

type reorderPayload struct {
	IDs []string `json:"ids" binding:"required"`
}

// GetProducts 按 order_index 返回商品列表
func (a *API) GetProducts(c *gin.Context) {
	products, err := a.products.ListOrdered()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Erro ao carregar produtos")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// CreateProduct 新增商品，未指定顺序时追加到末尾
func (a *API) CreateProduct(c *gin.Context) {
	var payload productPayload
	if !bindJSON(c, &payload, "Dados do produto inválidos") {
		return
	}

	product, err := a.products.Create(payload.toInput())
	if err != nil {
		a.respondProductError(c, err, "Erro ao criar produto")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Produto criado com sucesso", "product": product})
}

// UpdateProduct 更新商品
func (a *API) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "ID de produto inválido")
		return
	}

	var payload productPayload
	if !bindJSON(c, &payload, "Dados do produto inválidos") {
		return
	}

	product, err := a.products.Update(id, payload.toInput())
	if err != nil {
		a.respondProductError(c, err, "Erro ao atualizar produto")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Produto atualizado com sucesso", "product": product})
}

// DeleteProduct 删除商品
func (a *API) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "ID de produto inválido")
		return
	}

	if err := a.products.Delete(id); err != nil {
		a.respondProductError(c, err, "Erro ao excluir produto")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Produto excluído com sucesso"})
}

// ReorderProducts 按提交的 ID 顺序重写 order_index
func (a *API) ReorderProducts(c *gin.Context) {
	var payload reorderPayload
	if !bindJSON(c, &payload, "Lista de IDs inválida") {
		return
	}

	if err := a.products.Reorder(payload.IDs); err != nil {
		a.respondProductError(c, err, "Erro ao reordenar produtos")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ordem atualizada"})
}

func (a *API) respondProductError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrProductInvalidInput):
		respondError(c, http.StatusBadRequest, "Nome e preço são obrigatórios")
	case errors.Is(err, service.ErrProductNotFound):
		respondError(c, http.StatusNotFound, "Produto não encontrado")
	default:
		a.logger.Error(fallback, zap.Error(err))
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
