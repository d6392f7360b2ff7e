package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/naturalys/internal/service"
	"go.uber.org/zap"
)

type brandRequest struct {
	Name string `json:"name" binding:"required"`
}

type catalogProductPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	BrandID     string `json:"brand_id"`
}

func (p catalogProductPayload) toInput() service.CatalogProductInput {
	return service.CatalogProductInput{
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		BrandID:     p.BrandID,
	}
}

// GetBrands 按名称列出品牌
func (a *API) GetBrands(c *gin.Context) {
	brands, err := a.catalog.ListBrands(c.Request.Context())
	if err != nil {
		a.logger.Error("list brands", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Erro ao carregar marcas")
		return
	}
	c.JSON(http.StatusOK, gin.H{"brands": brands})
}

// CreateBrand 新增品牌，名称不区分大小写唯一
func (a *API) CreateBrand(c *gin.Context) {
	var req brandRequest
	if !bindJSON(c, &req, "O nome da marca é obrigatório") {
		return
	}

	brand, err := a.catalog.CreateBrand(c.Request.Context(), req.Name)
	if err != nil {
		a.respondCatalogError(c, err, "Erro ao criar marca")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Marca criada com sucesso", "brand": brand})
}

// DeleteBrand 删除品牌及其目录商品
func (a *API) DeleteBrand(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "ID de marca inválido")
		return
	}

	if err := a.catalog.DeleteBrand(c.Request.Context(), id); err != nil {
		a.respondCatalogError(c, err, "Erro ao excluir marca")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Marca excluída com sucesso"})
}

// GetCatalogProducts 列出目录商品，可按 brand_id 过滤
func (a *API) GetCatalogProducts(c *gin.Context) {
	products, err := a.catalog.ListProducts(c.Request.Context(), strings.TrimSpace(c.Query("brand_id")))
	if err != nil {
		a.logger.Error("list catalog products", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Erro ao carregar catálogo")
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetCatalogProduct 返回单个目录商品
func (a *API) GetCatalogProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "ID de produto inválido")
		return
	}

	product, err := a.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		a.respondCatalogError(c, err, "Erro ao carregar produto")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// CreateCatalogProduct 新增目录商品
func (a *API) CreateCatalogProduct(c *gin.Context) {
	var payload catalogProductPayload
	if !bindJSON(c, &payload, "Dados do produto inválidos") {
		return
	}

	product, err := a.catalog.CreateProduct(c.Request.Context(), payload.toInput())
	if err != nil {
		a.respondCatalogError(c, err, "Erro ao criar produto")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Produto adicionado ao catálogo", "product": product})
}

// UpdateCatalogProduct 更新目录商品
func (a *API) UpdateCatalogProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "ID de produto inválido")
		return
	}

	var payload catalogProductPayload
	if !bindJSON(c, &payload, "Dados do produto inválidos") {
		return
	}

	product, err := a.catalog.UpdateProduct(c.Request.Context(), id, payload.toInput())
	if err != nil {
		a.respondCatalogError(c, err, "Erro ao atualizar produto")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Produto atualizado com sucesso", "product": product})
}

// DeleteCatalogProduct 删除目录商品
func (a *API) DeleteCatalogProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "ID de produto inválido")
		return
	}

	if err := a.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		a.respondCatalogError(c, err, "Erro ao excluir produto")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Produto excluído com sucesso"})
}

func (a *API) respondCatalogError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrBrandExists):
		respondError(c, http.StatusConflict, "Já existe uma marca com esse nome")
	case errors.Is(err, service.ErrBrandInvalidInput):
		respondError(c, http.StatusBadRequest, "O nome da marca é obrigatório")
	case errors.Is(err, service.ErrBrandNotFound):
		respondError(c, http.StatusNotFound, "Marca não encontrada")
	case errors.Is(err, service.ErrCatalogInvalidInput):
		respondError(c, http.StatusBadRequest, "Nome e marca são obrigatórios")
	case errors.Is(err, service.ErrCatalogProductNotFound):
		respondError(c, http.StatusNotFound, "Produto não encontrado")
	default:
		a.logger.Error(fallback, zap.Error(err))
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
