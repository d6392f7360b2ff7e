package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/naturalys/internal/service"
	"github.com/naturalys/internal/storage"
	"github.com/naturalys/internal/upload"
	"go.uber.org/zap"
)

// 图片库保留较大的尺寸，首页使用时再由浏览器缩放
const libraryMaxDimension = 1600

type imagePayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	AltText     string   `json:"alt_text"`
	Tags        []string `json:"tags"`
	IsActive    *bool    `json:"is_active"`
}

// GetImages 列出图片库，支持 active、tags、limit、offset 过滤
func (a *API) GetImages(c *gin.Context) {
	filter := service.ImageFilter{
		Active: parseBoolQuery(c.Query("active")),
		Tags:   service.ParseTags(c.Query("tags")),
		Limit:  parsePositiveInt(c.Query("limit"), 0),
		Offset: parsePositiveInt(c.Query("offset"), 0),
	}

	images, err := a.images.List(filter)
	if err != nil {
		a.logger.Error("list images", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Erro ao carregar imagens")
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// CreateImage 上传文件到图片库 bucket 并保存元数据
func (a *API) CreateImage(c *gin.Context) {
	if a.objects == nil {
		respondError(c, http.StatusServiceUnavailable, "Armazenamento de imagens indisponível")
		return
	}

	prepared, ok := a.readUploadedImage(c, "image", upload.PrepareOptions{MaxDimension: libraryMaxDimension})
	if !ok {
		return
	}

	ctx := c.Request.Context()
	key := fmt.Sprintf("%s.%s", uuid.NewString(), prepared.Ext())
	obj, err := a.objects.Put(ctx, a.libraryBucket, key, prepared.ContentType, bytes.NewReader(prepared.Data))
	if err != nil {
		a.logger.Error("store library image", zap.String("bucket", a.libraryBucket), zap.Error(err))
		respondError(c, http.StatusBadGateway, "Erro ao armazenar imagem")
		return
	}
	publicURL, err := a.objects.MakePublic(ctx, obj)
	if err != nil {
		a.removeObject(c, obj.StorageKey())
		a.logger.Error("publish library image", zap.Error(err))
		respondError(c, http.StatusBadGateway, "Erro ao armazenar imagem")
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = strings.TrimSuffix(prepared.Filename, filepath.Ext(prepared.Filename))
	}

	image, err := a.images.Create(service.ImageAssetInput{
		Title:       title,
		Description: c.PostForm("description"),
		FilePath:    publicURL,
		StorageKey:  obj.StorageKey(),
		FileType:    prepared.ContentType,
		FileSize:    int64(len(prepared.Data)),
		AltText:     c.PostForm("alt_text"),
		Tags:        service.ParseTags(c.PostForm("tags")),
		IsActive:    parseBoolQuery(c.PostForm("is_active")),
	})
	if err != nil {
		a.removeObject(c, obj.StorageKey())
		a.respondImageError(c, err, "Erro ao salvar imagem")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Imagem adicionada com sucesso", "image": image})
}

// UpdateImage 只修改元数据
func (a *API) UpdateImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "ID de imagem inválido")
		return
	}

	var payload imagePayload
	if !bindJSON(c, &payload, "Dados da imagem inválidos") {
		return
	}

	image, err := a.images.Update(id, service.ImageAssetInput{
		Title:       payload.Title,
		Description: payload.Description,
		AltText:     payload.AltText,
		Tags:        payload.Tags,
		IsActive:    payload.IsActive,
	})
	if err != nil {
		a.respondImageError(c, err, "Erro ao atualizar imagem")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Imagem atualizada com sucesso", "image": image})
}

// DeleteImage 删除记录，再尽力删除存储中的文件
func (a *API) DeleteImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "ID de imagem inválido")
		return
	}

	image, err := a.images.Delete(id)
	if err != nil {
		a.respondImageError(c, err, "Erro ao excluir imagem")
		return
	}
	if image.StorageKey != "" {
		a.removeObject(c, image.StorageKey)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Imagem excluída com sucesso"})
}

func (a *API) removeObject(c *gin.Context, storageKey string) {
	if a.objects == nil {
		return
	}
	bucket, key, err := storage.SplitKey(storageKey)
	if err != nil {
		a.logger.Warn("invalid storage key", zap.String("storage_key", storageKey))
		return
	}
	if err := a.objects.Remove(c.Request.Context(), bucket, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		a.logger.Warn("remove stored object", zap.String("storage_key", storageKey), zap.Error(err))
	}
}

func (a *API) respondImageError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrImageInvalidInput):
		respondError(c, http.StatusBadRequest, "O título da imagem é obrigatório")
	case errors.Is(err, service.ErrImageNotFound):
		respondError(c, http.StatusNotFound, "Imagem não encontrada")
	default:
		a.logger.Error(fallback, zap.Error(err))
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
