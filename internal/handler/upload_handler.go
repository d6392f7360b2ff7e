package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/naturalys/internal/upload"
	"go.uber.org/zap"
)

// readUploadedImage 读取 multipart 中的图片并缩放。
// 失败时已写入响应，调用方直接返回。
func (a *API) readUploadedImage(c *gin.Context, field string, opts upload.PrepareOptions) (*upload.Prepared, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Nenhuma imagem enviada")
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "Não foi possível ler a imagem")
		return nil, false
	}
	defer file.Close()

	prepared, err := upload.Prepare(file, header.Filename, opts)
	if err != nil {
		if errors.Is(err, upload.ErrNotImage) || errors.Is(err, upload.ErrUnsupportedImage) {
			respondError(c, http.StatusBadRequest, "Apenas arquivos de imagem são permitidos")
			return nil, false
		}
		a.logger.Warn("prepare uploaded image", zap.String("filename", header.Filename), zap.Error(err))
		respondError(c, http.StatusBadRequest, "Imagem inválida ou corrompida")
		return nil, false
	}
	return prepared, true
}

// UploadImage 缩放后依次尝试各上传方式，返回第一个可用的 URL
func (a *API) UploadImage(c *gin.Context) {
	if a.uploader == nil {
		respondError(c, http.StatusServiceUnavailable, "Upload de imagens indisponível")
		return
	}

	prepared, ok := a.readUploadedImage(c, "image", upload.PrepareOptions{
		MaxDimension: a.maxDimension,
		Square:       formBool(c, "square"),
	})
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), a.uploadTimeout)
	defer cancel()

	result, err := a.uploader.Upload(ctx, prepared)
	if err != nil {
		a.logger.Error("image upload failed", zap.Error(err))
		var aggregate *upload.AggregateError
		if errors.As(err, &aggregate) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    "Não foi possível enviar a imagem. Tente novamente.",
				"attempts": aggregate.Attempts,
			})
			return
		}
		respondError(c, http.StatusInternalServerError, "Erro ao enviar imagem")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Imagem enviada com sucesso",
		"url":      result.URL,
		"provider": result.Provider,
		"attempts": result.Attempts,
		"width":    prepared.Width,
		"height":   prepared.Height,
	})
}
