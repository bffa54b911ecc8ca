package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/diario/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

var allowedImageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

// UploadImage 处理图片上传请求，文件交给外部图片存储并返回公开地址。
func (a *API) UploadImage(c *gin.Context) {
	if !currentUser(c).IsStaff() {
		respondServiceError(c, service.ErrForbidden)
		return
	}
	if a.images == nil {
		respondError(c, http.StatusServiceUnavailable, "Almacenamiento de imágenes no configurado")
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "No image file found")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedImageExtensions[ext]; !ok {
		respondError(c, http.StatusBadRequest, "Tipo de archivo no soportado. Use PNG, JPG, JPEG, GIF o WEBP.")
		return
	}
	if file.Size > service.MaxImageBytes {
		respondError(c, http.StatusBadRequest, "La imagen supera el tamaño máximo permitido")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "No se pudo leer la imagen")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxImageBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "No se pudo leer la imagen")
		return
	}

	url, err := a.images.Upload(c.Request.Context(), data, file.Filename)
	if err != nil {
		if isClientError(err) {
			respondServiceError(c, err)
			return
		}
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "Error al subir la imagen")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"url":     url,
		"message": "Imagen subida exitosamente",
	})
}

func isClientError(err error) bool {
	return errors.Is(err, service.ErrInvalidInput)
}
