package handler

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/diario/internal/logger"
	"github.com/diario/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondServiceError 将服务层的哨兵错误映射为 HTTP 状态码。
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrArticleNotFound):
		respondError(c, http.StatusNotFound, "Noticia no encontrada")
	case errors.Is(err, service.ErrMessageNotFound):
		respondError(c, http.StatusNotFound, "Mensaje no encontrado")
	case errors.Is(err, service.ErrReplyNotFound):
		respondError(c, http.StatusNotFound, "Respuesta no encontrada")
	case errors.Is(err, service.ErrCommentNotFound):
		respondError(c, http.StatusNotFound, "Comentario no encontrado")
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "Usuario no encontrado")
	case errors.Is(err, service.ErrUnauthenticated):
		respondError(c, http.StatusUnauthorized, "Autenticación requerida")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "Credenciales inválidas")
	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "No tiene permisos para realizar esta acción")
	case errors.Is(err, service.ErrCommentsDisabled):
		respondError(c, http.StatusForbidden, "Los comentarios están deshabilitados para esta noticia")
	case errors.Is(err, service.ErrMessageExpired):
		respondError(c, http.StatusBadRequest, "Este mensaje ha expirado")
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, strings.TrimSuffix(err.Error(), ": "+service.ErrInvalidInput.Error()))
	case errors.Is(err, service.ErrConflict):
		respondError(c, http.StatusConflict, "Conflicto al actualizar el recurso")
	default:
		c.Error(err)
		logger.L().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Error interno del servidor")
	}
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(key), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func parsePositiveInt(value string, fallback int) int {
	num, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || num <= 0 {
		return fallback
	}
	return num
}

// parseLimit 读取 limit 查询参数：缺失、非法或非正数回退默认值，超过上限时截断。
func parseLimit(c *gin.Context, fallback int) int {
	return service.ClampLimit(parsePositiveInt(c.Query("limit"), fallback), fallback)
}

// clientAddress 优先取 X-Forwarded-For 的第一跳，否则使用连接的对端地址。
func clientAddress(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	if ip := c.RemoteIP(); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(c.Request.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(c.Request.RemoteAddr)
	}
	return host
}
