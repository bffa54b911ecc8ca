package handler

import (
	"net/http"

	"github.com/diario/internal/service"
	"github.com/gin-gonic/gin"
)

type reactionRequest struct {
	Kind string `json:"tipo_reaccion" binding:"required"`
}

// ReactionCounts 返回文章各类表态的数量。
func (a *API) ReactionCounts(c *gin.Context) {
	id, err := service.ParseArticleRef(c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	counts, err := a.reactions.Counts(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// React 创建或替换当前用户的表态。
func (a *API) React(c *gin.Context) {
	id, err := service.ParseArticleRef(c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var req reactionRequest
	if !bindJSON(c, &req, "tipo_reaccion es obligatorio") {
		return
	}

	reaction, created, err := a.reactions.React(c.Request.Context(), id, currentUser(c), req.Kind)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, reaction)
}

// RemoveReaction 删除当前用户的表态。
func (a *API) RemoveReaction(c *gin.Context) {
	id, err := service.ParseArticleRef(c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if err := a.reactions.Remove(c.Request.Context(), id, currentUser(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MyReaction 返回当前用户的表态，没有时 tipo_reaccion 为 null。
func (a *API) MyReaction(c *gin.Context) {
	id, err := service.ParseArticleRef(c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	reaction, err := a.reactions.Mine(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if reaction == nil {
		c.JSON(http.StatusOK, gin.H{"tipo_reaccion": nil})
		return
	}
	c.JSON(http.StatusOK, reaction)
}
