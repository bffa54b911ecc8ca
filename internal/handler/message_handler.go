package handler

import (
	"net/http"
	"time"

	"github.com/diario/internal/db"
	"github.com/diario/internal/service"
	"github.com/gin-gonic/gin"
)

type replyResponse struct {
	ID          uint      `json:"id"`
	Body        string    `json:"respuesta"`
	CreatedAt   time.Time `json:"fecha_creacion"`
	AuthorID    uint      `json:"autor"`
	AuthorName  string    `json:"trabajador_nombre"`
	AuthorLast  string    `json:"trabajador_apellido"`
	AuthorPhoto string    `json:"trabajador_foto"`
}

type messageResponse struct {
	ID           uint            `json:"id"`
	Body         string          `json:"mensaje"`
	CreatedAt    time.Time       `json:"fecha_creacion"`
	ExpiresAt    time.Time       `json:"fecha_expiracion"`
	DurationDays int             `json:"duracion_dias"`
	IsActive     bool            `json:"activo"`
	AuthorID     uint            `json:"autor"`
	AuthorName   string          `json:"trabajador_nombre"`
	AuthorLast   string          `json:"trabajador_apellido"`
	AuthorPhoto  string          `json:"trabajador_foto"`
	Replies      []replyResponse `json:"respuestas"`
	ReplyCount   int             `json:"total_respuestas"`
	Remaining    string          `json:"tiempo_restante"`
	Expired      bool            `json:"esta_expirado"`
}

func newReplyResponse(reply *db.MessageReply) replyResponse {
	return replyResponse{
		ID:          reply.ID,
		Body:        reply.Body,
		CreatedAt:   reply.CreatedAt,
		AuthorID:    reply.AuthorID,
		AuthorName:  reply.Author.FirstName,
		AuthorLast:  reply.Author.LastName,
		AuthorPhoto: reply.Author.PhotoURL,
	}
}

func newMessageResponse(msg *db.GlobalMessage, now time.Time) messageResponse {
	replies := make([]replyResponse, 0, len(msg.Replies))
	for i := range msg.Replies {
		replies = append(replies, newReplyResponse(&msg.Replies[i]))
	}
	return messageResponse{
		ID:           msg.ID,
		Body:         msg.Body,
		CreatedAt:    msg.CreatedAt,
		ExpiresAt:    msg.ExpiresAt,
		DurationDays: msg.DurationDays,
		IsActive:     msg.IsActive,
		AuthorID:     msg.AuthorID,
		AuthorName:   msg.Author.FirstName,
		AuthorLast:   msg.Author.LastName,
		AuthorPhoto:  msg.Author.PhotoURL,
		Replies:      replies,
		ReplyCount:   len(replies),
		Remaining:    service.FormatRemaining(service.TimeRemaining(msg, now)),
		Expired:      service.StateAt(msg, now) != service.MessageActive,
	}
}

func newMessageList(messages []db.GlobalMessage, now time.Time) []messageResponse {
	out := make([]messageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, newMessageResponse(&messages[i], now))
	}
	return out
}

type messageRequest struct {
	Body         string `json:"mensaje" binding:"required"`
	DurationDays int    `json:"duracion_dias" binding:"required,min=1,max=365"`
}

type replyRequest struct {
	Body string `json:"respuesta"`
}

type removeReplyRequest struct {
	ReplyID uint `json:"respuesta_id"`
}

// ListMessages 清理过期消息后返回全部活跃消息。
func (a *API) ListMessages(c *gin.Context) {
	now := a.now()
	messages, err := a.messages.ListActive(c.Request.Context(), now)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMessageList(messages, now))
}

// MyMessages 返回当前用户发布且仍活跃的消息。
func (a *API) MyMessages(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		respondServiceError(c, service.ErrUnauthenticated)
		return
	}

	now := a.now()
	messages, err := a.messages.ListByAuthor(c.Request.Context(), user.ID, now)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMessageList(messages, now))
}

// CreateMessage 员工发布全局消息。
func (a *API) CreateMessage(c *gin.Context) {
	var req messageRequest
	if !bindJSON(c, &req, "mensaje y duracion_dias son obligatorios") {
		return
	}

	now := a.now()
	msg, err := a.messages.Create(c.Request.Context(), currentUser(c), service.MessageInput{
		Body:         req.Body,
		DurationDays: req.DurationDays,
	}, now)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newMessageResponse(msg, now))
}

// DeleteMessage 作者删除自己的消息。
func (a *API) DeleteMessage(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondServiceError(c, service.ErrMessageNotFound)
		return
	}
	if err := a.messages.Delete(c.Request.Context(), id, currentUser(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeactivateMessage 作者提前下线消息。
func (a *API) DeactivateMessage(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondServiceError(c, service.ErrMessageNotFound)
		return
	}
	if err := a.messages.Deactivate(c.Request.Context(), id, currentUser(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activo": false})
}

// ReplyToMessage 员工回复活跃消息。
func (a *API) ReplyToMessage(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondServiceError(c, service.ErrMessageNotFound)
		return
	}

	var req replyRequest
	if !bindJSON(c, &req, "respuesta inválida") {
		return
	}

	reply, err := a.messages.AddReply(c.Request.Context(), id, currentUser(c), req.Body, a.now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReplyResponse(reply))
}

// RemoveReply 回复作者删除自己的回复，respuesta_id 可放在请求体或查询参数中。
func (a *API) RemoveReply(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		respondServiceError(c, service.ErrMessageNotFound)
		return
	}

	replyID := uint(parsePositiveInt(c.Query("respuesta_id"), 0))
	if replyID == 0 && c.Request.ContentLength != 0 {
		var req removeReplyRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			replyID = req.ReplyID
		}
	}
	if replyID == 0 {
		respondError(c, http.StatusBadRequest, "respuesta_id es obligatorio")
		return
	}

	if err := a.messages.RemoveReply(c.Request.Context(), id, replyID, currentUser(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SweepMessages 员工手动触发过期清理。
func (a *API) SweepMessages(c *gin.Context) {
	if !currentUser(c).IsStaff() {
		respondServiceError(c, service.ErrForbidden)
		return
	}

	result, err := a.messages.Sweep(c.Request.Context(), a.now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
