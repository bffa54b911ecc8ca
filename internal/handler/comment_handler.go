package handler

import (
	"net/http"
	"time"

	"github.com/diario/internal/db"
	"github.com/diario/internal/service"
	"github.com/gin-gonic/gin"
)

type commentResponse struct {
	ID         uint       `json:"id"`
	ArticleID  uint       `json:"noticia"`
	AuthorID   uint       `json:"autor"`
	AuthorName string     `json:"autor_nombre"`
	Body       string     `json:"contenido"`
	CreatedAt  time.Time  `json:"fecha_creacion"`
	Reply      *string    `json:"respuesta"`
	RepliedAt  *time.Time `json:"fecha_respuesta"`
}

func newCommentResponse(comment *db.ArticleComment) commentResponse {
	resp := commentResponse{
		ID:         comment.ID,
		ArticleID:  comment.ArticleID,
		AuthorID:   comment.AuthorID,
		AuthorName: displayName(&comment.Author),
		Body:       comment.Body,
		CreatedAt:  comment.CreatedAt,
		RepliedAt:  comment.RepliedAt,
	}
	if comment.Reply != "" {
		reply := comment.Reply
		resp.Reply = &reply
	}
	return resp
}

type commentRequest struct {
	Body string `json:"contenido" binding:"required"`
}

type commentReplyRequest struct {
	Reply string `json:"respuesta" binding:"required"`
}

// ListComments 返回文章评论；未发布文章只对员工可见。
func (a *API) ListComments(c *gin.Context) {
	id, err := service.ParseArticleRef(c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	article, err := a.articles.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !article.IsPublished() && !currentUser(c).IsStaff() {
		respondServiceError(c, service.ErrArticleNotFound)
		return
	}

	comments, err := a.comments.List(c.Request.Context(), article.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]commentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, newCommentResponse(&comments[i]))
	}
	c.JSON(http.StatusOK, out)
}

// CreateComment 当前用户发表评论。
func (a *API) CreateComment(c *gin.Context) {
	id, err := service.ParseArticleRef(c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var req commentRequest
	if !bindJSON(c, &req, "contenido es obligatorio") {
		return
	}

	comment, err := a.comments.Create(c.Request.Context(), id, currentUser(c), req.Body, a.now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCommentResponse(comment))
}

// ReplyToComment 员工回复评论。
func (a *API) ReplyToComment(c *gin.Context) {
	id, err := service.ParseArticleRef(c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	commentID, ok := parseUintParam(c, "comment_id")
	if !ok {
		respondServiceError(c, service.ErrCommentNotFound)
		return
	}

	var req commentReplyRequest
	if !bindJSON(c, &req, "respuesta es obligatoria") {
		return
	}

	comment, err := a.comments.Reply(c.Request.Context(), id, commentID, currentUser(c), req.Reply, a.now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCommentResponse(comment))
}

// DeleteComment 删除评论。
func (a *API) DeleteComment(c *gin.Context) {
	id, err := service.ParseArticleRef(c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	commentID, ok := parseUintParam(c, "comment_id")
	if !ok {
		respondServiceError(c, service.ErrCommentNotFound)
		return
	}

	if err := a.comments.Delete(c.Request.Context(), id, commentID, currentUser(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
