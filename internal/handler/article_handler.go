package handler

import (
	"net/http"
	"time"

	"github.com/diario/internal/db"
	"github.com/diario/internal/logger"
	"github.com/diario/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type articleResponse struct {
	ID                  uint      `json:"id"`
	Title               string    `json:"nombre_noticia"`
	Subtitle            string    `json:"subtitulo"`
	Slug                string    `json:"slug"`
	URL                 string    `json:"url"`
	Content             string    `json:"contenido,omitempty"`
	ContentHTML         string    `json:"contenido_html,omitempty"`
	Categories          []string  `json:"categorias"`
	Keywords            string    `json:"palabras_clave"`
	Status              string    `json:"estado"`
	PublishedAt         time.Time `json:"fecha_publicacion"`
	AuthorID            uint      `json:"autor"`
	AuthorName          string    `json:"autor_nombre,omitempty"`
	HeaderImageURL      string    `json:"imagen_cabecera"`
	SubscribersOnly     bool      `json:"solo_para_subscriptores"`
	CommentsEnabled     bool      `json:"tiene_comentarios"`
	RollingVisitCount   uint64    `json:"contador_visitas"`
	TotalVisitCount     uint64    `json:"contador_visitas_total"`
	RollingWindowAnchor time.Time `json:"ultima_actualizacion_contador"`
	VisitsLast24h       *int64    `json:"visitas_ultimas_24h,omitempty"` // 仅对员工返回
}

func newArticleResponse(article *db.Article) articleResponse {
	resp := articleResponse{
		ID:                  article.ID,
		Title:               article.Title,
		Subtitle:            article.Subtitle,
		Slug:                article.Slug,
		URL:                 article.AbsoluteURL(),
		Categories:          article.CategoryList(),
		Keywords:            article.Keywords,
		Status:              article.Status,
		PublishedAt:         article.PublishedAt,
		AuthorID:            article.AuthorID,
		HeaderImageURL:      article.HeaderImageURL,
		SubscribersOnly:     article.SubscribersOnly,
		CommentsEnabled:     article.CommentsEnabled,
		RollingVisitCount:   article.RollingVisitCount,
		TotalVisitCount:     article.TotalVisitCount,
		RollingWindowAnchor: article.RollingWindowAnchor,
	}
	if article.Author.ID != 0 {
		resp.AuthorName = displayName(&article.Author)
	}
	return resp
}

func newArticleList(articles []db.Article) []articleResponse {
	out := make([]articleResponse, 0, len(articles))
	for i := range articles {
		out = append(out, newArticleResponse(&articles[i]))
	}
	return out
}

func displayName(user *db.User) string {
	name := user.FirstName
	if user.LastName != "" {
		if name != "" {
			name += " "
		}
		name += user.LastName
	}
	if name == "" {
		name = user.Username
	}
	return name
}

type articleRequest struct {
	Title           string     `json:"nombre_noticia" binding:"required"`
	Subtitle        string     `json:"subtitulo"`
	Content         string     `json:"contenido"`
	Categories      string     `json:"categorias" binding:"categorias"`
	Keywords        string     `json:"palabras_clave" binding:"max=200"`
	Status          string     `json:"estado" binding:"omitempty,oneof=borrador en_papelera publicado listo_para_editar"`
	PublishedAt     *time.Time `json:"fecha_publicacion"`
	HeaderImageURL  string     `json:"imagen_cabecera" binding:"omitempty,url"`
	SubscribersOnly bool       `json:"solo_para_subscriptores"`
	CommentsEnabled bool       `json:"tiene_comentarios"`
}

func (r articleRequest) toInput() service.ArticleInput {
	return service.ArticleInput{
		Title:           r.Title,
		Subtitle:        r.Subtitle,
		Content:         r.Content,
		Categories:      r.Categories,
		Keywords:        r.Keywords,
		Status:          r.Status,
		PublishedAt:     r.PublishedAt,
		HeaderImageURL:  r.HeaderImageURL,
		SubscribersOnly: r.SubscribersOnly,
		CommentsEnabled: r.CommentsEnabled,
	}
}

// GetArticle 返回文章详情并记录一次浏览。路径参数可以是 "12" 或 "12-slug"。
func (a *API) GetArticle(c *gin.Context) {
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

	if article.IsPublished() && a.visits != nil {
		now := a.now().UTC()
		outcome, recordErr := a.visits.RecordVisit(c.Request.Context(), article.ID, clientAddress(c), now)
		if recordErr != nil {
			// 计数失败不影响文章返回
			c.Error(recordErr)
			logger.L().Warn("record visit failed", zap.Uint("article_id", article.ID), zap.Error(recordErr))
		} else {
			if outcome.RollingReset {
				article.RollingVisitCount = 0
				article.RollingWindowAnchor = now
			}
			if outcome.Recorded {
				article.RollingVisitCount++
				article.TotalVisitCount++
			}
		}
	}

	resp := newArticleResponse(article)
	resp.Content = article.Content
	if currentUser(c).IsStaff() && a.visits != nil {
		since := a.now().UTC().Add(-24 * time.Hour)
		if recent, countErr := a.visits.CountSince(c.Request.Context(), article.ID, since); countErr == nil {
			resp.VisitsLast24h = &recent
		} else {
			c.Error(countErr)
		}
	}
	if html, renderErr := service.RenderContent(article.Content); renderErr == nil {
		resp.ContentHTML = html
	} else {
		c.Error(renderErr)
	}

	c.JSON(http.StatusOK, resp)
}

// CreateArticle 由员工创建文章。
func (a *API) CreateArticle(c *gin.Context) {
	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Datos de la noticia inválidos: "+err.Error())
		return
	}

	article, err := a.articles.Create(c.Request.Context(), currentUser(c), req.toInput(), a.now())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := newArticleResponse(article)
	resp.Content = article.Content
	c.JSON(http.StatusCreated, resp)
}

// UpdateArticle 更新文章内容，浏览计数不受影响。
func (a *API) UpdateArticle(c *gin.Context) {
	id, err := service.ParseArticleRef(c.Param("ref"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	var req articleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Datos de la noticia inválidos: "+err.Error())
		return
	}

	article, err := a.articles.Update(c.Request.Context(), currentUser(c), id, req.toInput(), a.now())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := newArticleResponse(article)
	resp.Content = article.Content
	c.JSON(http.StatusOK, resp)
}
