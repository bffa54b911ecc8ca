package handler

import (
	"net/http"
	"strings"

	"github.com/diario/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	defaultPopularLimit  = 10
	recentLimit          = 5
	featuredLimit        = 12
	sectionLimit         = 7
	categoryListingLimit = 60
)

// MostVisitedWeekly 返回最近 7 天内浏览最多的文章。
func (a *API) MostVisitedWeekly(c *gin.Context) {
	a.mostVisited(c, service.WindowWeekly)
}

// MostVisitedAllTime 返回历史浏览最多的文章。
func (a *API) MostVisitedAllTime(c *gin.Context) {
	a.mostVisited(c, service.WindowAllTime)
}

func (a *API) mostVisited(c *gin.Context, window service.PopularityWindow) {
	articles, err := a.popularity.MostVisited(c.Request.Context(), window, parseLimit(c, defaultPopularLimit), a.now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newArticleList(articles))
}

// VisitStatistics 返回浏览计数汇总。
func (a *API) VisitStatistics(c *gin.Context) {
	stats, err := a.popularity.AggregateStats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Recent 返回最新发布的 5 篇文章。
func (a *API) Recent(c *gin.Context) {
	a.listRecent(c, recentLimit)
}

// Featured 返回首页精选的 12 篇文章。
func (a *API) Featured(c *gin.Context) {
	a.listRecent(c, featuredLimit)
}

func (a *API) listRecent(c *gin.Context, fallback int) {
	articles, err := a.popularity.Recent(c.Request.Context(), parseLimit(c, fallback), fallback)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newArticleList(articles))
}

// Section 生成栏目列表处理器，匹配栏目下的全部分类标识。
func (a *API) Section(section string) gin.HandlerFunc {
	tokens := service.SectionCategories[section]
	return func(c *gin.Context) {
		articles, err := a.popularity.ByCategories(c.Request.Context(), tokens, parseLimit(c, sectionLimit), sectionLimit)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, newArticleList(articles))
	}
}

// ByCategory 按 categoria 查询参数（逗号分隔）筛选文章。
func (a *API) ByCategory(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("categoria"))
	if raw == "" {
		respondError(c, http.StatusBadRequest, "Se requiere el parámetro categoria")
		return
	}

	articles, err := a.popularity.ByCategories(c.Request.Context(), strings.Split(raw, ","), parseLimit(c, categoryListingLimit), categoryListingLimit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newArticleList(articles))
}

type resetVisitsRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

// ResetVisits 管理员将所选文章的历史总计数清零。
func (a *API) ResetVisits(c *gin.Context) {
	user := currentUser(c)
	if !user.IsAdmin() {
		respondServiceError(c, service.ErrForbidden)
		return
	}

	var req resetVisitsRequest
	if !bindJSON(c, &req, "Debe indicar al menos una noticia") {
		return
	}

	rows, err := a.visits.ResetTotals(c.Request.Context(), user, req.IDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reiniciadas": rows})
}
