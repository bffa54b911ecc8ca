package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diario/internal/db"
	"github.com/diario/internal/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PopularityWindow 热门榜单的统计口径。
type PopularityWindow string

const (
	WindowWeekly  PopularityWindow = "weekly"
	WindowAllTime PopularityWindow = "all_time"
)

// MaxQueryLimit 单次列表查询返回条数上限。
const MaxQueryLimit = 100

// PopularityCache 缓存只读榜单查询结果。
type PopularityCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Purge(ctx context.Context) error
}

// VisitStats 汇总已发布文章的浏览计数。
type VisitStats struct {
	TotalRolling   uint64  `json:"total_visitas_semanales"`
	TotalAllTime   uint64  `json:"total_visitas_historicas"`
	AverageRolling float64 `json:"promedio_visitas_semanales"`
	AverageAllTime float64 `json:"promedio_visitas_historicas"`
	MaxRolling     uint64  `json:"max_visitas_semanales"`
	MaxAllTime     uint64  `json:"max_visitas_historicas"`
	ArticleCount   int64   `json:"total_noticias"`
}

// PopularityService 提供基于浏览计数的只读查询，从不修改数据。
type PopularityService struct {
	db            *gorm.DB
	cache         PopularityCache
	rollingWindow time.Duration
}

// NewPopularityService creates a PopularityService with the default 7 day window.
func NewPopularityService(gdb *gorm.DB) *PopularityService {
	return &PopularityService{db: gdb, rollingWindow: defaultRollingVisitWindow}
}

// WithRollingWindow keeps the weekly filter aligned with the visit counter policy.
func (s *PopularityService) WithRollingWindow(d time.Duration) *PopularityService {
	if d > 0 {
		s.rollingWindow = d
	}
	return s
}

// WithCache enables result caching.
func (s *PopularityService) WithCache(cache PopularityCache) *PopularityService {
	s.cache = cache
	return s
}

// ClampLimit 将非正数回退到默认值，并限制最大条数。
func ClampLimit(limit, fallback int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	return limit
}

// MostVisited 返回热门文章。周榜只包含滚动窗口锚点在最近 7 天内的文章，
// 按滚动计数降序；总榜按历史总计数降序。并列时按发布时间降序、id 升序。
func (s *PopularityService) MostVisited(ctx context.Context, window PopularityWindow, limit int, now time.Time) ([]db.Article, error) {
	limit = ClampLimit(limit, 10)
	now = now.UTC()

	var key string
	switch window {
	case WindowWeekly:
		// 锚点过滤按分钟取整，使缓存键在短时间内稳定
		key = fmt.Sprintf("most_visited:%s:%d:%d", window, limit, now.Truncate(time.Minute).Unix())
	case WindowAllTime:
		key = fmt.Sprintf("most_visited:%s:%d", window, limit)
	default:
		return nil, invalidInput(fmt.Sprintf("unknown popularity window %q", window))
	}

	var articles []db.Article
	if s.cacheGet(ctx, key, &articles) {
		return articles, nil
	}

	query := s.published(ctx)
	switch window {
	case WindowWeekly:
		query = query.Where("rolling_window_anchor >= ?", now.Add(-s.rollingWindow)).
			Order("rolling_visit_count desc")
	case WindowAllTime:
		query = query.Order("total_visit_count desc")
	}

	if err := query.Order("published_at desc").Order("id asc").Limit(limit).Find(&articles).Error; err != nil {
		return nil, errors.Wrap(err, "query most visited")
	}

	s.cacheSet(ctx, key, articles)
	return articles, nil
}

// AggregateStats 以单条聚合 SQL 计算两个计数器的合计、平均与最大值。
func (s *PopularityService) AggregateStats(ctx context.Context) (VisitStats, error) {
	var stats VisitStats
	if s.cacheGet(ctx, "stats", &stats) {
		return stats, nil
	}

	var row struct {
		TotalRolling   uint64
		TotalAllTime   uint64
		AverageRolling float64
		AverageAllTime float64
		MaxRolling     uint64
		MaxAllTime     uint64
		ArticleCount   int64
	}
	if err := s.published(ctx).
		Select(strings.Join([]string{
			"COALESCE(SUM(rolling_visit_count), 0) AS total_rolling",
			"COALESCE(SUM(total_visit_count), 0) AS total_all_time",
			"COALESCE(AVG(rolling_visit_count), 0) AS average_rolling",
			"COALESCE(AVG(total_visit_count), 0) AS average_all_time",
			"COALESCE(MAX(rolling_visit_count), 0) AS max_rolling",
			"COALESCE(MAX(total_visit_count), 0) AS max_all_time",
			"COUNT(id) AS article_count",
		}, ", ")).
		Scan(&row).Error; err != nil {
		return stats, errors.Wrap(err, "aggregate visit stats")
	}

	stats = VisitStats(row)
	s.cacheSet(ctx, "stats", stats)
	return stats, nil
}

// Recent 返回最新发布的文章。
func (s *PopularityService) Recent(ctx context.Context, limit, fallback int) ([]db.Article, error) {
	limit = ClampLimit(limit, fallback)

	var articles []db.Article
	if err := s.published(ctx).
		Order("published_at desc").Order("id desc").
		Limit(limit).
		Find(&articles).Error; err != nil {
		return nil, errors.Wrap(err, "query recent articles")
	}
	return articles, nil
}

// 通配符按字面匹配，sqlite 与 postgres 都支持 ESCAPE 子句
const categoryLike = `LOWER(categories) LIKE ? ESCAPE '\'`

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ByCategories 返回分类字段包含任一给定标识（子串匹配）的已发布文章。
func (s *PopularityService) ByCategories(ctx context.Context, tokens []string, limit, fallback int) ([]db.Article, error) {
	limit = ClampLimit(limit, fallback)

	cleaned := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if trimmed := strings.ToLower(strings.TrimSpace(token)); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil, invalidInput("at least one category is required")
	}

	query := s.published(ctx)
	conditions := s.db.Where(categoryLike, "%"+likeEscaper.Replace(cleaned[0])+"%")
	for _, token := range cleaned[1:] {
		conditions = conditions.Or(categoryLike, "%"+likeEscaper.Replace(token)+"%")
	}

	var articles []db.Article
	if err := query.Where(conditions).
		Order("published_at desc").Order("id desc").
		Limit(limit).
		Find(&articles).Error; err != nil {
		return nil, errors.Wrap(err, "query articles by category")
	}
	return articles, nil
}

func (s *PopularityService) published(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&db.Article{}).Where("status = ?", db.StatusPublished)
}

func (s *PopularityService) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		logger.L().Warn("popularity cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *PopularityService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		logger.L().Warn("popularity cache write failed", zap.String("key", key), zap.Error(err))
	}
}
