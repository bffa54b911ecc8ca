package service

import (
	"context"
	"strings"
	"time"

	"github.com/diario/internal/db"
	"github.com/diario/internal/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultVisitDedupWindow   = 5 * time.Minute
	defaultRollingVisitWindow = 7 * 24 * time.Hour
)

// VisitOutcome 描述一次浏览请求的处理结果。
type VisitOutcome struct {
	// Recorded 为 false 表示该访问落在去重窗口内，计数器未变化。
	Recorded bool
	// RollingReset 表示本次请求触发了滚动计数器的周期重置。
	RollingReset bool
}

// VisitService 负责文章浏览计数：滚动窗口重置、按来源地址去重以及双计数器自增。
type VisitService struct {
	db            *gorm.DB
	cache         PopularityCache
	dedupWindow   time.Duration
	rollingWindow time.Duration
}

// NewVisitService 创建 VisitService，默认去重窗口为 5 分钟，滚动窗口为 7 天。
func NewVisitService(gdb *gorm.DB) *VisitService {
	return &VisitService{db: gdb, dedupWindow: defaultVisitDedupWindow, rollingWindow: defaultRollingVisitWindow}
}

// WithDedupWindow 允许在测试或特定场景下调整去重窗口。
func (s *VisitService) WithDedupWindow(d time.Duration) *VisitService {
	if d <= 0 {
		return s
	}
	s.dedupWindow = d
	return s
}

// WithRollingWindow 调整滚动计数器的重置周期。
func (s *VisitService) WithRollingWindow(d time.Duration) *VisitService {
	if d <= 0 {
		return s
	}
	s.rollingWindow = d
	return s
}

// WithCache 设置热门查询缓存，总计数被重置时需要清空。
func (s *VisitService) WithCache(cache PopularityCache) *VisitService {
	s.cache = cache
	return s
}

// RecordVisit 处理一次文章浏览。
//
// 滚动窗口过期时先独立持久化重置（即使本次访问随后被去重），
// 然后按来源地址在去重窗口内去重，最后在同一事务内写入浏览记录并原子自增两个计数器。
// sourceAddress 为空时不做去重。
func (s *VisitService) RecordVisit(ctx context.Context, articleID uint, sourceAddress string, now time.Time) (VisitOutcome, error) {
	var outcome VisitOutcome
	if articleID == 0 {
		return outcome, ErrArticleNotFound
	}

	now = now.UTC()
	address := strings.TrimSpace(sourceAddress)
	gdb := s.db.WithContext(ctx)

	var exists int64
	if err := gdb.Model(&db.Article{}).Where("id = ?", articleID).Count(&exists).Error; err != nil {
		return outcome, errors.Wrap(err, "lookup article")
	}
	if exists == 0 {
		return outcome, ErrArticleNotFound
	}

	reset := gdb.Model(&db.Article{}).
		Where("id = ? AND rolling_window_anchor < ?", articleID, now.Add(-s.rollingWindow)).
		Updates(map[string]interface{}{
			"rolling_visit_count":   0,
			"rolling_window_anchor": now,
		})
	if reset.Error != nil {
		return outcome, errors.Wrap(reset.Error, "reset rolling counter")
	}
	outcome.RollingReset = reset.RowsAffected > 0

	if address != "" {
		var recent int64
		if err := gdb.Model(&db.ArticleVisit{}).
			Where("article_id = ? AND source_address = ? AND visited_at >= ?", articleID, address, now.Add(-s.dedupWindow)).
			Count(&recent).Error; err != nil {
			return outcome, errors.Wrap(err, "check recent visits")
		}
		if recent > 0 {
			logger.L().Debug("visit deduplicated",
				zap.Uint("article_id", articleID),
				zap.String("source_address", address))
			return outcome, nil
		}
	}

	if err := gdb.Transaction(func(tx *gorm.DB) error {
		visit := db.ArticleVisit{ArticleID: articleID, VisitedAt: now}
		if address != "" {
			visit.SourceAddress = &address
		}
		if err := tx.Create(&visit).Error; err != nil {
			return err
		}

		update := tx.Model(&db.Article{}).
			Where("id = ?", articleID).
			UpdateColumns(map[string]interface{}{
				"rolling_visit_count": gorm.Expr("rolling_visit_count + ?", 1),
				"total_visit_count":   gorm.Expr("total_visit_count + ?", 1),
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return ErrArticleNotFound
		}
		return nil
	}); err != nil {
		if errors.Is(err, ErrArticleNotFound) {
			return outcome, err
		}
		return outcome, errors.Wrap(err, "record visit")
	}

	outcome.Recorded = true
	return outcome, nil
}

// ResetTotals 将指定文章的历史总计数清零，仅管理员可执行，滚动计数保持不变。
func (s *VisitService) ResetTotals(ctx context.Context, actor *db.User, articleIDs []uint) (int64, error) {
	if !actor.IsAdmin() {
		return 0, ErrForbidden
	}
	if len(articleIDs) == 0 {
		return 0, invalidInput("no articles selected")
	}

	result := s.db.WithContext(ctx).Model(&db.Article{}).
		Where("id IN ?", articleIDs).
		UpdateColumn("total_visit_count", 0)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "reset total counters")
	}

	logger.L().Info("total visit counters reset",
		zap.Uint("actor_id", actor.ID),
		zap.Uints("article_ids", articleIDs),
		zap.Int64("rows", result.RowsAffected))

	if s.cache != nil {
		if err := s.cache.Purge(ctx); err != nil {
			logger.L().Warn("purge popularity cache failed", zap.Error(err))
		}
	}

	return result.RowsAffected, nil
}

// CountSince 统计文章在 since 之后的浏览记录条数。
func (s *VisitService) CountSince(ctx context.Context, articleID uint, since time.Time) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.ArticleVisit{}).
		Where("article_id = ? AND visited_at >= ?", articleID, since.UTC()).
		Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count visits")
	}
	return count, nil
}
