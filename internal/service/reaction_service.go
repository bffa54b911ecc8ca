package service

import (
	"context"
	"slices"
	"strings"

	"github.com/diario/internal/db"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionService 管理读者对文章的表态，每人每篇至多一条。
type ReactionService struct {
	db *gorm.DB
}

// NewReactionService creates a ReactionService instance.
func NewReactionService(gdb *gorm.DB) *ReactionService {
	return &ReactionService{db: gdb}
}

// Counts 返回文章各类表态的数量，未出现的类型计为 0。
func (s *ReactionService) Counts(ctx context.Context, articleID uint) (map[string]int64, error) {
	if err := s.ensureArticle(ctx, articleID); err != nil {
		return nil, err
	}

	var rows []struct {
		Kind  string
		Total int64
	}
	if err := s.db.WithContext(ctx).Model(&db.ArticleReaction{}).
		Select("kind, COUNT(*) AS total").
		Where("article_id = ?", articleID).
		Group("kind").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "count reactions")
	}

	counts := make(map[string]int64, len(db.ReactionKinds))
	for _, kind := range db.ReactionKinds {
		counts[kind] = 0
	}
	for _, row := range rows {
		counts[row.Kind] = row.Total
	}
	return counts, nil
}

// React 创建或替换用户的表态，created 表示是否为新建。
func (s *ReactionService) React(ctx context.Context, articleID uint, user *db.User, kind string) (*db.ArticleReaction, bool, error) {
	if user == nil {
		return nil, false, ErrUnauthenticated
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if !slices.Contains(db.ReactionKinds, kind) {
		return nil, false, invalidInput("tipo_reaccion is invalid")
	}
	if err := s.ensureArticle(ctx, articleID); err != nil {
		return nil, false, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&db.ArticleReaction{}).
		Where("article_id = ? AND user_id = ?", articleID, user.ID).
		Count(&existing).Error; err != nil {
		return nil, false, errors.Wrap(err, "lookup reaction")
	}

	reaction := db.ArticleReaction{ArticleID: articleID, UserID: user.ID, Kind: kind}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "updated_at"}),
	}).Create(&reaction).Error; err != nil {
		return nil, false, errors.Wrap(err, "save reaction")
	}

	// upsert 命中冲突时自增 id 不可靠，按唯一键重新读取
	var saved db.ArticleReaction
	if err := s.db.WithContext(ctx).
		Where("article_id = ? AND user_id = ?", articleID, user.ID).
		First(&saved).Error; err != nil {
		return nil, false, errors.Wrap(err, "reload reaction")
	}
	return &saved, existing == 0, nil
}

// Remove 删除用户对文章的表态，不存在时不报错。
func (s *ReactionService) Remove(ctx context.Context, articleID uint, user *db.User) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if err := s.ensureArticle(ctx, articleID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("article_id = ? AND user_id = ?", articleID, user.ID).
		Delete(&db.ArticleReaction{}).Error
}

// Mine 返回用户对文章的表态，没有时返回 nil。
func (s *ReactionService) Mine(ctx context.Context, articleID uint, user *db.User) (*db.ArticleReaction, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if err := s.ensureArticle(ctx, articleID); err != nil {
		return nil, err
	}

	var reaction db.ArticleReaction
	if err := s.db.WithContext(ctx).
		Where("article_id = ? AND user_id = ?", articleID, user.ID).
		First(&reaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "load reaction")
	}
	return &reaction, nil
}

func (s *ReactionService) ensureArticle(ctx context.Context, articleID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Article{}).Where("id = ?", articleID).Count(&count).Error; err != nil {
		return errors.Wrap(err, "lookup article")
	}
	if count == 0 {
		return ErrArticleNotFound
	}
	return nil
}
