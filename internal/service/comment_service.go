package service

import (
	"context"
	"strings"
	"time"

	"github.com/diario/internal/db"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// CommentService 管理文章评论，写入受文章的 CommentsEnabled 开关控制。
type CommentService struct {
	db *gorm.DB
}

// NewCommentService creates a CommentService instance.
func NewCommentService(gdb *gorm.DB) *CommentService {
	return &CommentService{db: gdb}
}

// List 按时间先后返回文章评论。
func (s *CommentService) List(ctx context.Context, articleID uint) ([]db.ArticleComment, error) {
	if _, err := s.article(ctx, articleID); err != nil {
		return nil, err
	}

	var comments []db.ArticleComment
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Where("article_id = ?", articleID).
		Order("created_at asc").Order("id asc").
		Find(&comments).Error; err != nil {
		return nil, errors.Wrap(err, "list comments")
	}
	return comments, nil
}

// Create 登录用户在开放评论的已发布文章下发表评论。
func (s *CommentService) Create(ctx context.Context, articleID uint, author *db.User, body string, now time.Time) (*db.ArticleComment, error) {
	if author == nil {
		return nil, ErrUnauthenticated
	}
	article, err := s.article(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if !article.IsPublished() {
		return nil, ErrArticleNotFound
	}
	if !article.CommentsEnabled {
		return nil, ErrCommentsDisabled
	}

	text := strings.TrimSpace(body)
	if text == "" {
		return nil, invalidInput("comment body is empty")
	}

	comment := db.ArticleComment{
		ArticleID: article.ID,
		AuthorID:  author.ID,
		Body:      text,
		CreatedAt: now.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, errors.Wrap(err, "create comment")
	}
	comment.Author = *author
	return &comment, nil
}

// Reply 员工回复评论，再次回复会覆盖之前的内容。
func (s *CommentService) Reply(ctx context.Context, articleID, commentID uint, requester *db.User, body string, now time.Time) (*db.ArticleComment, error) {
	if requester == nil {
		return nil, ErrUnauthenticated
	}
	if !requester.IsStaff() {
		return nil, ErrForbidden
	}

	comment, err := s.get(ctx, articleID, commentID)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(body)
	if text == "" {
		return nil, invalidInput("reply body is empty")
	}

	repliedAt := now.UTC()
	if err := s.db.WithContext(ctx).Model(comment).Updates(map[string]interface{}{
		"reply":      text,
		"replied_at": repliedAt,
	}).Error; err != nil {
		return nil, errors.Wrap(err, "reply comment")
	}
	comment.Reply = text
	comment.RepliedAt = &repliedAt
	return comment, nil
}

// Delete 评论作者或管理员可以删除评论。
func (s *CommentService) Delete(ctx context.Context, articleID, commentID uint, requester *db.User) error {
	if requester == nil {
		return ErrUnauthenticated
	}

	comment, err := s.get(ctx, articleID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != requester.ID && !requester.IsAdmin() {
		return ErrForbidden
	}

	return s.db.WithContext(ctx).Delete(&db.ArticleComment{}, comment.ID).Error
}

func (s *CommentService) get(ctx context.Context, articleID, commentID uint) (*db.ArticleComment, error) {
	var comment db.ArticleComment
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? AND article_id = ?", commentID, articleID).
		First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, errors.Wrap(err, "load comment")
	}
	return &comment, nil
}

func (s *CommentService) article(ctx context.Context, articleID uint) (*db.Article, error) {
	var article db.Article
	if err := s.db.WithContext(ctx).First(&article, articleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, errors.Wrap(err, "load article")
	}
	return &article, nil
}
