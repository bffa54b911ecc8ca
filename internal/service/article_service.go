package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diario/internal/db"
	"github.com/diario/internal/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var validStatuses = []string{db.StatusDraft, db.StatusTrash, db.StatusPublished, db.StatusReadyToEdit}

// ArticleService wraps article related database operations.
type ArticleService struct {
	db     *gorm.DB
	images ImageStore
}

// ArticleInput represents fields accepted when creating or updating an article.
type ArticleInput struct {
	Title           string
	Subtitle        string
	Content         string
	Categories      string
	Keywords        string
	Status          string
	PublishedAt     *time.Time
	HeaderImageURL  string
	SubscribersOnly bool
	CommentsEnabled bool
}

// NewArticleService creates an ArticleService instance.
func NewArticleService(gdb *gorm.DB) *ArticleService {
	return &ArticleService{db: gdb}
}

// WithImageStore 注入外部图床，用于清理被替换的头图。
func (s *ArticleService) WithImageStore(store ImageStore) *ArticleService {
	s.images = store
	return s
}

// ParseArticleRef 解析 "12" 或 "12-slug" 形式的文章引用，只使用数字前缀。
func ParseArticleRef(ref string) (uint, error) {
	ref = strings.TrimSpace(ref)
	if idx := strings.Index(ref, "-"); idx >= 0 {
		ref = ref[:idx]
	}
	id, err := strconv.ParseUint(ref, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrArticleNotFound
	}
	return uint(id), nil
}

// Get fetches an article by id.
func (s *ArticleService) Get(ctx context.Context, id uint) (*db.Article, error) {
	var article db.Article
	if err := s.db.WithContext(ctx).Preload("Author").First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, errors.Wrap(err, "load article")
	}
	return &article, nil
}

// Create 在单次持久化前计算 slug、规范化分类并初始化计数窗口。
func (s *ArticleService) Create(ctx context.Context, author *db.User, input ArticleInput, now time.Time) (*db.Article, error) {
	if author == nil {
		return nil, ErrUnauthenticated
	}
	if !author.IsStaff() {
		return nil, ErrForbidden
	}

	now = now.UTC()
	article := db.Article{
		AuthorID:            author.ID,
		Status:              db.StatusDraft,
		RollingWindowAnchor: now,
	}
	if err := s.apply(&article, input, now); err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(ctx, article.Title, 0)
	if err != nil {
		return nil, err
	}
	article.Slug = slug

	if err := s.db.WithContext(ctx).Create(&article).Error; err != nil {
		return nil, errors.Wrap(err, "create article")
	}
	article.Author = *author
	return &article, nil
}

// Update applies updates to an existing article; slug stays stable once assigned.
func (s *ArticleService) Update(ctx context.Context, editor *db.User, id uint, input ArticleInput, now time.Time) (*db.Article, error) {
	if editor == nil {
		return nil, ErrUnauthenticated
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !editor.IsAdmin() && existing.AuthorID != editor.ID {
		return nil, ErrForbidden
	}

	previousImage := existing.HeaderImageURL
	if err := s.apply(existing, input, now.UTC()); err != nil {
		return nil, err
	}
	if existing.Slug == "" {
		if existing.Slug, err = s.uniqueSlug(ctx, existing.Title, existing.ID); err != nil {
			return nil, err
		}
	}

	// 计数字段由 VisitService 原子维护，这里不覆盖
	if err := s.db.WithContext(ctx).Model(existing).
		Omit("rolling_visit_count", "total_visit_count", "rolling_window_anchor", "Author").
		Save(existing).Error; err != nil {
		return nil, errors.Wrap(err, "update article")
	}

	if s.images != nil && previousImage != "" && previousImage != existing.HeaderImageURL {
		if !s.images.Delete(ctx, previousImage) {
			logger.L().Warn("delete replaced header image failed", zap.String("url", previousImage))
		}
	}

	return existing, nil
}

func (s *ArticleService) apply(article *db.Article, input ArticleInput, now time.Time) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return invalidInput("title is required")
	}

	categories, err := NormalizeCategories(input.Categories)
	if err != nil {
		return err
	}

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = article.Status
	}
	if !isValidStatus(status) {
		return invalidInput(fmt.Sprintf("unknown status %q", status))
	}

	article.Title = title
	article.Subtitle = strings.TrimSpace(input.Subtitle)
	article.Content = input.Content
	article.Categories = categories
	article.Keywords = strings.TrimSpace(input.Keywords)
	article.HeaderImageURL = strings.TrimSpace(input.HeaderImageURL)
	article.SubscribersOnly = input.SubscribersOnly
	article.CommentsEnabled = input.CommentsEnabled

	switch {
	case input.PublishedAt != nil && !input.PublishedAt.IsZero():
		article.PublishedAt = input.PublishedAt.UTC()
	case status == db.StatusPublished && article.PublishedAt.IsZero():
		article.PublishedAt = now
	}
	article.Status = status
	return nil
}

func (s *ArticleService) uniqueSlug(ctx context.Context, title string, excludeID uint) (string, error) {
	base := db.Slugify(title)
	if base == "" {
		base = "noticia"
	}

	slug := base
	for i := 1; ; i++ {
		var count int64
		query := s.db.WithContext(ctx).Unscoped().Model(&db.Article{}).Where("slug = ?", slug)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		if err := query.Count(&count).Error; err != nil {
			return "", errors.Wrap(err, "check slug")
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func isValidStatus(status string) bool {
	for _, candidate := range validStatuses {
		if candidate == status {
			return true
		}
	}
	return false
}
