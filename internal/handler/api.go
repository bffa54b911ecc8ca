package handler

import (
	"time"

	"github.com/diario/internal/service"
	"gorm.io/gorm"
)

// Options 组装 API 时可调整的策略参数与外部依赖。
type Options struct {
	JWTSecret          string
	TokenTTL           time.Duration
	Cache              service.PopularityCache
	Images             service.ImageStore
	VisitDedupWindow   time.Duration
	VisitRollingWindow time.Duration
	MessagePurgeGrace  time.Duration
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	articles   *service.ArticleService
	visits     visitRecorder
	popularity *service.PopularityService
	messages   *service.MessageService
	reactions  *service.ReactionService
	comments   *service.CommentService
	auth       *service.AuthService
	images     service.ImageStore
	now        func() time.Time
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, opts Options) *API {
	registerValidators()

	visits := service.NewVisitService(db).
		WithDedupWindow(opts.VisitDedupWindow).
		WithRollingWindow(opts.VisitRollingWindow)
	popularity := service.NewPopularityService(db).
		WithRollingWindow(opts.VisitRollingWindow)
	if opts.Cache != nil {
		visits.WithCache(opts.Cache)
		popularity.WithCache(opts.Cache)
	}

	articles := service.NewArticleService(db)
	if opts.Images != nil {
		articles.WithImageStore(opts.Images)
	}

	return &API{
		articles:   articles,
		visits:     visits,
		popularity: popularity,
		messages:   service.NewMessageService(db).WithPurgeGrace(opts.MessagePurgeGrace),
		reactions:  service.NewReactionService(db),
		comments:   service.NewCommentService(db),
		auth:       service.NewAuthService(db, opts.JWTSecret).WithTokenTTL(opts.TokenTTL),
		images:     opts.Images,
		now:        time.Now,
	}
}

// SetClock 替换时间来源，主要面向测试场景。
func (a *API) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	a.now = now
}
