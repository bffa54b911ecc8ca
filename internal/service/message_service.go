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
	"gorm.io/gorm/clause"
)

const defaultMessagePurgeGrace = 24 * time.Hour

// MessageState 全局消息的生命周期状态。Purged 为终态，对应记录已被删除。
type MessageState string

const (
	MessageActive  MessageState = "active"
	MessageExpired MessageState = "expired"
	MessagePurged  MessageState = "purged"
)

// StateAt 根据 now 计算消息状态，不只依赖缓存的 IsActive 标记。
func StateAt(msg *db.GlobalMessage, now time.Time) MessageState {
	if !msg.IsActive || !now.Before(msg.ExpiresAt) {
		return MessageExpired
	}
	return MessageActive
}

// TimeRemaining 返回距离过期的剩余时长，已过期时为 0。
func TimeRemaining(msg *db.GlobalMessage, now time.Time) time.Duration {
	remaining := msg.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FormatRemaining 将剩余时长格式化为 "2d 3h 15m"，为 0 时返回 "expirado"。
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expirado"
	}
	d = d.Truncate(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// SweepPlan 一次清理需要执行的状态迁移。
type SweepPlan struct {
	Expired []uint
	Purged  []uint
}

// PlanSweep 是纯函数：到期的活跃消息转为过期，过期超过 grace 的消息被清除。
// 同一次清理中一条消息可以直接从 Active 进入 Purged，此时只出现在 Purged 中。
func PlanSweep(messages []db.GlobalMessage, now time.Time, grace time.Duration) SweepPlan {
	var plan SweepPlan
	for i := range messages {
		msg := &messages[i]
		switch {
		case !now.Before(msg.ExpiresAt.Add(grace)):
			plan.Purged = append(plan.Purged, msg.ID)
		case msg.IsActive && !now.Before(msg.ExpiresAt):
			plan.Expired = append(plan.Expired, msg.ID)
		}
	}
	return plan
}

// SweepResult 汇总一次清理实际影响的记录数。
type SweepResult struct {
	Deactivated int64 `json:"mensajes_desactivados"`
	Purged      int64 `json:"mensajes_eliminados"`
}

// MessageInput 创建全局消息的参数。
type MessageInput struct {
	Body         string
	DurationDays int
}

// MessageService 管理全局消息的生命周期与回复线程。
type MessageService struct {
	db    *gorm.DB
	grace time.Duration
}

// NewMessageService 创建 MessageService，过期后保留 1 天再清除。
func NewMessageService(gdb *gorm.DB) *MessageService {
	return &MessageService{db: gdb, grace: defaultMessagePurgeGrace}
}

// WithPurgeGrace 调整过期消息的保留时长。
func (s *MessageService) WithPurgeGrace(d time.Duration) *MessageService {
	if d > 0 {
		s.grace = d
	}
	return s
}

// Sweep 在单个事务中执行清理计划。重复执行不会产生额外影响。
func (s *MessageService) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	now = now.UTC()
	var result SweepResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []db.GlobalMessage
		if err := tx.Select("id", "expires_at", "is_active").
			Where("expires_at <= ?", now).
			Find(&candidates).Error; err != nil {
			return err
		}

		plan := PlanSweep(candidates, now, s.grace)

		if len(plan.Expired) > 0 {
			res := tx.Model(&db.GlobalMessage{}).
				Where("id IN ? AND is_active = ?", plan.Expired, true).
				Update("is_active", false)
			if res.Error != nil {
				return res.Error
			}
			result.Deactivated = res.RowsAffected
		}

		if len(plan.Purged) > 0 {
			if err := tx.Where("message_id IN ?", plan.Purged).Delete(&db.MessageReply{}).Error; err != nil {
				return err
			}
			res := tx.Where("id IN ?", plan.Purged).Delete(&db.GlobalMessage{})
			if res.Error != nil {
				return res.Error
			}
			result.Purged = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return result, errors.Wrap(err, "sweep global messages")
	}

	if result.Deactivated > 0 || result.Purged > 0 {
		logger.L().Info("global messages swept",
			zap.Int64("deactivated", result.Deactivated),
			zap.Int64("purged", result.Purged))
	}
	return result, nil
}

// ListActive 先执行清理，再返回活跃消息及其回复。
func (s *MessageService) ListActive(ctx context.Context, now time.Time) ([]db.GlobalMessage, error) {
	return s.listActive(ctx, now, 0)
}

// ListByAuthor 返回指定作者仍然活跃的消息。
func (s *MessageService) ListByAuthor(ctx context.Context, authorID uint, now time.Time) ([]db.GlobalMessage, error) {
	if authorID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.listActive(ctx, now, authorID)
}

func (s *MessageService) listActive(ctx context.Context, now time.Time, authorID uint) ([]db.GlobalMessage, error) {
	if _, err := s.Sweep(ctx, now); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Replies", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at asc").Order("id asc")
		}).
		Preload("Replies.Author").
		Where("is_active = ? AND expires_at > ?", true, now.UTC())
	if authorID != 0 {
		query = query.Where("author_id = ?", authorID)
	}

	var messages []db.GlobalMessage
	if err := query.Order("created_at desc").Order("id desc").Find(&messages).Error; err != nil {
		return nil, errors.Wrap(err, "list global messages")
	}
	return messages, nil
}

// Get 返回单条消息（含回复）。
func (s *MessageService) Get(ctx context.Context, id uint) (*db.GlobalMessage, error) {
	var msg db.GlobalMessage
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Replies", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at asc").Order("id asc")
		}).
		Preload("Replies.Author").
		First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, errors.Wrap(err, "load global message")
	}
	return &msg, nil
}

// Create 由员工发布全局消息，ExpiresAt 在此一次性确定。
func (s *MessageService) Create(ctx context.Context, author *db.User, input MessageInput, now time.Time) (*db.GlobalMessage, error) {
	if author == nil {
		return nil, ErrUnauthenticated
	}
	if !author.IsStaff() {
		return nil, ErrForbidden
	}

	// 正文按原样保存，转义交给渲染端
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, invalidInput("message body is empty")
	}
	if input.DurationDays <= 0 {
		return nil, invalidInput("duration must be a positive number of days")
	}

	now = now.UTC()
	msg := db.GlobalMessage{
		AuthorID:     author.ID,
		Body:         body,
		CreatedAt:    now,
		DurationDays: input.DurationDays,
		ExpiresAt:    now.AddDate(0, 0, input.DurationDays),
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, errors.Wrap(err, "create global message")
	}
	msg.Author = *author
	return &msg, nil
}

// Delete 仅作者可以删除自己的消息，回复一并删除。
func (s *MessageService) Delete(ctx context.Context, id uint, requester *db.User) error {
	if requester == nil {
		return ErrUnauthenticated
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg db.GlobalMessage
		if err := tx.Select("id", "author_id").First(&msg, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		if msg.AuthorID != requester.ID {
			return ErrForbidden
		}
		if err := tx.Where("message_id = ?", id).Delete(&db.MessageReply{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.GlobalMessage{}, id).Error
	})
}

// Deactivate 作者主动下线消息，之后按过期时间照常清除。
func (s *MessageService) Deactivate(ctx context.Context, id uint, requester *db.User) error {
	if requester == nil {
		return ErrUnauthenticated
	}

	var msg db.GlobalMessage
	if err := s.db.WithContext(ctx).Select("id", "author_id").First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return errors.Wrap(err, "load global message")
	}
	if msg.AuthorID != requester.ID {
		return ErrForbidden
	}

	return s.db.WithContext(ctx).Model(&db.GlobalMessage{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// AddReply 在消息仍处于活跃状态时追加回复；状态在事务内按 now 重新计算。
func (s *MessageService) AddReply(ctx context.Context, messageID uint, author *db.User, body string, now time.Time) (*db.MessageReply, error) {
	if author == nil {
		return nil, ErrUnauthenticated
	}
	now = now.UTC()

	var reply db.MessageReply
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msg db.GlobalMessage
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&msg, messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return err
		}

		if StateAt(&msg, now) != MessageActive {
			return ErrMessageExpired
		}
		if !author.IsStaff() {
			return ErrForbidden
		}

		text := strings.TrimSpace(body)
		if text == "" {
			return invalidInput("reply body is empty")
		}

		reply = db.MessageReply{
			MessageID: msg.ID,
			AuthorID:  author.ID,
			Body:      text,
			CreatedAt: now,
		}
		return tx.Create(&reply).Error
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, errors.Wrap(err, "add reply")
	}

	reply.Author = *author
	return &reply, nil
}

// RemoveReply 仅回复作者可删除。
func (s *MessageService) RemoveReply(ctx context.Context, messageID, replyID uint, requester *db.User) error {
	if requester == nil {
		return ErrUnauthenticated
	}

	var reply db.MessageReply
	if err := s.db.WithContext(ctx).
		Where("id = ? AND message_id = ?", replyID, messageID).
		First(&reply).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReplyNotFound
		}
		return errors.Wrap(err, "load reply")
	}

	if reply.AuthorID != requester.ID {
		return ErrForbidden
	}

	return s.db.WithContext(ctx).Delete(&db.MessageReply{}, reply.ID).Error
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrArticleNotFound, ErrMessageNotFound, ErrReplyNotFound, ErrUserNotFound,
		ErrForbidden, ErrUnauthenticated, ErrInvalidInput, ErrMessageExpired, ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
