package service

import "github.com/pkg/errors"

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrReplyNotFound   = errors.New("reply not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrCommentNotFound = errors.New("comment not found")

	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMessageExpired  = errors.New("message expired")
	// ErrConflict 预留：计数器并发通过原子自增解决，正常流程不会返回。
	ErrConflict = errors.New("conflict")

	// ErrCommentsDisabled 文章关闭了评论。
	ErrCommentsDisabled = errors.New("comments disabled")
)

// invalidInput 附带描述信息，同时保持 errors.Is(err, ErrInvalidInput) 成立。
func invalidInput(msg string) error {
	return errors.Wrap(ErrInvalidInput, msg)
}
