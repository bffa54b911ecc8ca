package db

import "time"

// GlobalMessage 员工发布的全局消息，ExpiresAt 在创建时一次性计算。
type GlobalMessage struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	AuthorID     uint           `gorm:"not null;index" json:"autor"`
	Author       User           `json:"-"`
	Body         string         `gorm:"type:text;not null" json:"mensaje"`
	CreatedAt    time.Time      `json:"fecha_creacion"`
	DurationDays int            `gorm:"not null" json:"duracion_dias"`
	ExpiresAt    time.Time      `gorm:"not null;index" json:"fecha_expiracion"`
	IsActive     bool           `gorm:"not null;default:true;index" json:"activo"`
	Replies      []MessageReply `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"respuestas"`
}

// TableName 指定自定义表名。
func (GlobalMessage) TableName() string {
	return "global_messages"
}

// MessageReply 挂在全局消息下的回复，只允许作者删除。
type MessageReply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"not null;index" json:"mensaje_global"`
	AuthorID  uint      `gorm:"not null;index" json:"autor"`
	Author    User      `json:"-"`
	Body      string    `gorm:"type:text;not null" json:"respuesta"`
	CreatedAt time.Time `json:"fecha_creacion"`
}

// TableName 指定自定义表名。
func (MessageReply) TableName() string {
	return "message_replies"
}
