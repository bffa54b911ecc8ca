package db

import "time"

// ArticleComment 读者在文章下的评论，员工可追加一条回复。
type ArticleComment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ArticleID uint       `gorm:"not null;index" json:"noticia"`
	AuthorID  uint       `gorm:"not null;index" json:"autor"`
	Author    User       `json:"-"`
	Body      string     `gorm:"type:text;not null" json:"contenido"`
	CreatedAt time.Time  `json:"fecha_creacion"`
	Reply     string     `gorm:"type:text" json:"respuesta"`
	RepliedAt *time.Time `json:"fecha_respuesta"`
}

// TableName 指定自定义表名。
func (ArticleComment) TableName() string {
	return "article_comments"
}
