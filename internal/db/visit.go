package db

import "time"

// ArticleVisit 记录单次被计入的浏览事件，创建后不再修改。
type ArticleVisit struct {
	ID            uint      `gorm:"primaryKey"`
	ArticleID     uint      `gorm:"not null;index:idx_article_visits_article_time,priority:1"`
	VisitedAt     time.Time `gorm:"not null;index:idx_article_visits_article_time,priority:2;index:idx_article_visits_time"`
	SourceAddress *string   `gorm:"size:64"`
}

// TableName 指定自定义表名。
func (ArticleVisit) TableName() string {
	return "article_visits"
}

// 读者对文章的表态类型
const (
	ReactionInterest = "interesa"
	ReactionFun      = "divierte"
	ReactionSad      = "entristece"
	ReactionAngry    = "enoja"
)

// ReactionKinds 按固定顺序列出全部表态类型。
var ReactionKinds = []string{ReactionInterest, ReactionFun, ReactionSad, ReactionAngry}

// ArticleReaction 每位用户对每篇文章至多一条表态。
type ArticleReaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ArticleID uint      `gorm:"not null;uniqueIndex:idx_reaction_article_user" json:"noticia"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_reaction_article_user" json:"usuario"`
	Kind      string    `gorm:"size:20;not null" json:"tipo_reaccion"`
	CreatedAt time.Time `json:"fecha_creacion"`
	UpdatedAt time.Time `json:"-"`
}

// TableName 指定自定义表名。
func (ArticleReaction) TableName() string {
	return "article_reactions"
}
