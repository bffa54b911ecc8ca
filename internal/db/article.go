package db

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// 文章发布状态
const (
	StatusDraft       = "borrador"
	StatusTrash       = "en_papelera"
	StatusPublished   = "publicado"
	StatusReadyToEdit = "listo_para_editar"
)

// Article 定义了新闻文章模型，包含滚动周计数与历史总计数两个浏览计数器。
type Article struct {
	gorm.Model
	Title           string    `gorm:"size:255;not null" json:"nombre_noticia"`
	Subtitle        string    `json:"subtitulo"`
	Content         string    `json:"contenido"`
	Slug            string    `gorm:"size:255;uniqueIndex" json:"slug"`
	Categories      string    `json:"categorias"`
	Keywords        string    `gorm:"size:200" json:"palabras_clave"`
	Status          string    `gorm:"size:32;index;not null;default:borrador" json:"estado"`
	PublishedAt     time.Time `gorm:"index" json:"fecha_publicacion"`
	AuthorID        uint      `gorm:"index" json:"autor"`
	Author          User      `json:"-"`
	HeaderImageURL  string    `json:"imagen_cabecera"`
	SubscribersOnly bool      `json:"solo_para_subscriptores"`
	CommentsEnabled bool      `json:"tiene_comentarios"`

	RollingVisitCount   uint64    `gorm:"not null;default:0" json:"contador_visitas"`
	TotalVisitCount     uint64    `gorm:"not null;default:0" json:"contador_visitas_total"`
	RollingWindowAnchor time.Time `gorm:"index" json:"ultima_actualizacion_contador"`
}

// IsPublished 判断文章是否处于对外可见的发布状态。
func (a *Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// AbsoluteURL 返回带 id 前缀与 slug 的友好地址。
func (a *Article) AbsoluteURL() string {
	if a.Slug == "" {
		return fmt.Sprintf("/noticias/%d/", a.ID)
	}
	return fmt.Sprintf("/noticias/%d-%s/", a.ID, a.Slug)
}

// CategoryList 拆分逗号拼接的分类字段。
func (a *Article) CategoryList() []string {
	return SplitCategories(a.Categories)
}

// SplitCategories 拆分并清理逗号分隔的分类标识。
func SplitCategories(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Slugify 将标题转换为 URL 片段：去除重音、转小写、非字母数字替换为连字符。
func Slugify(title string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		stripped = title
	}

	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(stripped) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}

	return strings.Trim(b.String(), "-")
}
