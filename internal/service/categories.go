package service

import (
	"fmt"
	"strings"

	"github.com/diario/internal/db"
)

// CategoryGroups 当前分类体系：栏目 -> 子分类标识。
var CategoryGroups = map[string][]string{
	"politica": {"legislativos", "judiciales", "conurbano", "provincias", "municipios", "protestas"},
	"cultura":  {"cine", "literatura", "moda", "tecnologia", "eventos"},
	"economia": {"finanzas", "negocios", "empresas", "dolar"},
	"mundo":    {"politica_exterior", "estados_unidos", "asia", "medio_oriente", "internacional"},
}

// TopLevelCategories 不属于任何栏目的独立分类。
var TopLevelCategories = []string{"portada"}

// LegacyCategories 已停用但历史文章仍在使用的分类标识，写入与筛选时都需接受。
var LegacyCategories = []string{
	"nacion", "policiales", "elecciones", "gobierno", "capital",
	"salud", "educacion", "efemerides", "deporte",
	"comercio_internacional", "politica_economica", "pobreza_e_inflacion",
	"latinoamerica",
	"de_analisis", "de_opinion", "informativas", "entrevistas",
}

// SectionCategories 各栏目列表接口匹配的分类标识（含历史标识）。
var SectionCategories = map[string][]string{
	"politica":    {"nacion", "legislativos", "policiales", "elecciones", "gobierno", "provincias", "capital"},
	"cultura":     {"cine", "literatura", "salud", "tecnologia", "eventos", "educacion", "efemerides", "deporte"},
	"economia":    {"finanzas", "comercio_internacional", "politica_economica", "dolar", "pobreza_e_inflacion"},
	"mundo":       {"estados_unidos", "asia", "medio_oriente", "internacional", "latinoamerica"},
	"tipos-notas": {"de_analisis", "de_opinion", "informativas", "entrevistas"},
}

var allowedCategories = buildAllowedCategories()

func buildAllowedCategories() map[string]struct{} {
	allowed := make(map[string]struct{})
	for _, group := range CategoryGroups {
		for _, token := range group {
			allowed[token] = struct{}{}
		}
	}
	for _, token := range TopLevelCategories {
		allowed[token] = struct{}{}
	}
	for _, token := range LegacyCategories {
		allowed[token] = struct{}{}
	}
	return allowed
}

// IsKnownCategory 判断分类标识是否在当前或历史分类中。
func IsKnownCategory(token string) bool {
	_, ok := allowedCategories[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// NormalizeCategories 校验并规范化逗号分隔的分类字段。
func NormalizeCategories(value string) (string, error) {
	tokens := db.SplitCategories(value)
	var invalid []string
	for i, token := range tokens {
		tokens[i] = strings.ToLower(token)
		if !IsKnownCategory(tokens[i]) {
			invalid = append(invalid, token)
		}
	}
	if len(invalid) > 0 {
		return "", invalidInput(fmt.Sprintf("invalid categories: %s", strings.Join(invalid, ", ")))
	}
	return strings.Join(tokens, ","), nil
}
