package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/diario/internal/db"
	"github.com/gin-gonic/gin"
)

func TestReactionHandlers(t *testing.T) {
	api, gdb := setupTestAPI(t, Options{})
	article := seedArticle(t, gdb, "Reacciones", db.StatusPublished, "", fixedNow)
	reader := seedUser(t, gdb, "lector", db.RoleReader)
	params := gin.Params{{Key: "ref", Value: fmt.Sprint(article.ID)}}

	var mine map[string]interface{}
	w := perform(t, requestSpec{method: http.MethodGet, target: "/noticias/1/mi-reaccion/", params: params, user: reader}, api.MyReaction)
	decode(t, w, &mine)
	if value, ok := mine["tipo_reaccion"]; !ok || value != nil {
		t.Fatalf("expected null tipo_reaccion, got %v", mine)
	}

	body := map[string]interface{}{"tipo_reaccion": "interesa"}
	w = perform(t, requestSpec{method: http.MethodPost, target: "/noticias/1/reacciones/", body: body, params: params, user: reader}, api.React)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	body["tipo_reaccion"] = "enoja"
	w = perform(t, requestSpec{method: http.MethodPost, target: "/noticias/1/reacciones/", body: body, params: params, user: reader}, api.React)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when replacing reaction, got %d", w.Code)
	}

	var counts map[string]int64
	w = perform(t, requestSpec{method: http.MethodGet, target: "/noticias/1/reacciones/", params: params}, api.ReactionCounts)
	decode(t, w, &counts)
	if counts["enoja"] != 1 || counts["interesa"] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}

	w = perform(t, requestSpec{method: http.MethodPost, target: "/noticias/1/reacciones/", body: map[string]interface{}{"tipo_reaccion": "aburre"}, params: params, user: reader}, api.React)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", w.Code)
	}

	w = perform(t, requestSpec{method: http.MethodDelete, target: "/noticias/1/reacciones/", params: params, user: reader}, api.RemoveReaction)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}
