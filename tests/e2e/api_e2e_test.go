package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diario/internal/db"
	"github.com/diario/internal/handler"
	"github.com/diario/internal/router"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const baseURL = "http://diario.test"

type e2eSuite struct {
	handler http.Handler
	clock   *testClock
	public  *localClient
	admin   *localClient
	staff   *localClient
	reader  *localClient
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
	token   string
}

func newLocalClient(handler http.Handler, withJar bool) *localClient {
	var jar http.CookieJar
	if withJar {
		if j, err := cookiejar.New(nil); err == nil {
			jar = j
		}
	}
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

func TestE2E_NewsroomFlow(t *testing.T) {
	suite := newE2ESuite(t)

	suite.admin = suite.login(t, "admin", "admin123", true)
	suite.staff = suite.login(t, "redactor", "redactor123", true)
	// 读者只用 Bearer 令牌，不保留会话
	suite.reader = suite.login(t, "lector", "lector123", false)

	var articleID uint
	t.Run("staff publishes article", func(t *testing.T) {
		articleID = suite.testPublishArticle(t)
	})
	t.Run("visits and popularity", func(t *testing.T) {
		suite.testVisitsAndPopularity(t, articleID)
	})
	t.Run("reactions", func(t *testing.T) {
		suite.testReactions(t, articleID)
	})
	t.Run("global messages lifecycle", suite.testMessages)
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e_%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	for _, u := range []struct{ name, pass, role string }{
		{"admin", "admin123", db.RoleAdmin},
		{"redactor", "redactor123", db.RoleStaff},
		{"lector", "lector123", db.RoleReader},
	} {
		if err := db.EnsureUser(gdb, u.name, u.pass, u.role); err != nil {
			t.Fatalf("failed to create user %s: %v", u.name, err)
		}
	}

	clock := &testClock{now: time.Date(2024, 9, 2, 12, 0, 0, 0, time.UTC)}
	// 场景内时钟会前进十余天，令牌有效期需覆盖整个流程
	api := handler.NewAPI(gdb, handler.Options{
		JWTSecret: "e2e-jwt",
		TokenTTL:  30 * 24 * time.Hour,
	})
	api.SetClock(clock.Now)

	r := router.SetupRouter(api, router.Options{SessionSecret: "e2e-session"})
	return &e2eSuite{
		handler: r,
		clock:   clock,
		public:  newLocalClient(r, false),
	}
}

func (s *e2eSuite) login(t *testing.T, username, password string, withJar bool) *localClient {
	t.Helper()
	client := newLocalClient(s.handler, withJar)
	resp := s.do(t, client, http.MethodPost, "/login/", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s failed: %d %s", username, resp.StatusCode, body)
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Token == "" {
		t.Fatalf("login %s returned no token: %s", username, body)
	}
	if !withJar {
		client.token = payload.Token
	}
	return client
}

func (s *e2eSuite) testPublishArticle(t *testing.T) uint {
	resp := s.do(t, s.reader, http.MethodPost, "/noticias/", map[string]interface{}{
		"nombre_noticia": "Intento de lector",
	}, nil)
	expectStatus(t, resp, http.StatusForbidden)

	resp = s.do(t, s.staff, http.MethodPost, "/noticias/", map[string]interface{}{
		"nombre_noticia": "Economía: el dólar sube",
		"subtitulo":      "Semana agitada",
		"contenido":      "**Fuerte** suba<script>alert(1)</script>",
		"categorias":     "dolar, finanzas",
		"estado":         "publicado",
	}, nil)
	var created struct {
		ID         uint     `json:"id"`
		Slug       string   `json:"slug"`
		URL        string   `json:"url"`
		Categories []string `json:"categorias"`
	}
	decodeJSON(t, resp, http.StatusCreated, &created)
	if created.Slug != "economia-el-dolar-sube" {
		t.Fatalf("unexpected slug %q", created.Slug)
	}
	if created.URL != fmt.Sprintf("/noticias/%d-economia-el-dolar-sube/", created.ID) {
		t.Fatalf("unexpected url %q", created.URL)
	}
	if strings.Join(created.Categories, ",") != "dolar,finanzas" {
		t.Fatalf("unexpected categories %v", created.Categories)
	}

	resp = s.do(t, s.staff, http.MethodPost, "/noticias/", map[string]interface{}{
		"nombre_noticia": "Borrador",
		"categorias":     "inexistente",
	}, nil)
	expectStatus(t, resp, http.StatusBadRequest)

	return created.ID
}

func (s *e2eSuite) testVisitsAndPopularity(t *testing.T, articleID uint) {
	ref := fmt.Sprintf("/noticias/%d-economia-el-dolar-sube/", articleID)

	for _, addr := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.1"} {
		resp := s.do(t, s.public, http.MethodGet, ref, nil, http.Header{"X-Forwarded-For": {addr}})
		var article struct {
			ContentHTML string `json:"contenido_html"`
		}
		decodeJSON(t, resp, http.StatusOK, &article)
		if strings.Contains(article.ContentHTML, "<script>") || !strings.Contains(article.ContentHTML, "<strong>Fuerte</strong>") {
			t.Fatalf("unexpected rendered content %q", article.ContentHTML)
		}
	}

	var weekly []struct {
		ID      uint   `json:"id"`
		Rolling uint64 `json:"contador_visitas"`
		Total   uint64 `json:"contador_visitas_total"`
	}
	decodeJSON(t, s.do(t, s.public, http.MethodGet, "/noticias/mas-vistas/", nil, nil), http.StatusOK, &weekly)
	if len(weekly) != 1 || weekly[0].ID != articleID || weekly[0].Rolling != 2 || weekly[0].Total != 2 {
		t.Fatalf("unexpected weekly ranking %+v", weekly)
	}

	var stats struct {
		TotalAllTime uint64 `json:"total_visitas_historicas"`
		Articles     int64  `json:"total_noticias"`
	}
	decodeJSON(t, s.do(t, s.public, http.MethodGet, "/noticias/estadisticas-visitas/", nil, nil), http.StatusOK, &stats)
	if stats.TotalAllTime != 2 || stats.Articles != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	var section []struct {
		ID uint `json:"id"`
	}
	decodeJSON(t, s.do(t, s.public, http.MethodGet, "/noticias/economia/", nil, nil), http.StatusOK, &section)
	if len(section) != 1 || section[0].ID != articleID {
		t.Fatalf("expected article in economia section, got %+v", section)
	}

	// 超过一周后滚动计数重置，历史计数保留
	s.clock.Advance(8 * 24 * time.Hour)
	resp := s.do(t, s.public, http.MethodGet, ref, nil, http.Header{"X-Forwarded-For": {"203.0.113.9"}})
	var after struct {
		Rolling uint64 `json:"contador_visitas"`
		Total   uint64 `json:"contador_visitas_total"`
	}
	decodeJSON(t, resp, http.StatusOK, &after)
	if after.Rolling != 1 || after.Total != 3 {
		t.Fatalf("expected rolling 1 total 3 after window, got %+v", after)
	}

	body := map[string]interface{}{"ids": []uint{articleID}}
	expectStatus(t, s.do(t, s.staff, http.MethodPost, "/noticias/reiniciar-visitas/", body, nil), http.StatusForbidden)
	var reset struct {
		Rows int64 `json:"reiniciadas"`
	}
	decodeJSON(t, s.do(t, s.admin, http.MethodPost, "/noticias/reiniciar-visitas/", body, nil), http.StatusOK, &reset)
	if reset.Rows != 1 {
		t.Fatalf("expected one article reset, got %d", reset.Rows)
	}
}

func (s *e2eSuite) testReactions(t *testing.T, articleID uint) {
	base := fmt.Sprintf("/noticias/%d/", articleID)

	expectStatus(t, s.do(t, s.public, http.MethodPost, base+"reacciones/", map[string]string{"tipo_reaccion": "interesa"}, nil), http.StatusUnauthorized)
	expectStatus(t, s.do(t, s.reader, http.MethodPost, base+"reacciones/", map[string]string{"tipo_reaccion": "interesa"}, nil), http.StatusCreated)
	expectStatus(t, s.do(t, s.reader, http.MethodPost, base+"reacciones/", map[string]string{"tipo_reaccion": "enoja"}, nil), http.StatusOK)

	var counts map[string]int64
	decodeJSON(t, s.do(t, s.public, http.MethodGet, base+"reacciones/", nil, nil), http.StatusOK, &counts)
	if counts["enoja"] != 1 || counts["interesa"] != 0 {
		t.Fatalf("unexpected reaction counts %v", counts)
	}

	expectStatus(t, s.do(t, s.reader, http.MethodDelete, base+"reacciones/", nil, nil), http.StatusNoContent)
	var mine map[string]interface{}
	decodeJSON(t, s.do(t, s.reader, http.MethodGet, base+"mi-reaccion/", nil, nil), http.StatusOK, &mine)
	if mine["tipo_reaccion"] != nil {
		t.Fatalf("expected no reaction after removal, got %v", mine)
	}
}

func (s *e2eSuite) testMessages(t *testing.T) {
	expectStatus(t, s.do(t, s.public, http.MethodGet, "/mensajes/", nil, nil), http.StatusUnauthorized)
	expectStatus(t, s.do(t, s.reader, http.MethodPost, "/mensajes/", map[string]interface{}{
		"mensaje": "hola", "duracion_dias": 1,
	}, nil), http.StatusForbidden)

	var msg struct {
		ID        uint   `json:"id"`
		Remaining string `json:"tiempo_restante"`
	}
	decodeJSON(t, s.do(t, s.staff, http.MethodPost, "/mensajes/", map[string]interface{}{
		"mensaje": "Cierre de edición a las 20", "duracion_dias": 1,
	}, nil), http.StatusCreated, &msg)
	if msg.Remaining != "1d 0h 0m" {
		t.Fatalf("unexpected remaining %q", msg.Remaining)
	}

	replyURL := fmt.Sprintf("/mensajes/%d/responder/", msg.ID)
	var reply struct {
		ID uint `json:"id"`
	}
	decodeJSON(t, s.do(t, s.admin, http.MethodPost, replyURL, map[string]string{"respuesta": "Entendido"}, nil), http.StatusCreated, &reply)

	var listed []struct {
		ID         uint `json:"id"`
		ReplyCount int  `json:"total_respuestas"`
	}
	decodeJSON(t, s.do(t, s.reader, http.MethodGet, "/mensajes/", nil, nil), http.StatusOK, &listed)
	if len(listed) != 1 || listed[0].ReplyCount != 1 {
		t.Fatalf("unexpected active messages %+v", listed)
	}

	// 只有回复作者可以删除回复
	removeURL := fmt.Sprintf("/mensajes/%d/eliminar_respuesta/?respuesta_id=%d", msg.ID, reply.ID)
	expectStatus(t, s.do(t, s.staff, http.MethodDelete, removeURL, nil, nil), http.StatusForbidden)

	s.clock.Advance(25 * time.Hour)
	resp := s.do(t, s.reader, http.MethodPost, replyURL, map[string]string{"respuesta": "tarde"}, nil)
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "Este mensaje ha expirado") {
		t.Fatalf("expected expired reply rejection, got %d %s", resp.StatusCode, body)
	}

	var sweep struct {
		Deactivated int64 `json:"mensajes_desactivados"`
		Purged      int64 `json:"mensajes_eliminados"`
	}
	decodeJSON(t, s.do(t, s.staff, http.MethodPost, "/mensajes/limpiar_expirados/", nil, nil), http.StatusOK, &sweep)
	if sweep.Deactivated != 1 || sweep.Purged != 0 {
		t.Fatalf("unexpected first sweep %+v", sweep)
	}

	s.clock.Advance(24 * time.Hour)
	decodeJSON(t, s.do(t, s.staff, http.MethodPost, "/mensajes/limpiar_expirados/", nil, nil), http.StatusOK, &sweep)
	if sweep.Purged != 1 {
		t.Fatalf("expected expired message purged, got %+v", sweep)
	}

	expectStatus(t, s.do(t, s.staff, http.MethodDelete, fmt.Sprintf("/mensajes/%d/", msg.ID), nil, nil), http.StatusNotFound)
}

func (s *e2eSuite) do(t *testing.T, client *localClient, method, path string, body interface{}, header http.Header) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if client.token != "" {
		req.Header.Set("Authorization", "Bearer "+client.token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return body
}

func expectStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	body := readBody(t, resp)
	if resp.StatusCode != status {
		t.Fatalf("expected status %d, got %d: %s", status, resp.StatusCode, body)
	}
}

func decodeJSON(t *testing.T, resp *http.Response, status int, dst interface{}) {
	t.Helper()
	body := readBody(t, resp)
	if resp.StatusCode != status {
		t.Fatalf("expected status %d, got %d: %s", status, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		t.Fatalf("failed to decode %s: %v", body, err)
	}
}
