package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diario/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

func TestClientAddress(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		remote    string
		want      string
	}{
		{name: "first forwarded hop", forwarded: " 203.0.113.5 , 10.0.0.1", remote: "192.0.2.1:5555", want: "203.0.113.5"},
		{name: "remote address", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "empty forwarded", forwarded: " , ", remote: "192.0.2.9:80", want: "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				c.Request.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientAddress(c); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 10},
		{"limit=3", 3},
		{"limit=0", 10},
		{"limit=-4", 10},
		{"limit=abc", 10},
		{"limit=1000", service.MaxQueryLimit},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		if got := parseLimit(c, 10); got != tt.want {
			t.Fatalf("parseLimit(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestRespondServiceErrorStatuses(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrArticleNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrMessageExpired, http.StatusBadRequest},
		{errors.Wrap(service.ErrInvalidInput, "bad title"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		respondServiceError(c, tt.err)
		if w.Code != tt.want {
			t.Fatalf("error %v: expected %d, got %d", tt.err, tt.want, w.Code)
		}
	}
}
