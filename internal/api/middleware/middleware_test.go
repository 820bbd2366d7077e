package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkpage/internal/auth"
	"linkpage/internal/errcode"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationIDMiddleware(), SlogLoggerMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))), ErrorHandler())
	return r
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body.Error.Code
}

func TestAuthMiddleware(t *testing.T) {
	tokens, err := auth.NewTokenService("secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	userID := uuid.New()
	token, err := tokens.Issue(userID, "a@test.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	r := newEngine()
	r.GET("/private", AuthMiddleware(tokens), func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			t.Errorf("expected user id in context")
		}
		c.String(http.StatusOK, id.String())
	})

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{name: "missing", header: "", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "wrong scheme", header: "Basic " + token, status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized, code: "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.status || errorCode(t, rec) != tt.code {
				t.Fatalf("expected %d %s, got %d %s", tt.status, tt.code, rec.Code, rec.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != userID.String() {
		t.Fatalf("expected 200 with user id, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	r := newEngine()
	r.GET("/known", func(c *gin.Context) {
		_ = c.Error(errcode.ErrSlugTaken)
	})
	r.GET("/wrapped", func(c *gin.Context) {
		_ = c.Error(errors.Join(errors.New("context"), errcode.ErrLinkNotFound))
	})
	r.GET("/unknown", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: connection refused"))
	})

	cases := map[string]struct {
		status int
		code   string
	}{
		"/known":   {http.StatusConflict, "SLUG_TAKEN"},
		"/wrapped": {http.StatusNotFound, "LINK_NOT_FOUND"},
		"/unknown": {http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want.status || errorCode(t, rec) != want.code {
			t.Fatalf("%s: expected %d %s, got %d %s", path, want.status, want.code, rec.Code, rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "pq:") {
			t.Fatalf("%s: internal error leaked: %s", path, rec.Body.String())
		}
	}
}

func TestCorrelationID(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Body.String() != "abc-123" || rec.Header().Get("X-Correlation-ID") != "abc-123" {
		t.Fatalf("expected incoming id to be kept, got %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", strings.Repeat("x", 200))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if _, err := uuid.Parse(rec.Body.String()); err != nil {
		t.Fatalf("expected oversized id to be replaced with a uuid, got %q", rec.Body.String())
	}
}
