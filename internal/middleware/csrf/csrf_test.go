package csrf

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(Config{Secure: false, SkipPrefixes: []string{"/api/"}}))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/login", ok)
	e.POST("/login", ok)
	e.POST("/api/login", ok)
	return e
}

func issueToken(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)
	return token
}

func postForm(token, cookie, origin string) *http.Request {
	body := url.Values{"username": {"alice"}}
	if token != "" {
		body.Set("csrf_token", token)
	}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: cookie})
	}
	return req
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	e := newServer()
	token := issueToken(t, e)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{name: "matching form token", req: postForm(token, token, "http://example.com"), status: http.StatusOK},
		{name: "missing token", req: postForm("", token, "http://example.com"), status: http.StatusForbidden},
		{name: "wrong token", req: postForm("other", token, "http://example.com"), status: http.StatusForbidden},
		{name: "no cookie", req: postForm(token, "", "http://example.com"), status: http.StatusForbidden},
		{name: "foreign origin", req: postForm(token, token, "http://evil.com"), status: http.StatusForbidden},
		{name: "no origin", req: postForm(token, token, ""), status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMiddleware_HeaderToken(t *testing.T) {
	t.Parallel()

	e := newServer()
	token := issueToken(t, e)

	req := postForm("", token, "http://example.com")
	req.Header.Set("X-CSRF-Token", token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_SkipPrefixes(t *testing.T) {
	t.Parallel()

	e := newServer()
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}
