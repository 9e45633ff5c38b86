package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/roadblock/internal/models"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, now time.Time) *Manager {
	t.Helper()
	m, err := NewManager(testSecret, true)
	require.NoError(t, err)
	m.now = func() time.Time { return now }
	return m
}

func requestWithCookie(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/vehicles/3?tab=payments", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

type fakeUsers map[uint]*models.User

func (f fakeUsers) FindByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func TestNewManager_RequiresSecret(t *testing.T) {
	t.Parallel()
	_, err := NewManager(nil, true)
	require.Error(t, err)
}

func TestCreateSession_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now()
	m := newTestManager(t, now)

	tests := []struct {
		name     string
		remember bool
	}{
		{name: "browser session", remember: false},
		{name: "remembered", remember: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cookie, err := m.CreateSession(42, tt.remember)
			require.NoError(t, err)

			assert.Equal(t, CookieName, cookie.Name)
			assert.True(t, cookie.HttpOnly)
			assert.True(t, cookie.Secure)
			assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
			assert.Equal(t, "/", cookie.Path)

			if tt.remember {
				assert.Equal(t, int(RememberTTL.Seconds()), cookie.MaxAge)
				assert.WithinDuration(t, now.Add(RememberTTL), cookie.Expires, time.Second)
			} else {
				assert.Zero(t, cookie.MaxAge)
				assert.True(t, cookie.Expires.IsZero())
			}

			id, ok := m.ReadSession(requestWithCookie(cookie))
			require.True(t, ok)
			assert.Equal(t, uint(42), id)

			claims, err := ClaimsFromToken(cookie.Value, testSecret)
			require.NoError(t, err)
			assert.Equal(t, tt.remember, claims.Remember)
		})
	}
}

func TestReadSession_RejectsBadTokens(t *testing.T) {
	t.Parallel()

	now := time.Now()
	m := newTestManager(t, now)

	good, err := m.CreateSession(7, false)
	require.NoError(t, err)

	otherKey, err := NewManager([]byte("another-secret-another-secret-xx"), true)
	require.NoError(t, err)
	foreign, err := otherKey.CreateSession(7, false)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7"},
	}).SignedString(testSecret)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)

	parts := strings.Split(good.Value, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		value string
	}{
		{name: "empty", value: ""},
		{name: "garbage", value: "not-a-token"},
		{name: "tampered payload", value: tampered},
		{name: "other secret", value: foreign.Value},
		{name: "hs512", value: hs512},
		{name: "alg none", value: none},
		{name: "no expiry", value: noExp},
		{name: "non numeric subject", value: badSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok := m.ReadSession(requestWithCookie(&http.Cookie{Name: CookieName, Value: tt.value}))
			assert.False(t, ok)
		})
	}

	_, ok := m.ReadSession(requestWithCookie(nil))
	assert.False(t, ok)
}

func TestReadSession_Expiry(t *testing.T) {
	t.Parallel()

	issued := time.Now()
	m := newTestManager(t, issued)

	short, err := m.CreateSession(1, false)
	require.NoError(t, err)
	long, err := m.CreateSession(1, true)
	require.NoError(t, err)

	later := newTestManager(t, issued.Add(SessionTTL+time.Minute))
	_, ok := later.ReadSession(requestWithCookie(short))
	assert.False(t, ok)
	_, ok = later.ReadSession(requestWithCookie(long))
	assert.True(t, ok)

	muchLater := newTestManager(t, issued.Add(RememberTTL+time.Minute))
	_, ok = muchLater.ReadSession(requestWithCookie(long))
	assert.False(t, ok)
}

func TestDestroySession(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, time.Now())
	c := m.DestroySession()
	assert.Equal(t, CookieName, c.Name)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
}

func TestRequireUser(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, time.Now())
	users := fakeUsers{5: {ID: 5, Username: "test_user"}}

	handler := m.RequireUser(users)(func(c echo.Context) error {
		return c.String(http.StatusOK, CurrentUser(c).Username)
	})

	valid, err := m.CreateSession(5, true)
	require.NoError(t, err)
	vanished, err := m.CreateSession(6, true)
	require.NoError(t, err)

	tests := []struct {
		name        string
		cookie      *http.Cookie
		wantStatus  int
		wantBody    string
		wantCleared bool
	}{
		{name: "valid", cookie: valid, wantStatus: http.StatusOK, wantBody: "test_user"},
		{name: "no cookie", cookie: nil, wantStatus: http.StatusSeeOther},
		{name: "invalid cookie", cookie: &http.Cookie{Name: CookieName, Value: "junk"}, wantStatus: http.StatusSeeOther, wantCleared: true},
		{name: "user deleted", cookie: vanished, wantStatus: http.StatusSeeOther, wantCleared: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(requestWithCookie(tt.cookie), rec)

			require.NoError(t, handler(c))
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusSeeOther {
				assert.Equal(t, "/login?redirectTo=%2Fvehicles%2F3%3Ftab%3Dpayments", rec.Header().Get(echo.HeaderLocation))
			} else {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}

			cleared := strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0")
			assert.Equal(t, tt.wantCleared, cleared)
		})
	}
}

func TestRequireBearer(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, time.Now())
	users := fakeUsers{5: {ID: 5, Username: "test_user"}}
	handler := m.RequireBearer(users)(func(c echo.Context) error {
		return c.String(http.StatusOK, CurrentUser(c).Username)
	})

	token, _, err := m.Issue(5, true)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/vehicles", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, "test_user", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/vehicles", nil)
	rec = httptest.NewRecorder()
	err = handler(e.NewContext(req, rec))
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}
