package session

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "__session"

	RememberTTL = 7 * 24 * time.Hour
	// SessionTTL bounds a browser-session cookie whose browser never closes.
	SessionTTL = 24 * time.Hour
)

// Manager issues and reads stateless session tokens. Nothing is stored on
// the server, so a token stays valid until it expires.
type Manager struct {
	secret []byte
	secure bool
	now    func() time.Time
}

func NewManager(secret []byte, secure bool) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is empty")
	}
	return &Manager{secret: secret, secure: secure, now: time.Now}, nil
}

// Issue signs a token for userID and returns it with its expiry.
func (m *Manager) Issue(userID uint, remember bool) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(SessionTTL)
	if remember {
		exp = now.Add(RememberTTL)
	}
	claims := Claims{
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// CreateSession returns the cookie to set after login or signup. Without
// remember the cookie has no expiry and is dropped when the browser closes.
func (m *Manager) CreateSession(userID uint, remember bool) (*http.Cookie, error) {
	token, exp, err := m.Issue(userID, remember)
	if err != nil {
		return nil, err
	}
	c := CreateCookie(CookieName, token, "/", m.secure)
	if remember {
		c.Expires = exp
		c.MaxAge = int(RememberTTL.Seconds())
	}
	return c, nil
}

// ReadSession reports the user of a valid session cookie. Any problem with
// the cookie yields ok == false.
func (m *Manager) ReadSession(r *http.Request) (uint, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return 0, false
	}
	return m.ReadToken(cookie.Value)
}

// ReadBearer reads the same token from an "Authorization: Bearer" header.
func (m *Manager) ReadBearer(r *http.Request) (uint, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || token == "" {
		return 0, false
	}
	return m.ReadToken(strings.TrimSpace(token))
}

func (m *Manager) ReadToken(token string) (uint, bool) {
	claims, err := ClaimsFromToken(token, m.secret, jwt.WithTimeFunc(m.now))
	if err != nil {
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		return 0, false
	}
	return id, true
}

func (m *Manager) DestroySession() *http.Cookie {
	return DeleteCookie(CookieName, "/", m.secure)
}
