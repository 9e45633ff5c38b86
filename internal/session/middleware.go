package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/roadblock/internal/models"
	"github.com/Skotchmaster/roadblock/pkg/logging"
)

const userKey = "current_user"

var ErrNoUser = errors.New("no user for session")

type UserLoader interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// LoginURL is where an unauthenticated request is sent, with the original
// path and query kept for after login.
func LoginURL(r *http.Request) string {
	return "/login?redirectTo=" + url.QueryEscape(r.URL.RequestURI())
}

// User resolves the session cookie to a stored user.
func (m *Manager) User(c echo.Context, users UserLoader) (*models.User, error) {
	id, ok := m.ReadSession(c.Request())
	if !ok {
		return nil, ErrNoUser
	}
	return users.FindByID(c.Request().Context(), id)
}

// RequireUser redirects to the login page when there is no valid session or
// its user no longer exists. A stale cookie is cleared on the way.
func (m *Manager) RequireUser(users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("middleware", "require_user")

			id, ok := m.ReadSession(c.Request())
			if !ok {
				if _, err := c.Cookie(CookieName); err == nil {
					c.SetCookie(m.DestroySession())
				}
				return c.Redirect(http.StatusSeeOther, LoginURL(c.Request()))
			}

			user, err := users.FindByID(ctx, id)
			if err != nil || user == nil {
				l.Warn("session_user_missing", "user_id", id, "error", err)
				c.SetCookie(m.DestroySession())
				return c.Redirect(http.StatusSeeOther, LoginURL(c.Request()))
			}

			c.Set(userKey, user)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l.With("user_id", user.ID))))
			return next(c)
		}
	}
}

// RequireBearer is RequireUser for API clients: the token comes from the
// Authorization header and failures are answered with 401.
func (m *Manager) RequireBearer(users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			id, ok := m.ReadBearer(c.Request())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid token")
			}
			user, err := users.FindByID(ctx, id)
			if err != nil || user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid token")
			}

			c.Set(userKey, user)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", user.ID))))
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by RequireUser or RequireBearer.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}
