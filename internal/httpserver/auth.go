package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/roadblock/internal/config"
	"github.com/Skotchmaster/roadblock/internal/form"
	"github.com/Skotchmaster/roadblock/internal/models"
	"github.com/Skotchmaster/roadblock/internal/service"
	"github.com/Skotchmaster/roadblock/internal/session"
	"github.com/Skotchmaster/roadblock/pkg/logging"
)

const (
	msgIncorrectCredentials = "Incorrect credentials"
	msgUsernameTaken        = "A user already exists with this username"
	msgIncorrectPassword    = "Incorrect current password"
	msgUserNotFound         = "User record not found"
)

type AuthHTTP struct {
	Svc      *service.AuthService
	Sessions *session.Manager
	Images   config.Images
}

type loginResponse struct {
	User      *models.User `json:"user"`
	CloudName string       `json:"cloudName"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

func (h *AuthHTTP) loggedIn(c echo.Context) bool {
	u, err := h.Sessions.User(c, h.Svc)
	return err == nil && u != nil
}

func (h *AuthHTTP) LoginPage(c echo.Context) error {
	if h.loggedIn(c) {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":    c.QueryParam("message"),
		"redirectTo": ParseRedirectURL(c.QueryParam("redirectTo")),
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	raw, err := form.FromRequest(c)
	if err != nil {
		l.Warn("login_failed", "status", 400, "reason", "unreadable form", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	res := form.Login.Parse(raw)
	if !res.OK() {
		l.Warn("login_failed", "status", 400, "reason", "validation")
		return badRequest(c, raw, res.Errors)
	}

	user, err := h.Svc.Verify(ctx, res.Values.String("username"), res.Values.String("password"))
	if err != nil {
		return err
	}
	if user == nil {
		l.Warn("login_failed", "status", 400, "reason", "incorrect credentials")
		var errs form.Errors
		errs.AddForm(msgIncorrectCredentials)
		return badRequest(c, raw, errs)
	}

	remember := true
	if _, ok := raw["remember"]; ok {
		remember = res.Values.Bool("remember")
	}

	if isAPI(c) {
		token, exp, err := h.Sessions.Issue(user.ID, remember)
		if err != nil {
			return err
		}
		l.Info("login_successful", "user_id", user.ID)
		return c.JSON(http.StatusOK, loginResponse{User: user, CloudName: h.Images.CloudName, Token: token, ExpiresAt: &exp})
	}

	cookie, err := h.Sessions.CreateSession(user.ID, remember)
	if err != nil {
		return err
	}
	c.SetCookie(cookie)
	l.Info("login_successful", "user_id", user.ID)
	return c.Redirect(http.StatusSeeOther, ParseRedirectURL(res.Values.String("redirectTo")))
}

func (h *AuthHTTP) JoinPage(c echo.Context) error {
	if h.loggedIn(c) {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

func (h *AuthHTTP) Join(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.join")

	raw, err := form.FromRequest(c)
	if err != nil {
		l.Warn("join_failed", "status", 400, "reason", "unreadable form", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	res := form.CreateAccount.Parse(raw)
	if !res.OK() {
		return badRequest(c, raw, res.Errors)
	}

	user, err := h.Svc.Create(ctx, res.Values.String("username"), res.Values.String("password"))
	if err != nil {
		if errors.Is(err, service.ErrDuplicateUsername) {
			return fieldError(c, raw, "username", msgUsernameTaken)
		}
		return err
	}

	if isAPI(c) {
		return c.JSON(http.StatusOK, loginResponse{User: user, CloudName: h.Images.CloudName})
	}

	cookie, err := h.Sessions.CreateSession(user.ID, false)
	if err != nil {
		return err
	}
	c.SetCookie(cookie)
	l.Info("join_successful", "user_id", user.ID)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	c.SetCookie(h.Sessions.DestroySession())
	logging.FromContext(c.Request().Context()).Info("successful_logout")
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AuthHTTP) Account(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user": session.CurrentUser(c)})
}

func (h *AuthHTTP) ChangeUsername(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.change_username")

	raw, err := form.FromRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	res := form.ChangeUsername.Parse(raw)
	if !res.OK() {
		return badRequest(c, raw, res.Errors)
	}

	current := session.CurrentUser(c)
	user, err := h.Svc.UpdateUsername(ctx, current.ID, res.Values.String("username"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateUsername):
			l.Warn("change_username_failed", "status", 400, "reason", "username taken")
			return fieldError(c, raw, "username", msgUsernameTaken)
		case errors.Is(err, service.ErrNotFound):
			l.Warn("change_username_failed", "status", 404, "reason", "user vanished")
			return errorMessage(c, http.StatusNotFound, msgUserNotFound)
		}
		return err
	}

	l.Info("change_username_successful")
	return done(c, "/account", echo.Map{"user": user})
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.change_password")

	raw, err := form.FromRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	res := form.ChangePassword.Parse(raw)
	if !res.OK() {
		return badRequest(c, raw, res.Errors)
	}

	current := session.CurrentUser(c)
	err = h.Svc.UpdatePassword(ctx, current.ID, res.Values.String("currentPassword"), res.Values.String("newPassword"))
	switch {
	case errors.Is(err, service.ErrIncorrectPassword):
		return fieldError(c, raw, "currentPassword", msgIncorrectPassword)
	case errors.Is(err, service.ErrNotFound):
		l.Warn("change_password_failed", "status", 404, "reason", "user vanished")
		return errorMessage(c, http.StatusNotFound, msgUserNotFound)
	case err != nil:
		return err
	}

	l.Info("change_password_successful")
	return done(c, "/account", nil)
}
