package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/roadblock/pkg/logging"
)

// HTTPErrorHandler renders every error as {"errorMessage": ...}. Client
// errors keep their message; anything else is logged and replaced by the
// fallback message.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	l := logging.FromContext(c.Request().Context()).With("handler", "http_error")

	code := http.StatusInternalServerError
	msg := FallbackErrorMessage

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if code < http.StatusInternalServerError {
			msg = fmt.Sprint(he.Message)
		}
	}
	if code >= http.StatusInternalServerError {
		l.Error("request_failed", "status", code, "path", c.Path(), "error", err)
		msg = FallbackErrorMessage
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = errorMessage(c, code, msg)
	}
	if err != nil {
		l.Error("write_error_response_failed", "error", err)
	}
}
