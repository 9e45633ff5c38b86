package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/roadblock/internal/form"
)

const FallbackErrorMessage = "Something went wrong, please try again."

// ActionData is the body of a rejected submission: the raw input comes
// back so the form can be refilled, next to the problems found in it.
type ActionData struct {
	Fields      map[string]string   `json:"fields"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
	FormError   string              `json:"formError,omitempty"`
}

func badRequest(c echo.Context, raw map[string]string, errs form.Errors) error {
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		// passwords are never sent back
		if strings.Contains(strings.ToLower(k), "password") {
			continue
		}
		fields[k] = v
	}
	return c.JSON(http.StatusBadRequest, ActionData{
		Fields:      fields,
		FieldErrors: errs.FieldErrors,
		FormError:   errs.FormError,
	})
}

func fieldError(c echo.Context, raw map[string]string, field, msg string) error {
	var errs form.Errors
	errs.Add(field, msg)
	return badRequest(c, raw, errs)
}

func errorMessage(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"errorMessage": msg})
}

func isAPI(c echo.Context) bool {
	return strings.HasPrefix(c.Path(), "/api/")
}

// done finishes a successful submission: browsers follow a 303 to location,
// API clients get payload.
func done(c echo.Context, location string, payload any) error {
	if isAPI(c) {
		if payload == nil {
			payload = echo.Map{}
		}
		return c.JSON(http.StatusOK, payload)
	}
	return c.Redirect(http.StatusSeeOther, location)
}

// pathID reads a positive integer path parameter.
func pathID(c echo.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func vehicleURL(id uint) string {
	return "/vehicles/" + strconv.FormatUint(uint64(id), 10)
}
