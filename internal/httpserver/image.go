package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/roadblock/internal/images"
	"github.com/Skotchmaster/roadblock/pkg/logging"
)

type ImageHTTP struct {
	Store *images.Store
}

// Upload stores one image posted as the multipart field "file" and returns
// its public id and URL for use in the vehicle form.
func (h *ImageHTTP) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "image.upload")

	if h.Store == nil {
		return errorMessage(c, http.StatusServiceUnavailable, msgUploadsDisabled)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fieldError(c, map[string]string{}, "file", "Required")
	}

	up, err := h.Store.PutFile(ctx, fh)
	if err != nil {
		if errors.Is(err, images.ErrNotImage) {
			l.Warn("image_upload_failed", "status", 400, "reason", "not an image", "filename", fh.Filename)
			return fieldError(c, map[string]string{}, "file", msgNotAnImage)
		}
		return err
	}

	l.Info("image_upload_success", "public_id", up.PublicID)
	return c.JSON(http.StatusCreated, up)
}
