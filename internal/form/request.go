package form

import (
	"github.com/labstack/echo/v4"
)

// CSRFField is the hidden input carrying the CSRF token. It is never echoed
// back to the client.
const CSRFField = "csrf_token"

// FromRequest flattens the posted form, keeping the first value of each key.
func FromRequest(c echo.Context) (map[string]string, error) {
	params, err := c.FormParams()
	if err != nil {
		return nil, err
	}
	raw := make(map[string]string, len(params))
	for k, vs := range params {
		if k == CSRFField || len(vs) == 0 {
			continue
		}
		raw[k] = vs[0]
	}
	return raw, nil
}
