package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running. It returns
// a plain text "ok" message with an HTTP 200 status code. It does not
// probe the remote data service; a broken upstream surfaces as a grid
// load error, not as process unhealth.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
