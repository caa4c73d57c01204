package handler // handler contains the HTTP endpoint implementations

import (
	"net/http" // provides status code constants

	"github.com/labstack/echo/v4" // echo is the web framework used for routing
)

// Health responds with a simple JSON document indicating the service is
// alive.  Deployment probes hit this endpoint, so it performs no database
// or broker work.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
