package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "database/sql"
    "net/http"          // net/http provides status codes and response helpers
    "time"

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a liveness probe used by load balancers.  It returns a plain
// text "ok" with HTTP 200 as long as the process serves requests.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready reports whether the database answers a ping within two seconds.
func Ready(db *sql.DB) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        if err := db.PingContext(ctx); err != nil {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": err.Error()})
        }
        return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
    }
}
