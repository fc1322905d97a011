package middleware

// identity.go holds helpers shared across middleware files for reading the
// authenticated caller that JWTAuth stored in the Echo context.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// userID returns the caller's id as a string, or "guest" when the request
// is unauthenticated.
func userID(c echo.Context) string {
    switch v := c.Get("user_id").(type) {
    case uint64:
        if v > 0 {
            return strconv.FormatUint(v, 10)
        }
    case string:
        if v != "" {
            return v
        }
    }
    return "guest"
}

// userRole returns the caller's role claim, or "" when absent.
func userRole(c echo.Context) string {
    r, _ := c.Get("role").(string)
    return r
}
