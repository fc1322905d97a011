package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/csr-service-match/internal/handler"    // handlers that implement each endpoint
	"github.com/iliyamo/csr-service-match/internal/middleware" // JWT authentication and role enforcement
	"github.com/iliyamo/csr-service-match/internal/model"
)

// Extras carries the optional Redis-backed middleware.  Nil entries are
// skipped, so a deployment without Redis registers the same routes.
type Extras struct {
	RateLimit     echo.MiddlewareFunc // authenticated API bucket
	AuthRateLimit echo.MiddlewareFunc // smaller bucket for /v1/auth
	Cache         echo.MiddlewareFunc // response cache for shared listings
	Invalidate    echo.MiddlewareFunc // drops cached listings after a mutation
}

func only(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// roleGroup creates a /v1/<prefix> group that requires a valid JWT carrying
// one of roles.  The rate limiter runs after authentication so buckets can
// be keyed by user.
func roleGroup(e *echo.Echo, prefix, jwtSecret string, x Extras, roles ...string) *echo.Group {
	return e.Group("/v1/"+prefix, only(
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(roles...),
		x.RateLimit,
	)...)
}

// RegisterRoutes registers routes that do not require authentication: the
// liveness probe and a readiness probe that pings the database.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers all authentication-related routes.  Operations that
// do not need a session live under /v1/auth; /v1/me requires a valid access
// token of any role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, x Extras) {
	g := e.Group("/v1/auth", only(x.AuthRateLimit)...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	// issues a new access token and keeps the refresh token
	g.POST("/refresh-access", a.RefreshAccess)
	// logout only needs the refresh token in the body
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, only(
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUserAdmin, model.RoleCSR, model.RolePIN, model.RolePlatformManager),
		x.RateLimit,
	)...)
}
