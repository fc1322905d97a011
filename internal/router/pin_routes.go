package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/csr-service-match/internal/handler"
	"github.com/iliyamo/csr-service-match/internal/model"
)

// RegisterPIN registers Person-In-Need endpoints under /v1/pin.  Mutations
// drop cached browse listings so CSRs see them straight away.
func RegisterPIN(e *echo.Echo, h *handler.PINHandler, jwtSecret string, x Extras) {
	g := roleGroup(e, "pin", jwtSecret, x, model.RolePIN)
	inv := only(x.Invalidate)

	g.POST("/requests", h.CreateRequest, inv...)
	g.GET("/requests", h.SearchRequests)
	g.GET("/requests/:id", h.GetRequest)
	g.PATCH("/requests/:id", h.UpdateRequest, inv...)
	g.PUT("/requests/:id", h.UpdateRequest, inv...)
	g.DELETE("/requests/:id", h.DeleteRequest, inv...)
	g.GET("/requests/:id/counters", h.Counters)
	g.GET("/requests/:id/match", h.GetMatch)

	g.GET("/matches", h.SearchMatches)
	g.GET("/dashboard", h.Dashboard)
}
