package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/csr-service-match/internal/handler"
	"github.com/iliyamo/csr-service-match/internal/model"
)

// RegisterAdmin registers User Admin endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, x Extras) {
	g := roleGroup(e, "admin", jwtSecret, x, model.RoleUserAdmin)

	g.GET("/users", h.ListUsers)
	g.POST("/users", h.CreateUser)
	g.GET("/users/:id", h.GetUser)
	g.PATCH("/users/:id", h.UpdateUser)
	g.PATCH("/users/:id/suspend", h.SuspendUser)
	g.PATCH("/users/:id/activate", h.ActivateUser)
	g.GET("/dashboard", h.Dashboard)
}
