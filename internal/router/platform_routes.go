package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/csr-service-match/internal/handler"
	"github.com/iliyamo/csr-service-match/internal/model"
)

// RegisterPlatform registers Platform Manager endpoints under /v1/platform.
func RegisterPlatform(e *echo.Echo, h *handler.PlatformHandler, jwtSecret string, x Extras) {
	g := roleGroup(e, "platform", jwtSecret, x, model.RolePlatformManager)
	inv := only(x.Invalidate)

	// ---- Categories ----
	g.POST("/categories", h.CreateCategory, inv...)
	g.GET("/categories", h.SearchCategories)
	g.PUT("/categories/:id", h.UpdateCategory, inv...)
	g.POST("/categories/:id/suspend", h.SuspendCategory, inv...)
	g.POST("/categories/:id/activate", h.ActivateCategory, inv...)

	// ---- Reports ----
	g.POST("/reports", h.GenerateReport)
	g.GET("/reports", h.ListReports)
	g.GET("/reports/:id", h.GetReport)
	g.PATCH("/reports/:id", h.UpdateReportTitle)
	g.GET("/reports/:id/export", h.ExportReport)

	g.GET("/dashboard", h.Dashboard)
}
