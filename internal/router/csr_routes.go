package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/csr-service-match/internal/handler"
	"github.com/iliyamo/csr-service-match/internal/model"
)

// RegisterCSR registers Community Service Representative endpoints under
// /v1/csr.  Only the listings shared by every CSR are cached; request
// detail is never cached because each read counts as a view.  Shortlist
// changes move shortlist_count, so they drop the cached listings.
func RegisterCSR(e *echo.Echo, h *handler.CSRHandler, jwtSecret string, x Extras) {
	g := roleGroup(e, "csr", jwtSecret, x, model.RoleCSR)
	cache := only(x.Cache)
	inv := only(x.Invalidate)

	g.GET("/categories", h.ListCategories, cache...)
	g.GET("/requests", h.BrowseRequests, cache...)
	g.GET("/requests/:id", h.ViewRequest)

	g.GET("/shortlist", h.ListShortlist)
	g.POST("/shortlist/:id", h.AddShortlist, inv...)
	g.DELETE("/shortlist/:id", h.RemoveShortlist, inv...)

	g.GET("/history", h.History)
	g.GET("/dashboard", h.Dashboard)
}
