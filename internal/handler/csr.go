// This file implements the Community Service Representative endpoints:
// browsing and viewing open requests, the shortlist and completed match
// history.
package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/csr-service-match/internal/model"
    "github.com/iliyamo/csr-service-match/internal/repository"
    "github.com/iliyamo/csr-service-match/internal/utils"
)

// CSRHandler bundles repositories for CSR operations.
type CSRHandler struct {
    Requests   *repository.RequestRepo
    Shortlists *repository.ShortlistRepo
    Matches    *repository.MatchRepo
    Categories *repository.CategoryRepo
    Log        *logrus.Logger
}

func NewCSRHandler(requests *repository.RequestRepo, shortlists *repository.ShortlistRepo, matches *repository.MatchRepo, categories *repository.CategoryRepo, log *logrus.Logger) *CSRHandler {
    if requests == nil || shortlists == nil || matches == nil || categories == nil {
        panic("nil repository passed to NewCSRHandler")
    }
    return &CSRHandler{Requests: requests, Shortlists: shortlists, Matches: matches, Categories: categories, Log: log}
}

// BrowseRequests handles GET /v1/csr/requests?category=&page=&per_page=.
// Only open requests in active categories are listed.
func (h *CSRHandler) BrowseRequests(c echo.Context) error {
    reqs, err := h.Requests.SearchOpen(c.Request().Context(), c.QueryParam("category"))
    if err != nil {
        return respondError(c, h.Log, "browse requests", err)
    }
    page, perPage := pageParams(c, 10)
    return c.JSON(http.StatusOK, utils.Paginate(reqs, page, perPage))
}

// ViewRequest handles GET /v1/csr/requests/:id.  Every call counts as a
// view.
func (h *CSRHandler) ViewRequest(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    req, err := h.Requests.View(c.Request().Context(), id)
    if err != nil {
        return respondError(c, h.Log, "view request", err)
    }
    return c.JSON(http.StatusOK, req)
}

// ListCategories handles GET /v1/csr/categories.
func (h *CSRHandler) ListCategories(c echo.Context) error {
    cats, err := h.Categories.ListActive(c.Request().Context())
    if err != nil {
        return respondError(c, h.Log, "list categories", err)
    }
    return c.JSON(http.StatusOK, cats)
}

// AddShortlist handles POST /v1/csr/shortlist/:id.  A repeated add answers
// 200 with added=false.
func (h *CSRHandler) AddShortlist(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    added, err := h.Shortlists.Add(c.Request().Context(), id, uid)
    if err != nil {
        return respondError(c, h.Log, "add shortlist", err)
    }
    status := http.StatusOK
    if added {
        status = http.StatusCreated
    }
    return c.JSON(status, echo.Map{"request_id": id, "added": added})
}

// RemoveShortlist handles DELETE /v1/csr/shortlist/:id.
func (h *CSRHandler) RemoveShortlist(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if err := h.Shortlists.Remove(c.Request().Context(), uid, id); err != nil {
        return respondError(c, h.Log, "remove shortlist", err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ListShortlist handles GET /v1/csr/shortlist?category_id=.
func (h *CSRHandler) ListShortlist(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    catID, ok := optionalID(c, "category_id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category_id"})
    }
    entries, err := h.Shortlists.ListByCSR(c.Request().Context(), uid, catID)
    if err != nil {
        return respondError(c, h.Log, "list shortlist", err)
    }
    page, perPage := pageParams(c, 10)
    return c.JSON(http.StatusOK, utils.Paginate(entries, page, perPage))
}

// History handles GET /v1/csr/history?category_id=&from=&to=.
func (h *CSRHandler) History(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    catID, ok := optionalID(c, "category_id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category_id"})
    }
    from, okFrom := optionalDate(c, "from")
    to, okTo := optionalDate(c, "to")
    if !okFrom || !okTo {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "dates must be YYYY-MM-DD"})
    }
    recs, err := h.Matches.ListByCSR(c.Request().Context(), uid, model.MatchFilter{CategoryID: catID, From: from, To: to})
    if err != nil {
        return respondError(c, h.Log, "csr history", err)
    }
    page, perPage := pageParams(c, 10)
    return c.JSON(http.StatusOK, utils.Paginate(recs, page, perPage))
}

// Dashboard handles GET /v1/csr/dashboard.
func (h *CSRHandler) Dashboard(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx := c.Request().Context()
    var s model.CSRSummary
    if s.OpenRequests, err = h.Requests.CountOpen(ctx); err != nil {
        return respondError(c, h.Log, "csr dashboard", err)
    }
    if s.Shortlisted, err = h.Shortlists.CountByCSR(ctx, uid); err != nil {
        return respondError(c, h.Log, "csr dashboard", err)
    }
    if s.Matches, err = h.Matches.CountByCSR(ctx, uid); err != nil {
        return respondError(c, h.Log, "csr dashboard", err)
    }
    return c.JSON(http.StatusOK, s)
}
