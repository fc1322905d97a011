// This file implements the Platform Manager endpoints: the category
// registry, usage reports and the manager dashboard.
package handler

import (
    "bytes"
    "fmt"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/csr-service-match/internal/model"
    "github.com/iliyamo/csr-service-match/internal/repository"
    "github.com/iliyamo/csr-service-match/internal/service"
    "github.com/iliyamo/csr-service-match/internal/utils"
)

// PlatformHandler bundles what the Platform Manager endpoints need.
type PlatformHandler struct {
    Categories *repository.CategoryRepo
    Reports    *service.ReportService
    ReportRepo *repository.ReportRepo
    Matches    *repository.MatchRepo
    Log        *logrus.Logger
}

func NewPlatformHandler(categories *repository.CategoryRepo, reports *service.ReportService, reportRepo *repository.ReportRepo, matches *repository.MatchRepo, log *logrus.Logger) *PlatformHandler {
    if categories == nil || reports == nil || reportRepo == nil || matches == nil {
        panic("nil dependency passed to NewPlatformHandler")
    }
    return &PlatformHandler{Categories: categories, Reports: reports, ReportRepo: reportRepo, Matches: matches, Log: log}
}

type categoryReq struct {
    Name        string `json:"name" validate:"required,max=100"`
    Description string `json:"description" validate:"max=2000"`
}

type generateReportReq struct {
    Type   string `json:"type" validate:"required,oneof=daily weekly monthly"`
    Period string `json:"period" validate:"required"`
    Title  string `json:"title" validate:"max=255"`
}

type reportTitleReq struct {
    Title string `json:"title" validate:"required,max=255"`
}

// CreateCategory handles POST /v1/platform/categories.
func (h *PlatformHandler) CreateCategory(c echo.Context) error {
    var req categoryReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    cat, err := h.Categories.Create(c.Request().Context(), req.Name, req.Description)
    if err != nil {
        return respondError(c, h.Log, "create category", err)
    }
    return c.JSON(http.StatusCreated, cat)
}

// UpdateCategory handles PUT /v1/platform/categories/:id.
func (h *PlatformHandler) UpdateCategory(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req categoryReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    cat, err := h.Categories.Update(c.Request().Context(), id, req.Name, req.Description)
    if err != nil {
        return respondError(c, h.Log, "update category", err)
    }
    return c.JSON(http.StatusOK, cat)
}

// SuspendCategory handles POST /v1/platform/categories/:id/suspend.
func (h *PlatformHandler) SuspendCategory(c echo.Context) error {
    return h.toggleCategory(c, false)
}

// ActivateCategory handles POST /v1/platform/categories/:id/activate.
func (h *PlatformHandler) ActivateCategory(c echo.Context) error {
    return h.toggleCategory(c, true)
}

func (h *PlatformHandler) toggleCategory(c echo.Context, active bool) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var (
        cat *model.Category
        err error
    )
    if active {
        cat, err = h.Categories.Activate(c.Request().Context(), id)
    } else {
        cat, err = h.Categories.Suspend(c.Request().Context(), id)
    }
    if err != nil {
        return respondError(c, h.Log, "toggle category", err)
    }
    return c.JSON(http.StatusOK, cat)
}

// SearchCategories handles GET /v1/platform/categories?q=&page=&per_page=.
func (h *PlatformHandler) SearchCategories(c echo.Context) error {
    cats, err := h.Categories.SearchByName(c.Request().Context(), c.QueryParam("q"))
    if err != nil {
        return respondError(c, h.Log, "search categories", err)
    }
    page, perPage := pageParams(c, 10)
    return c.JSON(http.StatusOK, utils.Paginate(cats, page, perPage))
}

// GenerateReport handles POST /v1/platform/reports.
func (h *PlatformHandler) GenerateReport(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req generateReportReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    rep, err := h.Reports.Generate(c.Request().Context(), req.Type, uid, req.Period, req.Title)
    if err != nil {
        return respondError(c, h.Log, "generate report", err)
    }
    return h.reportJSON(c, http.StatusCreated, rep)
}

// ListReports handles GET /v1/platform/reports?type=&page=&per_page=.
func (h *PlatformHandler) ListReports(c echo.Context) error {
    kind := strings.ToLower(strings.TrimSpace(c.QueryParam("type")))
    reps, err := h.Reports.List(c.Request().Context(), kind)
    if err != nil {
        return respondError(c, h.Log, "list reports", err)
    }
    page, perPage := pageParams(c, 10)
    return c.JSON(http.StatusOK, utils.Paginate(reps, page, perPage))
}

// GetReport handles GET /v1/platform/reports/:id and includes the decoded data.
func (h *PlatformHandler) GetReport(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    rep, data, err := h.Reports.Get(c.Request().Context(), id)
    if err != nil {
        return respondError(c, h.Log, "get report", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"report": rep, "data": data})
}

// UpdateReportTitle handles PATCH /v1/platform/reports/:id.
func (h *PlatformHandler) UpdateReportTitle(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req reportTitleReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    rep, err := h.Reports.UpdateTitle(c.Request().Context(), id, req.Title)
    if err != nil {
        return respondError(c, h.Log, "update report", err)
    }
    return h.reportJSON(c, http.StatusOK, rep)
}

// ExportReport handles GET /v1/platform/reports/:id/export as an XLSX download.
func (h *PlatformHandler) ExportReport(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    rep, _, err := h.Reports.Get(c.Request().Context(), id)
    if err != nil {
        return respondError(c, h.Log, "export report", err)
    }
    var buf bytes.Buffer
    if err := service.WriteXLSX(&buf, rep); err != nil {
        return respondError(c, h.Log, "export report", err)
    }
    c.Response().Header().Set(echo.HeaderContentDisposition,
        fmt.Sprintf("attachment; filename=report-%d-%s.xlsx", rep.ID, rep.Period))
    return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *PlatformHandler) reportJSON(c echo.Context, status int, rep *model.Report) error {
    data, err := service.Decode(rep)
    if err != nil {
        return respondError(c, h.Log, "decode report", err)
    }
    return c.JSON(status, echo.Map{"report": rep, "data": data})
}

// Dashboard handles GET /v1/platform/dashboard.
func (h *PlatformHandler) Dashboard(c echo.Context) error {
    ctx := c.Request().Context()
    var (
        s   model.PlatformSummary
        err error
    )
    if s.TotalCategories, err = h.Categories.Count(ctx); err != nil {
        return respondError(c, h.Log, "dashboard", err)
    }
    if s.TotalRequests, s.OpenRequests, _, err = h.ReportRepo.RequestCounts(ctx); err != nil {
        return respondError(c, h.Log, "dashboard", err)
    }
    if s.TotalReports, err = h.ReportRepo.Count(ctx); err != nil {
        return respondError(c, h.Log, "dashboard", err)
    }
    if s.TotalMatches, err = h.Matches.Count(ctx); err != nil {
        return respondError(c, h.Log, "dashboard", err)
    }
    return c.JSON(http.StatusOK, s)
}
