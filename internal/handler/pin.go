// This file implements the Person-In-Need endpoints: opening, editing,
// deleting and searching one's own requests, the request counters, the PIN
// dashboard and completed match history.
package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/csr-service-match/internal/config"
    "github.com/iliyamo/csr-service-match/internal/model"
    "github.com/iliyamo/csr-service-match/internal/queue"
    "github.com/iliyamo/csr-service-match/internal/repository"
    "github.com/iliyamo/csr-service-match/internal/utils"
)

// EventPublisher delivers request.closed events.  *service.Publisher
// satisfies it.
type EventPublisher interface {
    PublishRequestClosed(ctx context.Context, ev queue.RequestClosedEvent) error
}

// PINHandler bundles repositories for PIN operations.
type PINHandler struct {
    Requests *repository.RequestRepo
    Matches  *repository.MatchRepo
    Events   EventPublisher // nil disables request.closed events
    Log      *logrus.Logger

    // publishDone, when set, is signalled after each background publish.
    publishDone func()
}

func NewPINHandler(requests *repository.RequestRepo, matches *repository.MatchRepo, events EventPublisher, log *logrus.Logger) *PINHandler {
    if requests == nil || matches == nil {
        panic("nil repository passed to NewPINHandler")
    }
    return &PINHandler{Requests: requests, Matches: matches, Events: events, Log: log}
}

type createRequestReq struct {
    CategoryID  uint64 `json:"category_id" validate:"required"`
    Title       string `json:"title" validate:"required,max=150"`
    Description string `json:"description" validate:"max=5000"`
}

type updateRequestReq struct {
    ID          *uint64 `json:"id" validate:"omitempty,min=1"`
    CategoryID  *uint64 `json:"category_id" validate:"omitempty,min=1"`
    Title       *string `json:"title" validate:"omitempty,max=150"`
    Description *string `json:"description" validate:"omitempty,max=5000"`
    Status      *string `json:"status" validate:"omitempty,max=30"`
}

// CreateRequest handles POST /v1/pin/requests.
func (h *PINHandler) CreateRequest(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createRequestReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    out, err := h.Requests.Create(c.Request().Context(), uid, req.CategoryID, req.Title, req.Description)
    if err != nil {
        return respondError(c, h.Log, "create request", err)
    }
    return c.JSON(http.StatusCreated, out)
}

// SearchRequests handles GET /v1/pin/requests?q=&page=&per_page=.
func (h *PINHandler) SearchRequests(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    reqs, err := h.Requests.Search(c.Request().Context(), uid, c.QueryParam("q"))
    if err != nil {
        return respondError(c, h.Log, "search requests", err)
    }
    page, perPage := pageParams(c, 10)
    return c.JSON(http.StatusOK, utils.Paginate(reqs, page, perPage))
}

// owned loads a request and checks that uid owns it.  Reads here never
// touch the view counter.
func (h *PINHandler) owned(ctx context.Context, id, uid uint64) (*model.Request, error) {
    req, err := h.Requests.GetByID(ctx, id)
    if err != nil {
        return nil, err
    }
    if req.PinID != uid {
        return nil, repository.ErrNotOwner
    }
    return req, nil
}

// GetRequest handles GET /v1/pin/requests/:id.
func (h *PINHandler) GetRequest(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    req, err := h.owned(c.Request().Context(), id, uid)
    if err != nil {
        return respondError(c, h.Log, "get request", err)
    }
    return c.JSON(http.StatusOK, req)
}

// Counters handles GET /v1/pin/requests/:id/counters.
func (h *PINHandler) Counters(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    req, err := h.owned(c.Request().Context(), id, uid)
    if err != nil {
        return respondError(c, h.Log, "request counters", err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "request_id":      req.ID,
        "view_count":      req.ViewCount,
        "shortlist_count": req.ShortlistCount,
    })
}

// UpdateRequest handles PATCH /v1/pin/requests/:id.  Only supplied fields
// change.  When the edit closes a request that has a CSR attached a
// request.closed event is published after the commit; publish failures are
// logged and do not affect the response.
func (h *PINHandler) UpdateRequest(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req updateRequestReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    ctx := c.Request().Context()
    before, err := h.owned(ctx, id, uid)
    if err != nil {
        return respondError(c, h.Log, "update request", err)
    }
    after, err := h.Requests.Update(ctx, id, uid, model.RequestUpdate{
        NewID:       req.ID,
        CategoryID:  req.CategoryID,
        Title:       req.Title,
        Description: req.Description,
        Status:      req.Status,
    })
    if err != nil {
        return respondError(c, h.Log, "update request", err)
    }
    if before.Status != model.StatusClosed && after.Status == model.StatusClosed && after.CsrID != nil {
        h.publishClosed(after)
    }
    return c.JSON(http.StatusOK, after)
}

func (h *PINHandler) publishClosed(req *model.Request) {
    if h.Events == nil {
        return
    }
    closedAt := time.Now().UTC()
    if req.ClosedAt != nil {
        closedAt = req.ClosedAt.UTC()
    }
    ev := queue.RequestClosedEvent{
        RequestID:  req.ID,
        PinID:      req.PinID,
        CsrID:      *req.CsrID,
        CategoryID: req.CategoryID,
        ClosedAt:   closedAt,
    }
    go func() {
        if h.publishDone != nil {
            defer h.publishDone()
        }
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := h.Events.PublishRequestClosed(ctx, ev); err != nil {
            config.LogError(h.Log, "handler", "PINHandler.publishClosed", "request.closed not delivered", ev, err)
        }
    }()
}

// DeleteRequest handles DELETE /v1/pin/requests/:id.  Shortlist entries
// and match records of the request go with it.
func (h *PINHandler) DeleteRequest(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    if err := h.Requests.Delete(c.Request().Context(), id, uid); err != nil {
        return respondError(c, h.Log, "delete request", err)
    }
    return c.NoContent(http.StatusNoContent)
}

// Dashboard handles GET /v1/pin/dashboard.
func (h *PINHandler) Dashboard(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    stats, err := h.Requests.OwnerStats(c.Request().Context(), uid)
    if err != nil {
        return respondError(c, h.Log, "pin dashboard", err)
    }
    return c.JSON(http.StatusOK, stats)
}

// SearchMatches handles GET /v1/pin/matches?category=&from=&to=.
func (h *PINHandler) SearchMatches(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    from, okFrom := optionalDate(c, "from")
    to, okTo := optionalDate(c, "to")
    if !okFrom || !okTo {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "dates must be YYYY-MM-DD"})
    }
    recs, err := h.Matches.ListByPIN(c.Request().Context(), uid, model.MatchFilter{
        CategoryName: c.QueryParam("category"),
        From:         from,
        To:           to,
    })
    if err != nil {
        return respondError(c, h.Log, "pin matches", err)
    }
    page, perPage := pageParams(c, 10)
    return c.JSON(http.StatusOK, utils.Paginate(recs, page, perPage))
}

// GetMatch handles GET /v1/pin/requests/:id/match.
func (h *PINHandler) GetMatch(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx := c.Request().Context()
    if _, err := h.owned(ctx, id, uid); err != nil {
        return respondError(c, h.Log, "pin match", err)
    }
    rec, err := h.Matches.GetByRequest(ctx, id)
    if err != nil {
        return respondError(c, h.Log, "pin match", err)
    }
    return c.JSON(http.StatusOK, rec)
}
