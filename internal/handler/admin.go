// This file implements the User Admin endpoints.
package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/csr-service-match/internal/config"
    "github.com/iliyamo/csr-service-match/internal/model"
    "github.com/iliyamo/csr-service-match/internal/repository"
    "github.com/iliyamo/csr-service-match/internal/utils"
)

// AdminHandler manages user accounts.
type AdminHandler struct {
    Cfg    config.Config
    Users  *repository.UserRepo
    Tokens *repository.TokenRepo
    Log    *logrus.Logger
}

func NewAdminHandler(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo, log *logrus.Logger) *AdminHandler {
    if users == nil || tokens == nil {
        panic("nil repository passed to NewAdminHandler")
    }
    return &AdminHandler{Cfg: cfg, Users: users, Tokens: tokens, Log: log}
}

type createUserReq struct {
    Email    string `json:"email" validate:"required,email,max=255"`
    Name     string `json:"name" validate:"required,max=100"`
    Password string `json:"password" validate:"required"`
    Role     string `json:"role" validate:"required"`
}

func (r *createUserReq) normalize() { r.Email = normalizeEmail(r.Email) }

type updateUserReq struct {
    Name     *string `json:"name" validate:"omitempty,max=100"`
    Email    *string `json:"email" validate:"omitempty,email,max=255"`
    Password *string `json:"password"`
    Role     *string `json:"role"`
}

func (r *updateUserReq) normalize() {
    if r.Email != nil {
        e := normalizeEmail(*r.Email)
        r.Email = &e
    }
}

// Dashboard handles GET /v1/admin/dashboard.
func (h *AdminHandler) Dashboard(c echo.Context) error {
    s, err := h.Users.Stats(c.Request().Context())
    if err != nil {
        return respondError(c, h.Log, "admin dashboard", err)
    }
    return c.JSON(http.StatusOK, s)
}

// ListUsers handles GET /v1/admin/users?q=&role=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
    role := strings.ToUpper(strings.TrimSpace(c.QueryParam("role")))
    if role != "" && !model.ValidRole(role) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
    }
    users, err := h.Users.Search(c.Request().Context(), c.QueryParam("q"), role)
    if err != nil {
        return respondError(c, h.Log, "list users", err)
    }
    page, perPage := pageParams(c, 20)
    return c.JSON(http.StatusOK, utils.Paginate(users, page, perPage))
}

// GetUser handles GET /v1/admin/users/:id.
func (h *AdminHandler) GetUser(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    u, err := h.Users.GetByID(c.Request().Context(), id)
    if err != nil {
        return respondError(c, h.Log, "get user", err)
    }
    return c.JSON(http.StatusOK, u)
}

// CreateUser handles POST /v1/admin/users.  Any role may be assigned here.
func (h *AdminHandler) CreateUser(c echo.Context) error {
    var req createUserReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    role := strings.ToUpper(strings.TrimSpace(req.Role))
    if !model.ValidRole(role) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
    }
    if err := utils.CheckPassword(req.Password); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx := c.Request().Context()
    id, err := h.Users.Create(ctx, req.Email, strings.TrimSpace(req.Name), req.Password, role, h.Cfg.BcryptCost)
    if err != nil {
        return respondError(c, h.Log, "create user", err)
    }
    u, err := h.Users.GetByID(ctx, id)
    if err != nil {
        return respondError(c, h.Log, "create user", err)
    }
    return c.JSON(http.StatusCreated, u)
}

// UpdateUser handles PATCH /v1/admin/users/:id.  Only the supplied fields
// change.  A new password or role signs the account out everywhere so the
// next login carries the new credentials and claims.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req updateUserReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    if req.Password != nil {
        if err := utils.CheckPassword(*req.Password); err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
        }
    }
    ctx := c.Request().Context()
    u, err := h.Users.Update(ctx, id, model.UserUpdate{
        Name:     req.Name,
        Email:    req.Email,
        Password: req.Password,
        Role:     req.Role,
    }, h.Cfg.BcryptCost)
    if err != nil {
        return respondError(c, h.Log, "update user", err)
    }
    if req.Password != nil || req.Role != nil {
        if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
            return respondError(c, h.Log, "update user", err)
        }
    }
    return c.JSON(http.StatusOK, u)
}

// SuspendUser handles PATCH /v1/admin/users/:id/suspend.  Outstanding
// refresh tokens of the account are revoked.
func (h *AdminHandler) SuspendUser(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx := c.Request().Context()
    u, err := h.Users.SetActive(ctx, id, false)
    if err != nil {
        return respondError(c, h.Log, "suspend user", err)
    }
    if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
        return respondError(c, h.Log, "suspend user", err)
    }
    return c.JSON(http.StatusOK, u)
}

// ActivateUser handles PATCH /v1/admin/users/:id/activate.
func (h *AdminHandler) ActivateUser(c echo.Context) error {
    id, ok := paramID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    u, err := h.Users.SetActive(c.Request().Context(), id, true)
    if err != nil {
        return respondError(c, h.Log, "activate user", err)
    }
    return c.JSON(http.StatusOK, u)
}
