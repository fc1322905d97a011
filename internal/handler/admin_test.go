package handler

import (
    "context"
    "net/http"
    "strconv"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/csr-service-match/internal/config"
    "github.com/iliyamo/csr-service-match/internal/model"
    "github.com/iliyamo/csr-service-match/internal/repository"
    "github.com/iliyamo/csr-service-match/internal/testutil"
    "github.com/iliyamo/csr-service-match/internal/utils"
)

func newAdminHandler(env testEnv) *AdminHandler {
    return NewAdminHandler(config.Config{BcryptCost: 4},
        repository.NewUserRepo(env.db), repository.NewTokenRepo(env.db), env.log)
}

func TestAdminCreateUser(t *testing.T) {
    env := newTestEnv(t)
    h := newAdminHandler(env)
    admin := testutil.InsertUser(t, env.db, "admin@example.com", model.RoleUserAdmin)

    rec := env.call(t, h.CreateUser, http.MethodPost, "/",
        `{"email":" PM@Example.com ","name":"Pat","password":"longenough1","role":"platform_manager"}`, admin)
    requireStatus(t, http.StatusCreated, rec)
    u := decode[model.User](t, rec)
    assert.Equal(t, "pm@example.com", u.Email)
    assert.Equal(t, model.RolePlatformManager, u.Role)
    assert.True(t, u.IsActive)
    assert.NotContains(t, rec.Body.String(), "password")

    rec = env.call(t, h.CreateUser, http.MethodPost, "/",
        `{"email":"pm@example.com","name":"Pat","password":"longenough1","role":"CSR"}`, admin)
    requireStatus(t, http.StatusConflict, rec)

    rec = env.call(t, h.CreateUser, http.MethodPost, "/",
        `{"email":"x@example.com","name":"X","password":"longenough1","role":"ROOT"}`, admin)
    requireStatus(t, http.StatusBadRequest, rec)

    rec = env.call(t, h.CreateUser, http.MethodPost, "/",
        `{"email":"y@example.com","name":"Y","password":"short","role":"CSR"}`, admin)
    requireStatus(t, http.StatusBadRequest, rec)

    rec = env.call(t, h.CreateUser, http.MethodPost, "/",
        `{"email":"not-an-email","name":"Z","password":"longenough1","role":"CSR"}`, admin)
    requireStatus(t, http.StatusBadRequest, rec)
}

func TestAdminListUsers(t *testing.T) {
    env := newTestEnv(t)
    h := newAdminHandler(env)
    admin := testutil.InsertUser(t, env.db, "admin@example.com", model.RoleUserAdmin)
    testutil.InsertUser(t, env.db, "alice.pin@example.com", model.RolePIN)
    testutil.InsertUser(t, env.db, "alice.csr@example.com", model.RoleCSR)
    testutil.InsertUser(t, env.db, "bob@example.com", model.RoleCSR)

    rec := env.call(t, h.ListUsers, http.MethodGet, "/v1/admin/users?q=ALICE", "", admin)
    requireStatus(t, http.StatusOK, rec)
    assert.Equal(t, 2, decode[pageBody[model.User]](t, rec).Total)

    rec = env.call(t, h.ListUsers, http.MethodGet, "/v1/admin/users?role=csr", "", admin)
    page := decode[pageBody[model.User]](t, rec)
    require.Len(t, page.Items, 2)
    for _, u := range page.Items {
        assert.Equal(t, model.RoleCSR, u.Role)
    }

    rec = env.call(t, h.ListUsers, http.MethodGet, "/v1/admin/users?role=ROOT", "", admin)
    requireStatus(t, http.StatusBadRequest, rec)
}

func TestAdminSuspendRevokesTokens(t *testing.T) {
    env := newTestEnv(t)
    h := newAdminHandler(env)
    admin := testutil.InsertUser(t, env.db, "admin@example.com", model.RoleUserAdmin)
    csr := testutil.InsertUser(t, env.db, "csr@example.com", model.RoleCSR)
    ctx := context.Background()
    require.NoError(t, h.Tokens.StoreRefresh(ctx, csr, "hash-1", time.Now().Add(time.Hour)))
    id := strconv.FormatUint(csr, 10)

    rec := env.call(t, h.SuspendUser, http.MethodPatch, "/", "", admin, "id", id)
    requireStatus(t, http.StatusOK, rec)
    assert.False(t, decode[model.User](t, rec).IsActive)
    _, err := h.Tokens.ValidateRefresh(ctx, "hash-1")
    assert.ErrorIs(t, err, repository.ErrRefreshInvalid)

    rec = env.call(t, h.ActivateUser, http.MethodPatch, "/", "", admin, "id", id)
    requireStatus(t, http.StatusOK, rec)
    assert.True(t, decode[model.User](t, rec).IsActive)

    rec = env.call(t, h.GetUser, http.MethodGet, "/", "", admin, "id", id)
    requireStatus(t, http.StatusOK, rec)
    assert.Equal(t, "csr@example.com", decode[model.User](t, rec).Email)

    rec = env.call(t, h.SuspendUser, http.MethodPatch, "/", "", admin, "id", "999")
    requireStatus(t, http.StatusNotFound, rec)
}

func TestAdminDashboard(t *testing.T) {
    env := newTestEnv(t)
    h := newAdminHandler(env)
    admin := testutil.InsertUser(t, env.db, "admin@example.com", model.RoleUserAdmin)
    testutil.InsertUser(t, env.db, "pin@example.com", model.RolePIN)
    csr := testutil.InsertUser(t, env.db, "csr@example.com", model.RoleCSR)
    _, err := h.Users.SetActive(context.Background(), csr, false)
    require.NoError(t, err)

    rec := env.call(t, h.Dashboard, http.MethodGet, "/", "", admin)
    requireStatus(t, http.StatusOK, rec)
    assert.Equal(t, model.UserStats{Total: 3, Active: 2, Suspended: 1}, decode[model.UserStats](t, rec))
}

func TestAdminUpdateUser(t *testing.T) {
    env := newTestEnv(t)
    h := newAdminHandler(env)
    ctx := context.Background()
    admin := testutil.InsertUser(t, env.db, "admin@example.com", model.RoleUserAdmin)
    pin := testutil.InsertUser(t, env.db, "pin@example.com", model.RolePIN)
    testutil.InsertUser(t, env.db, "taken@example.com", model.RoleCSR)
    require.NoError(t, h.Tokens.StoreRefresh(ctx, pin, "hash-1", time.Now().Add(time.Hour)))
    id := strconv.FormatUint(pin, 10)

    // name and email only: sessions survive
    rec := env.call(t, h.UpdateUser, http.MethodPatch, "/",
        `{"name":" Penny ","email":" Penny@Example.com "}`, admin, "id", id)
    requireStatus(t, http.StatusOK, rec)
    u := decode[model.User](t, rec)
    assert.Equal(t, "Penny", u.Name)
    assert.Equal(t, "penny@example.com", u.Email)
    assert.Equal(t, model.RolePIN, u.Role)
    _, err := h.Tokens.ValidateRefresh(ctx, "hash-1")
    require.NoError(t, err)

    rec = env.call(t, h.UpdateUser, http.MethodPatch, "/",
        `{"role":"csr","password":"brandnewpass1"}`, admin, "id", id)
    requireStatus(t, http.StatusOK, rec)
    assert.Equal(t, model.RoleCSR, decode[model.User](t, rec).Role)
    _, err = h.Tokens.ValidateRefresh(ctx, "hash-1")
    assert.ErrorIs(t, err, repository.ErrRefreshInvalid)

    stored, err := h.Users.GetByID(ctx, pin)
    require.NoError(t, err)
    assert.True(t, utils.VerifyPassword(stored.PasswordHash, "brandnewpass1"))

    rec = env.call(t, h.UpdateUser, http.MethodPatch, "/", `{"email":"taken@example.com"}`, admin, "id", id)
    requireStatus(t, http.StatusConflict, rec)
    rec = env.call(t, h.UpdateUser, http.MethodPatch, "/", `{"role":"ROOT"}`, admin, "id", id)
    requireStatus(t, http.StatusBadRequest, rec)
    rec = env.call(t, h.UpdateUser, http.MethodPatch, "/", `{"password":"short"}`, admin, "id", id)
    requireStatus(t, http.StatusBadRequest, rec)
    rec = env.call(t, h.UpdateUser, http.MethodPatch, "/", `{"email":"nope"}`, admin, "id", id)
    requireStatus(t, http.StatusBadRequest, rec)
    rec = env.call(t, h.UpdateUser, http.MethodPatch, "/", `{"name":"X"}`, admin, "id", "999")
    requireStatus(t, http.StatusNotFound, rec)
}
