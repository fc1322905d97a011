package handler

import (
    "database/sql"
    "encoding/json"
    "io"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/csr-service-match/internal/testutil"
)

type testEnv struct {
    db  *sql.DB
    e   *echo.Echo
    log *logrus.Logger
}

func newTestEnv(t *testing.T) testEnv {
    t.Helper()
    e := echo.New()
    e.Validator = NewValidator()
    log := logrus.New()
    log.SetOutput(io.Discard)
    return testEnv{db: testutil.NewDB(t), e: e, log: log}
}

// call runs h against a request carrying uid as the authenticated user.
// params alternate path parameter names and values.
func (env testEnv) call(t *testing.T, h echo.HandlerFunc, method, target, body string, uid uint64, params ...string) *httptest.ResponseRecorder {
    t.Helper()
    var r io.Reader
    if body != "" {
        r = strings.NewReader(body)
    }
    req := httptest.NewRequest(method, target, r)
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    c := env.e.NewContext(req, rec)
    if uid != 0 {
        c.Set("user_id", uid)
    }
    var names, values []string
    for i := 0; i+1 < len(params); i += 2 {
        names = append(names, params[i])
        values = append(values, params[i+1])
    }
    if len(names) > 0 {
        c.SetParamNames(names...)
        c.SetParamValues(values...)
    }
    require.NoError(t, h(c))
    return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
    t.Helper()
    var out T
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
    return out
}

type pageBody[T any] struct {
    Items      []T  `json:"items"`
    Page       int  `json:"page"`
    PerPage    int  `json:"per_page"`
    Total      int  `json:"total"`
    TotalPages int  `json:"total_pages"`
    HasNext    bool `json:"has_next"`
}

func requireStatus(t *testing.T, want int, rec *httptest.ResponseRecorder) {
    t.Helper()
    require.Equal(t, want, rec.Code, rec.Body.String())
}

