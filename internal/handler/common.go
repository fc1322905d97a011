// Package handler exposes the HTTP handlers of the API.  Handlers parse
// parameters and the caller's identity, make one repository or service
// call and write JSON.  Error classes from the repository layer are mapped
// to status codes in one place, respondError.
package handler

import (
    "errors"       // errors provides sentinel values used in getUserID
    "net/http"     // status codes
    "strconv"      // strconv converts strings to numeric types
    "strings"      // trimming query values
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4" // echo defines request context types
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/csr-service-match/internal/config"
    "github.com/iliyamo/csr-service-match/internal/repository" // repository holds data access layer
    "github.com/iliyamo/csr-service-match/internal/utils"
)

// Validator adapts go-playground/validator to echo.Validator so handlers
// can call c.Validate on bound DTOs.
type Validator struct {
    v *validator.Validate
}

func NewValidator() *Validator {
    return &Validator{v: validator.New()}
}

func (cv *Validator) Validate(i interface{}) error {
    return cv.v.Struct(i)
}

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) { // begin getUserID helper
    v := c.Get("user_id") // fetch user_id from context
    switch t := v.(type) { // perform type switch on the value
    case uint64: // when already uint64
        return t, nil // return directly
    case int: // when stored as int
        return uint64(t), nil // convert to uint64
    case int64: // when stored as int64
        return uint64(t), nil // convert to uint64
    case float64: // when stored as float64
        return uint64(t), nil // convert to uint64
    case string: // when stored as string
        if n, err := strconv.ParseUint(t, 10, 64); err == nil { // parse string to uint64
            return n, nil // return parsed number
        }
    } // end type switch
    return 0, errors.New("invalid user_id in context") // return error if value is missing or invalid
}

// normalizer is implemented by DTOs that tidy bound input, such as
// trimming an email address, before the validate tags are checked.
type normalizer interface {
    normalize()
}

// normalizeEmail trims and lower-cases an address.
func normalizeEmail(s string) string {
    return strings.ToLower(strings.TrimSpace(s))
}

// bindValid binds the request body into dst, normalizes it and runs struct
// validation.  When it reports false the 400 response has already been
// written and the returned error is what the handler should return.
func bindValid(c echo.Context, dst interface{}) (bool, error) {
    if err := c.Bind(dst); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if n, ok := dst.(normalizer); ok {
        n.normalize()
    }
    if err := c.Validate(dst); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }
    return true, nil
}

// validationMessage flattens validator errors into "field: rule" pairs.
func validationMessage(err error) string {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err.Error()
    }
    parts := make([]string, 0, len(verrs))
    for _, fe := range verrs {
        parts = append(parts, strings.ToLower(fe.Field())+": "+fe.Tag())
    }
    return "invalid input (" + strings.Join(parts, ", ") + ")"
}

// paramID parses a positive numeric path parameter.
func paramID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// optionalID parses an optional positive numeric query parameter.
func optionalID(c echo.Context, name string) (*uint64, bool) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return nil, true
    }
    id, err := strconv.ParseUint(raw, 10, 64)
    if err != nil || id == 0 {
        return nil, false
    }
    return &id, true
}

// optionalDate parses an optional YYYY-MM-DD query parameter.
func optionalDate(c echo.Context, name string) (*time.Time, bool) {
    raw := strings.TrimSpace(c.QueryParam(name))
    if raw == "" {
        return nil, true
    }
    t, err := time.Parse("2006-01-02", raw)
    if err != nil {
        return nil, false
    }
    return &t, true
}

// pageParams reads ?page and ?per_page.  Bad or out-of-range values fall
// back to page 1 and the endpoint default.
func pageParams(c echo.Context, defPerPage int) (page, perPage int) {
    page, _ = strconv.Atoi(c.QueryParam("page"))
    pp, _ := strconv.Atoi(c.QueryParam("per_page"))
    return page, utils.PerPage(pp, defPerPage)
}

// respondError maps repository error classes to status codes.  Anything
// unclassified is logged and reported as 500 with a generic message.
func respondError(c echo.Context, logger *logrus.Logger, op string, err error) error {
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case errors.Is(err, repository.ErrValidation):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
    }
    config.LogError(logger, "handler", op, c.Request().Method+" "+c.Path(), c.Response().Header().Get(echo.HeaderXRequestID), err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": op + " failed"})
}
