// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios with
// errors.Is.  Entity specific errors wrap one of them so that callers can
// either match precisely (ErrRequestNotFound) or by class (ErrNotFound).
package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the target of an operation does not exist.
// Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrValidation is returned when input is missing, blank or references
// something that does not resolve (e.g. an unknown category).  HTTP 400.
var ErrValidation = errors.New("validation failed")

// ErrConflict is returned when an operation cannot proceed because it
// would collide with existing state, such as re-keying a request onto an
// id that is already taken or creating a duplicate category.  HTTP 409.
var ErrConflict = errors.New("conflict")

var (
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrRequestNotFound  = fmt.Errorf("request %w", ErrNotFound)
	ErrShortlistMissing = fmt.Errorf("shortlist entry %w", ErrNotFound)
	ErrReportNotFound   = fmt.Errorf("report %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	ErrCategoryExists = fmt.Errorf("category name already exists: %w", ErrConflict)
	ErrRequestIDTaken = fmt.Errorf("request id already in use: %w", ErrConflict)
	ErrEmailExists    = fmt.Errorf("email already exists: %w", ErrConflict)

	ErrNotOwner = fmt.Errorf("request belongs to another user: %w", ErrForbidden)
)

// validationf builds an ErrValidation carrying a human readable reason.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// isDuplicateKey reports whether err is a unique-key violation.  MySQL
// reports 1062; the sqlite driver used in tests says "UNIQUE constraint".
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

// dbTime renders t the way every timestamp column is written.
func dbTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
