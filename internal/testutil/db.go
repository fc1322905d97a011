// Package testutil provides SQLite-backed databases carrying the application
// schema, plus small fixture helpers, for package tests.
package testutil

import (
	"database/sql"
	_ "embed"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

//go:embed schema.sql
var schema string

// NewDB opens a fresh file database under t.TempDir() with foreign keys on.
// A single connection keeps SQLite writers from contending.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "csr.db")
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

// InsertUser adds an active account and returns its id.  The password is
// "password123".
func InsertUser(t testing.TB, db *sql.DB, email, role string) uint64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	res, err := db.Exec("INSERT INTO users (email, name, password_hash, role) VALUES (?, ?, ?, ?)",
		email, email, string(hash), role)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// InsertCategory adds a category and returns its id.
func InsertCategory(t testing.TB, db *sql.DB, name string, active bool) uint64 {
	t.Helper()
	res, err := db.Exec("INSERT INTO categories (name, description, is_active) VALUES (?, '', ?)", name, active)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// InsertRequest adds a request with the given status and creation time
// ("2006-01-02 15:04:05") and returns its id.
func InsertRequest(t testing.TB, db *sql.DB, pinID, categoryID uint64, title, status, createdAt string) uint64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO requests (pin_id, category_id, title, description, status, created_at) VALUES (?, ?, ?, '', ?, ?)",
		pinID, categoryID, title, status, createdAt)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}

// Count runs a COUNT(*) style query.
func Count(t testing.TB, db *sql.DB, q string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(q, args...).Scan(&n))
	return n
}
