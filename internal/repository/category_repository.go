// This file implements the category registry.  Categories are created by
// the Platform Manager and are only ever suspended or re-activated, never
// removed, so requests always keep a resolvable category.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/csr-service-match/internal/model"
)

// CategoryRepo encapsulates all database queries related to categories.
type CategoryRepo struct {
	db *sql.DB
}

// NewCategoryRepo constructs a CategoryRepo with the provided DB handle.
func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

const categoryColumns = "id, name, COALESCE(description, ''), is_active, created_at, updated_at"

func scanCategory(s rowScanner) (*model.Category, error) {
	var c model.Category
	if err := s.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new active category.  Names are unique regardless of
// case; a clash is reported as ErrCategoryExists.
func (r *CategoryRepo) Create(ctx context.Context, name, description string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("category name is required")
	}
	var n int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE LOWER(name) = ?", strings.ToLower(name)).Scan(&n); err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrCategoryExists
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (name, description, is_active) VALUES (?, ?, 1)",
		name, strings.TrimSpace(description))
	if err != nil {
		// two managers racing on the same name
		if isDuplicateKey(err) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches a category regardless of its active flag.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

// Update replaces name and description.  The active flag is untouched.
func (r *CategoryRepo) Update(ctx context.Context, id uint64, name, description string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("category name is required")
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE LOWER(name) = ? AND id <> ?", strings.ToLower(name), id).Scan(&n); err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrCategoryExists
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE categories SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		name, strings.TrimSpace(description), id); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Suspend marks the category inactive.  Suspending twice is a no-op.
// Requests filed under the category are not modified.
func (r *CategoryRepo) Suspend(ctx context.Context, id uint64) (*model.Category, error) {
	return r.setActive(ctx, id, false)
}

// Activate reverses Suspend.
func (r *CategoryRepo) Activate(ctx context.Context, id uint64) (*model.Category, error) {
	return r.setActive(ctx, id, true)
}

// setActive leaves the row untouched, updated_at included, when the flag
// already has the wanted value.
func (r *CategoryRepo) setActive(ctx context.Context, id uint64, active bool) (*model.Category, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE categories SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_active <> ?",
		active, id, active); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SearchByName returns categories whose name contains substr, ignoring
// case, ordered by name.  An empty substr matches every category.
func (r *CategoryRepo) SearchByName(ctx context.Context, substr string) ([]*model.Category, error) {
	pattern := containsPattern(substr)
	return r.list(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE LOWER(name) LIKE ?"+likeEscape+" ORDER BY name, id", pattern)
}

// ListActive returns the active categories ordered by name.  CSR browse
// filters and PIN request forms are populated from it.
func (r *CategoryRepo) ListActive(ctx context.Context) ([]*model.Category, error) {
	return r.list(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE is_active = 1 ORDER BY name, id")
}

// Count returns the number of categories, active or not.
func (r *CategoryRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories").Scan(&n)
	return n, err
}

func (r *CategoryRepo) list(ctx context.Context, q string, args ...any) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
