// This file implements the request lifecycle store.  A request is opened by
// a PIN, viewed and shortlisted by CSRs and finally closed.  It exclusively
// owns its shortlist entries and match records: deleting a request removes
// them in the same transaction.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/csr-service-match/internal/model"
)

// RequestRepo encapsulates all database queries related to requests.
type RequestRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewRequestRepo constructs a RequestRepo with the provided DB handle.
func NewRequestRepo(db *sql.DB) *RequestRepo {
	return &RequestRepo{db: db, now: time.Now}
}

// WithClock replaces the time source used for created_at and closed_at.
// The seeder back-dates requests with it.
func (r *RequestRepo) WithClock(now func() time.Time) *RequestRepo {
	r.now = now
	return r
}

const requestSelect = `SELECT r.id, r.pin_id, r.csr_id, r.category_id, c.name, r.title,
       COALESCE(r.description, ''), r.status, r.view_count, r.shortlist_count,
       r.created_at, r.closed_at
  FROM requests r
  JOIN categories c ON c.id = r.category_id`

const newestFirst = " ORDER BY r.created_at DESC, r.id DESC"

func scanRequest(s rowScanner) (*model.Request, error) {
	var (
		req    model.Request
		csrID  sql.NullInt64
		closed sql.NullTime
	)
	if err := s.Scan(&req.ID, &req.PinID, &csrID, &req.CategoryID, &req.CategoryName, &req.Title,
		&req.Description, &req.Status, &req.ViewCount, &req.ShortlistCount,
		&req.CreatedAt, &closed); err != nil {
		return nil, err
	}
	if csrID.Valid {
		id := uint64(csrID.Int64)
		req.CsrID = &id
	}
	if closed.Valid {
		t := closed.Time
		req.ClosedAt = &t
	}
	return &req, nil
}

// categoryExists is shared by Create and Update; q is either the pool or a tx.
func categoryExists(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id uint64) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories WHERE id = ?", id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create opens a new request for ownerID with status "open" and zeroed
// counters.  Missing fields or an unknown category yield ErrValidation.
func (r *RequestRepo) Create(ctx context.Context, ownerID, categoryID uint64, title, description string) (*model.Request, error) {
	title = strings.TrimSpace(title)
	switch {
	case ownerID == 0:
		return nil, validationf("owner is required")
	case categoryID == 0:
		return nil, validationf("category is required")
	case title == "":
		return nil, validationf("title is required")
	}
	ok, err := categoryExists(ctx, r.db, categoryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, validationf("category %d does not exist", categoryID)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO requests (pin_id, category_id, title, description, status, view_count, shortlist_count, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, 0, ?)`,
		ownerID, categoryID, title, strings.TrimSpace(description), model.StatusOpen, dbTime(r.now()))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID reads a request without touching its view counter.
func (r *RequestRepo) GetByID(ctx context.Context, id uint64) (*model.Request, error) {
	req, err := scanRequest(r.db.QueryRowContext(ctx, requestSelect+" WHERE r.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// View returns the request and counts the read.  Every call increments
// view_count by one, including repeated reads by the same CSR.
func (r *RequestRepo) View(ctx context.Context, id uint64) (*model.Request, error) {
	var out *model.Request
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE requests SET view_count = view_count + 1 WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrRequestNotFound
		}
		out, err = scanRequest(tx.QueryRowContext(ctx, requestSelect+" WHERE r.id = ?", id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies the non-nil fields of u on behalf of actorID.  Only the
// owning PIN may edit.  Re-keying onto an occupied id fails with
// ErrRequestIDTaken before anything is written.  Moving the request to
// "closed" stamps closed_at unless it is already set.
func (r *RequestRepo) Update(ctx context.Context, id, actorID uint64, u model.RequestUpdate) (*model.Request, error) {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return nil, validationf("title cannot be blank")
	}
	if u.Status != nil && strings.TrimSpace(*u.Status) == "" {
		return nil, validationf("status cannot be blank")
	}
	if u.NewID != nil && *u.NewID == 0 {
		return nil, validationf("request id must be positive")
	}

	targetID := id
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var ownerID uint64
		var closedAt sql.NullTime
		if err := tx.QueryRowContext(ctx, "SELECT pin_id, closed_at FROM requests WHERE id = ?", id).
			Scan(&ownerID, &closedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRequestNotFound
			}
			return err
		}
		if ownerID != actorID {
			return ErrNotOwner
		}
		if u.CategoryID != nil {
			ok, err := categoryExists(ctx, tx, *u.CategoryID)
			if err != nil {
				return err
			}
			if !ok {
				return validationf("category %d does not exist", *u.CategoryID)
			}
		}
		if u.NewID != nil && *u.NewID != id {
			var n int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM requests WHERE id = ?", *u.NewID).Scan(&n); err != nil {
				return err
			}
			if n > 0 {
				return ErrRequestIDTaken
			}
		}

		sets := []string{}
		args := []any{}
		if u.CategoryID != nil {
			sets = append(sets, "category_id = ?")
			args = append(args, *u.CategoryID)
		}
		if u.Title != nil {
			sets = append(sets, "title = ?")
			args = append(args, strings.TrimSpace(*u.Title))
		}
		if u.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, strings.TrimSpace(*u.Description))
		}
		if u.Status != nil {
			status := strings.TrimSpace(*u.Status)
			sets = append(sets, "status = ?")
			args = append(args, status)
			if status == model.StatusClosed && !closedAt.Valid {
				sets = append(sets, "closed_at = ?")
				args = append(args, dbTime(r.now()))
			}
		}
		// id goes last so the other assignments are not affected by the re-key;
		// shortlists and match_records follow through ON UPDATE CASCADE.
		if u.NewID != nil && *u.NewID != id {
			sets = append(sets, "id = ?")
			args = append(args, *u.NewID)
			targetID = *u.NewID
		}
		if len(sets) == 0 {
			return nil
		}
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, "UPDATE requests SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			if isDuplicateKey(err) {
				return ErrRequestIDTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, targetID)
}

// Delete hard-deletes the request together with its shortlist entries and
// match records.  Only the owning PIN may delete; on any failure nothing is
// removed.
func (r *RequestRepo) Delete(ctx context.Context, id, actorID uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var ownerID uint64
		if err := tx.QueryRowContext(ctx, "SELECT pin_id FROM requests WHERE id = ?", id).Scan(&ownerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRequestNotFound
			}
			return err
		}
		if ownerID != actorID {
			return ErrNotOwner
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM shortlists WHERE request_id = ?", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM match_records WHERE request_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM requests WHERE id = ?", id)
		return err
	})
}

// Search lists ownerID's requests whose title or description contains
// keyword, ignoring case, newest first.  An empty keyword lists them all.
func (r *RequestRepo) Search(ctx context.Context, ownerID uint64, keyword string) ([]*model.Request, error) {
	pattern := containsPattern(keyword)
	return r.list(ctx, requestSelect+
		" WHERE r.pin_id = ? AND (LOWER(r.title) LIKE ?"+likeEscape+" OR LOWER(COALESCE(r.description, '')) LIKE ?"+likeEscape+")"+newestFirst,
		ownerID, pattern, pattern)
}

// SearchOpen lists open requests filed under active categories, newest
// first.  A non-empty categoryName narrows the result to categories whose
// name contains it.
func (r *RequestRepo) SearchOpen(ctx context.Context, categoryName string) ([]*model.Request, error) {
	pattern := containsPattern(categoryName)
	return r.list(ctx, requestSelect+
		" WHERE r.status = ? AND c.is_active = 1 AND LOWER(c.name) LIKE ?"+likeEscape+newestFirst,
		model.StatusOpen, pattern)
}

// OwnerStats counts ownerID's requests per status.
func (r *RequestRepo) OwnerStats(ctx context.Context, ownerID uint64) (model.RequestStats, error) {
	var s model.RequestStats
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*),
	        COALESCE(SUM(CASE WHEN status = 'draft' THEN 1 ELSE 0 END), 0),
	        COALESCE(SUM(CASE WHEN status = 'open' THEN 1 ELSE 0 END), 0),
	        COALESCE(SUM(CASE WHEN status = 'closed' THEN 1 ELSE 0 END), 0),
	        COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)
	   FROM requests WHERE pin_id = ?`, ownerID).
		Scan(&s.Total, &s.Draft, &s.Open, &s.Closed, &s.Completed)
	return s, err
}

// CountOpen counts the requests SearchOpen would list without a filter.
func (r *RequestRepo) CountOpen(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)
	   FROM requests r
	   JOIN categories c ON c.id = r.category_id
	  WHERE r.status = ? AND c.is_active = 1`, model.StatusOpen).Scan(&n)
	return n, err
}

// AssignCSR attaches a CSR to the request.  The seeder uses it to stage
// requests that the completion workflow can later close.
func (r *RequestRepo) AssignCSR(ctx context.Context, id, csrID uint64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, "UPDATE requests SET csr_id = ? WHERE id = ?", csrID, id)
	return err
}

func (r *RequestRepo) list(ctx context.Context, q string, args ...any) ([]*model.Request, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
