package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/csr-service-match/internal/model"
)

// ShortlistRepo manages CSR bookmarks.  Every add and remove adjusts the
// request's shortlist_count in the same transaction so the counter always
// equals the number of live entries.
type ShortlistRepo struct {
	db *sql.DB
}

func NewShortlistRepo(db *sql.DB) *ShortlistRepo {
	return &ShortlistRepo{db: db}
}

// Add bookmarks requestID for csrID.  It returns false without error when
// the pair already exists.  The existence check is advisory; the unique
// (csr_id, request_id) index turns a racing duplicate into the same no-op.
func (r *ShortlistRepo) Add(ctx context.Context, requestID, csrID uint64) (bool, error) {
	added := false
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM requests WHERE id = ?", requestID).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return ErrRequestNotFound
		}
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM shortlists WHERE csr_id = ? AND request_id = ?", csrID, requestID).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO shortlists (request_id, csr_id) VALUES (?, ?)", requestID, csrID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE requests SET shortlist_count = shortlist_count + 1 WHERE id = ?", requestID); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return added, nil
}

// Remove deletes csrID's bookmark of requestID and decrements the counter,
// never below zero.  ErrShortlistMissing when there is no such entry.
func (r *ShortlistRepo) Remove(ctx context.Context, csrID, requestID uint64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM shortlists WHERE csr_id = ? AND request_id = ?", csrID, requestID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrShortlistMissing
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE requests
			    SET shortlist_count = CASE WHEN shortlist_count > 0 THEN shortlist_count - 1 ELSE 0 END
			  WHERE id = ?`, requestID)
		return err
	})
}

// Exists reports whether csrID has bookmarked requestID.
func (r *ShortlistRepo) Exists(ctx context.Context, csrID, requestID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM shortlists WHERE csr_id = ? AND request_id = ?", csrID, requestID).Scan(&n)
	return n > 0, err
}

// ListByCSR returns csrID's bookmarks with their requests, newest first,
// optionally restricted to one category.
func (r *ShortlistRepo) ListByCSR(ctx context.Context, csrID uint64, categoryID *uint64) ([]*model.ShortlistEntry, error) {
	q := `SELECT s.id, s.request_id, s.csr_id, s.created_at,
	             r.id, r.pin_id, r.csr_id, r.category_id, c.name, r.title,
	             COALESCE(r.description, ''), r.status, r.view_count, r.shortlist_count,
	             r.created_at, r.closed_at
	        FROM shortlists s
	        JOIN requests r ON r.id = s.request_id
	        JOIN categories c ON c.id = r.category_id
	       WHERE s.csr_id = ?`
	args := []any{csrID}
	if categoryID != nil {
		q += " AND r.category_id = ?"
		args = append(args, *categoryID)
	}
	q += " ORDER BY s.created_at DESC, s.id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.ShortlistEntry{}
	for rows.Next() {
		var e model.ShortlistEntry
		req, err := scanRequest(prefixScanner{rows: rows, prefix: []any{&e.ID, &e.RequestID, &e.CsrID, &e.CreatedAt}})
		if err != nil {
			return nil, err
		}
		e.Request = req
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// prefixScanner lets scanRequest read the trailing columns of a wider row.
type prefixScanner struct {
	rows   *sql.Rows
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.rows.Scan(append(p.prefix, dest...)...)
}

// CountByCSR returns how many requests csrID has bookmarked.
func (r *ShortlistRepo) CountByCSR(ctx context.Context, csrID uint64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shortlists WHERE csr_id = ?", csrID).Scan(&n)
	return n, err
}
