// This file implements the match record ledger.  Records are read-only for
// every role; the only writer is RecordCompletion, which the completion
// workflow (seeder and match worker) calls when a request closes with a
// CSR attached.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/csr-service-match/internal/model"
)

// MatchRepo encapsulates queries against match_records.
type MatchRepo struct {
	db *sql.DB
}

func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

const matchSelect = `SELECT m.id, m.request_id, r.title, m.csr_id, m.pin_id, m.category_id, c.name,
       m.status, m.matched_at, m.completed_at
  FROM match_records m
  JOIN requests r ON r.id = m.request_id
  JOIN categories c ON c.id = m.category_id`

func scanMatch(s rowScanner) (*model.MatchRecord, error) {
	var (
		m         model.MatchRecord
		completed sql.NullTime
	)
	if err := s.Scan(&m.ID, &m.RequestID, &m.RequestTitle, &m.CsrID, &m.PinID, &m.CategoryID, &m.CategoryName,
		&m.Status, &m.MatchedAt, &completed); err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		m.CompletedAt = &t
	}
	return &m, nil
}

// ListByCSR returns the completed matches of csrID, newest completion first.
func (r *MatchRepo) ListByCSR(ctx context.Context, csrID uint64, f model.MatchFilter) ([]*model.MatchRecord, error) {
	return r.list(ctx, "m.csr_id = ?", csrID, f)
}

// ListByPIN returns the completed matches on requests owned by pinID.
func (r *MatchRepo) ListByPIN(ctx context.Context, pinID uint64, f model.MatchFilter) ([]*model.MatchRecord, error) {
	return r.list(ctx, "m.pin_id = ?", pinID, f)
}

// list applies the shared filters.  Date bounds are inclusive and compare
// the date part of completed_at only.
func (r *MatchRepo) list(ctx context.Context, owner string, ownerID uint64, f model.MatchFilter) ([]*model.MatchRecord, error) {
	where := []string{owner, "m.status = ?"}
	args := []any{ownerID, model.MatchStatusCompleted}
	if f.CategoryID != nil {
		where = append(where, "m.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if name := strings.TrimSpace(f.CategoryName); name != "" {
		where = append(where, "LOWER(c.name) LIKE ?"+likeEscape)
		args = append(args, containsPattern(name))
	}
	if f.From != nil {
		where = append(where, "DATE(m.completed_at) >= ?")
		args = append(args, f.From.Format("2006-01-02"))
	}
	if f.To != nil {
		where = append(where, "DATE(m.completed_at) <= ?")
		args = append(args, f.To.Format("2006-01-02"))
	}
	q := matchSelect + " WHERE " + strings.Join(where, " AND ") + " ORDER BY m.completed_at DESC, m.id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.MatchRecord{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByRequest returns the match record of a request, if any.
func (r *MatchRepo) GetByRequest(ctx context.Context, requestID uint64) (*model.MatchRecord, error) {
	m, err := scanMatch(r.db.QueryRowContext(ctx, matchSelect+" WHERE m.request_id = ?", requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// RecordCompletion closes the request with the given CSR attached and writes
// its completed match record in one transaction.  A request has at most one
// match record: when it already exists the stored record is returned with
// created=false and nothing is written.
func (r *MatchRepo) RecordCompletion(ctx context.Context, c model.Completion) (rec *model.MatchRecord, created bool, err error) {
	if c.CsrID == 0 {
		return nil, false, validationf("csr is required")
	}
	if c.MatchedAt.IsZero() {
		c.MatchedAt = time.Now()
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now()
	}
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		var pinID, categoryID uint64
		if err := tx.QueryRowContext(ctx, "SELECT pin_id, category_id FROM requests WHERE id = ?", c.RequestID).
			Scan(&pinID, &categoryID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRequestNotFound
			}
			return err
		}
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM match_records WHERE request_id = ?", c.RequestID).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE requests
			    SET status = ?, csr_id = ?, closed_at = COALESCE(closed_at, ?)
			  WHERE id = ?`,
			model.StatusClosed, c.CsrID, dbTime(c.CompletedAt), c.RequestID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_records (request_id, csr_id, pin_id, category_id, status, matched_at, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.RequestID, c.CsrID, pinID, categoryID, model.MatchStatusCompleted,
			dbTime(c.MatchedAt), dbTime(c.CompletedAt)); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	rec, err = r.GetByRequest(ctx, c.RequestID)
	if err != nil {
		return nil, false, err
	}
	return rec, created, nil
}

// Count returns the number of match records.
func (r *MatchRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM match_records").Scan(&n)
	return n, err
}

// CountCompletedBetween counts completed matches with from <= completed_at < to.
func (r *MatchRepo) CountCompletedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM match_records WHERE status = ? AND completed_at >= ? AND completed_at < ?",
		model.MatchStatusCompleted, dbTime(from), dbTime(to)).Scan(&n)
	return n, err
}

// CountCompletedSince counts completed matches with completed_at >= from.
func (r *MatchRepo) CountCompletedSince(ctx context.Context, from time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM match_records WHERE status = ? AND completed_at >= ?",
		model.MatchStatusCompleted, dbTime(from)).Scan(&n)
	return n, err
}

// CountByCSR counts the completed matches of csrID.
func (r *MatchRepo) CountByCSR(ctx context.Context, csrID uint64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM match_records WHERE csr_id = ? AND status = ?",
		csrID, model.MatchStatusCompleted).Scan(&n)
	return n, err
}
