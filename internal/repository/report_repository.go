package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/csr-service-match/internal/model"
)

// ReportRepo stores generated reports and answers the aggregate queries the
// report generator snapshots.  Reports are immutable apart from their title.
type ReportRepo struct {
	db *sql.DB
}

func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

const reportColumns = "id, title, report_type, generated_by, period, report_data, generated_at"

func scanReport(s rowScanner) (*model.Report, error) {
	var rep model.Report
	if err := s.Scan(&rep.ID, &rep.Title, &rep.Type, &rep.GeneratedBy, &rep.Period, &rep.Data, &rep.GeneratedAt); err != nil {
		return nil, err
	}
	return &rep, nil
}

// Create persists rep and fills in its ID and GeneratedAt.
func (r *ReportRepo) Create(ctx context.Context, rep *model.Report) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (title, report_type, generated_by, period, report_data, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rep.Title, rep.Type, rep.GeneratedBy, rep.Period, rep.Data, dbTime(rep.GeneratedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*rep = *stored
	return nil
}

func (r *ReportRepo) GetByID(ctx context.Context, id uint64) (*model.Report, error) {
	rep, err := scanReport(r.db.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM reports WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return rep, nil
}

// List returns every report, newest first.  kind narrows to one report type
// when non-empty.
func (r *ReportRepo) List(ctx context.Context, kind string) ([]*model.Report, error) {
	q := "SELECT " + reportColumns + " FROM reports"
	args := []any{}
	if kind != "" {
		q += " WHERE report_type = ?"
		args = append(args, kind)
	}
	q += " ORDER BY generated_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTitle overwrites the title; it is the only mutation a report allows.
func (r *ReportRepo) UpdateTitle(ctx context.Context, id uint64, title string) (*model.Report, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationf("title is required")
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, "UPDATE reports SET title = ? WHERE id = ?", title, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *ReportRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&n)
	return n, err
}

// CountUsers counts every account regardless of role or state.
func (r *ReportRepo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// RequestCounts returns the total, open and closed request counts.
func (r *ReportRepo) RequestCounts(ctx context.Context) (total, open, closed int64, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*),
	        COALESCE(SUM(CASE WHEN status = 'open' THEN 1 ELSE 0 END), 0),
	        COALESCE(SUM(CASE WHEN status = 'closed' THEN 1 ELSE 0 END), 0)
	   FROM requests`).Scan(&total, &open, &closed)
	return total, open, closed, err
}

// CategoryBreakdown returns per-category request counts keyed by category
// name.  Categories without requests are included with zero counts.
func (r *ReportRepo) CategoryBreakdown(ctx context.Context) (map[string]model.CategoryCounts, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT c.name, COUNT(r.id),
	        COALESCE(SUM(CASE WHEN r.status = 'open' THEN 1 ELSE 0 END), 0),
	        COALESCE(SUM(CASE WHEN r.status = 'closed' THEN 1 ELSE 0 END), 0)
	   FROM categories c
	   LEFT JOIN requests r ON r.category_id = c.id
	  GROUP BY c.id, c.name
	  ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]model.CategoryCounts{}
	for rows.Next() {
		var (
			name string
			cc   model.CategoryCounts
		)
		if err := rows.Scan(&name, &cc.TotalRequests, &cc.OpenRequests, &cc.ClosedRequests); err != nil {
			return nil, err
		}
		out[name] = cc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
