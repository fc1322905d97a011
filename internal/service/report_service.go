// Package service holds the application logic that spans more than one
// repository: report generation and export, and the request.closed
// publisher.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/csr-service-match/internal/config"
	"github.com/iliyamo/csr-service-match/internal/model"
	"github.com/iliyamo/csr-service-match/internal/repository"
)

// ErrReportBusy is returned when another generation of the same kind and
// period holds the lock for longer than we are willing to wait.
var ErrReportBusy = fmt.Errorf("report generation already running: %w", repository.ErrConflict)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// ReportService snapshots platform usage into immutable reports.
type ReportService struct {
	reports *repository.ReportRepo
	matches *repository.MatchRepo
	locker  *redislock.Client
	lockTTL time.Duration
	logger  *logrus.Logger
	now     func() time.Time
}

// NewReportService wires the generator.  locker may be nil, in which case
// generation runs unlocked.
func NewReportService(reports *repository.ReportRepo, matches *repository.MatchRepo, locker *redislock.Client, lockTTL time.Duration, logger *logrus.Logger) *ReportService {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &ReportService{
		reports: reports,
		matches: matches,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the time source; tests pin "now" with it.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// Window is the half-open interval [Start, End) a report period covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParsePeriod validates period against kind and returns its window: one
// day for daily, seven days from the given date for weekly and the
// calendar month for monthly.
func ParsePeriod(kind, period string) (Window, error) {
	period = strings.TrimSpace(period)
	switch kind {
	case model.ReportDaily, model.ReportWeekly:
		start, err := time.Parse(dayLayout, period)
		if err != nil {
			return Window{}, fmt.Errorf("%w: period must be YYYY-MM-DD", repository.ErrValidation)
		}
		days := 1
		if kind == model.ReportWeekly {
			days = 7
		}
		return Window{Start: start, End: start.AddDate(0, 0, days)}, nil
	case model.ReportMonthly:
		start, err := time.Parse(monthLayout, period)
		if err != nil {
			return Window{}, fmt.Errorf("%w: period must be YYYY-MM", repository.ErrValidation)
		}
		return Window{Start: start, End: start.AddDate(0, 1, 0)}, nil
	}
	return Window{}, fmt.Errorf("%w: unknown report type %q", repository.ErrValidation, kind)
}

// DefaultTitle is used when the manager does not supply one.
func DefaultTitle(kind, period string, w Window) string {
	switch kind {
	case model.ReportDaily:
		return "Daily Report - " + period
	case model.ReportWeekly:
		return fmt.Sprintf("Weekly Report (%s to %s)", w.Start.Format(dayLayout), w.End.Format(dayLayout))
	default:
		return "Monthly Report - " + period
	}
}

// Generate takes a snapshot of the platform and stores it as a new report.
// Counts are taken as of call time; the period only decides the window
// bounds written into the summary (and, for weekly reports, the matches
// completed inside the window).
func (s *ReportService) Generate(ctx context.Context, kind string, managerID uint64, period, title string) (*model.Report, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	period = strings.TrimSpace(period)
	w, err := ParsePeriod(kind, period)
	if err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, "report:"+kind+":"+period)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now().UTC()
	data, err := s.snapshot(ctx, kind, w, now)
	if err != nil {
		config.LogError(s.logger, "service", "ReportService.Generate", "snapshot failed", period, err)
		return nil, err
	}
	blob, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if title = strings.TrimSpace(title); title == "" {
		title = DefaultTitle(kind, period, w)
	}
	rep := &model.Report{
		Title:       title,
		Type:        kind,
		GeneratedBy: managerID,
		Period:      period,
		Data:        string(blob),
		GeneratedAt: now,
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		config.LogError(s.logger, "service", "ReportService.Generate", "persist failed", period, err)
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"module":    "service",
		"report_id": rep.ID,
		"type":      kind,
		"period":    period,
	}).Info("report generated")
	return rep, nil
}

func (s *ReportService) snapshot(ctx context.Context, kind string, w Window, now time.Time) (*model.ReportData, error) {
	var (
		sum model.ReportSummary
		err error
	)
	if sum.TotalUsers, err = s.reports.CountUsers(ctx); err != nil {
		return nil, err
	}
	if sum.TotalRequests, sum.OpenRequests, sum.ClosedRequests, err = s.reports.RequestCounts(ctx); err != nil {
		return nil, err
	}
	if sum.TotalMatches, err = s.matches.Count(ctx); err != nil {
		return nil, err
	}
	if sum.RecentMatches30Days, err = s.matches.CountCompletedSince(ctx, now.AddDate(0, 0, -30)); err != nil {
		return nil, err
	}

	switch kind {
	case model.ReportDaily:
		sum.DayStart, sum.DayEnd = w.Start.Format(dayLayout), w.End.Format(dayLayout)
	case model.ReportWeekly:
		sum.WeekStart, sum.WeekEnd = w.Start.Format(dayLayout), w.End.Format(dayLayout)
		n, err := s.matches.CountCompletedBetween(ctx, w.Start, w.End)
		if err != nil {
			return nil, err
		}
		sum.MatchesCompletedThisWeek = &n
	case model.ReportMonthly:
		sum.MonthStart, sum.MonthEnd = w.Start.Format(dayLayout), w.End.Format(dayLayout)
	}

	breakdown, err := s.reports.CategoryBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	return &model.ReportData{Summary: sum, CategoryBreakdown: breakdown}, nil
}

// lock serializes generation per kind+period across server instances.
// Without Redis it is a no-op.
func (s *ReportService) lock(ctx context.Context, key string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	lk, err := s.locker.Obtain(ctx, key, s.lockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrReportBusy
	}
	if err != nil {
		// Redis trouble should not block reporting.
		config.LogError(s.logger, "service", "ReportService.lock", "redis lock failed, continuing unlocked", key, err)
		return func() {}, nil
	}
	return func() { _ = lk.Release(context.Background()) }, nil
}

// List returns stored reports newest first, optionally of one kind.
func (s *ReportService) List(ctx context.Context, kind string) ([]*model.Report, error) {
	return s.reports.List(ctx, kind)
}

// Get loads a report and decodes its blob.
func (s *ReportService) Get(ctx context.Context, id uint64) (*model.Report, *model.ReportData, error) {
	rep, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := Decode(rep)
	if err != nil {
		return nil, nil, err
	}
	return rep, data, nil
}

// UpdateTitle renames a report.  Nothing else about a report can change.
func (s *ReportService) UpdateTitle(ctx context.Context, id uint64, title string) (*model.Report, error) {
	return s.reports.UpdateTitle(ctx, id, title)
}

// Decode parses the stored blob.
func Decode(rep *model.Report) (*model.ReportData, error) {
	var data model.ReportData
	if err := json.Unmarshal([]byte(rep.Data), &data); err != nil {
		return nil, fmt.Errorf("decode report %d: %w", rep.ID, err)
	}
	return &data, nil
}

// WriteXLSX renders rep as a workbook with a Summary and a Categories sheet.
func WriteXLSX(w io.Writer, rep *model.Report) error {
	data, err := Decode(rep)
	if err != nil {
		return err
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const summary, categories = "Summary", "Categories"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}
	if _, err := f.NewSheet(categories); err != nil {
		return err
	}

	rows := [][]any{
		{"Title", rep.Title},
		{"Type", rep.Type},
		{"Period", rep.Period},
		{"Generated at", rep.GeneratedAt.UTC().Format(time.RFC3339)},
	}
	rows = append(rows, summaryRows(data.Summary)...)
	for i, row := range rows {
		if err := setRow(f, summary, i+1, row); err != nil {
			return err
		}
	}

	if err := setRow(f, categories, 1, []any{"Category", "Total", "Open", "Closed", "Closed %"}); err != nil {
		return err
	}
	names := make([]string, 0, len(data.CategoryBreakdown))
	for name := range data.CategoryBreakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		cc := data.CategoryBreakdown[name]
		row := []any{name, cc.TotalRequests, cc.OpenRequests, cc.ClosedRequests,
			ClosedRatio(cc).InexactFloat64()}
		if err := setRow(f, categories, i+2, row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// ClosedRatio is closed/total as a percentage rounded to two places.
func ClosedRatio(cc model.CategoryCounts) decimal.Decimal {
	if cc.TotalRequests == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(cc.ClosedRequests).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(cc.TotalRequests)).
		Round(2)
}

func summaryRows(s model.ReportSummary) [][]any {
	rows := [][]any{
		{"Total users", s.TotalUsers},
		{"Total requests", s.TotalRequests},
		{"Open requests", s.OpenRequests},
		{"Closed requests", s.ClosedRequests},
		{"Total matches", s.TotalMatches},
		{"Matches, last 30 days", s.RecentMatches30Days},
	}
	add := func(label, v string) {
		if v != "" {
			rows = append(rows, []any{label, v})
		}
	}
	add("Day start", s.DayStart)
	add("Day end", s.DayEnd)
	add("Week start", s.WeekStart)
	add("Week end", s.WeekEnd)
	add("Month start", s.MonthStart)
	add("Month end", s.MonthEnd)
	if s.MatchesCompletedThisWeek != nil {
		rows = append(rows, []any{"Matches completed this week", *s.MatchesCompletedThisWeek})
	}
	return rows
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
