package model

import "time"

// Report kinds.
const (
    ReportDaily   = "daily"
    ReportWeekly  = "weekly"
    ReportMonthly = "monthly"
)

// Report is an immutable usage snapshot.  Data holds the serialized
// ReportData JSON exactly as stored.
type Report struct {
    ID          uint64    `json:"id"`
    Title       string    `json:"title"`
    Type        string    `json:"type"`
    GeneratedBy uint64    `json:"generated_by"`
    Period      string    `json:"period"`
    Data        string    `json:"-"`
    GeneratedAt time.Time `json:"generated_at"`
}

// ReportData is the persisted blob: {"summary": ..., "category_breakdown": ...}.
type ReportData struct {
    Summary           ReportSummary             `json:"summary"`
    CategoryBreakdown map[string]CategoryCounts `json:"category_breakdown"`
}

// ReportSummary holds the global counts plus the bounds of the report
// window.  Only the bounds matching the report kind are set.
type ReportSummary struct {
    TotalUsers               int64  `json:"total_users"`
    TotalRequests            int64  `json:"total_requests"`
    OpenRequests             int64  `json:"open_requests"`
    ClosedRequests           int64  `json:"closed_requests"`
    TotalMatches             int64  `json:"total_matches"`
    RecentMatches30Days      int64  `json:"recent_matches_30_days"`
    DayStart                 string `json:"day_start,omitempty"`
    DayEnd                   string `json:"day_end,omitempty"`
    WeekStart                string `json:"week_start,omitempty"`
    WeekEnd                  string `json:"week_end,omitempty"`
    MatchesCompletedThisWeek *int64 `json:"matches_completed_this_week,omitempty"`
    MonthStart               string `json:"month_start,omitempty"`
    MonthEnd                 string `json:"month_end,omitempty"`
}

// CategoryCounts is one entry of the per-category breakdown.
type CategoryCounts struct {
    TotalRequests  int64 `json:"total_requests"`
    OpenRequests   int64 `json:"open_requests"`
    ClosedRequests int64 `json:"closed_requests"`
}

// PlatformSummary feeds the Platform Manager dashboard.
type PlatformSummary struct {
    TotalCategories int64 `json:"total_categories"`
    TotalRequests   int64 `json:"total_requests"`
    OpenRequests    int64 `json:"open_requests"`
    TotalReports    int64 `json:"total_reports"`
    TotalMatches    int64 `json:"total_matches"`
}
