package model

import "time"

const MatchStatusCompleted = "completed"

// MatchRecord is the historical record of a CSR completing a request.  It is
// written once by the completion workflow and never updated.
type MatchRecord struct {
    ID           uint64     `json:"id"`
    RequestID    uint64     `json:"request_id"`
    RequestTitle string     `json:"request_title,omitempty"`
    CsrID        uint64     `json:"csr_id"`
    PinID        uint64     `json:"pin_id"`
    CategoryID   uint64     `json:"category_id"`
    CategoryName string     `json:"category_name,omitempty"`
    Status       string     `json:"status"`
    MatchedAt    time.Time  `json:"matched_at"`
    CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// MatchFilter narrows match history listings.  From and To are inclusive
// and compared against the date part of completed_at only.
type MatchFilter struct {
    CategoryID   *uint64
    CategoryName string
    From         *time.Time
    To           *time.Time
}

// Completion describes a request being closed with a CSR attached.
type Completion struct {
    RequestID   uint64
    CsrID       uint64
    MatchedAt   time.Time
    CompletedAt time.Time
}

// CSRSummary feeds the CSR dashboard.  Shortlisted and Matches are the
// caller's own; OpenRequests is what the caller can browse.
type CSRSummary struct {
    OpenRequests int64 `json:"open_requests"`
    Shortlisted  int64 `json:"shortlisted"`
    Matches      int64 `json:"matches"`
}
