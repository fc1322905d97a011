package model

import "time"

// Request status values.  The column itself accepts any string.
const (
    StatusOpen      = "open"
    StatusDraft     = "draft"
    StatusClosed    = "closed"
    StatusCompleted = "completed"
)

// Request is a service request opened by a Person-In-Need.  It corresponds
// to a row in the `requests` table.
//
// Fields:
//  ID             – primary key identifier.
//  PinID          – owning PIN (users.id).
//  CsrID          – CSR attached to the request, if any.
//  CategoryID     – category the request is filed under.
//  CategoryName   – joined from categories on list/detail reads.
//  Status         – open, draft, closed or completed.
//  ViewCount      – incremented on every CSR view.
//  ShortlistCount – number of live shortlist entries referencing the request.
//  ClosedAt       – set when the request is closed.
type Request struct {
    ID             uint64     `json:"id"`
    PinID          uint64     `json:"pin_id"`
    CsrID          *uint64    `json:"csr_id,omitempty"`
    CategoryID     uint64     `json:"category_id"`
    CategoryName   string     `json:"category_name,omitempty"`
    Title          string     `json:"title"`
    Description    string     `json:"description"`
    Status         string     `json:"status"`
    ViewCount      uint32     `json:"view_count"`
    ShortlistCount uint32     `json:"shortlist_count"`
    CreatedAt      time.Time  `json:"created_at"`
    ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

// RequestUpdate carries the optional fields of a PIN edit.  Nil fields are
// left unchanged.  NewID re-keys the request.
type RequestUpdate struct {
    NewID       *uint64
    CategoryID  *uint64
    Title       *string
    Description *string
    Status      *string
}

// RequestStats are the per-owner counts shown on the PIN dashboard.
type RequestStats struct {
    Total     int64 `json:"total"`
    Draft     int64 `json:"draft"`
    Open      int64 `json:"open"`
    Closed    int64 `json:"closed"`
    Completed int64 `json:"completed"`
}
