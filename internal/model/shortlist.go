package model

import "time"

// ShortlistEntry bookmarks a request for a CSR.  At most one entry exists
// per (CSR, request) pair.
type ShortlistEntry struct {
    ID        uint64    `json:"id"`
    RequestID uint64    `json:"request_id"`
    CsrID     uint64    `json:"csr_id"`
    CreatedAt time.Time `json:"created_at"`
    Request   *Request  `json:"request,omitempty"`
}
