package model

import "time"

// Category classifies requests.  Categories are created by the Platform
// Manager and are suspended or re-activated, never deleted.  Suspending a
// category hides its open requests from CSR browsing but leaves existing
// requests untouched.
type Category struct {
    ID          uint64    `json:"id"`
    Name        string    `json:"name"`
    Description string    `json:"description"`
    IsActive    bool      `json:"is_active"`
    CreatedAt   time.Time `json:"created_at"`
    UpdatedAt   time.Time `json:"updated_at"`
}
