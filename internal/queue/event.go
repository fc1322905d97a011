// Package queue defines message payloads exchanged over the message broker
// and the worker that consumes them.
package queue

import "time"

// RequestClosedQueue is the durable queue request.closed events go to.
const RequestClosedQueue = "request.closed"

// RequestClosedEvent is published when a PIN closes a request that has a CSR
// attached.  The match worker turns it into a completed match record.
type RequestClosedEvent struct {
    RequestID  uint64    `json:"request_id"`
    PinID      uint64    `json:"pin_id"`
    CsrID      uint64    `json:"csr_id"`
    CategoryID uint64    `json:"category_id"`
    ClosedAt   time.Time `json:"closed_at"`
}
