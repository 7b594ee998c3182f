// Package assignment models temporary deposit-address reservations.
package assignment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates assignment lifecycle states.
type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Assignment reserves one pooled deposit address for one user for a bounded
// window. A user holds at most one active assignment; the cleanup job expires
// stale ones and returns the address to the pool.
type Assignment struct {
	ID         string
	UserID     string
	Address    string
	Amount     decimal.Decimal
	Status     Status
	AssignedAt time.Time
	ExpiresAt  time.Time
	UpdatedAt  time.Time
}

// Expired reports whether the assignment window has passed.
func (a Assignment) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
