// Package investment models invested principal.
package investment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates investment lifecycle states.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Investment is one principal amount committed by a user. Active principal
// feeds the derived total-investment figure and rank evaluation.
type Investment struct {
	ID        string
	UserID    string
	Principal decimal.Decimal
	Status    Status
	Reference string // ledger reference for the funding debit
	CreatedAt time.Time
	UpdatedAt time.Time
}
