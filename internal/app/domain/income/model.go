// Package income records individual earnings events.
package income

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type enumerates income categories.
type Type string

const (
	TypeDirectReferral Type = "direct_referral"
	TypeLevelBonus     Type = "level_bonus"
	TypeStakingReward  Type = "staking_reward"
	TypeBonus          Type = "bonus"
)

// Income is one earnings event credited to a user. Rows are immutable.
type Income struct {
	ID          string
	UserID      string
	Type        Type
	Amount      decimal.Decimal
	FromUserID  string
	Level       int
	Reference   string // transaction id or job period
	Description string
	CreatedAt   time.Time
}

// Summary aggregates derived totals for one user.
type Summary struct {
	UserID          string
	TotalIncome     decimal.Decimal
	TotalInvestment decimal.Decimal
	ComputedAt      time.Time
}
