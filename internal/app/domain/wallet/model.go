// Package wallet defines the per-user balance model.
//
// Every user carries one wallet per kind. Stored kinds hold real balances
// mutated only by the ledger service; derived kinds (total income, total
// investment) are recomputed from history on read and are never adjusted
// directly.
package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies a balance category.
type Kind string

const (
	KindAvailableFund Kind = "available_fund" // main spending wallet
	KindTotalGain     Kind = "total_gain"     // investment returns + staking rewards
	KindLevelBonus    Kind = "level_bonus"    // multi-level commissions
	KindTotalReferral Kind = "total_referral" // direct referral commissions

	// Derived kinds, read-only.
	KindTotalIncome     Kind = "total_income"
	KindTotalInvestment Kind = "total_investment"
)

// Scale is the fixed fractional precision for all ledger arithmetic.
const Scale = 8

// StoredKinds lists the kinds that hold real balances.
func StoredKinds() []Kind {
	return []Kind{KindAvailableFund, KindTotalGain, KindLevelBonus, KindTotalReferral}
}

// IncomeKinds lists the stored kinds whose credits count as income.
func IncomeKinds() []Kind {
	return []Kind{KindTotalGain, KindLevelBonus, KindTotalReferral}
}

// Valid reports whether k names a known kind, derived or stored.
func (k Kind) Valid() bool {
	switch k {
	case KindAvailableFund, KindTotalGain, KindLevelBonus, KindTotalReferral,
		KindTotalIncome, KindTotalInvestment:
		return true
	}
	return false
}

// Derived reports whether k is computed rather than stored.
func (k Kind) Derived() bool {
	return k == KindTotalIncome || k == KindTotalInvestment
}

// Income reports whether credits to k count toward total income.
func (k Kind) Income() bool {
	return k == KindTotalGain || k == KindLevelBonus || k == KindTotalReferral
}

// Wallet is one (user, kind) balance. Invariants: Balance >= 0,
// 0 <= Locked <= Balance. Available funds are Balance - Locked.
//
// LifetimeCredited accumulates every credit ever applied to an income kind.
// It exists only as a reconciliation counter for the income aggregator and
// is never a source of truth.
type Wallet struct {
	ID               string
	UserID           string
	Kind             Kind
	Balance          decimal.Decimal
	Locked           decimal.Decimal
	LifetimeCredited decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Available returns the spendable portion of the balance.
func (w Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.Locked)
}

// EntryDirection distinguishes ledger entry sides.
type EntryDirection string

const (
	DirectionCredit EntryDirection = "credit"
	DirectionDebit  EntryDirection = "debit"
)

// LedgerEntry is the append-only audit record of one balance adjustment.
type LedgerEntry struct {
	ID        string
	UserID    string
	Kind      Kind
	Direction EntryDirection
	Amount    decimal.Decimal // always positive; Direction carries the sign
	Reason    string
	Reference string // transaction id or job period, when applicable
	CreatedAt time.Time
}

// LockStatus tracks the lifecycle of a fund reservation.
type LockStatus string

const (
	LockHeld     LockStatus = "held"
	LockSettled  LockStatus = "settled"
	LockReleased LockStatus = "released"
)

// FundLock reserves funds on one wallet for a pending transaction.
type FundLock struct {
	ID        string
	UserID    string
	Kind      Kind
	Amount    decimal.Decimal
	Status    LockStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SettlementRecord is the permanent result of settling a lock. Exactly one
// exists per settled lock; re-settling returns the original record.
type SettlementRecord struct {
	ID        string
	LockID    string
	UserID    string
	Source    Kind
	Dest      Kind // empty for withdrawals (funds leave the system)
	Amount    decimal.Decimal
	SettledAt time.Time
}
