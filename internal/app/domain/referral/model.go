// Package referral models the upline chain and commission payouts.
package referral

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
)

// Link records that ReferrerID sits Level steps above ReferredID in the
// upline chain. Level 1 is the direct referrer; chains are built once at
// registration and capped at the configured depth.
type Link struct {
	ID          string
	ReferrerID  string
	ReferredID  string
	Level       int
	Active      bool
	TotalEarned decimal.Decimal
	LastPayout  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CommissionEntry is one immutable payout to one upline member at one level,
// linked to the originating reference (investment or transaction id).
type CommissionEntry struct {
	ID          string
	RecipientID string
	SourceID    string // user whose activity generated the commission
	Level       int
	Rate        decimal.Decimal // percent applied
	Amount      decimal.Decimal
	WalletKind  wallet.Kind
	Reference   string
	CreatedAt   time.Time
}
