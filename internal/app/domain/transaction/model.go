// Package transaction models a financial request moving through its
// admin-mediated lifecycle.
package transaction

import (
	"crypto/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
)

// Type enumerates the supported financial intents.
type Type string

const (
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
	TypeTransfer   Type = "transfer"
)

// Status enumerates lifecycle states. Transitions are monotonic:
// pending -> processing -> completed, with side exits to cancelled
// (user, pending only), rejected (admin, pending or processing) and
// failed (technical, processing only). Terminal states never transition.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRejected   Status = "rejected"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Transaction is the append-only audit record of one financial intent.
// Rows are never deleted; state changes happen only through the defined
// transitions.
type Transaction struct {
	ID     string
	UserID string
	Type   Type
	Status Status

	WalletKind wallet.Kind // source for withdrawals/transfers, destination for deposits
	DestKind   wallet.Kind // transfer destination, empty otherwise
	ToAddress  string      // external address for withdrawals

	Amount decimal.Decimal
	Fee    decimal.Decimal

	LockID      string // fund lock backing a pending withdrawal/transfer
	Description string
	AdminNotes  string
	FailReason  string
	ExternalRef string // external settlement reference recorded at confirm

	CreatedAt   time.Time
	ProcessedAt time.Time
	ConfirmedAt time.Time
	UpdatedAt   time.Time
}

// Total returns amount plus fee, the sum actually moved at settlement.
func (t Transaction) Total() decimal.Decimal {
	return t.Amount.Add(t.Fee)
}

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var idPrefixes = map[Type]string{
	TypeDeposit:    "TXN_DP_",
	TypeWithdrawal: "TXN_WD_",
	TypeTransfer:   "TXN_TR_",
}

// NewID generates a human-traceable transaction identifier prefixed by type,
// e.g. TXN_WD_20250101120000XK3M9Q.
func NewID(t Type) string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = idAlphabet[int(buf[i])%len(idAlphabet)]
	}
	return idPrefixes[t] + time.Now().UTC().Format("20060102150405") + string(buf)
}

// Filter narrows transaction listings.
type Filter struct {
	UserID string
	Type   Type
	Status Status
	Limit  int
	Offset int
}
