package admin

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/audit"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/transaction"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/transactions"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
	"github.com/DeepakDhaka201/MetaBE/pkg/logger"
)

// ScopeAdmin is the capability required for every operation in this service.
const ScopeAdmin = "admin"

// Principal is the already-authenticated caller. The HTTP boundary builds it
// from the auth token; the capability check happens exactly once, here.
type Principal struct {
	UserID string
	Scopes []string
}

// HasScope reports whether the principal carries the named scope.
func (p Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Service is the admin approval surface. Every decision is recorded in the
// append-only audit trail before it is applied.
type Service struct {
	transactions *transactions.Service
	ledger       *ledger.Service
	audits       storage.AuditStore
	sink         Sink
	log          *logger.Logger
}

// New constructs an admin service.
func New(txSvc *transactions.Service, ledgerSvc *ledger.Service, audits storage.AuditStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("admin")
	}
	return &Service{
		transactions: txSvc,
		ledger:       ledgerSvc,
		audits:       audits,
		log:          log,
	}
}

// WithSink attaches an additional audit sink (JSONL file). Call before use.
func (s *Service) WithSink(sink Sink) *Service {
	s.sink = sink
	return s
}

func (s *Service) authorize(p Principal) error {
	if !p.HasScope(ScopeAdmin) {
		return apperr.ErrForbidden
	}
	return nil
}

func (s *Service) record(ctx context.Context, p Principal, action, txID, detail string) {
	entry, err := s.audits.CreateAuditEntry(ctx, audit.Entry{
		AdminID:       p.UserID,
		Action:        action,
		TransactionID: txID,
		Detail:        detail,
	})
	if err != nil {
		s.log.WithError(err).Errorf("audit %s on %s not recorded", action, txID)
		return
	}
	if s.sink != nil {
		// Best-effort persistence; the store already holds the entry.
		_ = s.sink.Write(SinkEntry{
			Time:          entry.CreatedAt,
			AdminID:       entry.AdminID,
			Action:        entry.Action,
			TransactionID: entry.TransactionID,
			Detail:        entry.Detail,
		})
	}
}

// ListPendingTransactions returns everything awaiting an admin decision.
func (s *Service) ListPendingTransactions(ctx context.Context, p Principal) ([]transaction.Transaction, error) {
	if err := s.authorize(p); err != nil {
		return nil, err
	}
	return s.transactions.ListActionable(ctx)
}

// Approve advances a pending transaction.
func (s *Service) Approve(ctx context.Context, p Principal, txID, notes string) (transaction.Transaction, error) {
	if err := s.authorize(p); err != nil {
		return transaction.Transaction{}, err
	}
	tx, err := s.transactions.Approve(ctx, txID, notes)
	if err != nil {
		return transaction.Transaction{}, err
	}
	s.record(ctx, p, "approve", txID, notes)
	return tx, nil
}

// Reject declines a pending or processing transaction.
func (s *Service) Reject(ctx context.Context, p Principal, txID, reason string) (transaction.Transaction, error) {
	if err := s.authorize(p); err != nil {
		return transaction.Transaction{}, err
	}
	tx, err := s.transactions.Reject(ctx, txID, reason)
	if err != nil {
		return transaction.Transaction{}, err
	}
	s.record(ctx, p, "reject", txID, reason)
	return tx, nil
}

// Confirm finalizes a processing withdrawal with its external reference.
func (s *Service) Confirm(ctx context.Context, p Principal, txID, externalRef string) (transaction.Transaction, error) {
	if err := s.authorize(p); err != nil {
		return transaction.Transaction{}, err
	}
	tx, err := s.transactions.Confirm(ctx, txID, externalRef)
	if err != nil {
		return transaction.Transaction{}, err
	}
	s.record(ctx, p, "confirm", txID, externalRef)
	return tx, nil
}

// ManualAdjust applies a signed correction to a user's wallet, audited under
// the credit or debit action.
func (s *Service) ManualAdjust(ctx context.Context, p Principal, userID string, kind wallet.Kind, delta decimal.Decimal, reason string) (wallet.Wallet, error) {
	if err := s.authorize(p); err != nil {
		return wallet.Wallet{}, err
	}

	w, err := s.ledger.AdjustBalance(ctx, userID, kind, delta, reason, "admin:"+p.UserID)
	if err != nil {
		return wallet.Wallet{}, err
	}

	action := "credit"
	if delta.IsNegative() {
		action = "debit"
	}
	s.record(ctx, p, action, "", userID+" "+string(kind)+" "+delta.String()+" "+reason)
	return w, nil
}

// AuditTrail lists recorded admin actions, optionally filtered by
// transaction.
func (s *Service) AuditTrail(ctx context.Context, p Principal, txID string, limit int) ([]audit.Entry, error) {
	if err := s.authorize(p); err != nil {
		return nil, err
	}
	return s.audits.ListAuditEntries(ctx, txID, limit)
}
