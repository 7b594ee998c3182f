package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/assignment"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/transaction"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage"
	"github.com/DeepakDhaka201/MetaBE/internal/config"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
	"github.com/DeepakDhaka201/MetaBE/pkg/logger"
)

// Service drives transactions through their admin-mediated lifecycle. Fund
// movements happen exclusively through the ledger; this service decides when.
type Service struct {
	users       storage.UserStore
	store       storage.TransactionStore
	assignments storage.AssignmentStore
	ledger      *ledger.Service
	settings    config.Provider
	log         *logger.Logger
	keys        *keyedMutex

	pool []string
}

// New constructs a transactions service.
func New(users storage.UserStore, store storage.TransactionStore, assignments storage.AssignmentStore, ledgerSvc *ledger.Service, settings config.Provider, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("transactions")
	}
	if settings == nil {
		settings = config.StaticProvider{Settings: config.DefaultSettings()}
	}
	return &Service{
		users:       users,
		store:       store,
		assignments: assignments,
		ledger:      ledgerSvc,
		settings:    settings,
		log:         log,
		keys:        newKeyedMutex(),
	}
}

// WithAddressPool configures the pooled deposit addresses handed out by
// RequestDepositAddress.
func (s *Service) WithAddressPool(addresses []string) *Service {
	s.pool = append([]string(nil), addresses...)
	return s
}

const base58Chars = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ValidAddress reports whether addr looks like a TRON-style address:
// a T followed by 33 base58 characters.
func ValidAddress(addr string) bool {
	if len(addr) != 34 || addr[0] != 'T' {
		return false
	}
	for _, c := range addr[1:] {
		if !strings.ContainsRune(base58Chars, c) {
			return false
		}
	}
	return true
}

func (s *Service) activeUser(ctx context.Context, userID string) error {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !u.Active {
		return apperr.NewValidation("user_id", "account is not active")
	}
	return nil
}

// RequestDepositAddress reserves a pooled deposit address for the user. At
// most one reservation is active per user; requesting again inside the window
// returns the existing one.
func (s *Service) RequestDepositAddress(ctx context.Context, userID string, amount decimal.Decimal) (assignment.Assignment, error) {
	if err := s.activeUser(ctx, userID); err != nil {
		return assignment.Assignment{}, err
	}

	if existing, err := s.assignments.GetActiveAssignment(ctx, userID); err == nil {
		return existing, nil
	}

	active, err := s.assignments.ListActiveAssignments(ctx)
	if err != nil {
		return assignment.Assignment{}, err
	}
	taken := make(map[string]bool, len(active))
	for _, a := range active {
		taken[a.Address] = true
	}

	var address string
	for _, candidate := range s.pool {
		if !taken[candidate] {
			address = candidate
			break
		}
	}
	if address == "" {
		return assignment.Assignment{}, fmt.Errorf("no deposit address available")
	}

	now := time.Now().UTC()
	a, err := s.assignments.CreateAssignment(ctx, assignment.Assignment{
		UserID:     userID,
		Address:    address,
		Amount:     amount,
		Status:     assignment.StatusAssigned,
		AssignedAt: now,
		ExpiresAt:  now.Add(s.settings.Current().AssignmentTTL),
	})
	if err != nil {
		return assignment.Assignment{}, err
	}
	s.log.WithField("user_id", userID).
		WithField("address", address).
		Info("deposit address assigned")
	return a, nil
}

// CreateDeposit opens a pending deposit. No funds move and nothing is locked
// until an admin approves.
func (s *Service) CreateDeposit(ctx context.Context, userID string, amount decimal.Decimal, description string) (transaction.Transaction, error) {
	if err := s.activeUser(ctx, userID); err != nil {
		return transaction.Transaction{}, err
	}

	limits := s.settings.Current().Limits
	amount = amount.Truncate(wallet.Scale)
	if amount.LessThan(limits.MinDeposit) {
		return transaction.Transaction{}, apperr.NewValidation("amount", "minimum deposit is %s", limits.MinDeposit)
	}
	if amount.GreaterThan(limits.MaxDeposit) {
		return transaction.Transaction{}, apperr.NewValidation("amount", "maximum deposit is %s", limits.MaxDeposit)
	}

	tx, err := s.store.CreateTransaction(ctx, transaction.Transaction{
		ID:          transaction.NewID(transaction.TypeDeposit),
		UserID:      userID,
		Type:        transaction.TypeDeposit,
		Status:      transaction.StatusPending,
		WalletKind:  wallet.KindAvailableFund,
		Amount:      amount,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return transaction.Transaction{}, err
	}
	s.log.WithField("transaction_id", tx.ID).
		WithField("user_id", userID).
		WithField("amount", amount.String()).
		Info("deposit created")
	return tx, nil
}

// CreateWithdrawal opens a pending withdrawal from the available fund,
// locking amount plus fee so the user cannot spend the funds while an admin
// decides. Requires a verified account and a valid destination address.
func (s *Service) CreateWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, toAddress string) (transaction.Transaction, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if !u.Active {
		return transaction.Transaction{}, apperr.NewValidation("user_id", "account is not active")
	}
	if !u.Verified {
		return transaction.Transaction{}, apperr.NewValidation("user_id", "account must be verified before withdrawing")
	}

	toAddress = strings.TrimSpace(toAddress)
	if !ValidAddress(toAddress) {
		return transaction.Transaction{}, apperr.NewValidation("to_address", "invalid address format")
	}

	settings := s.settings.Current()
	limits := settings.Limits
	amount = amount.Truncate(wallet.Scale)
	if amount.LessThan(limits.MinWithdrawal) {
		return transaction.Transaction{}, apperr.NewValidation("amount", "minimum withdrawal is %s", limits.MinWithdrawal)
	}
	if amount.GreaterThan(limits.MaxWithdrawal) {
		return transaction.Transaction{}, apperr.NewValidation("amount", "maximum withdrawal is %s", limits.MaxWithdrawal)
	}

	fee := limits.WithdrawalFee
	lock, err := s.ledger.Lock(ctx, userID, wallet.KindAvailableFund, amount.Add(fee))
	if err != nil {
		return transaction.Transaction{}, err
	}

	tx, err := s.store.CreateTransaction(ctx, transaction.Transaction{
		ID:         transaction.NewID(transaction.TypeWithdrawal),
		UserID:     userID,
		Type:       transaction.TypeWithdrawal,
		Status:     transaction.StatusPending,
		WalletKind: wallet.KindAvailableFund,
		ToAddress:  toAddress,
		Amount:     amount,
		Fee:        fee,
		LockID:     lock.ID,
	})
	if err != nil {
		// Undo the reservation; the request never existed.
		if _, rerr := s.ledger.Release(ctx, lock.ID); rerr != nil {
			s.log.WithError(rerr).Errorf("orphaned lock %s after failed withdrawal create", lock.ID)
		}
		return transaction.Transaction{}, err
	}

	s.log.WithField("transaction_id", tx.ID).
		WithField("user_id", userID).
		WithField("amount", amount.String()).
		WithField("fee", fee.String()).
		Info("withdrawal created")
	return tx, nil
}

// CreateTransfer opens a pending internal transfer between two wallets of the
// same user, locking the amount on the source.
func (s *Service) CreateTransfer(ctx context.Context, userID string, from, dest wallet.Kind, amount decimal.Decimal) (transaction.Transaction, error) {
	if err := s.activeUser(ctx, userID); err != nil {
		return transaction.Transaction{}, err
	}
	if !from.Valid() || from.Derived() {
		return transaction.Transaction{}, apperr.NewValidation("from", "invalid source wallet %q", from)
	}
	if !dest.Valid() || dest.Derived() {
		return transaction.Transaction{}, apperr.NewValidation("dest", "invalid destination wallet %q", dest)
	}
	if from == dest {
		return transaction.Transaction{}, apperr.NewValidation("dest", "source and destination must differ")
	}

	amount = amount.Truncate(wallet.Scale)
	if !amount.IsPositive() {
		return transaction.Transaction{}, apperr.NewValidation("amount", "must be positive")
	}

	lock, err := s.ledger.Lock(ctx, userID, from, amount)
	if err != nil {
		return transaction.Transaction{}, err
	}

	tx, err := s.store.CreateTransaction(ctx, transaction.Transaction{
		ID:         transaction.NewID(transaction.TypeTransfer),
		UserID:     userID,
		Type:       transaction.TypeTransfer,
		Status:     transaction.StatusPending,
		WalletKind: from,
		DestKind:   dest,
		Amount:     amount,
		LockID:     lock.ID,
	})
	if err != nil {
		if _, rerr := s.ledger.Release(ctx, lock.ID); rerr != nil {
			s.log.WithError(rerr).Errorf("orphaned lock %s after failed transfer create", lock.ID)
		}
		return transaction.Transaction{}, err
	}

	s.log.WithField("transaction_id", tx.ID).
		WithField("user_id", userID).
		WithField("amount", amount.String()).
		Info("transfer created")
	return tx, nil
}

// Cancel lets a user withdraw their own pending withdrawal request. Other
// types and states belong to the admin flow.
func (s *Service) Cancel(ctx context.Context, userID, txID string) (transaction.Transaction, error) {
	release := s.keys.lock(txID)
	defer release()

	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if tx.UserID != userID {
		return transaction.Transaction{}, apperr.ErrForbidden
	}
	if tx.Type != transaction.TypeWithdrawal {
		return transaction.Transaction{}, apperr.NewValidation("type", "only withdrawals can be cancelled")
	}
	if tx.Status != transaction.StatusPending {
		return transaction.Transaction{}, &apperr.InvalidStateError{Current: string(tx.Status), Attempted: "cancel"}
	}

	if tx.LockID != "" {
		if _, err := s.ledger.Release(ctx, tx.LockID); err != nil {
			return transaction.Transaction{}, err
		}
	}

	tx.Status = transaction.StatusCancelled
	tx.FailReason = "Cancelled by user"
	tx, err = s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return transaction.Transaction{}, err
	}
	s.log.WithField("transaction_id", txID).
		WithField("user_id", userID).
		Info("withdrawal cancelled")
	return tx, nil
}

// Approve moves a pending transaction forward. Deposits credit and complete,
// transfers settle and complete, withdrawals advance to processing and await
// Confirm.
func (s *Service) Approve(ctx context.Context, txID, notes string) (transaction.Transaction, error) {
	release := s.keys.lock(txID)
	defer release()

	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if tx.Status != transaction.StatusPending {
		return transaction.Transaction{}, &apperr.InvalidStateError{Current: string(tx.Status), Attempted: "approve"}
	}

	now := time.Now().UTC()
	tx.AdminNotes = strings.TrimSpace(notes)
	tx.ProcessedAt = now

	switch tx.Type {
	case transaction.TypeDeposit:
		// The credit is keyed on the transaction id. If an earlier Approve
		// credited the wallet but died before the status write, the retry
		// must not credit again.
		credited, err := s.ledger.HasAdjustment(ctx, tx.UserID, "deposit", tx.ID)
		if err != nil {
			return transaction.Transaction{}, err
		}
		if !credited {
			if _, err := s.ledger.AdjustBalance(ctx, tx.UserID, tx.WalletKind, tx.Amount, "deposit", tx.ID); err != nil {
				return transaction.Transaction{}, err
			}
		}
		tx.Status = transaction.StatusCompleted
		tx.ConfirmedAt = now
		s.completeAssignment(ctx, tx.UserID)

	case transaction.TypeTransfer:
		if _, err := s.ledger.Settle(ctx, tx.LockID, tx.DestKind, tx.ID); err != nil {
			return transaction.Transaction{}, err
		}
		tx.Status = transaction.StatusCompleted
		tx.ConfirmedAt = now

	case transaction.TypeWithdrawal:
		tx.Status = transaction.StatusProcessing
	}

	tx, err = s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return transaction.Transaction{}, err
	}
	s.log.WithField("transaction_id", txID).
		WithField("status", string(tx.Status)).
		Info("transaction approved")
	return tx, nil
}

// Confirm finalizes a processing withdrawal once the external payout is done,
// recording the external reference and settling the lock.
func (s *Service) Confirm(ctx context.Context, txID, externalRef string) (transaction.Transaction, error) {
	release := s.keys.lock(txID)
	defer release()

	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if tx.Type != transaction.TypeWithdrawal {
		return transaction.Transaction{}, apperr.NewValidation("type", "only withdrawals are confirmed")
	}
	if tx.Status != transaction.StatusProcessing {
		return transaction.Transaction{}, &apperr.InvalidStateError{Current: string(tx.Status), Attempted: "confirm"}
	}

	if _, err := s.ledger.Settle(ctx, tx.LockID, "", tx.ID); err != nil {
		return transaction.Transaction{}, err
	}

	tx.Status = transaction.StatusCompleted
	tx.ExternalRef = strings.TrimSpace(externalRef)
	tx.ConfirmedAt = time.Now().UTC()
	tx, err = s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return transaction.Transaction{}, err
	}
	s.log.WithField("transaction_id", txID).
		WithField("external_ref", tx.ExternalRef).
		Info("withdrawal confirmed")
	return tx, nil
}

// Reject declines a pending or processing transaction, returning any locked
// funds to the user.
func (s *Service) Reject(ctx context.Context, txID, reason string) (transaction.Transaction, error) {
	release := s.keys.lock(txID)
	defer release()

	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if tx.Status != transaction.StatusPending && tx.Status != transaction.StatusProcessing {
		return transaction.Transaction{}, &apperr.InvalidStateError{Current: string(tx.Status), Attempted: "reject"}
	}

	if tx.LockID != "" {
		if _, err := s.ledger.Release(ctx, tx.LockID); err != nil {
			return transaction.Transaction{}, err
		}
	}

	tx.Status = transaction.StatusRejected
	tx.FailReason = strings.TrimSpace(reason)
	tx, err = s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return transaction.Transaction{}, err
	}
	s.log.WithField("transaction_id", txID).
		WithField("reason", tx.FailReason).
		Info("transaction rejected")
	return tx, nil
}

// Fail marks a processing transaction as technically failed, returning any
// locked funds.
func (s *Service) Fail(ctx context.Context, txID, reason string) (transaction.Transaction, error) {
	release := s.keys.lock(txID)
	defer release()

	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if tx.Status != transaction.StatusProcessing {
		return transaction.Transaction{}, &apperr.InvalidStateError{Current: string(tx.Status), Attempted: "fail"}
	}

	if tx.LockID != "" {
		if _, err := s.ledger.Release(ctx, tx.LockID); err != nil {
			return transaction.Transaction{}, err
		}
	}

	tx.Status = transaction.StatusFailed
	tx.FailReason = strings.TrimSpace(reason)
	tx, err = s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return transaction.Transaction{}, err
	}
	s.log.WithField("transaction_id", txID).
		WithField("reason", tx.FailReason).
		Warn("transaction failed")
	return tx, nil
}

func (s *Service) completeAssignment(ctx context.Context, userID string) {
	if s.assignments == nil {
		return
	}
	a, err := s.assignments.GetActiveAssignment(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.log.WithError(err).Warnf("lookup active assignment for %s", userID)
		}
		return
	}
	a.Status = assignment.StatusCompleted
	if _, err := s.assignments.UpdateAssignment(ctx, a); err != nil {
		s.log.WithError(err).Warnf("complete assignment %s", a.ID)
	}
}

// Get returns one transaction.
func (s *Service) Get(ctx context.Context, txID string) (transaction.Transaction, error) {
	return s.store.GetTransaction(ctx, txID)
}

// List returns transactions matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter transaction.Filter) ([]transaction.Transaction, error) {
	return s.store.ListTransactions(ctx, filter)
}

// ListActionable returns transactions awaiting an admin decision: everything
// pending, plus withdrawals still processing.
func (s *Service) ListActionable(ctx context.Context) ([]transaction.Transaction, error) {
	return s.store.ListActionableTransactions(ctx)
}

// Statistics summarizes completed money movement for one user.
type Statistics struct {
	TotalDeposited decimal.Decimal
	TotalWithdrawn decimal.Decimal
	TotalFees      decimal.Decimal
	Completed      int
	Pending        int
}

// Statistics aggregates a user's completed deposits and withdrawals.
func (s *Service) Statistics(ctx context.Context, userID string) (Statistics, error) {
	txs, err := s.store.ListTransactions(ctx, transaction.Filter{UserID: userID})
	if err != nil {
		return Statistics{}, err
	}

	stats := Statistics{
		TotalDeposited: decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		TotalFees:      decimal.Zero,
	}
	for _, tx := range txs {
		switch tx.Status {
		case transaction.StatusCompleted:
			stats.Completed++
			switch tx.Type {
			case transaction.TypeDeposit:
				stats.TotalDeposited = stats.TotalDeposited.Add(tx.Amount)
			case transaction.TypeWithdrawal:
				stats.TotalWithdrawn = stats.TotalWithdrawn.Add(tx.Amount)
				stats.TotalFees = stats.TotalFees.Add(tx.Fee)
			}
		case transaction.StatusPending, transaction.StatusProcessing:
			stats.Pending++
		}
	}
	return stats, nil
}
