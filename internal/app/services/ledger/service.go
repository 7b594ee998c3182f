package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
	"github.com/DeepakDhaka201/MetaBE/pkg/logger"
)

// Service is the single authority over wallet balances. Every credit, debit,
// lock and settlement flows through here; nothing else mutates a wallet.
type Service struct {
	wallets storage.WalletStore
	locks   storage.LockStore
	log     *logger.Logger
	keys    *keyedMutex
}

// New constructs a ledger service.
func New(wallets storage.WalletStore, locks storage.LockStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Service{
		wallets: wallets,
		locks:   locks,
		log:     log,
		keys:    newKeyedMutex(),
	}
}

func walletKey(userID string, kind wallet.Kind) string {
	return userID + ":" + string(kind)
}

// InitializeWallets creates the full set of stored wallets for a new user
// with zero balances. Existing wallets are left untouched.
func (s *Service) InitializeWallets(ctx context.Context, userID string) error {
	if userID == "" {
		return apperr.NewValidation("user_id", "is required")
	}

	for _, kind := range wallet.StoredKinds() {
		if _, err := s.wallets.GetWallet(ctx, userID, kind); err == nil {
			continue
		}
		_, err := s.wallets.CreateWallet(ctx, wallet.Wallet{
			UserID:           userID,
			Kind:             kind,
			Balance:          decimal.Zero,
			Locked:           decimal.Zero,
			LifetimeCredited: decimal.Zero,
		})
		if err != nil {
			return fmt.Errorf("initialize wallet %s/%s: %w", userID, kind, err)
		}
	}
	s.log.WithField("user_id", userID).Info("wallets initialized")
	return nil
}

// GetBalance returns one stored wallet. Derived kinds are rejected; they are
// computed by the income aggregator, not read from storage.
func (s *Service) GetBalance(ctx context.Context, userID string, kind wallet.Kind) (wallet.Wallet, error) {
	if !kind.Valid() {
		return wallet.Wallet{}, apperr.NewValidation("kind", fmt.Sprintf("unknown wallet kind %q", kind))
	}
	if kind.Derived() {
		return wallet.Wallet{}, apperr.NewValidation("kind", fmt.Sprintf("%s is derived and has no stored balance", kind))
	}
	return s.wallets.GetWallet(ctx, userID, kind)
}

// Balances returns all stored wallets for a user.
func (s *Service) Balances(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	return s.wallets.ListWallets(ctx, userID)
}

// AdjustBalance applies a signed delta to one stored wallet and records the
// matching ledger entry. Negative deltas may not take available funds below
// zero. Credits to income kinds also advance the lifetime counter used for
// reconciliation.
func (s *Service) AdjustBalance(ctx context.Context, userID string, kind wallet.Kind, delta decimal.Decimal, reason, reference string) (wallet.Wallet, error) {
	if err := validateAdjustment(kind, delta); err != nil {
		return wallet.Wallet{}, err
	}
	delta = delta.Truncate(wallet.Scale)

	release := s.keys.acquire(walletKey(userID, kind))
	defer release()

	w, err := s.wallets.GetWallet(ctx, userID, kind)
	if err != nil {
		return wallet.Wallet{}, err
	}

	if delta.IsNegative() {
		required := delta.Neg()
		if w.Available().LessThan(required) {
			return wallet.Wallet{}, &apperr.InsufficientFundsError{
				Available: w.Available(),
				Required:  required,
			}
		}
	}

	w.Balance = w.Balance.Add(delta)
	if delta.IsPositive() && kind.Income() {
		w.LifetimeCredited = w.LifetimeCredited.Add(delta)
	}

	w, err = s.wallets.UpdateWallet(ctx, w)
	if err != nil {
		return wallet.Wallet{}, err
	}

	direction := wallet.DirectionCredit
	if delta.IsNegative() {
		direction = wallet.DirectionDebit
	}
	if _, err := s.wallets.CreateLedgerEntry(ctx, wallet.LedgerEntry{
		UserID:    userID,
		Kind:      kind,
		Direction: direction,
		Amount:    delta.Abs(),
		Reason:    reason,
		Reference: reference,
	}); err != nil {
		return wallet.Wallet{}, fmt.Errorf("record ledger entry: %w", err)
	}

	s.log.WithField("user_id", userID).
		WithField("kind", string(kind)).
		WithField("delta", delta.String()).
		WithField("reason", reason).
		Info("balance adjusted")
	return w, nil
}

// Lock reserves funds on a wallet for a pending transaction. The balance is
// unchanged; the reserved amount simply stops being available.
func (s *Service) Lock(ctx context.Context, userID string, kind wallet.Kind, amount decimal.Decimal) (wallet.FundLock, error) {
	if err := validateAdjustment(kind, amount); err != nil {
		return wallet.FundLock{}, err
	}
	if !amount.IsPositive() {
		return wallet.FundLock{}, apperr.NewValidation("amount", "must be positive")
	}
	amount = amount.Truncate(wallet.Scale)

	release := s.keys.acquire(walletKey(userID, kind))
	defer release()

	w, err := s.wallets.GetWallet(ctx, userID, kind)
	if err != nil {
		return wallet.FundLock{}, err
	}
	if w.Available().LessThan(amount) {
		return wallet.FundLock{}, &apperr.InsufficientFundsError{
			Available: w.Available(),
			Required:  amount,
		}
	}

	// Reserve on the wallet before writing the lock row: a failed lock write
	// then rolls the reservation back, never leaving a held lock with no
	// reserved funds behind it.
	w.Locked = w.Locked.Add(amount)
	w, err = s.wallets.UpdateWallet(ctx, w)
	if err != nil {
		return wallet.FundLock{}, err
	}

	lock, err := s.locks.CreateLock(ctx, wallet.FundLock{
		UserID: userID,
		Kind:   kind,
		Amount: amount,
		Status: wallet.LockHeld,
	})
	if err != nil {
		w.Locked = w.Locked.Sub(amount)
		if _, rerr := s.wallets.UpdateWallet(ctx, w); rerr != nil {
			return wallet.FundLock{}, apperr.NewConsistency("lock write failed on %s/%s and reservation rollback failed: %v", userID, kind, rerr)
		}
		return wallet.FundLock{}, err
	}

	s.log.WithField("user_id", userID).
		WithField("kind", string(kind)).
		WithField("lock_id", lock.ID).
		WithField("amount", amount.String()).
		Info("funds locked")
	return lock, nil
}

// Release returns locked funds to the available balance. Releasing an
// already-released lock is a no-op; releasing a settled lock is an error.
func (s *Service) Release(ctx context.Context, lockID string) (wallet.FundLock, error) {
	lock, err := s.locks.GetLock(ctx, lockID)
	if err != nil {
		return wallet.FundLock{}, err
	}

	switch lock.Status {
	case wallet.LockReleased:
		return lock, nil
	case wallet.LockSettled:
		return wallet.FundLock{}, &apperr.InvalidStateError{
			Current:   string(wallet.LockSettled),
			Attempted: "release",
		}
	}

	release := s.keys.acquire(walletKey(lock.UserID, lock.Kind))
	defer release()

	w, err := s.wallets.GetWallet(ctx, lock.UserID, lock.Kind)
	if err != nil {
		return wallet.FundLock{}, apperr.NewConsistency(fmt.Sprintf("lock %s references missing wallet %s/%s", lockID, lock.UserID, lock.Kind))
	}
	if w.Locked.LessThan(lock.Amount) {
		return wallet.FundLock{}, apperr.NewConsistency(fmt.Sprintf("lock %s exceeds locked balance on %s/%s", lockID, lock.UserID, lock.Kind))
	}

	w.Locked = w.Locked.Sub(lock.Amount)
	if _, err := s.wallets.UpdateWallet(ctx, w); err != nil {
		return wallet.FundLock{}, err
	}

	lock.Status = wallet.LockReleased
	lock, err = s.locks.UpdateLock(ctx, lock)
	if err != nil {
		return wallet.FundLock{}, err
	}

	s.log.WithField("lock_id", lockID).
		WithField("user_id", lock.UserID).
		Info("lock released")
	return lock, nil
}

// Settle consumes a held lock: the reserved amount leaves the source wallet
// permanently, optionally crediting a destination wallet for internal
// transfers. Settling an already-settled lock returns the original record
// unchanged.
func (s *Service) Settle(ctx context.Context, lockID string, dest wallet.Kind, reference string) (wallet.SettlementRecord, error) {
	lock, err := s.locks.GetLock(ctx, lockID)
	if err != nil {
		return wallet.SettlementRecord{}, err
	}

	switch lock.Status {
	case wallet.LockSettled:
		return s.locks.GetSettlementByLock(ctx, lockID)
	case wallet.LockReleased:
		return wallet.SettlementRecord{}, &apperr.InvalidStateError{
			Current:   string(wallet.LockReleased),
			Attempted: "settle",
		}
	}

	if dest != "" {
		if !dest.Valid() || dest.Derived() {
			return wallet.SettlementRecord{}, apperr.NewValidation("dest", fmt.Sprintf("invalid settlement destination %q", dest))
		}
		if dest == lock.Kind {
			return wallet.SettlementRecord{}, apperr.NewValidation("dest", "source and destination wallets must differ")
		}
	}

	keys := []string{walletKey(lock.UserID, lock.Kind)}
	if dest != "" {
		keys = append(keys, walletKey(lock.UserID, dest))
	}
	release := s.keys.acquire(keys...)
	defer release()

	source, err := s.wallets.GetWallet(ctx, lock.UserID, lock.Kind)
	if err != nil {
		return wallet.SettlementRecord{}, apperr.NewConsistency(fmt.Sprintf("lock %s references missing wallet %s/%s", lockID, lock.UserID, lock.Kind))
	}
	if source.Locked.LessThan(lock.Amount) || source.Balance.LessThan(lock.Amount) {
		return wallet.SettlementRecord{}, apperr.NewConsistency(fmt.Sprintf("lock %s exceeds balances on %s/%s", lockID, lock.UserID, lock.Kind))
	}

	source.Balance = source.Balance.Sub(lock.Amount)
	source.Locked = source.Locked.Sub(lock.Amount)
	if _, err := s.wallets.UpdateWallet(ctx, source); err != nil {
		return wallet.SettlementRecord{}, err
	}
	if _, err := s.wallets.CreateLedgerEntry(ctx, wallet.LedgerEntry{
		UserID:    lock.UserID,
		Kind:      lock.Kind,
		Direction: wallet.DirectionDebit,
		Amount:    lock.Amount,
		Reason:    "settlement",
		Reference: reference,
	}); err != nil {
		return wallet.SettlementRecord{}, fmt.Errorf("record settlement debit: %w", err)
	}

	if dest != "" {
		target, err := s.wallets.GetWallet(ctx, lock.UserID, dest)
		if err != nil {
			return wallet.SettlementRecord{}, apperr.NewConsistency(fmt.Sprintf("settlement destination wallet %s/%s missing", lock.UserID, dest))
		}
		target.Balance = target.Balance.Add(lock.Amount)
		if dest.Income() {
			target.LifetimeCredited = target.LifetimeCredited.Add(lock.Amount)
		}
		if _, err := s.wallets.UpdateWallet(ctx, target); err != nil {
			return wallet.SettlementRecord{}, err
		}
		if _, err := s.wallets.CreateLedgerEntry(ctx, wallet.LedgerEntry{
			UserID:    lock.UserID,
			Kind:      dest,
			Direction: wallet.DirectionCredit,
			Amount:    lock.Amount,
			Reason:    "settlement",
			Reference: reference,
		}); err != nil {
			return wallet.SettlementRecord{}, fmt.Errorf("record settlement credit: %w", err)
		}
	}

	rec, err := s.locks.CreateSettlement(ctx, wallet.SettlementRecord{
		LockID: lockID,
		UserID: lock.UserID,
		Source: lock.Kind,
		Dest:   dest,
		Amount: lock.Amount,
	})
	if err != nil {
		return wallet.SettlementRecord{}, err
	}

	lock.Status = wallet.LockSettled
	if _, err := s.locks.UpdateLock(ctx, lock); err != nil {
		return wallet.SettlementRecord{}, err
	}

	s.log.WithField("lock_id", lockID).
		WithField("user_id", lock.UserID).
		WithField("amount", lock.Amount.String()).
		WithField("dest", string(dest)).
		Info("lock settled")
	return rec, nil
}

// LedgerEntries returns the full adjustment history for a user.
func (s *Service) LedgerEntries(ctx context.Context, userID string) ([]wallet.LedgerEntry, error) {
	return s.wallets.ListLedgerEntries(ctx, userID)
}

// HasAdjustment reports whether an adjustment with this reason and reference
// was already recorded. A non-empty reference identifies one logical credit,
// so callers retrying a partially applied operation can skip the re-credit.
func (s *Service) HasAdjustment(ctx context.Context, userID, reason, reference string) (bool, error) {
	if reference == "" {
		return false, nil
	}
	entries, err := s.wallets.ListLedgerEntries(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Reason == reason && e.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func validateAdjustment(kind wallet.Kind, amount decimal.Decimal) error {
	if !kind.Valid() {
		return apperr.NewValidation("kind", fmt.Sprintf("unknown wallet kind %q", kind))
	}
	if kind.Derived() {
		return apperr.NewValidation("kind", fmt.Sprintf("%s is derived and cannot be adjusted", kind))
	}
	if amount.IsZero() {
		return apperr.NewValidation("amount", "must be non-zero")
	}
	return nil
}
