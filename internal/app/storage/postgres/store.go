package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/assignment"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/audit"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/income"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/investment"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/job"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/referral"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/transaction"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/user"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.WalletStore = (*Store)(nil)
var _ storage.LockStore = (*Store)(nil)
var _ storage.TransactionStore = (*Store)(nil)
var _ storage.ReferralStore = (*Store)(nil)
var _ storage.IncomeStore = (*Store)(nil)
var _ storage.InvestmentStore = (*Store)(nil)
var _ storage.AssignmentStore = (*Store)(nil)
var _ storage.JobRunStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return err
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (id, username, sponsor_id, rank, active, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Username, u.SponsorID, u.Rank, u.Active, u.Verified, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET username = $2, sponsor_id = $3, rank = $4, active = $5, verified = $6, updated_at = $7
		WHERE id = $1
	`, u.ID, u.Username, u.SponsorID, u.Rank, u.Active, u.Verified, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, apperr.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var u user.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, sponsor_id, rank, active, verified, created_at, updated_at
		FROM app_users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.SponsorID, &u.Rank, &u.Active, &u.Verified, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, notFound(err, "user "+id)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, sponsor_id, rank, active, verified, created_at, updated_at
		FROM app_users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Username, &u.SponsorID, &u.Rank, &u.Active, &u.Verified, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// --- WalletStore ------------------------------------------------------------

func (s *Store) CreateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, kind, balance, locked, lifetime_credited, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, w.ID, w.UserID, string(w.Kind), w.Balance, w.Locked, w.LifetimeCredited, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return wallet.Wallet{}, err
	}
	return w, nil
}

func (s *Store) UpdateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	w.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $3, locked = $4, lifetime_credited = $5, updated_at = $6
		WHERE user_id = $1 AND kind = $2
	`, w.UserID, string(w.Kind), w.Balance, w.Locked, w.LifetimeCredited, w.UpdatedAt)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return wallet.Wallet{}, fmt.Errorf("wallet %s/%s: %w", w.UserID, w.Kind, apperr.ErrNotFound)
	}
	return w, nil
}

func (s *Store) GetWallet(ctx context.Context, userID string, kind wallet.Kind) (wallet.Wallet, error) {
	var w wallet.Wallet
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, kind, balance, locked, lifetime_credited, created_at, updated_at
		FROM wallets
		WHERE user_id = $1 AND kind = $2
	`, userID, string(kind)).Scan(&w.ID, &w.UserID, &w.Kind, &w.Balance, &w.Locked, &w.LifetimeCredited, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return wallet.Wallet{}, notFound(err, fmt.Sprintf("wallet %s/%s", userID, kind))
	}
	return w, nil
}

func (s *Store) ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error) {
	return s.queryWallets(ctx, `
		SELECT id, user_id, kind, balance, locked, lifetime_credited, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		ORDER BY kind
	`, userID)
}

func (s *Store) ListWalletsByKind(ctx context.Context, kind wallet.Kind) ([]wallet.Wallet, error) {
	return s.queryWallets(ctx, `
		SELECT id, user_id, kind, balance, locked, lifetime_credited, created_at, updated_at
		FROM wallets
		WHERE kind = $1
		ORDER BY user_id
	`, string(kind))
}

func (s *Store) queryWallets(ctx context.Context, query string, arg interface{}) ([]wallet.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []wallet.Wallet
	for rows.Next() {
		var w wallet.Wallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.Kind, &w.Balance, &w.Locked, &w.LifetimeCredited, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (s *Store) CreateLedgerEntry(ctx context.Context, e wallet.LedgerEntry) (wallet.LedgerEntry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, user_id, kind, direction, amount, reason, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.UserID, string(e.Kind), string(e.Direction), e.Amount, e.Reason, e.Reference, e.CreatedAt)
	if err != nil {
		return wallet.LedgerEntry{}, err
	}
	return e, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, userID string) ([]wallet.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, direction, amount, reason, reference, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []wallet.LedgerEntry
	for rows.Next() {
		var e wallet.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Direction, &e.Amount, &e.Reason, &e.Reference, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// --- LockStore --------------------------------------------------------------

func (s *Store) CreateLock(ctx context.Context, l wallet.FundLock) (wallet.FundLock, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fund_locks (id, user_id, kind, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, l.ID, l.UserID, string(l.Kind), l.Amount, string(l.Status), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return wallet.FundLock{}, err
	}
	return l, nil
}

func (s *Store) UpdateLock(ctx context.Context, l wallet.FundLock) (wallet.FundLock, error) {
	l.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE fund_locks
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, l.ID, string(l.Status), l.UpdatedAt)
	if err != nil {
		return wallet.FundLock{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return wallet.FundLock{}, fmt.Errorf("lock %s: %w", l.ID, apperr.ErrNotFound)
	}
	return l, nil
}

func (s *Store) GetLock(ctx context.Context, id string) (wallet.FundLock, error) {
	var l wallet.FundLock
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, kind, amount, status, created_at, updated_at
		FROM fund_locks
		WHERE id = $1
	`, id).Scan(&l.ID, &l.UserID, &l.Kind, &l.Amount, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return wallet.FundLock{}, notFound(err, "lock "+id)
	}
	return l, nil
}

func (s *Store) CreateSettlement(ctx context.Context, rec wallet.SettlementRecord) (wallet.SettlementRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SettledAt.IsZero() {
		rec.SettledAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settlements (id, lock_id, user_id, source_kind, dest_kind, amount, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.LockID, rec.UserID, string(rec.Source), string(rec.Dest), rec.Amount, rec.SettledAt)
	if err != nil {
		return wallet.SettlementRecord{}, err
	}
	return rec, nil
}

func (s *Store) GetSettlementByLock(ctx context.Context, lockID string) (wallet.SettlementRecord, error) {
	var rec wallet.SettlementRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, lock_id, user_id, source_kind, dest_kind, amount, settled_at
		FROM settlements
		WHERE lock_id = $1
	`, lockID).Scan(&rec.ID, &rec.LockID, &rec.UserID, &rec.Source, &rec.Dest, &rec.Amount, &rec.SettledAt)
	if err != nil {
		return wallet.SettlementRecord{}, notFound(err, "settlement for lock "+lockID)
	}
	return rec, nil
}

// --- TransactionStore -------------------------------------------------------

const txColumns = `id, user_id, type, status, wallet_kind, dest_kind, to_address,
	amount, fee, lock_id, description, admin_notes, fail_reason, external_ref,
	created_at, processed_at, confirmed_at, updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (transaction.Transaction, error) {
	var (
		tx                     transaction.Transaction
		processedAt, confirmed sql.NullTime
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Status, &tx.WalletKind, &tx.DestKind,
		&tx.ToAddress, &tx.Amount, &tx.Fee, &tx.LockID, &tx.Description, &tx.AdminNotes,
		&tx.FailReason, &tx.ExternalRef, &tx.CreatedAt, &processedAt, &confirmed, &tx.UpdatedAt)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if processedAt.Valid {
		tx.ProcessedAt = processedAt.Time
	}
	if confirmed.Valid {
		tx.ConfirmedAt = confirmed.Time
	}
	return tx, nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func (s *Store) CreateTransaction(ctx context.Context, tx transaction.Transaction) (transaction.Transaction, error) {
	if tx.ID == "" {
		return transaction.Transaction{}, errors.New("transaction id is required")
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+txColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, tx.ID, tx.UserID, string(tx.Type), string(tx.Status), string(tx.WalletKind), string(tx.DestKind),
		tx.ToAddress, tx.Amount, tx.Fee, tx.LockID, tx.Description, tx.AdminNotes, tx.FailReason,
		tx.ExternalRef, tx.CreatedAt, nullTime(tx.ProcessedAt), nullTime(tx.ConfirmedAt), tx.UpdatedAt)
	if err != nil {
		return transaction.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx transaction.Transaction) (transaction.Transaction, error) {
	tx.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = $2, admin_notes = $3, fail_reason = $4, external_ref = $5,
			processed_at = $6, confirmed_at = $7, updated_at = $8
		WHERE id = $1
	`, tx.ID, string(tx.Status), tx.AdminNotes, tx.FailReason, tx.ExternalRef,
		nullTime(tx.ProcessedAt), nullTime(tx.ConfirmedAt), tx.UpdatedAt)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return transaction.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, apperr.ErrNotFound)
	}
	return tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (transaction.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE id = $1
	`, id)

	tx, err := scanTransaction(row)
	if err != nil {
		return transaction.Transaction{}, notFound(err, "transaction "+id)
	}
	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.Filter) ([]transaction.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE 1=1`
	args := []interface{}{}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return s.queryTransactions(ctx, query, args...)
}

func (s *Store) ListActionableTransactions(ctx context.Context) ([]transaction.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE status = 'pending' OR (status = 'processing' AND type = 'withdrawal')
		ORDER BY created_at
	`)
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]transaction.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

// --- ReferralStore ----------------------------------------------------------

func (s *Store) CreateLink(ctx context.Context, l referral.Link) (referral.Link, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO referral_links (id, referrer_id, referred_id, level, active, total_earned, last_payout, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, l.ID, l.ReferrerID, l.ReferredID, l.Level, l.Active, l.TotalEarned, nullTime(l.LastPayout), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return referral.Link{}, err
	}
	return l, nil
}

func (s *Store) UpdateLink(ctx context.Context, l referral.Link) (referral.Link, error) {
	l.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE referral_links
		SET active = $2, total_earned = $3, last_payout = $4, updated_at = $5
		WHERE id = $1
	`, l.ID, l.Active, l.TotalEarned, nullTime(l.LastPayout), l.UpdatedAt)
	if err != nil {
		return referral.Link{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return referral.Link{}, fmt.Errorf("referral link %s: %w", l.ID, apperr.ErrNotFound)
	}
	return l, nil
}

func (s *Store) ListUpline(ctx context.Context, referredID string) ([]referral.Link, error) {
	return s.queryLinks(ctx, `
		SELECT id, referrer_id, referred_id, level, active, total_earned, last_payout, created_at, updated_at
		FROM referral_links
		WHERE referred_id = $1
		ORDER BY level
	`, referredID)
}

func (s *Store) ListDownline(ctx context.Context, referrerID string) ([]referral.Link, error) {
	return s.queryLinks(ctx, `
		SELECT id, referrer_id, referred_id, level, active, total_earned, last_payout, created_at, updated_at
		FROM referral_links
		WHERE referrer_id = $1
		ORDER BY level
	`, referrerID)
}

func (s *Store) queryLinks(ctx context.Context, query string, arg interface{}) ([]referral.Link, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []referral.Link
	for rows.Next() {
		var (
			l          referral.Link
			lastPayout sql.NullTime
		)
		if err := rows.Scan(&l.ID, &l.ReferrerID, &l.ReferredID, &l.Level, &l.Active,
			&l.TotalEarned, &lastPayout, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		if lastPayout.Valid {
			l.LastPayout = lastPayout.Time
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (s *Store) CreateCommission(ctx context.Context, c referral.CommissionEntry) (referral.CommissionEntry, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commissions (id, recipient_id, source_id, level, rate, amount, wallet_kind, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.RecipientID, c.SourceID, c.Level, c.Rate, c.Amount, string(c.WalletKind), c.Reference, c.CreatedAt)
	if err != nil {
		return referral.CommissionEntry{}, err
	}
	return c, nil
}

func (s *Store) ListCommissionsByReference(ctx context.Context, reference string) ([]referral.CommissionEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient_id, source_id, level, rate, amount, wallet_kind, reference, created_at
		FROM commissions
		WHERE reference = $1
		ORDER BY level
	`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []referral.CommissionEntry
	for rows.Next() {
		var c referral.CommissionEntry
		if err := rows.Scan(&c.ID, &c.RecipientID, &c.SourceID, &c.Level, &c.Rate,
			&c.Amount, &c.WalletKind, &c.Reference, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// --- IncomeStore ------------------------------------------------------------

func (s *Store) CreateIncome(ctx context.Context, inc income.Income) (income.Income, error) {
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	inc.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incomes (id, user_id, type, amount, from_user_id, level, reference, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, inc.ID, inc.UserID, string(inc.Type), inc.Amount, inc.FromUserID, inc.Level, inc.Reference, inc.Description, inc.CreatedAt)
	if err != nil {
		return income.Income{}, err
	}
	return inc, nil
}

func (s *Store) ListIncomes(ctx context.Context, userID string) ([]income.Income, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount, from_user_id, level, reference, description, created_at
		FROM incomes
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []income.Income
	for rows.Next() {
		var inc income.Income
		if err := rows.Scan(&inc.ID, &inc.UserID, &inc.Type, &inc.Amount, &inc.FromUserID,
			&inc.Level, &inc.Reference, &inc.Description, &inc.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, inc)
	}
	return result, rows.Err()
}

func (s *Store) HasIncome(ctx context.Context, userID string, incomeType income.Type, reference string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM incomes
			WHERE user_id = $1 AND type = $2 AND reference = $3
		)
	`, userID, string(incomeType), reference).Scan(&exists)
	return exists, err
}

// --- InvestmentStore --------------------------------------------------------

func (s *Store) CreateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO investments (id, user_id, principal, status, reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, inv.ID, inv.UserID, inv.Principal, string(inv.Status), inv.Reference, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return investment.Investment{}, err
	}
	return inv, nil
}

func (s *Store) UpdateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error) {
	inv.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE investments
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, inv.ID, string(inv.Status), inv.UpdatedAt)
	if err != nil {
		return investment.Investment{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return investment.Investment{}, fmt.Errorf("investment %s: %w", inv.ID, apperr.ErrNotFound)
	}
	return inv, nil
}

func (s *Store) GetInvestment(ctx context.Context, id string) (investment.Investment, error) {
	var inv investment.Investment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, principal, status, reference, created_at, updated_at
		FROM investments
		WHERE id = $1
	`, id).Scan(&inv.ID, &inv.UserID, &inv.Principal, &inv.Status, &inv.Reference, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return investment.Investment{}, notFound(err, "investment "+id)
	}
	return inv, nil
}

func (s *Store) ListActiveInvestments(ctx context.Context, userID string) ([]investment.Investment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, principal, status, reference, created_at, updated_at
		FROM investments
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []investment.Investment
	for rows.Next() {
		var inv investment.Investment
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.Principal, &inv.Status, &inv.Reference,
			&inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

// --- AssignmentStore --------------------------------------------------------

func (s *Store) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	a.UpdatedAt = a.AssignedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deposit_assignments (id, user_id, address, amount, status, assigned_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.UserID, a.Address, a.Amount, string(a.Status), a.AssignedAt, a.ExpiresAt, a.UpdatedAt)
	if err != nil {
		return assignment.Assignment{}, err
	}
	return a, nil
}

func (s *Store) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	a.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE deposit_assignments
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, a.ID, string(a.Status), a.UpdatedAt)
	if err != nil {
		return assignment.Assignment{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return assignment.Assignment{}, fmt.Errorf("assignment %s: %w", a.ID, apperr.ErrNotFound)
	}
	return a, nil
}

func (s *Store) GetActiveAssignment(ctx context.Context, userID string) (assignment.Assignment, error) {
	var a assignment.Assignment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, address, amount, status, assigned_at, expires_at, updated_at
		FROM deposit_assignments
		WHERE user_id = $1 AND status = 'assigned'
	`, userID).Scan(&a.ID, &a.UserID, &a.Address, &a.Amount, &a.Status, &a.AssignedAt, &a.ExpiresAt, &a.UpdatedAt)
	if err != nil {
		return assignment.Assignment{}, notFound(err, "active assignment for user "+userID)
	}
	return a, nil
}

func (s *Store) ListActiveAssignments(ctx context.Context) ([]assignment.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, address, amount, status, assigned_at, expires_at, updated_at
		FROM deposit_assignments
		WHERE status = 'assigned'
		ORDER BY assigned_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []assignment.Assignment
	for rows.Next() {
		var a assignment.Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.Address, &a.Amount, &a.Status,
			&a.AssignedAt, &a.ExpiresAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// --- JobRunStore ------------------------------------------------------------

func (s *Store) CreateJobRun(ctx context.Context, run job.Run) (job.Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job, period, processed, skipped, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.Job, run.Period, run.Processed, run.Skipped, run.CompletedAt)
	if err != nil {
		return job.Run{}, err
	}
	return run, nil
}

func (s *Store) GetJobRun(ctx context.Context, jobName, period string) (job.Run, error) {
	var run job.Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, job, period, processed, skipped, completed_at
		FROM job_runs
		WHERE job = $1 AND period = $2
	`, jobName, period).Scan(&run.ID, &run.Job, &run.Period, &run.Processed, &run.Skipped, &run.CompletedAt)
	if err != nil {
		return job.Run{}, notFound(err, fmt.Sprintf("job run %s/%s", jobName, period))
	}
	return run, nil
}

// --- AuditStore -------------------------------------------------------------

func (s *Store) CreateAuditEntry(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_audit_log (id, admin_id, action, transaction_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.AdminID, e.Action, e.TransactionID, e.Detail, e.CreatedAt)
	if err != nil {
		return audit.Entry{}, err
	}
	return e, nil
}

func (s *Store) ListAuditEntries(ctx context.Context, transactionID string, limit int) ([]audit.Entry, error) {
	query := `
		SELECT id, admin_id, action, transaction_id, detail, created_at
		FROM admin_audit_log
	`
	args := []interface{}{}
	if transactionID != "" {
		args = append(args, transactionID)
		query += " WHERE transaction_id = $1"
	}
	query += " ORDER BY created_at"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Entry
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.AdminID, &e.Action, &e.TransactionID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
