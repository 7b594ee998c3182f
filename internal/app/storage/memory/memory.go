package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

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

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development.
type Store struct {
	mu     sync.RWMutex
	nextID int64

	users         map[string]user.User
	wallets       map[string]wallet.Wallet // key: userID + "/" + kind
	ledgerEntries map[string][]wallet.LedgerEntry
	locks         map[string]wallet.FundLock
	settlements   map[string]wallet.SettlementRecord // key: lock id
	transactions  map[string]transaction.Transaction
	links         map[string]referral.Link
	commissions   map[string][]referral.CommissionEntry // key: reference
	incomes       map[string][]income.Income
	investments   map[string]investment.Investment
	assignments   map[string]assignment.Assignment
	jobRuns       map[string]job.Run // key: job + "/" + period
	auditEntries  []audit.Entry
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

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		users:         make(map[string]user.User),
		wallets:       make(map[string]wallet.Wallet),
		ledgerEntries: make(map[string][]wallet.LedgerEntry),
		locks:         make(map[string]wallet.FundLock),
		settlements:   make(map[string]wallet.SettlementRecord),
		transactions:  make(map[string]transaction.Transaction),
		links:         make(map[string]referral.Link),
		commissions:   make(map[string][]referral.CommissionEntry),
		incomes:       make(map[string][]income.Income),
		investments:   make(map[string]investment.Investment),
		assignments:   make(map[string]assignment.Assignment),
		jobRuns:       make(map[string]job.Run),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func walletKey(userID string, kind wallet.Kind) string {
	return userID + "/" + string(kind)
}

// UserStore implementation ---------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, apperr.ErrNotFound)
	}

	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// WalletStore implementation -------------------------------------------------

func (s *Store) CreateWallet(_ context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := walletKey(w.UserID, w.Kind)
	if _, exists := s.wallets[key]; exists {
		return wallet.Wallet{}, fmt.Errorf("wallet %s already exists", key)
	}
	if w.ID == "" {
		w.ID = s.nextIDLocked()
	}

	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	s.wallets[key] = w
	return w, nil
}

func (s *Store) UpdateWallet(_ context.Context, w wallet.Wallet) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := walletKey(w.UserID, w.Kind)
	original, ok := s.wallets[key]
	if !ok {
		return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", key, apperr.ErrNotFound)
	}

	w.ID = original.ID
	w.CreatedAt = original.CreatedAt
	w.UpdatedAt = time.Now().UTC()

	s.wallets[key] = w
	return w, nil
}

func (s *Store) GetWallet(_ context.Context, userID string, kind wallet.Kind) (wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[walletKey(userID, kind)]
	if !ok {
		return wallet.Wallet{}, fmt.Errorf("wallet %s/%s: %w", userID, kind, apperr.ErrNotFound)
	}
	return w, nil
}

func (s *Store) ListWallets(_ context.Context, userID string) ([]wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]wallet.Wallet, 0)
	for key, w := range s.wallets {
		if strings.HasPrefix(key, userID+"/") {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Kind < result[j].Kind })
	return result, nil
}

func (s *Store) ListWalletsByKind(_ context.Context, kind wallet.Kind) ([]wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]wallet.Wallet, 0)
	for _, w := range s.wallets {
		if w.Kind == kind {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (s *Store) CreateLedgerEntry(_ context.Context, e wallet.LedgerEntry) (wallet.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	}
	e.CreatedAt = time.Now().UTC()

	s.ledgerEntries[e.UserID] = append(s.ledgerEntries[e.UserID], e)
	return e, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, userID string) ([]wallet.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]wallet.LedgerEntry(nil), s.ledgerEntries[userID]...), nil
}

// LockStore implementation ---------------------------------------------------

func (s *Store) CreateLock(_ context.Context, l wallet.FundLock) (wallet.FundLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = s.nextIDLocked()
	} else if _, exists := s.locks[l.ID]; exists {
		return wallet.FundLock{}, fmt.Errorf("lock %s already exists", l.ID)
	}

	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	s.locks[l.ID] = l
	return l, nil
}

func (s *Store) UpdateLock(_ context.Context, l wallet.FundLock) (wallet.FundLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.locks[l.ID]
	if !ok {
		return wallet.FundLock{}, fmt.Errorf("lock %s: %w", l.ID, apperr.ErrNotFound)
	}

	l.CreatedAt = original.CreatedAt
	l.UpdatedAt = time.Now().UTC()

	s.locks[l.ID] = l
	return l, nil
}

func (s *Store) GetLock(_ context.Context, id string) (wallet.FundLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.locks[id]
	if !ok {
		return wallet.FundLock{}, fmt.Errorf("lock %s: %w", id, apperr.ErrNotFound)
	}
	return l, nil
}

func (s *Store) CreateSettlement(_ context.Context, rec wallet.SettlementRecord) (wallet.SettlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.settlements[rec.LockID]; exists {
		return wallet.SettlementRecord{}, fmt.Errorf("settlement for lock %s already exists", rec.LockID)
	}
	if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	}
	if rec.SettledAt.IsZero() {
		rec.SettledAt = time.Now().UTC()
	}

	s.settlements[rec.LockID] = rec
	return rec, nil
}

func (s *Store) GetSettlementByLock(_ context.Context, lockID string) (wallet.SettlementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.settlements[lockID]
	if !ok {
		return wallet.SettlementRecord{}, fmt.Errorf("settlement for lock %s: %w", lockID, apperr.ErrNotFound)
	}
	return rec, nil
}

// TransactionStore implementation --------------------------------------------

func (s *Store) CreateTransaction(_ context.Context, tx transaction.Transaction) (transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		return transaction.Transaction{}, fmt.Errorf("transaction id is required")
	}
	if _, exists := s.transactions[tx.ID]; exists {
		return transaction.Transaction{}, fmt.Errorf("transaction %s already exists", tx.ID)
	}

	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx transaction.Transaction) (transaction.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.transactions[tx.ID]
	if !ok {
		return transaction.Transaction{}, fmt.Errorf("transaction %s: %w", tx.ID, apperr.ErrNotFound)
	}

	tx.CreatedAt = original.CreatedAt
	tx.UpdatedAt = time.Now().UTC()

	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return transaction.Transaction{}, fmt.Errorf("transaction %s: %w", id, apperr.ErrNotFound)
	}
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, filter transaction.Filter) ([]transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]transaction.Transaction, 0)
	for _, tx := range s.transactions {
		if filter.UserID != "" && tx.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		result = append(result, tx)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []transaction.Transaction{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) ListActionableTransactions(_ context.Context) ([]transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]transaction.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.Status == transaction.StatusPending {
			result = append(result, tx)
			continue
		}
		// Withdrawals in processing still await an admin confirm or reject.
		if tx.Status == transaction.StatusProcessing && tx.Type == transaction.TypeWithdrawal {
			result = append(result, tx)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ReferralStore implementation -----------------------------------------------

func (s *Store) CreateLink(_ context.Context, l referral.Link) (referral.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.links {
		if existing.ReferrerID == l.ReferrerID && existing.ReferredID == l.ReferredID {
			return referral.Link{}, fmt.Errorf("referral link %s->%s already exists", l.ReferrerID, l.ReferredID)
		}
	}
	if l.ID == "" {
		l.ID = s.nextIDLocked()
	}

	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	s.links[l.ID] = l
	return l, nil
}

func (s *Store) UpdateLink(_ context.Context, l referral.Link) (referral.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.links[l.ID]
	if !ok {
		return referral.Link{}, fmt.Errorf("referral link %s: %w", l.ID, apperr.ErrNotFound)
	}

	l.CreatedAt = original.CreatedAt
	l.UpdatedAt = time.Now().UTC()

	s.links[l.ID] = l
	return l, nil
}

func (s *Store) ListUpline(_ context.Context, referredID string) ([]referral.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]referral.Link, 0)
	for _, l := range s.links {
		if l.ReferredID == referredID {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Level < result[j].Level })
	return result, nil
}

func (s *Store) ListDownline(_ context.Context, referrerID string) ([]referral.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]referral.Link, 0)
	for _, l := range s.links {
		if l.ReferrerID == referrerID {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Level < result[j].Level })
	return result, nil
}

func (s *Store) CreateCommission(_ context.Context, c referral.CommissionEntry) (referral.CommissionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}
	c.CreatedAt = time.Now().UTC()

	s.commissions[c.Reference] = append(s.commissions[c.Reference], c)
	return c, nil
}

func (s *Store) ListCommissionsByReference(_ context.Context, reference string) ([]referral.CommissionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]referral.CommissionEntry(nil), s.commissions[reference]...), nil
}

// IncomeStore implementation -------------------------------------------------

func (s *Store) CreateIncome(_ context.Context, inc income.Income) (income.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inc.ID == "" {
		inc.ID = s.nextIDLocked()
	}
	inc.CreatedAt = time.Now().UTC()

	s.incomes[inc.UserID] = append(s.incomes[inc.UserID], inc)
	return inc, nil
}

func (s *Store) ListIncomes(_ context.Context, userID string) ([]income.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]income.Income(nil), s.incomes[userID]...), nil
}

func (s *Store) HasIncome(_ context.Context, userID string, incomeType income.Type, reference string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inc := range s.incomes[userID] {
		if inc.Type == incomeType && inc.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

// InvestmentStore implementation ---------------------------------------------

func (s *Store) CreateInvestment(_ context.Context, inv investment.Investment) (investment.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		inv.ID = s.nextIDLocked()
	} else if _, exists := s.investments[inv.ID]; exists {
		return investment.Investment{}, fmt.Errorf("investment %s already exists", inv.ID)
	}

	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	s.investments[inv.ID] = inv
	return inv, nil
}

func (s *Store) UpdateInvestment(_ context.Context, inv investment.Investment) (investment.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.investments[inv.ID]
	if !ok {
		return investment.Investment{}, fmt.Errorf("investment %s: %w", inv.ID, apperr.ErrNotFound)
	}

	inv.CreatedAt = original.CreatedAt
	inv.UpdatedAt = time.Now().UTC()

	s.investments[inv.ID] = inv
	return inv, nil
}

func (s *Store) GetInvestment(_ context.Context, id string) (investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.investments[id]
	if !ok {
		return investment.Investment{}, fmt.Errorf("investment %s: %w", id, apperr.ErrNotFound)
	}
	return inv, nil
}

func (s *Store) ListActiveInvestments(_ context.Context, userID string) ([]investment.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]investment.Investment, 0)
	for _, inv := range s.investments {
		if inv.UserID == userID && inv.Status == investment.StatusActive {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// AssignmentStore implementation ---------------------------------------------

func (s *Store) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.assignments {
		if existing.UserID == a.UserID && existing.Status == assignment.StatusAssigned {
			return assignment.Assignment{}, fmt.Errorf("user %s already has an active assignment", a.UserID)
		}
	}
	if a.ID == "" {
		a.ID = s.nextIDLocked()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now().UTC()
	}
	a.UpdatedAt = a.AssignedAt

	s.assignments[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.assignments[a.ID]
	if !ok {
		return assignment.Assignment{}, fmt.Errorf("assignment %s: %w", a.ID, apperr.ErrNotFound)
	}

	a.AssignedAt = original.AssignedAt
	a.UpdatedAt = time.Now().UTC()

	s.assignments[a.ID] = a
	return a, nil
}

func (s *Store) GetActiveAssignment(_ context.Context, userID string) (assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.assignments {
		if a.UserID == userID && a.Status == assignment.StatusAssigned {
			return a, nil
		}
	}
	return assignment.Assignment{}, fmt.Errorf("active assignment for user %s: %w", userID, apperr.ErrNotFound)
}

func (s *Store) ListActiveAssignments(_ context.Context) ([]assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]assignment.Assignment, 0)
	for _, a := range s.assignments {
		if a.Status == assignment.StatusAssigned {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// JobRunStore implementation -------------------------------------------------

func (s *Store) CreateJobRun(_ context.Context, run job.Run) (job.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := run.Job + "/" + run.Period
	if _, exists := s.jobRuns[key]; exists {
		return job.Run{}, fmt.Errorf("job run %s already recorded", key)
	}
	if run.ID == "" {
		run.ID = s.nextIDLocked()
	}
	if run.CompletedAt.IsZero() {
		run.CompletedAt = time.Now().UTC()
	}

	s.jobRuns[key] = run
	return run, nil
}

func (s *Store) GetJobRun(_ context.Context, jobName, period string) (job.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.jobRuns[jobName+"/"+period]
	if !ok {
		return job.Run{}, fmt.Errorf("job run %s/%s: %w", jobName, period, apperr.ErrNotFound)
	}
	return run, nil
}

// AuditStore implementation --------------------------------------------------

func (s *Store) CreateAuditEntry(_ context.Context, e audit.Entry) (audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	}
	e.CreatedAt = time.Now().UTC()

	s.auditEntries = append(s.auditEntries, e)
	return e, nil
}

func (s *Store) ListAuditEntries(_ context.Context, transactionID string, limit int) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]audit.Entry, 0)
	for _, e := range s.auditEntries {
		if transactionID == "" || e.TransactionID == transactionID {
			result = append(result, e)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}
