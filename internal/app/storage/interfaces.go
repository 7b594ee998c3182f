package storage

import (
	"context"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/assignment"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/audit"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/income"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/investment"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/job"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/referral"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/transaction"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/user"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
)

// UserStore persists platform members.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}

// WalletStore persists wallets and the append-only ledger entries.
type WalletStore interface {
	CreateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error)
	UpdateWallet(ctx context.Context, w wallet.Wallet) (wallet.Wallet, error)
	GetWallet(ctx context.Context, userID string, kind wallet.Kind) (wallet.Wallet, error)
	ListWallets(ctx context.Context, userID string) ([]wallet.Wallet, error)
	ListWalletsByKind(ctx context.Context, kind wallet.Kind) ([]wallet.Wallet, error)

	CreateLedgerEntry(ctx context.Context, e wallet.LedgerEntry) (wallet.LedgerEntry, error)
	ListLedgerEntries(ctx context.Context, userID string) ([]wallet.LedgerEntry, error)
}

// LockStore persists fund locks and settlement records.
type LockStore interface {
	CreateLock(ctx context.Context, l wallet.FundLock) (wallet.FundLock, error)
	UpdateLock(ctx context.Context, l wallet.FundLock) (wallet.FundLock, error)
	GetLock(ctx context.Context, id string) (wallet.FundLock, error)

	CreateSettlement(ctx context.Context, rec wallet.SettlementRecord) (wallet.SettlementRecord, error)
	GetSettlementByLock(ctx context.Context, lockID string) (wallet.SettlementRecord, error)
}

// TransactionStore persists financial requests.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx transaction.Transaction) (transaction.Transaction, error)
	UpdateTransaction(ctx context.Context, tx transaction.Transaction) (transaction.Transaction, error)
	GetTransaction(ctx context.Context, id string) (transaction.Transaction, error)
	ListTransactions(ctx context.Context, filter transaction.Filter) ([]transaction.Transaction, error)
	ListActionableTransactions(ctx context.Context) ([]transaction.Transaction, error)
}

// ReferralStore persists upline links and commission payouts.
type ReferralStore interface {
	CreateLink(ctx context.Context, l referral.Link) (referral.Link, error)
	UpdateLink(ctx context.Context, l referral.Link) (referral.Link, error)
	ListUpline(ctx context.Context, referredID string) ([]referral.Link, error)
	ListDownline(ctx context.Context, referrerID string) ([]referral.Link, error)

	CreateCommission(ctx context.Context, c referral.CommissionEntry) (referral.CommissionEntry, error)
	ListCommissionsByReference(ctx context.Context, reference string) ([]referral.CommissionEntry, error)
}

// IncomeStore persists earnings events.
type IncomeStore interface {
	CreateIncome(ctx context.Context, inc income.Income) (income.Income, error)
	ListIncomes(ctx context.Context, userID string) ([]income.Income, error)
	HasIncome(ctx context.Context, userID string, incomeType income.Type, reference string) (bool, error)
}

// InvestmentStore persists invested principal records.
type InvestmentStore interface {
	CreateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error)
	UpdateInvestment(ctx context.Context, inv investment.Investment) (investment.Investment, error)
	GetInvestment(ctx context.Context, id string) (investment.Investment, error)
	ListActiveInvestments(ctx context.Context, userID string) ([]investment.Investment, error)
}

// AssignmentStore persists deposit address reservations.
type AssignmentStore interface {
	CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error)
	UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error)
	GetActiveAssignment(ctx context.Context, userID string) (assignment.Assignment, error)
	ListActiveAssignments(ctx context.Context) ([]assignment.Assignment, error)
}

// JobRunStore persists per-period job completion markers.
type JobRunStore interface {
	CreateJobRun(ctx context.Context, run job.Run) (job.Run, error)
	GetJobRun(ctx context.Context, jobName, period string) (job.Run, error)
}

// AuditStore persists the append-only admin action trail.
type AuditStore interface {
	CreateAuditEntry(ctx context.Context, e audit.Entry) (audit.Entry, error)
	ListAuditEntries(ctx context.Context, transactionID string, limit int) ([]audit.Entry, error)
}
