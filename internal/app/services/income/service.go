package income

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/income"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
	"github.com/DeepakDhaka201/MetaBE/pkg/logger"
)

// Service computes the derived totals. Nothing here is stored back: the
// figures are recomputed from history on every read, which is what makes the
// reconciliation check meaningful.
type Service struct {
	wallets     storage.WalletStore
	investments storage.InvestmentStore
	incomes     storage.IncomeStore
	log         *logger.Logger
}

// New constructs an income aggregator.
func New(wallets storage.WalletStore, investments storage.InvestmentStore, incomes storage.IncomeStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("income")
	}
	return &Service{
		wallets:     wallets,
		investments: investments,
		incomes:     incomes,
		log:         log,
	}
}

// TotalIncome sums every credit ever applied to an income wallet kind.
func (s *Service) TotalIncome(ctx context.Context, userID string) (decimal.Decimal, error) {
	entries, err := s.wallets.ListLedgerEntries(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, e := range entries {
		if e.Direction == wallet.DirectionCredit && e.Kind.Income() {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

// TotalInvestment sums the principal of active investments.
func (s *Service) TotalInvestment(ctx context.Context, userID string) (decimal.Decimal, error) {
	investments, err := s.investments.ListActiveInvestments(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, inv := range investments {
		total = total.Add(inv.Principal)
	}
	return total, nil
}

// Summary returns both derived totals for one user.
func (s *Service) Summary(ctx context.Context, userID string) (income.Summary, error) {
	totalIncome, err := s.TotalIncome(ctx, userID)
	if err != nil {
		return income.Summary{}, err
	}
	totalInvestment, err := s.TotalInvestment(ctx, userID)
	if err != nil {
		return income.Summary{}, err
	}
	return income.Summary{
		UserID:          userID,
		TotalIncome:     totalIncome,
		TotalInvestment: totalInvestment,
		ComputedAt:      time.Now().UTC(),
	}, nil
}

// Reconcile recomputes total income from ledger history and compares it with
// the lifetime counters on the income wallets. Any mismatch means the ledger
// and the wallets diverged; that is fatal and is never papered over here.
func (s *Service) Reconcile(ctx context.Context, userID string) error {
	recomputed, err := s.TotalIncome(ctx, userID)
	if err != nil {
		return err
	}

	counted := decimal.Zero
	for _, kind := range wallet.IncomeKinds() {
		w, err := s.wallets.GetWallet(ctx, userID, kind)
		if err != nil {
			return apperr.NewConsistency("income wallet %s/%s missing during reconciliation", userID, kind)
		}
		counted = counted.Add(w.LifetimeCredited)
	}

	if !recomputed.Equal(counted) {
		s.log.WithField("user_id", userID).
			WithField("recomputed", recomputed.String()).
			WithField("counted", counted.String()).
			Error("income reconciliation mismatch")
		return apperr.NewConsistency("income mismatch for user %s: ledger says %s, wallets say %s",
			userID, recomputed.String(), counted.String())
	}
	return nil
}

// History returns the individual income events for a user.
func (s *Service) History(ctx context.Context, userID string) ([]income.Income, error) {
	return s.incomes.ListIncomes(ctx, userID)
}
