package investments

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/investment"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/referral"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
	"github.com/DeepakDhaka201/MetaBE/pkg/logger"
)

// Service handles investment purchases. A purchase is the qualifying event
// for commission distribution: funds leave the available wallet, the
// principal record is created, and the upline is paid in the same call.
type Service struct {
	users    storage.UserStore
	store    storage.InvestmentStore
	ledger   *ledger.Service
	referral *referral.Service
	log      *logger.Logger
}

// New constructs an investments service.
func New(users storage.UserStore, store storage.InvestmentStore, ledgerSvc *ledger.Service, referralSvc *referral.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("investments")
	}
	return &Service{
		users:    users,
		store:    store,
		ledger:   ledgerSvc,
		referral: referralSvc,
		log:      log,
	}
}

// Purchase debits the available fund, records the principal and distributes
// upline commissions on it.
func (s *Service) Purchase(ctx context.Context, userID string, amount decimal.Decimal) (investment.Investment, referral.DistributionResult, error) {
	var noResult referral.DistributionResult

	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return investment.Investment{}, noResult, err
	}
	if !u.Active {
		return investment.Investment{}, noResult, apperr.NewValidation("user_id", "account is not active")
	}

	amount = amount.Truncate(wallet.Scale)
	if !amount.IsPositive() {
		return investment.Investment{}, noResult, apperr.NewValidation("amount", "must be positive")
	}

	inv, err := s.store.CreateInvestment(ctx, investment.Investment{
		UserID:    userID,
		Principal: amount,
		Status:    investment.StatusActive,
	})
	if err != nil {
		return investment.Investment{}, noResult, err
	}

	if _, err := s.ledger.AdjustBalance(ctx, userID, wallet.KindAvailableFund, amount.Neg(), "investment", inv.ID); err != nil {
		inv.Status = investment.StatusCancelled
		if _, uerr := s.store.UpdateInvestment(ctx, inv); uerr != nil {
			s.log.WithError(uerr).Errorf("cancel unfunded investment %s", inv.ID)
		}
		return investment.Investment{}, noResult, err
	}

	inv.Reference = inv.ID
	if _, err := s.store.UpdateInvestment(ctx, inv); err != nil {
		return investment.Investment{}, noResult, err
	}

	result, err := s.referral.Distribute(ctx, userID, amount, inv.ID)
	if err != nil {
		// The investment stands; commission problems surface in the result.
		s.log.WithError(err).Warnf("commission distribution for investment %s", inv.ID)
	}

	s.log.WithField("investment_id", inv.ID).
		WithField("user_id", userID).
		WithField("principal", amount.String()).
		Info("investment purchased")
	return inv, result, nil
}

// Get returns one investment.
func (s *Service) Get(ctx context.Context, id string) (investment.Investment, error) {
	return s.store.GetInvestment(ctx, id)
}

// ListActive returns a user's active investments.
func (s *Service) ListActive(ctx context.Context, userID string) ([]investment.Investment, error) {
	return s.store.ListActiveInvestments(ctx, userID)
}
