package referral

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/income"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/referral"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage"
	"github.com/DeepakDhaka201/MetaBE/internal/config"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
	"github.com/DeepakDhaka201/MetaBE/pkg/logger"
)

// Service maintains the upline chain and pays out multi-level commissions.
type Service struct {
	users    storage.UserStore
	store    storage.ReferralStore
	incomes  storage.IncomeStore
	ledger   *ledger.Service
	settings config.Provider
	log      *logger.Logger
}

// New constructs a referral service.
func New(users storage.UserStore, store storage.ReferralStore, incomes storage.IncomeStore, ledgerSvc *ledger.Service, settings config.Provider, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("referral")
	}
	if settings == nil {
		settings = config.StaticProvider{Settings: config.DefaultSettings()}
	}
	return &Service{
		users:    users,
		store:    store,
		incomes:  incomes,
		ledger:   ledgerSvc,
		settings: settings,
		log:      log,
	}
}

// BuildChain records the upline links for a newly registered user by walking
// the sponsor chain up to the configured depth. A user already visited stops
// the walk, so a circular sponsor reference cannot loop.
func (s *Service) BuildChain(ctx context.Context, userID, sponsorID string) error {
	if userID == "" {
		return apperr.NewValidation("user_id", "is required")
	}
	if sponsorID == "" {
		return nil
	}

	maxLevels := s.settings.Current().MaxLevels
	visited := map[string]bool{userID: true}

	current := sponsorID
	for level := 1; level <= maxLevels && current != ""; level++ {
		if visited[current] {
			s.log.WithField("user_id", userID).
				WithField("sponsor_id", current).
				Warn("circular sponsor reference; chain truncated")
			break
		}
		visited[current] = true

		sponsor, err := s.users.GetUser(ctx, current)
		if err != nil {
			return fmt.Errorf("resolve sponsor %s at level %d: %w", current, level, err)
		}

		if _, err := s.store.CreateLink(ctx, referral.Link{
			ReferrerID:  sponsor.ID,
			ReferredID:  userID,
			Level:       level,
			Active:      true,
			TotalEarned: decimal.Zero,
		}); err != nil {
			return fmt.Errorf("create level %d link: %w", level, err)
		}

		current = sponsor.SponsorID
	}

	s.log.WithField("user_id", userID).
		WithField("sponsor_id", sponsorID).
		Info("referral chain built")
	return nil
}

// DistributionResult reports one commission run. Failed levels are recorded
// and do not abort the remaining levels.
type DistributionResult struct {
	Reference   string
	Distributed int
	Skipped     int
	Total       decimal.Decimal
	Failures    []string
}

func kindForLevel(level int) wallet.Kind {
	if level == 1 {
		return wallet.KindTotalReferral
	}
	return wallet.KindLevelBonus
}

func incomeTypeForLevel(level int) income.Type {
	if level == 1 {
		return income.TypeDirectReferral
	}
	return income.TypeLevelBonus
}

// Distribute pays each upline member their percentage of base. The direct
// referrer earns into total_referral, deeper levels into level_bonus. Each
// payout writes a commission entry and an income record.
func (s *Service) Distribute(ctx context.Context, sourceUserID string, base decimal.Decimal, reference string) (DistributionResult, error) {
	result := DistributionResult{Reference: reference, Total: decimal.Zero}
	if !base.IsPositive() {
		return result, apperr.NewValidation("base", "must be positive")
	}

	upline, err := s.store.ListUpline(ctx, sourceUserID)
	if err != nil {
		return result, err
	}

	rates := s.settings.Current().ReferralRates
	for _, link := range upline {
		rate, ok := rates[link.Level]
		if !ok || !rate.IsPositive() {
			result.Skipped++
			continue
		}
		if !link.Active {
			result.Skipped++
			continue
		}

		recipient, err := s.users.GetUser(ctx, link.ReferrerID)
		if err != nil || !recipient.Active {
			result.Skipped++
			if err != nil {
				result.Failures = append(result.Failures, fmt.Sprintf("level %d: %v", link.Level, err))
			}
			continue
		}

		amount := base.Mul(rate).Div(decimal.NewFromInt(100)).Truncate(wallet.Scale)
		if !amount.IsPositive() {
			result.Skipped++
			continue
		}

		kind := kindForLevel(link.Level)
		if _, err := s.ledger.AdjustBalance(ctx, link.ReferrerID, kind, amount, "referral_commission", reference); err != nil {
			result.Skipped++
			result.Failures = append(result.Failures, fmt.Sprintf("level %d credit: %v", link.Level, err))
			continue
		}

		if _, err := s.store.CreateCommission(ctx, referral.CommissionEntry{
			RecipientID: link.ReferrerID,
			SourceID:    sourceUserID,
			Level:       link.Level,
			Rate:        rate,
			Amount:      amount,
			WalletKind:  kind,
			Reference:   reference,
		}); err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("level %d commission record: %v", link.Level, err))
		}

		if _, err := s.incomes.CreateIncome(ctx, income.Income{
			UserID:      link.ReferrerID,
			Type:        incomeTypeForLevel(link.Level),
			Amount:      amount,
			FromUserID:  sourceUserID,
			Level:       link.Level,
			Reference:   reference,
			Description: fmt.Sprintf("Level %d commission", link.Level),
		}); err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("level %d income record: %v", link.Level, err))
		}

		link.TotalEarned = link.TotalEarned.Add(amount)
		link.LastPayout = time.Now().UTC()
		if _, err := s.store.UpdateLink(ctx, link); err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("level %d link update: %v", link.Level, err))
		}

		result.Distributed++
		result.Total = result.Total.Add(amount)
	}

	s.log.WithField("source", sourceUserID).
		WithField("reference", reference).
		WithField("distributed", result.Distributed).
		WithField("total", result.Total.String()).
		Info("commissions distributed")
	return result, nil
}

// Upline returns a user's upline links ordered by level.
func (s *Service) Upline(ctx context.Context, userID string) ([]referral.Link, error) {
	return s.store.ListUpline(ctx, userID)
}

// Downline returns the links in which the user is the referrer.
func (s *Service) Downline(ctx context.Context, userID string) ([]referral.Link, error) {
	return s.store.ListDownline(ctx, userID)
}

// Commissions returns the payouts generated by one reference.
func (s *Service) Commissions(ctx context.Context, reference string) ([]referral.CommissionEntry, error) {
	return s.store.ListCommissionsByReference(ctx, reference)
}
