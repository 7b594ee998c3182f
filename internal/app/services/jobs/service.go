package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/assignment"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/income"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/job"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage"
	"github.com/DeepakDhaka201/MetaBE/internal/config"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
	"github.com/DeepakDhaka201/MetaBE/pkg/logger"
)

// Job names used for period markers and metrics.
const (
	JobDailyRewards      = "daily_rewards"
	JobRankUpdate        = "rank_update"
	JobAssignmentCleanup = "assignment_cleanup"
)

// Service holds the scheduled-job entry points. Each job is safe to re-run
// for the same period: reward payouts are guarded twice (a per-period run
// marker plus a per-user income check), the other two are naturally
// idempotent.
type Service struct {
	users       storage.UserStore
	wallets     storage.WalletStore
	incomes     storage.IncomeStore
	investments storage.InvestmentStore
	assignments storage.AssignmentStore
	runs        storage.JobRunStore
	ledger      *ledger.Service
	settings    config.Provider
	log         *logger.Logger
}

// New constructs the jobs service.
func New(
	users storage.UserStore,
	wallets storage.WalletStore,
	incomes storage.IncomeStore,
	investments storage.InvestmentStore,
	assignments storage.AssignmentStore,
	runs storage.JobRunStore,
	ledgerSvc *ledger.Service,
	settings config.Provider,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.NewDefault("jobs")
	}
	if settings == nil {
		settings = config.StaticProvider{Settings: config.DefaultSettings()}
	}
	return &Service{
		users:       users,
		wallets:     wallets,
		incomes:     incomes,
		investments: investments,
		assignments: assignments,
		runs:        runs,
		ledger:      ledgerSvc,
		settings:    settings,
		log:         log,
	}
}

// Period returns the canonical daily period string for t.
func Period(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// RunDailyRewards credits staking rewards on positive total_gain balances:
// daily rate = APY / 365 / 100. Re-running a period is a no-op.
func (s *Service) RunDailyRewards(ctx context.Context, period string) (job.Summary, error) {
	if period == "" {
		period = Period(time.Now())
	}
	summary := job.Summary{Job: JobDailyRewards, Period: period}

	if _, err := s.runs.GetJobRun(ctx, JobDailyRewards, period); err == nil {
		s.log.WithField("period", period).Info("daily rewards already ran for period")
		return summary, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return summary, err
	}

	apy := s.settings.Current().StakingAPY
	dailyRate := apy.Div(decimal.NewFromInt(365)).Div(decimal.NewFromInt(100))

	wallets, err := s.wallets.ListWalletsByKind(ctx, wallet.KindTotalGain)
	if err != nil {
		return summary, err
	}

	for _, w := range wallets {
		if !w.Balance.IsPositive() {
			summary.Skipped++
			continue
		}

		already, err := s.incomes.HasIncome(ctx, w.UserID, income.TypeStakingReward, period)
		if err != nil {
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", w.UserID, err))
			continue
		}
		if already {
			summary.Skipped++
			continue
		}

		reward := w.Balance.Mul(dailyRate).Truncate(wallet.Scale)
		if !reward.IsPositive() {
			summary.Skipped++
			continue
		}

		if _, err := s.ledger.AdjustBalance(ctx, w.UserID, wallet.KindTotalGain, reward, "staking_reward", period); err != nil {
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", w.UserID, err))
			continue
		}
		if _, err := s.incomes.CreateIncome(ctx, income.Income{
			UserID:      w.UserID,
			Type:        income.TypeStakingReward,
			Amount:      reward,
			Reference:   period,
			Description: "Daily staking reward",
		}); err != nil {
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s income record: %v", w.UserID, err))
			continue
		}
		summary.Processed++
	}

	if _, err := s.runs.CreateJobRun(ctx, job.Run{
		Job:       JobDailyRewards,
		Period:    period,
		Processed: summary.Processed,
		Skipped:   summary.Skipped,
	}); err != nil {
		summary.Failures = append(summary.Failures, fmt.Sprintf("record run marker: %v", err))
	}

	s.log.WithField("period", period).
		WithField("processed", summary.Processed).
		WithField("skipped", summary.Skipped).
		WithField("failures", len(summary.Failures)).
		Info("daily rewards run complete")
	return summary, nil
}

// RunRankUpdate recomputes each user's rank from active investment totals.
// Re-running converges to the same ranks, so no period marker is needed.
func (s *Service) RunRankUpdate(ctx context.Context, period string) (job.Summary, error) {
	if period == "" {
		period = Period(time.Now())
	}
	summary := job.Summary{Job: JobRankUpdate, Period: period}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return summary, err
	}

	settings := s.settings.Current()
	for _, u := range users {
		investments, err := s.investments.ListActiveInvestments(ctx, u.ID)
		if err != nil {
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", u.ID, err))
			continue
		}
		total := decimal.Zero
		for _, inv := range investments {
			total = total.Add(inv.Principal)
		}

		rank := settings.RankFor(total)
		if rank == u.Rank {
			summary.Skipped++
			continue
		}

		u.Rank = rank
		if _, err := s.users.UpdateUser(ctx, u); err != nil {
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", u.ID, err))
			continue
		}
		summary.Processed++
	}

	s.log.WithField("period", period).
		WithField("processed", summary.Processed).
		WithField("skipped", summary.Skipped).
		Info("rank update run complete")
	return summary, nil
}

// RunAssignmentCleanup expires deposit address reservations past their
// window, returning the pooled addresses.
func (s *Service) RunAssignmentCleanup(ctx context.Context, period string) (job.Summary, error) {
	if period == "" {
		period = Period(time.Now())
	}
	summary := job.Summary{Job: JobAssignmentCleanup, Period: period}

	active, err := s.assignments.ListActiveAssignments(ctx)
	if err != nil {
		return summary, err
	}

	now := time.Now().UTC()
	for _, a := range active {
		if !a.Expired(now) {
			summary.Skipped++
			continue
		}
		a.Status = assignment.StatusExpired
		if _, err := s.assignments.UpdateAssignment(ctx, a); err != nil {
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %v", a.ID, err))
			continue
		}
		summary.Processed++
	}

	if summary.Processed > 0 {
		s.log.WithField("expired", summary.Processed).Info("assignment cleanup run complete")
	}
	return summary, nil
}
