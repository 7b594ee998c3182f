package accounts

import (
	"context"
	"strings"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/user"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/referral"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
	"github.com/DeepakDhaka201/MetaBE/pkg/logger"
)

// Service manages member registration and account state. Registration is the
// moment wallets are initialized and the upline chain is recorded; both
// happen here so no user exists half set up.
type Service struct {
	users    storage.UserStore
	ledger   *ledger.Service
	referral *referral.Service
	log      *logger.Logger
}

// New constructs an accounts service.
func New(users storage.UserStore, ledgerSvc *ledger.Service, referralSvc *referral.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{
		users:    users,
		ledger:   ledgerSvc,
		referral: referralSvc,
		log:      log,
	}
}

// Register creates a user with an optional sponsor, initializes the stored
// wallets and builds the referral chain.
func (s *Service) Register(ctx context.Context, username, sponsorID string) (user.User, error) {
	username = strings.TrimSpace(username)
	sponsorID = strings.TrimSpace(sponsorID)
	if username == "" {
		return user.User{}, apperr.NewValidation("username", "is required")
	}

	if sponsorID != "" {
		sponsor, err := s.users.GetUser(ctx, sponsorID)
		if err != nil {
			return user.User{}, apperr.NewValidation("sponsor_id", "unknown sponsor %s", sponsorID)
		}
		if !sponsor.Active {
			return user.User{}, apperr.NewValidation("sponsor_id", "sponsor account is not active")
		}
	}

	u, err := s.users.CreateUser(ctx, user.User{
		Username:  username,
		SponsorID: sponsorID,
		Rank:      "Bronze",
		Active:    true,
	})
	if err != nil {
		return user.User{}, err
	}

	if err := s.ledger.InitializeWallets(ctx, u.ID); err != nil {
		return user.User{}, err
	}
	if err := s.referral.BuildChain(ctx, u.ID, sponsorID); err != nil {
		return user.User{}, err
	}

	s.log.WithField("user_id", u.ID).
		WithField("username", username).
		WithField("sponsor_id", sponsorID).
		Info("user registered")
	return u, nil
}

// Verify marks an account as identity-verified, unlocking withdrawals.
func (s *Service) Verify(ctx context.Context, userID string) (user.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	if u.Verified {
		return u, nil
	}
	u.Verified = true
	u, err = s.users.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", userID).Info("user verified")
	return u, nil
}

// SetActive toggles the account's active flag.
func (s *Service) SetActive(ctx context.Context, userID string, active bool) (user.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	if u.Active == active {
		return u, nil
	}
	u.Active = active
	u, err = s.users.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", userID).
		WithField("active", active).
		Info("user state changed")
	return u, nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, userID string) (user.User, error) {
	return s.users.GetUser(ctx, userID)
}
