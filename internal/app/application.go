package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/DeepakDhaka201/MetaBE/internal/app/services/accounts"
	adminsvc "github.com/DeepakDhaka201/MetaBE/internal/app/services/admin"
	incomesvc "github.com/DeepakDhaka201/MetaBE/internal/app/services/income"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/investments"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/jobs"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	referralsvc "github.com/DeepakDhaka201/MetaBE/internal/app/services/referral"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/transactions"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage/memory"
	"github.com/DeepakDhaka201/MetaBE/internal/app/system"
	"github.com/DeepakDhaka201/MetaBE/internal/config"
	"github.com/DeepakDhaka201/MetaBE/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users        storage.UserStore
	Wallets      storage.WalletStore
	Locks        storage.LockStore
	Transactions storage.TransactionStore
	Referrals    storage.ReferralStore
	Incomes      storage.IncomeStore
	Investments  storage.InvestmentStore
	Assignments  storage.AssignmentStore
	JobRuns      storage.JobRunStore
	Audits       storage.AuditStore
}

// Application ties the ledger core together and manages its lifecycle.
type Application struct {
	manager  *system.Manager
	log      *logger.Logger
	Settings config.Provider

	Accounts     *accounts.Service
	Ledger       *ledger.Service
	Transactions *transactions.Service
	Referral     *referralsvc.Service
	Income       *incomesvc.Service
	Investments  *investments.Service
	Admin        *adminsvc.Service
	Jobs         *jobs.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, settings config.Provider, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if settings == nil {
		settings = config.StaticProvider{Settings: config.SettingsFromEnv()}
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Wallets == nil {
		stores.Wallets = mem
	}
	if stores.Locks == nil {
		stores.Locks = mem
	}
	if stores.Transactions == nil {
		stores.Transactions = mem
	}
	if stores.Referrals == nil {
		stores.Referrals = mem
	}
	if stores.Incomes == nil {
		stores.Incomes = mem
	}
	if stores.Investments == nil {
		stores.Investments = mem
	}
	if stores.Assignments == nil {
		stores.Assignments = mem
	}
	if stores.JobRuns == nil {
		stores.JobRuns = mem
	}
	if stores.Audits == nil {
		stores.Audits = mem
	}

	manager := system.NewManager()

	ledgerSvc := ledger.New(stores.Wallets, stores.Locks, log)
	referralSvc := referralsvc.New(stores.Users, stores.Referrals, stores.Incomes, ledgerSvc, settings, log)
	accountsSvc := accounts.New(stores.Users, ledgerSvc, referralSvc, log)
	txSvc := transactions.New(stores.Users, stores.Transactions, stores.Assignments, ledgerSvc, settings, log)
	if pool := strings.TrimSpace(os.Getenv("DEPOSIT_ADDRESS_POOL")); pool != "" {
		txSvc.WithAddressPool(strings.Split(pool, ","))
	}
	incomeSvc := incomesvc.New(stores.Wallets, stores.Investments, stores.Incomes, log)
	investSvc := investments.New(stores.Users, stores.Investments, ledgerSvc, referralSvc, log)
	adminSvc := adminsvc.New(txSvc, ledgerSvc, stores.Audits, log)
	jobsSvc := jobs.New(stores.Users, stores.Wallets, stores.Incomes, stores.Investments,
		stores.Assignments, stores.JobRuns, ledgerSvc, settings, log)

	for _, name := range []string{"accounts", "ledger", "transactions"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}
	if err := manager.Register(jobs.NewRunner(jobsSvc, log)); err != nil {
		return nil, fmt.Errorf("register jobs runner: %w", err)
	}

	return &Application{
		manager:      manager,
		log:          log,
		Settings:     settings,
		Accounts:     accountsSvc,
		Ledger:       ledgerSvc,
		Transactions: txSvc,
		Referral:     referralSvc,
		Income:       incomeSvc,
		Investments:  investSvc,
		Admin:        adminSvc,
		Jobs:         jobsSvc,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
