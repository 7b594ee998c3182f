package referral

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/income"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/user"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seedChain registers u6 sponsored by u5 sponsored by ... u1 and builds the
// chain for each user on the way down, the way registration would.
func seedChain(t *testing.T) (*Service, *ledger.Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	ledgerSvc := ledger.New(store, store, nil)
	svc := New(store, store, store, ledgerSvc, nil, nil)

	ids := []string{"u1", "u2", "u3", "u4", "u5", "u6"}
	for i, id := range ids {
		sponsor := ""
		if i > 0 {
			sponsor = ids[i-1]
		}
		if _, err := store.CreateUser(ctx, user.User{ID: id, Username: id, SponsorID: sponsor, Active: true}); err != nil {
			t.Fatalf("CreateUser %s: %v", id, err)
		}
		if err := ledgerSvc.InitializeWallets(ctx, id); err != nil {
			t.Fatalf("InitializeWallets %s: %v", id, err)
		}
		if err := svc.BuildChain(ctx, id, sponsor); err != nil {
			t.Fatalf("BuildChain %s: %v", id, err)
		}
	}
	return svc, ledgerSvc, store
}

func TestBuildChainLevels(t *testing.T) {
	svc, _, _ := seedChain(t)
	ctx := context.Background()

	upline, err := svc.Upline(ctx, "u6")
	if err != nil {
		t.Fatalf("Upline: %v", err)
	}
	if len(upline) != 5 {
		t.Fatalf("expected 5 upline links, got %d", len(upline))
	}
	expect := []string{"u5", "u4", "u3", "u2", "u1"}
	for i, link := range upline {
		if link.Level != i+1 || link.ReferrerID != expect[i] {
			t.Fatalf("level %d: got %+v", i+1, link)
		}
	}
}

func TestBuildChainCapsAtMaxLevels(t *testing.T) {
	// u6 has 5 ancestors but the chain from u1 is shorter; both are fine.
	svc, _, _ := seedChain(t)

	upline, _ := svc.Upline(context.Background(), "u2")
	if len(upline) != 1 {
		t.Fatalf("expected 1 link for u2, got %d", len(upline))
	}
}

func TestBuildChainCycleSafe(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ledgerSvc := ledger.New(store, store, nil)
	svc := New(store, store, store, ledgerSvc, nil, nil)

	// a sponsors b, b sponsors a: broken data that must not loop forever.
	if _, err := store.CreateUser(ctx, user.User{ID: "a", Username: "a", SponsorID: "b", Active: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateUser(ctx, user.User{ID: "b", Username: "b", SponsorID: "a", Active: true}); err != nil {
		t.Fatal(err)
	}

	if err := svc.BuildChain(ctx, "a", "b"); err != nil {
		t.Fatalf("BuildChain: %v", err)
	}
	upline, _ := svc.Upline(ctx, "a")
	// b at level 1, then the walk reaches a itself and stops.
	if len(upline) != 1 {
		t.Fatalf("expected truncated chain, got %d links", len(upline))
	}
}

func TestDistributeRatesAndKinds(t *testing.T) {
	svc, ledgerSvc, _ := seedChain(t)
	ctx := context.Background()

	result, err := svc.Distribute(ctx, "u6", dec("1000"), "inv1")
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if result.Distributed != 5 {
		t.Fatalf("distributed %d", result.Distributed)
	}
	if !result.Total.Equal(dec("210")) { // 100+50+30+20+10
		t.Fatalf("total %s", result.Total)
	}

	// Direct referrer earns into total_referral.
	w, _ := ledgerSvc.GetBalance(ctx, "u5", wallet.KindTotalReferral)
	if !w.Balance.Equal(dec("100")) {
		t.Fatalf("u5 total_referral %s", w.Balance)
	}
	lb, _ := ledgerSvc.GetBalance(ctx, "u5", wallet.KindLevelBonus)
	if !lb.Balance.IsZero() {
		t.Fatalf("u5 level_bonus %s", lb.Balance)
	}

	// Deeper levels earn into level_bonus.
	for i, tc := range []struct {
		user   string
		amount string
	}{
		{"u4", "50"}, {"u3", "30"}, {"u2", "20"}, {"u1", "10"},
	} {
		w, _ := ledgerSvc.GetBalance(ctx, tc.user, wallet.KindLevelBonus)
		if !w.Balance.Equal(dec(tc.amount)) {
			t.Fatalf("level %d recipient %s level_bonus %s, want %s", i+2, tc.user, w.Balance, tc.amount)
		}
	}
}

func TestDistributeWritesCommissionAndIncomeRecords(t *testing.T) {
	svc, _, store := seedChain(t)
	ctx := context.Background()

	if _, err := svc.Distribute(ctx, "u6", dec("200"), "inv2"); err != nil {
		t.Fatalf("Distribute: %v", err)
	}

	commissions, err := svc.Commissions(ctx, "inv2")
	if err != nil {
		t.Fatalf("Commissions: %v", err)
	}
	if len(commissions) != 5 {
		t.Fatalf("expected 5 commission entries, got %d", len(commissions))
	}
	if !commissions[0].Rate.Equal(dec("10")) || !commissions[0].Amount.Equal(dec("20")) {
		t.Fatalf("level 1 entry %+v", commissions[0])
	}

	incomes, _ := store.ListIncomes(ctx, "u5")
	if len(incomes) != 1 || incomes[0].Type != income.TypeDirectReferral {
		t.Fatalf("u5 incomes %+v", incomes)
	}
	incomes, _ = store.ListIncomes(ctx, "u4")
	if len(incomes) != 1 || incomes[0].Type != income.TypeLevelBonus {
		t.Fatalf("u4 incomes %+v", incomes)
	}

	// Link counters advance.
	upline, _ := svc.Upline(ctx, "u6")
	if !upline[0].TotalEarned.Equal(dec("20")) || upline[0].LastPayout.IsZero() {
		t.Fatalf("link not updated %+v", upline[0])
	}
}

func TestDistributeSkipsInactiveRecipients(t *testing.T) {
	svc, ledgerSvc, store := seedChain(t)
	ctx := context.Background()

	u4, _ := store.GetUser(ctx, "u4")
	u4.Active = false
	if _, err := store.UpdateUser(ctx, u4); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Distribute(ctx, "u6", dec("1000"), "inv3")
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if result.Distributed != 4 || result.Skipped != 1 {
		t.Fatalf("result %+v", result)
	}

	// u4 got nothing, the rest still paid.
	w, _ := ledgerSvc.GetBalance(ctx, "u4", wallet.KindLevelBonus)
	if !w.Balance.IsZero() {
		t.Fatalf("inactive recipient paid: %s", w.Balance)
	}
	w, _ = ledgerSvc.GetBalance(ctx, "u3", wallet.KindLevelBonus)
	if !w.Balance.Equal(dec("30")) {
		t.Fatalf("u3 not paid: %s", w.Balance)
	}
}

func TestDistributeTruncatesToScale(t *testing.T) {
	svc, ledgerSvc, _ := seedChain(t)
	ctx := context.Background()

	// 0.33333333... truncated at 8 fractional digits, never rounded up.
	if _, err := svc.Distribute(ctx, "u6", dec("3.33333333"), "inv4"); err != nil {
		t.Fatalf("Distribute: %v", err)
	}

	w, _ := ledgerSvc.GetBalance(ctx, "u5", wallet.KindTotalReferral)
	if !w.Balance.Equal(dec("0.33333333")) {
		t.Fatalf("level 1 amount %s", w.Balance)
	}
}

func TestDistributeNoUpline(t *testing.T) {
	svc, _, _ := seedChain(t)

	result, err := svc.Distribute(context.Background(), "u1", dec("500"), "inv5")
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if result.Distributed != 0 || len(result.Failures) != 0 {
		t.Fatalf("result %+v", result)
	}
}
