package investments

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/investment"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/user"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/referral"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage/memory"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (*Service, *ledger.Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	ledgerSvc := ledger.New(store, store, nil)
	referralSvc := referral.New(store, store, store, ledgerSvc, nil, nil)
	svc := New(store, store, ledgerSvc, referralSvc, nil)

	// sponsor <- buyer: one upline level.
	for _, u := range []user.User{
		{ID: "sponsor", Username: "sponsor", Active: true},
		{ID: "buyer", Username: "buyer", SponsorID: "sponsor", Active: true},
	} {
		if _, err := store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
		if err := ledgerSvc.InitializeWallets(ctx, u.ID); err != nil {
			t.Fatal(err)
		}
		if err := referralSvc.BuildChain(ctx, u.ID, u.SponsorID); err != nil {
			t.Fatal(err)
		}
	}
	return svc, ledgerSvc, store
}

func TestPurchaseDebitsAndDistributes(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := ledgerSvc.AdjustBalance(ctx, "buyer", wallet.KindAvailableFund, dec("2000"), "deposit", ""); err != nil {
		t.Fatal(err)
	}

	inv, result, err := svc.Purchase(ctx, "buyer", dec("1000"))
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if inv.Status != investment.StatusActive {
		t.Fatalf("status %s", inv.Status)
	}

	w, _ := ledgerSvc.GetBalance(ctx, "buyer", wallet.KindAvailableFund)
	if !w.Balance.Equal(dec("1000")) {
		t.Fatalf("buyer balance %s", w.Balance)
	}

	if result.Distributed != 1 {
		t.Fatalf("distribution %+v", result)
	}
	sponsorWallet, _ := ledgerSvc.GetBalance(ctx, "sponsor", wallet.KindTotalReferral)
	if !sponsorWallet.Balance.Equal(dec("100")) {
		t.Fatalf("sponsor commission %s, want 100", sponsorWallet.Balance)
	}
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	svc, ledgerSvc, store := newTestService(t)
	ctx := context.Background()

	if _, err := ledgerSvc.AdjustBalance(ctx, "buyer", wallet.KindAvailableFund, dec("100"), "deposit", ""); err != nil {
		t.Fatal(err)
	}

	_, _, err := svc.Purchase(ctx, "buyer", dec("500"))
	if !errors.Is(err, apperr.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// No active principal remains and no commission was paid.
	active, _ := store.ListActiveInvestments(ctx, "buyer")
	if len(active) != 0 {
		t.Fatalf("active investments after failed purchase: %+v", active)
	}
	sponsorWallet, _ := ledgerSvc.GetBalance(ctx, "sponsor", wallet.KindTotalReferral)
	if !sponsorWallet.Balance.IsZero() {
		t.Fatalf("commission paid on failed purchase: %s", sponsorWallet.Balance)
	}
}

func TestPurchaseRejectsInactiveUser(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()

	u, _ := store.GetUser(ctx, "buyer")
	u.Active = false
	if _, err := store.UpdateUser(ctx, u); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.Purchase(ctx, "buyer", dec("100")); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
