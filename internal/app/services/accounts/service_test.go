package accounts

import (
	"context"
	"testing"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/referral"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage/memory"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	ledgerSvc := ledger.New(store, store, nil)
	referralSvc := referral.New(store, store, store, ledgerSvc, nil, nil)
	return New(store, ledgerSvc, referralSvc, nil), store
}

func TestRegisterInitializesWalletsAndChain(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	sponsor, err := svc.Register(ctx, "alice", "")
	if err != nil {
		t.Fatalf("Register sponsor: %v", err)
	}

	u, err := svc.Register(ctx, "bob", sponsor.ID)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Rank != "Bronze" || !u.Active || u.Verified {
		t.Fatalf("unexpected new user %+v", u)
	}

	wallets, _ := store.ListWallets(ctx, u.ID)
	if len(wallets) != len(wallet.StoredKinds()) {
		t.Fatalf("expected %d wallets, got %d", len(wallet.StoredKinds()), len(wallets))
	}

	upline, _ := store.ListUpline(ctx, u.ID)
	if len(upline) != 1 || upline[0].ReferrerID != sponsor.ID {
		t.Fatalf("upline %+v", upline)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "  ", ""); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError for blank username, got %v", err)
	}
	if _, err := svc.Register(ctx, "carol", "nope"); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError for unknown sponsor, got %v", err)
	}
}

func TestVerifyIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, _ := svc.Register(ctx, "dave", "")
	u, err := svc.Verify(ctx, u.ID)
	if err != nil || !u.Verified {
		t.Fatalf("Verify: %v %+v", err, u)
	}
	if _, err := svc.Verify(ctx, u.ID); err != nil {
		t.Fatalf("second Verify: %v", err)
	}
}

func TestSetActive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, _ := svc.Register(ctx, "erin", "")
	u, err := svc.SetActive(ctx, u.ID, false)
	if err != nil || u.Active {
		t.Fatalf("SetActive: %v %+v", err, u)
	}
}
