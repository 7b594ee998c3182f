package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/transaction"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/user"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/transactions"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage/memory"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
)

const testAddress = "TXYZa1b2c3d4e5f6g7h8j9kmnpqrstuvwx"

var (
	adminPrincipal = Principal{UserID: "ops1", Scopes: []string{"admin"}}
	userPrincipal  = Principal{UserID: "u1", Scopes: []string{"user"}}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (*Service, *transactions.Service, *ledger.Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	if _, err := store.CreateUser(ctx, user.User{ID: "u1", Username: "alice", Active: true, Verified: true}); err != nil {
		t.Fatal(err)
	}
	ledgerSvc := ledger.New(store, store, nil)
	if err := ledgerSvc.InitializeWallets(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	txSvc := transactions.New(store, store, store, ledgerSvc, nil, nil)
	svc := New(txSvc, ledgerSvc, store, nil)
	return svc, txSvc, ledgerSvc, store
}

func TestScopeEnforcedOnce(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ListPendingTransactions(ctx, userPrincipal); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Approve(ctx, userPrincipal, "TXN_DP_X", ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ManualAdjust(ctx, userPrincipal, "u1", wallet.KindAvailableFund, dec("1"), "oops"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestListPendingIncludesProcessingWithdrawals(t *testing.T) {
	svc, txSvc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := ledgerSvc.AdjustBalance(ctx, "u1", wallet.KindAvailableFund, dec("500"), "deposit", ""); err != nil {
		t.Fatal(err)
	}
	dep, _ := txSvc.CreateDeposit(ctx, "u1", dec("100"), "")
	wd, _ := txSvc.CreateWithdrawal(ctx, "u1", dec("50"), testAddress)

	if _, err := svc.Approve(ctx, adminPrincipal, wd.ID, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	pending, err := svc.ListPendingTransactions(ctx, adminPrincipal)
	if err != nil {
		t.Fatalf("ListPendingTransactions: %v", err)
	}
	ids := map[string]bool{}
	for _, tx := range pending {
		ids[tx.ID] = true
	}
	if !ids[dep.ID] || !ids[wd.ID] {
		t.Fatalf("expected both %s and %s in %v", dep.ID, wd.ID, ids)
	}
}

func TestApproveRejectConfirmAudited(t *testing.T) {
	svc, txSvc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := ledgerSvc.AdjustBalance(ctx, "u1", wallet.KindAvailableFund, dec("500"), "deposit", ""); err != nil {
		t.Fatal(err)
	}

	wd, _ := txSvc.CreateWithdrawal(ctx, "u1", dec("100"), testAddress)
	if _, err := svc.Approve(ctx, adminPrincipal, wd.ID, "checked"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := svc.Confirm(ctx, adminPrincipal, wd.ID, "hash-1"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	wd2, _ := txSvc.CreateWithdrawal(ctx, "u1", dec("50"), testAddress)
	if _, err := svc.Reject(ctx, adminPrincipal, wd2.ID, "limit reached"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	trail, err := svc.AuditTrail(ctx, adminPrincipal, "", 0)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(trail) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(trail))
	}
	actions := []string{trail[0].Action, trail[1].Action, trail[2].Action}
	want := []string{"approve", "confirm", "reject"}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("actions %v, want %v", actions, want)
		}
	}

	// Filter by transaction.
	forWd, _ := svc.AuditTrail(ctx, adminPrincipal, wd.ID, 0)
	if len(forWd) != 2 {
		t.Fatalf("expected 2 entries for %s, got %d", wd.ID, len(forWd))
	}
}

func TestFailedActionNotAudited(t *testing.T) {
	svc, txSvc, _, _ := newTestService(t)
	ctx := context.Background()

	dep, _ := txSvc.CreateDeposit(ctx, "u1", dec("100"), "")
	if _, err := svc.Confirm(ctx, adminPrincipal, dep.ID, "x"); err == nil {
		t.Fatal("confirm of a deposit must fail")
	}

	trail, _ := svc.AuditTrail(ctx, adminPrincipal, "", 0)
	if len(trail) != 0 {
		t.Fatalf("failed action was audited: %+v", trail)
	}
}

func TestManualAdjust(t *testing.T) {
	svc, _, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()

	w, err := svc.ManualAdjust(ctx, adminPrincipal, "u1", wallet.KindAvailableFund, dec("25"), "promo credit")
	if err != nil {
		t.Fatalf("ManualAdjust: %v", err)
	}
	if !w.Balance.Equal(dec("25")) {
		t.Fatalf("balance %s", w.Balance)
	}

	trail, _ := svc.AuditTrail(ctx, adminPrincipal, "", 0)
	if len(trail) != 1 || trail[0].Action != "credit" {
		t.Fatalf("trail %+v", trail)
	}

	// Ledger entry carries the admin reference.
	entries, _ := ledgerSvc.LedgerEntries(ctx, "u1")
	if len(entries) != 1 || entries[0].Reference != "admin:ops1" {
		t.Fatalf("entries %+v", entries)
	}
}

func TestTransferViaAdminFlow(t *testing.T) {
	svc, txSvc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := ledgerSvc.AdjustBalance(ctx, "u1", wallet.KindTotalGain, dec("60"), "staking_reward", ""); err != nil {
		t.Fatal(err)
	}

	tr, err := txSvc.CreateTransfer(ctx, "u1", wallet.KindTotalGain, wallet.KindAvailableFund, dec("40"))
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	approved, err := svc.Approve(ctx, adminPrincipal, tr.ID, "")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != transaction.StatusCompleted {
		t.Fatalf("status %s", approved.Status)
	}

	avail, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !avail.Balance.Equal(dec("40")) {
		t.Fatalf("available %s", avail.Balance)
	}
}
