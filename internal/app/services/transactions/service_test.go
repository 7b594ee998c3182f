package transactions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/transaction"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/user"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/ledger"
	"github.com/DeepakDhaka201/MetaBE/internal/app/storage/memory"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
)

const testAddress = "TXYZa1b2c3d4e5f6g7h8j9kmnpqrstuvwx"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (*Service, *ledger.Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	if _, err := store.CreateUser(ctx, user.User{ID: "u1", Username: "alice", Active: true, Verified: true}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	ledgerSvc := ledger.New(store, store, nil)
	if err := ledgerSvc.InitializeWallets(ctx, "u1"); err != nil {
		t.Fatalf("InitializeWallets: %v", err)
	}

	svc := New(store, store, store, ledgerSvc, nil, nil)
	return svc, ledgerSvc, store
}

func fund(t *testing.T, ledgerSvc *ledger.Service, amount string) {
	t.Helper()
	if _, err := ledgerSvc.AdjustBalance(context.Background(), "u1", wallet.KindAvailableFund, dec(amount), "deposit", ""); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func TestValidAddress(t *testing.T) {
	if !ValidAddress(testAddress) {
		t.Fatal("expected valid address")
	}
	for _, bad := range []string{
		"",
		"Tshort",
		"X" + testAddress[1:],
		testAddress[:33] + "0", // 0 is not base58
		testAddress + "x",
	} {
		if ValidAddress(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

func TestCreateDepositValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateDeposit(ctx, "u1", dec("9.99"), ""); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError below minimum, got %v", err)
	}
	if _, err := svc.CreateDeposit(ctx, "u1", dec("100001"), ""); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError above maximum, got %v", err)
	}

	tx, err := svc.CreateDeposit(ctx, "u1", dec("100"), "first deposit")
	if err != nil {
		t.Fatalf("CreateDeposit: %v", err)
	}
	if tx.Status != transaction.StatusPending {
		t.Fatalf("status %s", tx.Status)
	}
	if !strings.HasPrefix(tx.ID, "TXN_DP_") {
		t.Fatalf("id %s", tx.ID)
	}
	if tx.LockID != "" {
		t.Fatal("deposits must not lock funds")
	}
}

func TestCreateWithdrawalLocksAmountPlusFee(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, "1250.75")

	tx, err := svc.CreateWithdrawal(ctx, "u1", dec("103.50"), testAddress)
	if err != nil {
		t.Fatalf("CreateWithdrawal: %v", err)
	}
	if tx.LockID == "" {
		t.Fatal("expected a fund lock")
	}
	if !tx.Fee.Equal(dec("2")) {
		t.Fatalf("fee %s", tx.Fee)
	}

	w, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !w.Balance.Equal(dec("1250.75")) {
		t.Fatalf("balance must not change on lock: %s", w.Balance)
	}
	if !w.Locked.Equal(dec("105.50")) {
		t.Fatalf("locked %s", w.Locked)
	}
	if !w.Available().Equal(dec("1145.25")) {
		t.Fatalf("available %s", w.Available())
	}
}

func TestCreateWithdrawalRequiresVerifiedUser(t *testing.T) {
	svc, ledgerSvc, store := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, "100")

	u, _ := store.GetUser(ctx, "u1")
	u.Verified = false
	if _, err := store.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	if _, err := svc.CreateWithdrawal(ctx, "u1", dec("50"), testAddress); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateWithdrawalInsufficientFunds(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, "50")

	// 50 available cannot cover 49 + 2 fee.
	_, err := svc.CreateWithdrawal(ctx, "u1", dec("49"), testAddress)
	if !errors.Is(err, apperr.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestWithdrawalFullLifecycle(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, "500")

	tx, err := svc.CreateWithdrawal(ctx, "u1", dec("100"), testAddress)
	if err != nil {
		t.Fatalf("CreateWithdrawal: %v", err)
	}

	tx, err = svc.Approve(ctx, tx.ID, "looks good")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if tx.Status != transaction.StatusProcessing {
		t.Fatalf("status after approve: %s", tx.Status)
	}
	if tx.ProcessedAt.IsZero() {
		t.Fatal("ProcessedAt not set")
	}

	tx, err = svc.Confirm(ctx, tx.ID, "chain-hash-123")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if tx.Status != transaction.StatusCompleted {
		t.Fatalf("status after confirm: %s", tx.Status)
	}
	if tx.ExternalRef != "chain-hash-123" {
		t.Fatalf("external ref %s", tx.ExternalRef)
	}

	w, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !w.Balance.Equal(dec("398")) || !w.Locked.IsZero() {
		t.Fatalf("post-settlement wallet %+v", w)
	}

	// Terminal states accept no further transitions.
	if _, err := svc.Reject(ctx, tx.ID, "late"); !apperr.IsInvalidState(err) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestApproveDepositCredits(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()

	tx, err := svc.CreateDeposit(ctx, "u1", dec("250"), "")
	if err != nil {
		t.Fatalf("CreateDeposit: %v", err)
	}
	tx, err = svc.Approve(ctx, tx.ID, "")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if tx.Status != transaction.StatusCompleted {
		t.Fatalf("status %s", tx.Status)
	}

	w, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !w.Balance.Equal(dec("250")) {
		t.Fatalf("balance %s", w.Balance)
	}

	// Approving again is an invalid transition, not a double credit.
	if _, err := svc.Approve(ctx, tx.ID, ""); !apperr.IsInvalidState(err) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	w, _ = ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !w.Balance.Equal(dec("250")) {
		t.Fatalf("double credit: %s", w.Balance)
	}
}

func TestApproveDepositCompletesAssignment(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()
	svc.WithAddressPool([]string{testAddress})

	a, err := svc.RequestDepositAddress(ctx, "u1", dec("100"))
	if err != nil {
		t.Fatalf("RequestDepositAddress: %v", err)
	}

	// Requesting again returns the same reservation.
	again, err := svc.RequestDepositAddress(ctx, "u1", dec("100"))
	if err != nil || again.ID != a.ID {
		t.Fatalf("expected existing assignment, got %+v err %v", again, err)
	}

	tx, _ := svc.CreateDeposit(ctx, "u1", dec("100"), "")
	if _, err := svc.Approve(ctx, tx.ID, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if _, err := store.GetActiveAssignment(ctx, "u1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("assignment should be completed, got %v", err)
	}
	list, _ := store.ListActiveAssignments(ctx)
	if len(list) != 0 {
		t.Fatalf("active assignments remain: %+v", list)
	}
}

func TestTransferApproveSettlesAcrossWallets(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := ledgerSvc.AdjustBalance(ctx, "u1", wallet.KindTotalGain, dec("80"), "staking_reward", ""); err != nil {
		t.Fatalf("fund gain: %v", err)
	}

	tx, err := svc.CreateTransfer(ctx, "u1", wallet.KindTotalGain, wallet.KindAvailableFund, dec("30"))
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	tx, err = svc.Approve(ctx, tx.ID, "")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if tx.Status != transaction.StatusCompleted {
		t.Fatalf("status %s", tx.Status)
	}

	gain, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindTotalGain)
	avail, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !gain.Balance.Equal(dec("50")) || !avail.Balance.Equal(dec("30")) {
		t.Fatalf("post-transfer balances gain=%s avail=%s", gain.Balance, avail.Balance)
	}
}

func TestCancelPendingWithdrawal(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, "200")

	tx, _ := svc.CreateWithdrawal(ctx, "u1", dec("50"), testAddress)

	cancelled, err := svc.Cancel(ctx, "u1", tx.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != transaction.StatusCancelled {
		t.Fatalf("status %s", cancelled.Status)
	}
	if cancelled.FailReason != "Cancelled by user" {
		t.Fatalf("reason %q", cancelled.FailReason)
	}

	w, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !w.Locked.IsZero() || !w.Balance.Equal(dec("200")) {
		t.Fatalf("funds not returned: %+v", w)
	}
}

func TestCancelGuards(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, "200")

	tx, _ := svc.CreateWithdrawal(ctx, "u1", dec("50"), testAddress)

	// Not the owner.
	if _, err := svc.Cancel(ctx, "u2", tx.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// Deposits cannot be cancelled.
	dep, _ := svc.CreateDeposit(ctx, "u1", dec("100"), "")
	if _, err := svc.Cancel(ctx, "u1", dep.ID); !apperr.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// Processing withdrawals cannot be cancelled by the user.
	if _, err := svc.Approve(ctx, tx.ID, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := svc.Cancel(ctx, "u1", tx.ID); !apperr.IsInvalidState(err) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestRejectReleasesLock(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, "200")

	tx, _ := svc.CreateWithdrawal(ctx, "u1", dec("50"), testAddress)
	rejected, err := svc.Reject(ctx, tx.ID, "suspicious destination")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != transaction.StatusRejected {
		t.Fatalf("status %s", rejected.Status)
	}

	w, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !w.Locked.IsZero() || !w.Balance.Equal(dec("200")) {
		t.Fatalf("funds not returned: %+v", w)
	}
}

func TestFailProcessingWithdrawal(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, "200")

	tx, _ := svc.CreateWithdrawal(ctx, "u1", dec("50"), testAddress)
	if _, err := svc.Fail(ctx, tx.ID, "payout error"); !apperr.IsInvalidState(err) {
		t.Fatalf("pending cannot fail directly, got %v", err)
	}

	tx, _ = svc.Approve(ctx, tx.ID, "")
	failed, err := svc.Fail(ctx, tx.ID, "payout error")
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if failed.Status != transaction.StatusFailed {
		t.Fatalf("status %s", failed.Status)
	}

	w, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !w.Locked.IsZero() || !w.Balance.Equal(dec("200")) {
		t.Fatalf("funds not returned: %+v", w)
	}
}

func TestApproveDepositConcurrentSingleCredit(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()

	tx, err := svc.CreateDeposit(ctx, "u1", dec("500"), "")
	if err != nil {
		t.Fatalf("CreateDeposit: %v", err)
	}

	var wg sync.WaitGroup
	var approved int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Approve(ctx, tx.ID, ""); err == nil {
				atomic.AddInt32(&approved, 1)
			} else if !apperr.IsInvalidState(err) {
				t.Errorf("unexpected approve error: %v", err)
			}
		}()
	}
	wg.Wait()

	if approved != 1 {
		t.Fatalf("%d approvals succeeded, want 1", approved)
	}
	w, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !w.Balance.Equal(dec("500")) {
		t.Fatalf("deposit of 500 credited %s", w.Balance)
	}
}

// failingUpdateStore fails the next UpdateTransaction call, simulating a
// storage write dying after the wallet credit has been applied.
type failingUpdateStore struct {
	*memory.Store
	fail bool
}

func (s *failingUpdateStore) UpdateTransaction(ctx context.Context, tx transaction.Transaction) (transaction.Transaction, error) {
	if s.fail {
		s.fail = false
		return transaction.Transaction{}, errors.New("storage write failed")
	}
	return s.Store.UpdateTransaction(ctx, tx)
}

func TestApproveDepositRetryAfterFailedStatusWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if _, err := store.CreateUser(ctx, user.User{ID: "u1", Username: "alice", Active: true, Verified: true}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	ledgerSvc := ledger.New(store, store, nil)
	if err := ledgerSvc.InitializeWallets(ctx, "u1"); err != nil {
		t.Fatalf("InitializeWallets: %v", err)
	}
	flaky := &failingUpdateStore{Store: store}
	svc := New(store, flaky, store, ledgerSvc, nil, nil)

	tx, err := svc.CreateDeposit(ctx, "u1", dec("500"), "")
	if err != nil {
		t.Fatalf("CreateDeposit: %v", err)
	}

	flaky.fail = true
	if _, err := svc.Approve(ctx, tx.ID, ""); err == nil {
		t.Fatal("expected approve to surface the status write failure")
	}

	// The credit landed but the transaction is still pending.
	w, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !w.Balance.Equal(dec("500")) {
		t.Fatalf("balance after failed approve %s", w.Balance)
	}
	stored, _ := store.GetTransaction(ctx, tx.ID)
	if stored.Status != transaction.StatusPending {
		t.Fatalf("status after failed approve %s", stored.Status)
	}

	// Retrying completes the transaction without a second credit.
	tx, err = svc.Approve(ctx, tx.ID, "")
	if err != nil {
		t.Fatalf("retry Approve: %v", err)
	}
	if tx.Status != transaction.StatusCompleted {
		t.Fatalf("status after retry %s", tx.Status)
	}
	w, _ = ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !w.Balance.Equal(dec("500")) {
		t.Fatalf("retry double credited: %s", w.Balance)
	}
}

func TestApproveAfterCancelKeepsTerminalStatus(t *testing.T) {
	svc, ledgerSvc, store := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, "200")

	tx, _ := svc.CreateWithdrawal(ctx, "u1", dec("50"), testAddress)
	if _, err := svc.Cancel(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, err := svc.Approve(ctx, tx.ID, ""); !apperr.IsInvalidState(err) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	stored, _ := store.GetTransaction(ctx, tx.ID)
	if stored.Status != transaction.StatusCancelled {
		t.Fatalf("terminal status overwritten: %s", stored.Status)
	}
	w, _ := ledgerSvc.GetBalance(ctx, "u1", wallet.KindAvailableFund)
	if !w.Locked.IsZero() || !w.Balance.Equal(dec("200")) {
		t.Fatalf("wallet after cancel+approve %+v", w)
	}
}

func TestStatistics(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	fund(t, ledgerSvc, "1000")

	dep, _ := svc.CreateDeposit(ctx, "u1", dec("300"), "")
	if _, err := svc.Approve(ctx, dep.ID, ""); err != nil {
		t.Fatalf("approve deposit: %v", err)
	}

	wd, _ := svc.CreateWithdrawal(ctx, "u1", dec("100"), testAddress)
	if _, err := svc.Approve(ctx, wd.ID, ""); err != nil {
		t.Fatalf("approve withdrawal: %v", err)
	}
	if _, err := svc.Confirm(ctx, wd.ID, "hash"); err != nil {
		t.Fatalf("confirm withdrawal: %v", err)
	}

	if _, err := svc.CreateDeposit(ctx, "u1", dec("50"), ""); err != nil {
		t.Fatalf("pending deposit: %v", err)
	}

	stats, err := svc.Statistics(ctx, "u1")
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if !stats.TotalDeposited.Equal(dec("300")) {
		t.Fatalf("deposited %s", stats.TotalDeposited)
	}
	if !stats.TotalWithdrawn.Equal(dec("100")) {
		t.Fatalf("withdrawn %s", stats.TotalWithdrawn)
	}
	if !stats.TotalFees.Equal(dec("2")) {
		t.Fatalf("fees %s", stats.TotalFees)
	}
	if stats.Completed != 2 || stats.Pending != 1 {
		t.Fatalf("counts %+v", stats)
	}
}
