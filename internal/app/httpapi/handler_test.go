package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	app "github.com/DeepakDhaka201/MetaBE/internal/app"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/admin"
)

const testSecret = "test-secret"

func newTestHandler(t *testing.T) (http.Handler, *app.Application) {
	t.Helper()
	application, err := app.New(app.Stores{}, nil, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	return NewHandler(application, testSecret), application
}

func marshal(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(raw)
}

func request(t *testing.T, method, path, userID string, scopes []string, body *bytes.Reader) *http.Request {
	t.Helper()
	if body == nil {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if userID != "" {
		token, err := IssueToken(testSecret, userID, scopes, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func do(t *testing.T, h http.Handler, req *http.Request, wantStatus int) map[string]any {
	t.Helper()
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != wantStatus {
		t.Fatalf("%s %s: status %d, want %d (body %s)", req.Method, req.URL.Path, resp.Code, wantStatus, resp.Body.String())
	}
	if resp.Body.Len() == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		// List endpoints return arrays; callers decode those themselves.
		return nil
	}
	return out
}

func registerUser(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	out := do(t, h, request(t, http.MethodPost, "/register", "", nil, marshal(t, map[string]any{"username": username})), http.StatusCreated)
	id, _ := out["id"].(string)
	if id == "" {
		t.Fatalf("register returned no id: %v", out)
	}
	return id
}

func TestAuthRequired(t *testing.T) {
	h, _ := newTestHandler(t)

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/wallets", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.Code)
	}

	// A garbage token is rejected too.
	req := httptest.NewRequest(http.MethodGet, "/wallets", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.Code)
	}
}

func TestRegisterAndWallets(t *testing.T) {
	h, _ := newTestHandler(t)
	userID := registerUser(t, h, "alice")

	out := do(t, h, request(t, http.MethodGet, "/wallets", userID, nil, nil), http.StatusOK)
	wallets, ok := out["wallets"].([]any)
	if !ok || len(wallets) != 4 {
		t.Fatalf("wallets %v", out)
	}
	if out["total_income"] != "0" || out["total_investment"] != "0" {
		t.Fatalf("derived totals %v", out)
	}
}

func TestWithdrawalLifecycleOverHTTP(t *testing.T) {
	h, _ := newTestHandler(t)
	userID := registerUser(t, h, "alice")
	adminScopes := []string{admin.ScopeAdmin}

	do(t, h, request(t, http.MethodPost, "/admin/users/"+userID+"/verify", "admin-1", adminScopes, nil), http.StatusOK)
	do(t, h, request(t, http.MethodPost, "/admin/adjustments", "admin-1", adminScopes, marshal(t, map[string]any{
		"user_id": userID, "kind": "available_fund", "delta": "100", "reason": "seed",
	})), http.StatusOK)

	out := do(t, h, request(t, http.MethodPost, "/withdrawals", userID, nil, marshal(t, map[string]any{
		"amount": "50", "to_address": "TXYZa1b2c3d4e5f6g7h8j9kmnpqrstuvwx",
	})), http.StatusCreated)
	txID, _ := out["id"].(string)
	if txID == "" || out["status"] != "pending" {
		t.Fatalf("withdrawal %v", out)
	}

	// Amount plus the 2 USDT fee is reserved.
	out = do(t, h, request(t, http.MethodGet, "/wallets", userID, nil, nil), http.StatusOK)
	found := false
	for _, raw := range out["wallets"].([]any) {
		w := raw.(map[string]any)
		if w["kind"] == "available_fund" {
			found = true
			if w["locked"] != "52" || w["available"] != "48" {
				t.Fatalf("available_fund %v", w)
			}
		}
	}
	if !found {
		t.Fatal("available_fund wallet missing")
	}

	out = do(t, h, request(t, http.MethodPost, "/admin/transactions/"+txID+"/approve", "admin-1", adminScopes, marshal(t, map[string]any{"notes": "ok"})), http.StatusOK)
	if out["status"] != "processing" {
		t.Fatalf("after approve %v", out)
	}

	out = do(t, h, request(t, http.MethodPost, "/admin/transactions/"+txID+"/confirm", "admin-1", adminScopes, marshal(t, map[string]any{"external_ref": "chain-tx-1"})), http.StatusOK)
	if out["status"] != "completed" || out["external_ref"] != "chain-tx-1" {
		t.Fatalf("after confirm %v", out)
	}

	out = do(t, h, request(t, http.MethodGet, "/transactions/statistics", userID, nil, nil), http.StatusOK)
	if out["total_withdrawn"] != "50" || out["total_fees"] != "2" {
		t.Fatalf("statistics %v", out)
	}
}

func TestErrorMapping(t *testing.T) {
	h, _ := newTestHandler(t)
	userID := registerUser(t, h, "alice")
	adminScopes := []string{admin.ScopeAdmin}
	do(t, h, request(t, http.MethodPost, "/admin/users/"+userID+"/verify", "admin-1", adminScopes, nil), http.StatusOK)

	// Validation failure: below the minimum withdrawal.
	do(t, h, request(t, http.MethodPost, "/withdrawals", userID, nil, marshal(t, map[string]any{
		"amount": "1", "to_address": "TXYZa1b2c3d4e5f6g7h8j9kmnpqrstuvwx",
	})), http.StatusBadRequest)

	// Insufficient funds carries both amounts in the body.
	out := do(t, h, request(t, http.MethodPost, "/withdrawals", userID, nil, marshal(t, map[string]any{
		"amount": "50", "to_address": "TXYZa1b2c3d4e5f6g7h8j9kmnpqrstuvwx",
	})), http.StatusBadRequest)
	if out["available"] != "0" || out["required"] != "52" {
		t.Fatalf("insufficient funds body %v", out)
	}

	// Unknown transaction is a 404.
	do(t, h, request(t, http.MethodGet, "/transactions/TXN_WD_missing", userID, nil, nil), http.StatusNotFound)

	// Another user's transaction is forbidden.
	do(t, h, request(t, http.MethodPost, "/admin/adjustments", "admin-1", adminScopes, marshal(t, map[string]any{
		"user_id": userID, "kind": "available_fund", "delta": "100", "reason": "seed",
	})), http.StatusOK)
	out = do(t, h, request(t, http.MethodPost, "/withdrawals", userID, nil, marshal(t, map[string]any{
		"amount": "50", "to_address": "TXYZa1b2c3d4e5f6g7h8j9kmnpqrstuvwx",
	})), http.StatusCreated)
	txID := out["id"].(string)
	otherID := registerUser(t, h, "bob")
	do(t, h, request(t, http.MethodGet, "/transactions/"+txID, otherID, nil, nil), http.StatusForbidden)

	// Cancelling a non-pending withdrawal conflicts.
	do(t, h, request(t, http.MethodPost, "/admin/transactions/"+txID+"/approve", "admin-1", adminScopes, nil), http.StatusOK)
	do(t, h, request(t, http.MethodPost, "/transactions/"+txID+"/cancel", userID, nil, nil), http.StatusConflict)

	// Admin routes refuse principals without the scope.
	do(t, h, request(t, http.MethodGet, "/admin/transactions", userID, nil, nil), http.StatusForbidden)
}

func TestInvestmentAndReferralOverHTTP(t *testing.T) {
	h, _ := newTestHandler(t)
	adminScopes := []string{admin.ScopeAdmin}

	sponsorID := registerUser(t, h, "sponsor")
	out := do(t, h, request(t, http.MethodPost, "/register", "", nil, marshal(t, map[string]any{
		"username": "buyer", "sponsor_id": sponsorID,
	})), http.StatusCreated)
	buyerID := out["id"].(string)

	do(t, h, request(t, http.MethodPost, "/admin/adjustments", "admin-1", adminScopes, marshal(t, map[string]any{
		"user_id": buyerID, "kind": "available_fund", "delta": "1000", "reason": "seed",
	})), http.StatusOK)

	out = do(t, h, request(t, http.MethodPost, "/investments", buyerID, nil, marshal(t, map[string]any{"amount": "1000"})), http.StatusCreated)
	commissions := out["commissions"].(map[string]any)
	if commissions["distributed"] != float64(1) || commissions["total"] != "100" {
		t.Fatalf("commissions %v", commissions)
	}

	// The sponsor sees the direct referral commission on their wallet.
	out = do(t, h, request(t, http.MethodGet, "/wallets", sponsorID, nil, nil), http.StatusOK)
	for _, raw := range out["wallets"].([]any) {
		w := raw.(map[string]any)
		if w["kind"] == "total_referral" && w["balance"] != "100" {
			t.Fatalf("total_referral %v", w)
		}
	}

	// Audit trail recorded the seeding credit.
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, request(t, http.MethodGet, "/admin/audit", "admin-1", adminScopes, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("audit status %d", resp.Code)
	}
	var entries []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 || entries[0]["action"] != "credit" {
		t.Fatalf("audit entries %v", entries)
	}
}

func TestApplicationLifecycle(t *testing.T) {
	_, application := newTestHandler(t)
	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := application.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
