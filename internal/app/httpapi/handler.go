// Package httpapi exposes the ledger core over REST. Handlers are thin JSON
// glue: they establish identity, decode payloads and map the service error
// taxonomy to HTTP statuses. All business rules live in the services.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	app "github.com/DeepakDhaka201/MetaBE/internal/app"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/income"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/investment"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/referral"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/transaction"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/user"
	"github.com/DeepakDhaka201/MetaBE/internal/app/domain/wallet"
	"github.com/DeepakDhaka201/MetaBE/internal/app/metrics"
	"github.com/DeepakDhaka201/MetaBE/internal/app/services/admin"
	apperr "github.com/DeepakDhaka201/MetaBE/internal/errors"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid or expired token")
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns the instrumented router exposing the core REST API.
func NewHandler(application *app.Application, jwtSecret string) http.Handler {
	h := &handler{app: application}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/register", h.register).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	api.Use(requireAuth([]byte(jwtSecret)))

	api.HandleFunc("/wallets", h.wallets).Methods(http.MethodGet)
	api.HandleFunc("/wallets/entries", h.ledgerEntries).Methods(http.MethodGet)
	api.HandleFunc("/limits", h.limits).Methods(http.MethodGet)

	api.HandleFunc("/deposits/address", h.depositAddress).Methods(http.MethodPost)
	api.HandleFunc("/deposits", h.createDeposit).Methods(http.MethodPost)
	api.HandleFunc("/withdrawals", h.createWithdrawal).Methods(http.MethodPost)
	api.HandleFunc("/transfers", h.createTransfer).Methods(http.MethodPost)

	api.HandleFunc("/transactions/statistics", h.statistics).Methods(http.MethodGet)
	api.HandleFunc("/transactions", h.listTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", h.getTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}/cancel", h.cancelTransaction).Methods(http.MethodPost)

	api.HandleFunc("/investments", h.purchaseInvestment).Methods(http.MethodPost)
	api.HandleFunc("/investments", h.listInvestments).Methods(http.MethodGet)
	api.HandleFunc("/income/summary", h.incomeSummary).Methods(http.MethodGet)
	api.HandleFunc("/income/history", h.incomeHistory).Methods(http.MethodGet)
	api.HandleFunc("/referrals/upline", h.upline).Methods(http.MethodGet)
	api.HandleFunc("/referrals/downline", h.downline).Methods(http.MethodGet)

	api.HandleFunc("/admin/transactions", h.adminPending).Methods(http.MethodGet)
	api.HandleFunc("/admin/transactions/{id}/approve", h.adminApprove).Methods(http.MethodPost)
	api.HandleFunc("/admin/transactions/{id}/reject", h.adminReject).Methods(http.MethodPost)
	api.HandleFunc("/admin/transactions/{id}/confirm", h.adminConfirm).Methods(http.MethodPost)
	api.HandleFunc("/admin/adjustments", h.adminAdjust).Methods(http.MethodPost)
	api.HandleFunc("/admin/audit", h.adminAudit).Methods(http.MethodGet)
	api.HandleFunc("/admin/users/{id}/verify", h.adminVerify).Methods(http.MethodPost)

	return metrics.InstrumentHandler(r)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username  string `json:"username"`
		SponsorID string `json:"sponsor_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := h.app.Accounts.Register(r.Context(), payload.Username, payload.SponsorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userJSON(u))
}

func (h *handler) wallets(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	balances, err := h.app.Ledger.Balances(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	summary, err := h.app.Income.Summary(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]walletResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, walletJSON(b))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallets":          out,
		"total_income":     summary.TotalIncome.String(),
		"total_investment": summary.TotalInvestment.String(),
	})
}

func (h *handler) ledgerEntries(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	entries, err := h.app.Ledger.LedgerEntries(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) limits(w http.ResponseWriter, r *http.Request) {
	limits := h.app.Settings.Current().Limits
	writeJSON(w, http.StatusOK, map[string]string{
		"min_deposit":    limits.MinDeposit.String(),
		"max_deposit":    limits.MaxDeposit.String(),
		"min_withdrawal": limits.MinWithdrawal.String(),
		"max_withdrawal": limits.MaxWithdrawal.String(),
		"withdrawal_fee": limits.WithdrawalFee.String(),
	})
}

func (h *handler) depositAddress(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var payload struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a, err := h.app.Transactions.RequestDepositAddress(r.Context(), p.UserID, payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":    a.Address,
		"expires_at": a.ExpiresAt,
	})
}

func (h *handler) createDeposit(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var payload struct {
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := h.app.Transactions.CreateDeposit(r.Context(), p.UserID, payload.Amount, payload.Description)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RecordTransaction(string(tx.Type), string(tx.Status))
	writeJSON(w, http.StatusCreated, txJSON(tx))
}

func (h *handler) createWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var payload struct {
		Amount    decimal.Decimal `json:"amount"`
		ToAddress string          `json:"to_address"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := h.app.Transactions.CreateWithdrawal(r.Context(), p.UserID, payload.Amount, payload.ToAddress)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RecordTransaction(string(tx.Type), string(tx.Status))
	writeJSON(w, http.StatusCreated, txJSON(tx))
}

func (h *handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var payload struct {
		From   wallet.Kind     `json:"from"`
		Dest   wallet.Kind     `json:"dest"`
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := h.app.Transactions.CreateTransfer(r.Context(), p.UserID, payload.From, payload.Dest, payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RecordTransaction(string(tx.Type), string(tx.Status))
	writeJSON(w, http.StatusCreated, txJSON(tx))
}

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	q := r.URL.Query()
	filter := transaction.Filter{
		UserID: p.UserID,
		Type:   transaction.Type(q.Get("type")),
		Status: transaction.Status(q.Get("status")),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	txs, err := h.app.Transactions.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]txResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, txJSON(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	tx, err := h.app.Transactions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tx.UserID != p.UserID {
		writeError(w, http.StatusForbidden, apperr.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, txJSON(tx))
}

func (h *handler) cancelTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	tx, err := h.app.Transactions.Cancel(r.Context(), p.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RecordTransaction(string(tx.Type), string(tx.Status))
	writeJSON(w, http.StatusOK, txJSON(tx))
}

func (h *handler) statistics(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	stats, err := h.app.Transactions.Statistics(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_deposited": stats.TotalDeposited.String(),
		"total_withdrawn": stats.TotalWithdrawn.String(),
		"total_fees":      stats.TotalFees.String(),
		"completed":       stats.Completed,
		"pending":         stats.Pending,
	})
}

func (h *handler) purchaseInvestment(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var payload struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	inv, result, err := h.app.Investments.Purchase(r.Context(), p.UserID, payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RecordCommissions(result.Distributed)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"investment": investmentJSON(inv),
		"commissions": map[string]interface{}{
			"distributed": result.Distributed,
			"skipped":     result.Skipped,
			"total":       result.Total.String(),
		},
	})
}

func (h *handler) listInvestments(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	invs, err := h.app.Investments.ListActive(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]investmentResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, investmentJSON(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) incomeSummary(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	summary, err := h.app.Income.Summary(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":          summary.UserID,
		"total_income":     summary.TotalIncome.String(),
		"total_investment": summary.TotalInvestment.String(),
		"computed_at":      summary.ComputedAt,
	})
}

func (h *handler) incomeHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	history, err := h.app.Income.History(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]incomeResponse, 0, len(history))
	for _, entry := range history {
		out = append(out, incomeJSON(entry))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) upline(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}
	links, err := h.app.Referral.Upline(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, linksJSON(links))
}

func (h *handler) downline(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}
	links, err := h.app.Referral.Downline(r.Context(), p.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, linksJSON(links))
}

// Admin surface. The capability check lives in the admin service; handlers
// only forward the principal.

func (h *handler) adminPending(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	txs, err := h.app.Admin.ListPendingTransactions(r.Context(), p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]txResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, txJSON(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) adminApprove(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var payload struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := h.app.Admin.Approve(r.Context(), p, mux.Vars(r)["id"], payload.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RecordTransaction(string(tx.Type), string(tx.Status))
	writeJSON(w, http.StatusOK, txJSON(tx))
}

func (h *handler) adminReject(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := h.app.Admin.Reject(r.Context(), p, mux.Vars(r)["id"], payload.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RecordTransaction(string(tx.Type), string(tx.Status))
	writeJSON(w, http.StatusOK, txJSON(tx))
}

func (h *handler) adminConfirm(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var payload struct {
		ExternalRef string `json:"external_ref"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := h.app.Admin.Confirm(r.Context(), p, mux.Vars(r)["id"], payload.ExternalRef)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RecordTransaction(string(tx.Type), string(tx.Status))
	writeJSON(w, http.StatusOK, txJSON(tx))
}

func (h *handler) adminAdjust(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var payload struct {
		UserID string          `json:"user_id"`
		Kind   wallet.Kind     `json:"kind"`
		Delta  decimal.Decimal `json:"delta"`
		Reason string          `json:"reason"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	wlt, err := h.app.Admin.ManualAdjust(r.Context(), p, payload.UserID, payload.Kind, payload.Delta, payload.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletJSON(wlt))
}

func (h *handler) adminAudit(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}

	q := r.URL.Query()
	limit := 0
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = n
	}

	entries, err := h.app.Admin.AuditTrail(r.Context(), p, q.Get("transaction_id"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]auditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditResponse{
			ID:            e.ID,
			AdminID:       e.AdminID,
			Action:        e.Action,
			TransactionID: e.TransactionID,
			Detail:        e.Detail,
			CreatedAt:     e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) adminVerify(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errMissingToken)
		return
	}
	// Verification is not an approval-flow action, so the scope check happens
	// here rather than in a service.
	if !p.HasScope(admin.ScopeAdmin) {
		writeError(w, http.StatusForbidden, apperr.ErrForbidden)
		return
	}

	u, err := h.app.Accounts.Verify(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userJSON(u))
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var insufficient *apperr.InsufficientFundsError
	switch {
	case errors.As(err, &insufficient):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":     err.Error(),
			"available": insufficient.Available.String(),
			"required":  insufficient.Required.String(),
		})
	case apperr.IsValidation(err):
		writeError(w, http.StatusBadRequest, err)
	case apperr.IsInvalidState(err):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, apperr.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

type walletResponse struct {
	Kind      string    `json:"kind"`
	Balance   string    `json:"balance"`
	Locked    string    `json:"locked"`
	Available string    `json:"available"`
	UpdatedAt time.Time `json:"updated_at"`
}

func walletJSON(w wallet.Wallet) walletResponse {
	return walletResponse{
		Kind:      string(w.Kind),
		Balance:   w.Balance.String(),
		Locked:    w.Locked.String(),
		Available: w.Available().String(),
		UpdatedAt: w.UpdatedAt,
	}
}

type entryResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Direction string    `json:"direction"`
	Amount    string    `json:"amount"`
	Reason    string    `json:"reason"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func entryJSON(e wallet.LedgerEntry) entryResponse {
	return entryResponse{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Direction: string(e.Direction),
		Amount:    e.Amount.String(),
		Reason:    e.Reason,
		Reference: e.Reference,
		CreatedAt: e.CreatedAt,
	}
}

type txResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	WalletKind  string    `json:"wallet_kind"`
	DestKind    string    `json:"dest_kind,omitempty"`
	ToAddress   string    `json:"to_address,omitempty"`
	Amount      string    `json:"amount"`
	Fee         string    `json:"fee"`
	Description string    `json:"description,omitempty"`
	FailReason  string    `json:"fail_reason,omitempty"`
	ExternalRef string    `json:"external_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func txJSON(tx transaction.Transaction) txResponse {
	return txResponse{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        string(tx.Type),
		Status:      string(tx.Status),
		WalletKind:  string(tx.WalletKind),
		DestKind:    string(tx.DestKind),
		ToAddress:   tx.ToAddress,
		Amount:      tx.Amount.String(),
		Fee:         tx.Fee.String(),
		Description: tx.Description,
		FailReason:  tx.FailReason,
		ExternalRef: tx.ExternalRef,
		CreatedAt:   tx.CreatedAt,
	}
}

type auditResponse struct {
	ID            string    `json:"id"`
	AdminID       string    `json:"admin_id"`
	Action        string    `json:"action"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	SponsorID string    `json:"sponsor_id,omitempty"`
	Rank      string    `json:"rank"`
	Active    bool      `json:"active"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

func userJSON(u user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		SponsorID: u.SponsorID,
		Rank:      u.Rank,
		Active:    u.Active,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

type investmentResponse struct {
	ID        string    `json:"id"`
	Principal string    `json:"principal"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func investmentJSON(inv investment.Investment) investmentResponse {
	return investmentResponse{
		ID:        inv.ID,
		Principal: inv.Principal.String(),
		Status:    string(inv.Status),
		CreatedAt: inv.CreatedAt,
	}
}

type incomeResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	FromUserID  string    `json:"from_user_id,omitempty"`
	Level       int       `json:"level,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func incomeJSON(entry income.Income) incomeResponse {
	return incomeResponse{
		ID:          entry.ID,
		Type:        string(entry.Type),
		Amount:      entry.Amount.String(),
		FromUserID:  entry.FromUserID,
		Level:       entry.Level,
		Reference:   entry.Reference,
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt,
	}
}

type linkResponse struct {
	ReferrerID  string    `json:"referrer_id"`
	ReferredID  string    `json:"referred_id"`
	Level       int       `json:"level"`
	Active      bool      `json:"active"`
	TotalEarned string    `json:"total_earned"`
	LastPayout  time.Time `json:"last_payout,omitempty"`
}

func linksJSON(links []referral.Link) []linkResponse {
	out := make([]linkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, linkResponse{
			ReferrerID:  l.ReferrerID,
			ReferredID:  l.ReferredID,
			Level:       l.Level,
			Active:      l.Active,
			TotalEarned: l.TotalEarned.String(),
			LastPayout:  l.LastPayout,
		})
	}
	return out
}
