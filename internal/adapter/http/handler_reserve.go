package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/usecase"
)

// ReserveHandler handles HTTP requests for reserve ledgers.
type ReserveHandler struct {
	reserve *usecase.ReserveUseCase
}

// NewReserveHandler creates a new reserve handler.
func NewReserveHandler(reserve *usecase.ReserveUseCase) *ReserveHandler {
	return &ReserveHandler{reserve: reserve}
}

// RegisterRoutes registers reserve routes.
func (h *ReserveHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/projects/{id}/reserves/{kind}/deposits", h.Deposit).Methods("POST")
	router.HandleFunc("/projects/{id}/reserves/{kind}/withdrawals", h.Withdraw).Methods("POST")
	router.HandleFunc("/projects/{id}/reserves/{kind}/balance", h.Balance).Methods("GET")
	router.HandleFunc("/projects/{id}/reserves/{kind}/entries", h.Entries).Methods("GET")
}

type movementRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     time.Time       `json:"date"`
}

func reserveKind(r *http.Request) domain.ReserveKind {
	return domain.ReserveKind(mux.Vars(r)["kind"])
}

// Deposit records a deposit into a project reserve.
func (h *ReserveHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	entry, err := h.reserve.Deposit(r.Context(), mux.Vars(r)["id"], reserveKind(r), req.Amount, req.Category, req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Withdraw records a withdrawal from a project reserve.
func (h *ReserveHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	entry, err := h.reserve.Withdraw(r.Context(), mux.Vars(r)["id"], reserveKind(r), req.Amount, req.Category, req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Balance returns the reserve balance as of a date. The as_of query parameter
// defaults to now.
func (h *ReserveHandler) Balance(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "Invalid as_of date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		asOf = parsed
	}

	balance, err := h.reserve.Balance(r.Context(), mux.Vars(r)["id"], reserveKind(r), asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": mux.Vars(r)["id"],
		"kind":       reserveKind(r),
		"as_of":      asOf.Format("2006-01-02"),
		"balance":    balance,
	})
}

// Entries returns the full entry history for one reserve, oldest first.
func (h *ReserveHandler) Entries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.reserve.Entries(r.Context(), mux.Vars(r)["id"], reserveKind(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
