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

// ContractHandler handles HTTP requests for contract lifecycle events.
type ContractHandler struct {
	lifecycle *usecase.LifecycleUseCase
}

// NewContractHandler creates a new contract handler.
func NewContractHandler(lifecycle *usecase.LifecycleUseCase) *ContractHandler {
	return &ContractHandler{lifecycle: lifecycle}
}

// RegisterRoutes registers contract routes.
func (h *ContractHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/contracts/{id}", h.GetContract).Methods("GET")
	router.HandleFunc("/contracts/{id}/transitions", h.GetTransitions).Methods("GET")
	router.HandleFunc("/contracts/{id}/award", h.Award).Methods("POST")
	router.HandleFunc("/contracts/{id}/confirm-commitments", h.ConfirmCommitments).Methods("POST")
	router.HandleFunc("/contracts/{id}/execute", h.Execute).Methods("POST")
	router.HandleFunc("/contracts/{id}/place-in-service", h.PlaceInService).Methods("POST")
	router.HandleFunc("/contracts/{id}/amendments", h.OpenAmendment).Methods("POST")
	router.HandleFunc("/contracts/{id}/amendments/resolve", h.ResolveAmendment).Methods("POST")
	router.HandleFunc("/contracts/{id}/workout/exit", h.ExitWorkout).Methods("POST")
	router.HandleFunc("/contracts/{id}/payments", h.RecordPayment).Methods("POST")
	router.HandleFunc("/contracts/{id}/close", h.Close).Methods("POST")
	router.HandleFunc("/contracts/{id}/rescind", h.Rescind).Methods("POST")
	router.HandleFunc("/contracts/{id}/foreclose", h.Foreclose).Methods("POST")
}

type authorityRequest struct {
	AuthorityID   string `json:"authority_id"`
	AuthorityName string `json:"authority_name"`
}

func (r authorityRequest) authority(fallback string) domain.Authority {
	id := r.AuthorityID
	if id == "" {
		id = fallback
	}
	return domain.Authority{ID: id, Name: r.AuthorityName}
}

// GetContract handles retrieving a single contract.
func (h *ContractHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	contract, err := h.lifecycle.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// GetTransitions returns the full transition history, oldest first.
func (h *ContractHandler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	contract, err := h.lifecycle.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract.Transitions)
}

// Award handles the award decision event.
func (h *ContractHandler) Award(w http.ResponseWriter, r *http.Request) {
	var req authorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	contract, err := h.lifecycle.Award(r.Context(), mux.Vars(r)["id"], req.authority(actorFrom(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// ConfirmCommitments handles the co-funder confirmation event.
func (h *ContractHandler) ConfirmCommitments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AllConfirmed      bool      `json:"all_confirmed"`
		ExecutionDeadline time.Time `json:"execution_deadline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	contract, err := h.lifecycle.ConfirmCommitments(r.Context(), mux.Vars(r)["id"], req.AllConfirmed, actorFrom(r), req.ExecutionDeadline)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// Execute handles the contract execution event.
func (h *ContractHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Signed           bool `json:"signed"`
		SecurityRecorded bool `json:"security_recorded"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	contract, err := h.lifecycle.Execute(r.Context(), mux.Vars(r)["id"], req.Signed, req.SecurityRecorded, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// PlaceInService handles the certificate-of-occupancy event.
func (h *ContractHandler) PlaceInService(w http.ResponseWriter, r *http.Request) {
	contract, err := h.lifecycle.PlaceInService(r.Context(), mux.Vars(r)["id"], actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// OpenAmendment handles an amendment request.
func (h *ContractHandler) OpenAmendment(w http.ResponseWriter, r *http.Request) {
	var amendment domain.Amendment
	if err := json.NewDecoder(r.Body).Decode(&amendment); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	contract, err := h.lifecycle.OpenAmendment(r.Context(), mux.Vars(r)["id"], amendment, actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// ResolveAmendment handles the amendment decision.
func (h *ContractHandler) ResolveAmendment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approved bool `json:"approved"`
		authorityRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	contract, err := h.lifecycle.ResolveAmendment(r.Context(), mux.Vars(r)["id"], req.Approved, req.authority(actorFrom(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// ExitWorkout handles the remediation sign-off returning a contract to
// monitoring.
func (h *ContractHandler) ExitWorkout(w http.ResponseWriter, r *http.Request) {
	var req authorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	contract, err := h.lifecycle.ExitWorkout(r.Context(), mux.Vars(r)["id"], req.authority(actorFrom(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// RecordPayment handles a loan payment.
func (h *ContractHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	contract, err := h.lifecycle.RecordLoanPayment(r.Context(), mux.Vars(r)["id"], req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// Close handles successful completion of the commitment period.
func (h *ContractHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req authorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	contract, err := h.lifecycle.Close(r.Context(), mux.Vars(r)["id"], req.authority(actorFrom(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// Rescind handles award withdrawal.
func (h *ContractHandler) Rescind(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
		authorityRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	contract, err := h.lifecycle.Rescind(r.Context(), mux.Vars(r)["id"], req.Reason, req.authority(actorFrom(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// Foreclose handles foreclosure after exhausted remediation.
func (h *ContractHandler) Foreclose(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FindingID string `json:"finding_id"`
		authorityRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	contract, err := h.lifecycle.Foreclose(r.Context(), mux.Vars(r)["id"], req.FindingID, req.authority(actorFrom(r)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}
