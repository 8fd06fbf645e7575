package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/usecase"
)

// ComplianceHandler handles HTTP requests for annual reports and findings.
type ComplianceHandler struct {
	compliance *usecase.ComplianceUseCase
}

// NewComplianceHandler creates a new compliance handler.
func NewComplianceHandler(compliance *usecase.ComplianceUseCase) *ComplianceHandler {
	return &ComplianceHandler{compliance: compliance}
}

// RegisterRoutes registers compliance routes.
func (h *ComplianceHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/projects/{id}/reports", h.IngestReport).Methods("POST")
	router.HandleFunc("/projects/{id}/findings", h.ListFindings).Methods("GET")
	router.HandleFunc("/findings/{id}/resolve", h.ResolveFinding).Methods("POST")
}

// IngestReport submits an annual report for evaluation and returns the
// findings it produced.
func (h *ComplianceHandler) IngestReport(w http.ResponseWriter, r *http.Request) {
	var report domain.AnnualReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	findings, err := h.compliance.IngestAnnualReport(r.Context(), mux.Vars(r)["id"], &report)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, findings)
}

// ListFindings returns a project's findings, newest first.
func (h *ComplianceHandler) ListFindings(w http.ResponseWriter, r *http.Request) {
	findings, err := h.compliance.ListFindings(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, findings)
}

// ResolveFinding marks a finding resolved.
func (h *ComplianceHandler) ResolveFinding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	finding, err := h.compliance.ResolveFinding(r.Context(), mux.Vars(r)["id"], actorFrom(r), req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, finding)
}
