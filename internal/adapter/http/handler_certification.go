package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/homeward/homeward/internal/usecase"
)

// CertificationHandler handles HTTP requests for eligibility certifications.
type CertificationHandler struct {
	certification *usecase.CertificationUseCase
}

// NewCertificationHandler creates a new certification handler.
func NewCertificationHandler(certification *usecase.CertificationUseCase) *CertificationHandler {
	return &CertificationHandler{certification: certification}
}

// RegisterRoutes registers certification routes.
func (h *CertificationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/certifications", h.Certify).Methods("POST")
	router.HandleFunc("/households/{id}/certifications", h.History).Methods("GET")
}

// Certify runs an initial certification or a recertification.
func (h *CertificationHandler) Certify(w http.ResponseWriter, r *http.Request) {
	var req usecase.CertifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.certification.Certify(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// History lists a household's certification records, newest first.
func (h *CertificationHandler) History(w http.ResponseWriter, r *http.Request) {
	records, err := h.certification.History(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
