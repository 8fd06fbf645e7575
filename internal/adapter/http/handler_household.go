package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/homeward/homeward/internal/domain"
	"github.com/homeward/homeward/internal/income"
	"github.com/homeward/homeward/internal/ports"
)

// HouseholdHandler handles HTTP requests for households and income previews.
type HouseholdHandler struct {
	householdRepo ports.HouseholdRepository
	library       *income.Library
	imputedRate   decimal.Decimal
}

// NewHouseholdHandler creates a new household handler.
func NewHouseholdHandler(householdRepo ports.HouseholdRepository, library *income.Library, imputedRate decimal.Decimal) *HouseholdHandler {
	return &HouseholdHandler{
		householdRepo: householdRepo,
		library:       library,
		imputedRate:   imputedRate,
	}
}

// RegisterRoutes registers household routes.
func (h *HouseholdHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/households", h.CreateHousehold).Methods("POST")
	router.HandleFunc("/households/{id}", h.GetHousehold).Methods("GET")
	router.HandleFunc("/households/{id}/income", h.PreviewIncome).Methods("GET")
}

// CreateHousehold captures a household with its members, income sources, and
// assets.
func (h *HouseholdHandler) CreateHousehold(w http.ResponseWriter, r *http.Request) {
	var household domain.Household
	if err := json.NewDecoder(r.Body).Decode(&household); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created := domain.NewHousehold(household.Members)
	created.UnitID = household.UnitID
	created.Sources = household.Sources
	created.Assets = household.Assets
	created.MovedInAt = household.MovedInAt
	if err := created.ValidateForCertification(); err != nil {
		writeError(w, err)
		return
	}
	if err := h.householdRepo.Create(r.Context(), created); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetHousehold handles retrieving a single household.
func (h *HouseholdHandler) GetHousehold(w http.ResponseWriter, r *http.Request) {
	household, err := h.householdRepo.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, household)
}

// PreviewIncome annualizes the household's active sources and assets without
// recording a certification. Useful while verification facts are still being
// gathered.
func (h *HouseholdHandler) PreviewIncome(w http.ResponseWriter, r *http.Request) {
	household, err := h.householdRepo.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	ref := time.Now()
	earned, err := h.library.HouseholdAnnualIncome(household, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	assets, err := income.AggregateAssetIncome(household.Assets, income.DefaultAssetThreshold, h.imputedRate, ref)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"household_id":     household.ID,
		"source_income":    earned,
		"asset_income":     assets.CountedIncome,
		"recurring_income": assets.RecurringIncome,
		"annual_income":    earned.Add(assets.CountedIncome).Add(assets.RecurringIncome),
	})
}
