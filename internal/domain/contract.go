package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractState represents where a contract sits in its lifecycle.
type ContractState string

const (
	StateApplied         ContractState = "APPLIED"
	StateAwarded         ContractState = "AWARDED"
	StatePreContracting  ContractState = "PRE_CONTRACTING"
	StateExecuted        ContractState = "EXECUTED"
	StateInDevelopment   ContractState = "IN_DEVELOPMENT"
	StatePlacedInService ContractState = "PLACED_IN_SERVICE"
	StateMonitoring      ContractState = "MONITORING"
	StateAmending        ContractState = "AMENDING"
	StateWorkout         ContractState = "WORKOUT"
	StateClosed          ContractState = "CLOSED"
	StateRescinded       ContractState = "RESCINDED"
	StateForeclosed      ContractState = "FORECLOSED"
)

// Terminal reports whether the state absorbs all further transitions.
func (s ContractState) Terminal() bool {
	switch s {
	case StateClosed, StateRescinded, StateForeclosed:
		return true
	}
	return false
}

// Authority is the administering agency acting on a contract. Transitions
// that need agency approval take an Authority explicitly instead of reading
// ambient state, so approval logic is testable in isolation.
type Authority struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TransitionRecord is one logged state change. Every transition is recorded
// with its triggering event and actor; the log is append-only.
type TransitionRecord struct {
	ID         string        `json:"id"`
	ContractID string        `json:"contract_id"`
	From       ContractState `json:"from"`
	To         ContractState `json:"to"`
	Event      string        `json:"event"`
	Actor      string        `json:"actor"`
	// FindingID is set when a compliance finding triggered the transition.
	FindingID string    `json:"finding_id,omitempty"`
	At        time.Time `json:"at"`
}

// AmendmentType classifies contract amendments.
type AmendmentType string

const (
	AmendmentTechnical   AmendmentType = "TECHNICAL"
	AmendmentMonetary    AmendmentType = "MONETARY"
	AmendmentScopeChange AmendmentType = "SCOPE_CHANGE"
	AmendmentWorkout     AmendmentType = "WORKOUT"
)

// Amendment is a change request logged against a contract.
type Amendment struct {
	ID            string        `json:"id"`
	ContractID    string        `json:"contract_id"`
	Type          AmendmentType `json:"type"`
	EffectiveDate time.Time     `json:"effective_date"`
	Approved      bool          `json:"approved"`
	ApprovedBy    string        `json:"approved_by,omitempty"`
	Note          string        `json:"note,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Contract tracks one project's agreement with one contractor from award
// through closeout. Key dates are persisted, never derived from the clock at
// read time, so findings from years past stay reproducible.
type Contract struct {
	ID           string        `json:"id"`
	ProjectID    string        `json:"project_id"`
	ContractorID string        `json:"contractor_id"`
	State        ContractState `json:"state"`

	AwardDate         *time.Time `json:"award_date,omitempty"`
	ExecutionDate     *time.Time `json:"execution_date,omitempty"`
	ExecutionDeadline *time.Time `json:"execution_deadline,omitempty"`
	PlacedInService   *time.Time `json:"placed_in_service,omitempty"`
	CommitmentEnd     *time.Time `json:"commitment_end,omitempty"`
	CommitmentYears   int        `json:"commitment_years"`

	LoanBalance decimal.Decimal `json:"loan_balance"`

	Amendments  []Amendment        `json:"amendments,omitempty"`
	Transitions []TransitionRecord `json:"transitions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewContract creates a contract in the Applied state.
func NewContract(projectID, contractorID string, loanAmount decimal.Decimal) *Contract {
	now := time.Now()
	return &Contract{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		ContractorID: contractorID,
		State:        StateApplied,
		LoanBalance:  loanAmount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (c *Contract) transition(to ContractState, event, actor, findingID string, at time.Time) {
	rec := TransitionRecord{
		ID:         uuid.NewString(),
		ContractID: c.ID,
		From:       c.State,
		To:         to,
		Event:      event,
		Actor:      actor,
		FindingID:  findingID,
		At:         at,
	}
	c.State = to
	c.Transitions = append(c.Transitions, rec)
	c.UpdatedAt = at
}

func (c *Contract) guard(from ContractState) error {
	if c.State != from {
		return ErrInvalidTransition
	}
	return nil
}

// Award moves Applied -> Awarded.
func (c *Contract) Award(authority Authority, at time.Time) error {
	if err := c.guard(StateApplied); err != nil {
		return err
	}
	c.AwardDate = &at
	c.transition(StateAwarded, "award", authority.ID, "", at)
	return nil
}

// ConfirmCommitments moves Awarded -> PreContracting once every co-funder's
// commitment is confirmed.
func (c *Contract) ConfirmCommitments(allConfirmed bool, actor string, deadline time.Time, at time.Time) error {
	if err := c.guard(StateAwarded); err != nil {
		return err
	}
	if !allConfirmed {
		return ErrInvalidTransition
	}
	c.ExecutionDeadline = &deadline
	c.transition(StatePreContracting, "commitments_confirmed", actor, "", at)
	return nil
}

// Execute moves PreContracting -> Executed when the signed contract and the
// recorded security instruments are both in hand.
func (c *Contract) Execute(signed, securityRecorded bool, actor string, at time.Time) error {
	if err := c.guard(StatePreContracting); err != nil {
		return err
	}
	if !signed || !securityRecorded {
		return ErrInvalidTransition
	}
	c.ExecutionDate = &at
	c.transition(StateExecuted, "executed", actor, "", at)
	return nil
}

// StartDevelopment moves Executed -> InDevelopment. Immediate, but never
// skipped: construction-draw tracking hangs off this state even when the
// stay is instantaneous.
func (c *Contract) StartDevelopment(actor string, at time.Time) error {
	if err := c.guard(StateExecuted); err != nil {
		return err
	}
	c.transition(StateInDevelopment, "development_started", actor, "", at)
	return nil
}

// PlaceInService moves InDevelopment -> PlacedInService on the certificate of
// occupancy or equivalent, fixing the commitment end date for the given track.
func (c *Contract) PlaceInService(track ProgramTrack, actor string, at time.Time) error {
	if err := c.guard(StateInDevelopment); err != nil {
		return err
	}
	years := track.CommitmentYears()
	end := at.AddDate(years, 0, 0)
	c.PlacedInService = &at
	c.CommitmentYears = years
	c.CommitmentEnd = &end
	c.transition(StatePlacedInService, "placed_in_service", actor, "", at)
	return nil
}

// BeginMonitoring moves PlacedInService -> Monitoring, enabling annual
// compliance ingestion.
func (c *Contract) BeginMonitoring(actor string, at time.Time) error {
	if err := c.guard(StatePlacedInService); err != nil {
		return err
	}
	c.transition(StateMonitoring, "monitoring_started", actor, "", at)
	return nil
}

// BeginAmendment moves Monitoring -> Amending on a submitted amendment
// request.
func (c *Contract) BeginAmendment(a Amendment, actor string, at time.Time) error {
	if err := c.guard(StateMonitoring); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.ContractID = c.ID
	a.CreatedAt = at
	c.Amendments = append(c.Amendments, a)
	c.transition(StateAmending, "amendment_opened", actor, "", at)
	return nil
}

// ResolveAmendment moves Amending -> Monitoring, recording the approval
// outcome on the open amendment.
func (c *Contract) ResolveAmendment(approved bool, authority Authority, at time.Time) error {
	if err := c.guard(StateAmending); err != nil {
		return err
	}
	if n := len(c.Amendments); n > 0 {
		c.Amendments[n-1].Approved = approved
		c.Amendments[n-1].ApprovedBy = authority.ID
	}
	c.transition(StateMonitoring, "amendment_resolved", authority.ID, "", at)
	return nil
}

// EnterWorkout moves Monitoring -> Workout. Triggered by an unresolved
// compliance concern past its response deadline or by a missed loan payment
// without contact; the triggering finding, if any, is kept on the record.
func (c *Contract) EnterWorkout(findingID, actor string, at time.Time) error {
	if err := c.guard(StateMonitoring); err != nil {
		return err
	}
	c.transition(StateWorkout, "workout_entered", actor, findingID, at)
	return nil
}

// ExitWorkout moves Workout -> Monitoring on remediation.
func (c *Contract) ExitWorkout(authority Authority, at time.Time) error {
	if err := c.guard(StateWorkout); err != nil {
		return err
	}
	c.transition(StateMonitoring, "workout_remediated", authority.ID, "", at)
	return nil
}

// Close moves Monitoring -> Closed once the commitment period has run and the
// loan is fully repaid.
func (c *Contract) Close(authority Authority, at time.Time) error {
	if err := c.guard(StateMonitoring); err != nil {
		return err
	}
	if c.CommitmentEnd == nil || at.Before(*c.CommitmentEnd) {
		return ErrInvalidTransition
	}
	if !c.LoanBalance.IsZero() {
		return ErrInvalidTransition
	}
	c.transition(StateClosed, "closeout", authority.ID, "", at)
	return nil
}

// Rescind moves any pre-Closed state to Rescinded, typically when a contract
// is not executed within the negotiated window.
func (c *Contract) Rescind(authority Authority, reason string, at time.Time) error {
	if c.State.Terminal() {
		return ErrInvalidTransition
	}
	event := "rescinded"
	if reason != "" {
		event = "rescinded:" + reason
	}
	c.transition(StateRescinded, event, authority.ID, "", at)
	return nil
}

// Foreclose moves any pre-Closed state to Foreclosed on exhausted
// remediation.
func (c *Contract) Foreclose(authority Authority, findingID string, at time.Time) error {
	if c.State.Terminal() {
		return ErrInvalidTransition
	}
	c.transition(StateForeclosed, "foreclosed", authority.ID, findingID, at)
	return nil
}

// ApplyLoanPayment reduces the outstanding balance. Payments beyond the
// balance are clamped to zero.
func (c *Contract) ApplyLoanPayment(amount decimal.Decimal, at time.Time) {
	c.LoanBalance = c.LoanBalance.Sub(amount)
	if c.LoanBalance.IsNegative() {
		c.LoanBalance = decimal.Zero
	}
	c.UpdatedAt = at
}
