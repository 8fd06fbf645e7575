package domain

import (
	"time"

	"github.com/google/uuid"
)

// FindingKind classifies a compliance finding.
type FindingKind string

const (
	FindingInCompliance       FindingKind = "IN_COMPLIANCE"
	FindingComplianceConcern  FindingKind = "COMPLIANCE_CONCERN"
	FindingPerformanceConcern FindingKind = "PERFORMANCE_CONCERN"
)

// FindingReason identifies which check failed.
type FindingReason string

const (
	ReasonIncomeOverLimit      FindingReason = "INCOME_OVER_LIMIT"
	ReasonRentOverLimit        FindingReason = "RENT_OVER_LIMIT"
	ReasonFormerTenantRefund   FindingReason = "FORMER_TENANT_REFUND_DUE"
	ReasonDCRBelowTarget       FindingReason = "DCR_BELOW_TARGET"
	ReasonOperatingShortfall   FindingReason = "OPERATING_RESERVE_SHORTFALL"
	ReasonReplacementShortfall FindingReason = "REPLACEMENT_RESERVE_SHORTFALL"
	ReasonReplacementOverdrawn FindingReason = "REPLACEMENT_RESERVE_OVERDRAWN"
	ReasonAuditExpired         FindingReason = "AUDIT_EXPIRED"
	ReasonInsuranceExpired     FindingReason = "INSURANCE_EXPIRED"
	ReasonMissedLoanPayment    FindingReason = "MISSED_LOAN_PAYMENT"
	ReasonSnapshotInconsistent FindingReason = "SNAPSHOT_INCONSISTENT"
)

// Response windows per finding kind. The former-tenant refund case gets the
// longer statutory window.
const (
	ConcernResponseDays     = 30
	RefundResponseDays      = 60
	PerformanceResponseDays = 90
)

// ComplianceFinding is the engine's durable record of one evaluation outcome.
// Deadlines are computed once at issuance and stored, so the finding reads
// the same years later.
type ComplianceFinding struct {
	ID         string          `json:"id"`
	ProjectID  string          `json:"project_id"`
	ReportID   string          `json:"report_id"`
	UnitID     string          `json:"unit_id,omitempty"`
	Kind       FindingKind     `json:"kind"`
	Reasons    []FindingReason `json:"reasons,omitempty"`
	Detail     string          `json:"detail,omitempty"`
	IssuedAt   time.Time       `json:"issued_at"`
	RespondBy  *time.Time      `json:"respond_by,omitempty"`
	Resolved   bool            `json:"resolved"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy string          `json:"resolved_by,omitempty"`
	Resolution string          `json:"resolution,omitempty"`
}

// NewFinding creates a finding with the deadline the kind and reasons call
// for. InCompliance findings carry no deadline.
func NewFinding(projectID, reportID, unitID string, kind FindingKind, reasons []FindingReason, detail string, issuedAt time.Time) ComplianceFinding {
	f := ComplianceFinding{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		ReportID:  reportID,
		UnitID:    unitID,
		Kind:      kind,
		Reasons:   reasons,
		Detail:    detail,
		IssuedAt:  issuedAt,
	}
	switch kind {
	case FindingComplianceConcern:
		days := ConcernResponseDays
		for _, r := range reasons {
			if r == ReasonFormerTenantRefund {
				days = RefundResponseDays
				break
			}
		}
		deadline := issuedAt.AddDate(0, 0, days)
		f.RespondBy = &deadline
	case FindingPerformanceConcern:
		deadline := issuedAt.AddDate(0, 0, PerformanceResponseDays)
		f.RespondBy = &deadline
	}
	return f
}

// Overdue reports whether the finding is unresolved past its deadline.
func (f *ComplianceFinding) Overdue(now time.Time) bool {
	return !f.Resolved && f.RespondBy != nil && now.After(*f.RespondBy)
}

// Resolve marks the finding resolved. Resolution is recorded, not deleted;
// the finding stays in the audit trail.
func (f *ComplianceFinding) Resolve(by, note string, at time.Time) {
	f.Resolved = true
	f.ResolvedAt = &at
	f.ResolvedBy = by
	f.Resolution = note
}
