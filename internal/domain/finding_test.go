package domain

import (
	"testing"
	"time"
)

func TestNewFinding_Deadlines(t *testing.T) {
	issued := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		kind     FindingKind
		reasons  []FindingReason
		wantDays int
	}{
		{"compliance concern", FindingComplianceConcern, []FindingReason{ReasonRentOverLimit}, 30},
		{"former tenant refund", FindingComplianceConcern, []FindingReason{ReasonFormerTenantRefund}, 60},
		{"performance concern", FindingPerformanceConcern, []FindingReason{ReasonDCRBelowTarget}, 90},
	}
	for _, tc := range cases {
		f := NewFinding("project-1", "report-1", "", tc.kind, tc.reasons, "", issued)
		if f.RespondBy == nil {
			t.Errorf("%s: expected a response deadline", tc.name)
			continue
		}
		want := issued.AddDate(0, 0, tc.wantDays)
		if !f.RespondBy.Equal(want) {
			t.Errorf("%s: expected deadline %v, got %v", tc.name, want, *f.RespondBy)
		}
	}
}

func TestNewFinding_InComplianceHasNoDeadline(t *testing.T) {
	f := NewFinding("project-1", "report-1", "", FindingInCompliance, nil, "", time.Now())
	if f.RespondBy != nil {
		t.Errorf("Expected no deadline on in-compliance finding, got %v", *f.RespondBy)
	}
	if f.Overdue(time.Now().AddDate(10, 0, 0)) {
		t.Error("In-compliance finding must never be overdue")
	}
}

func TestComplianceFinding_Overdue(t *testing.T) {
	issued := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	f := NewFinding("project-1", "report-1", "unit-1", FindingComplianceConcern, []FindingReason{ReasonIncomeOverLimit}, "", issued)

	if f.Overdue(issued.AddDate(0, 0, 30)) {
		t.Error("Finding should not be overdue on the deadline itself")
	}
	if !f.Overdue(issued.AddDate(0, 0, 31)) {
		t.Error("Finding should be overdue the day after the deadline")
	}

	f.Resolve("staff-1", "rent corrected", issued.AddDate(0, 0, 40))
	if f.Overdue(issued.AddDate(0, 0, 45)) {
		t.Error("Resolved finding must not be overdue")
	}
	if !f.Resolved || f.ResolvedBy != "staff-1" {
		t.Errorf("Resolution not recorded: %+v", f)
	}
}
