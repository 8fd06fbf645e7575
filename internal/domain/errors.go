package domain

// DomainError represents a domain-specific error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}

// Custom errors
var (
	// Data-quality errors. Never resolved to zero or a default value; an
	// eligibility determination built on a guess outlives the guess by decades.
	ErrInsufficientData = NewDomainError("income verification incomplete")
	ErrAmbiguousPeriod  = NewDomainError("overlapping or inconsistent date ranges supplied")

	// Ledger and state-machine invariant violations. Rejected atomically.
	ErrInsufficientFunds  = NewDomainError("operating reserve withdrawal would overdraw account")
	ErrInvalidTransition  = NewDomainError("invalid contract state transition")
	ErrStaleReport        = NewDomainError("annual report already ingested or out of order")
	ErrNoAdultMember      = NewDomainError("household must include at least one adult member")
	ErrUnknownReserveKind = NewDomainError("unknown reserve account kind")

	ErrContractNotFound  = NewDomainError("contract not found")
	ErrProjectNotFound   = NewDomainError("project not found")
	ErrHouseholdNotFound = NewDomainError("household not found")
	ErrFindingNotFound   = NewDomainError("compliance finding not found")
	ErrReportNotFound    = NewDomainError("annual report not found")
	ErrLimitsNotFound    = NewDomainError("income limits not published for year and county")
)
