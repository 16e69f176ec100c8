package models

// JobPhase is the marketplace-side lifecycle phase of a job.
type JobPhase string

// Job phases, in lifecycle order.
const (
	PhaseRequest     JobPhase = "REQUEST"
	PhaseNegotiation JobPhase = "NEGOTIATION"
	PhaseTransaction JobPhase = "TRANSACTION"
	PhaseEvaluation  JobPhase = "EVALUATION"
	PhaseCompleted   JobPhase = "COMPLETED"
	PhaseRejected    JobPhase = "REJECTED"
	PhaseExpired     JobPhase = "EXPIRED"
)

// Terminal reports whether the phase is final (no further transitions).
func (p JobPhase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseRejected, PhaseExpired:
		return true
	}
	return false
}

// BountyStatus is the match-lifecycle status of a bounty.
type BountyStatus string

// Bounty statuses. Fulfilled, Expired and Rejected are terminal.
const (
	BountyOpen         BountyStatus = "open"
	BountyPendingMatch BountyStatus = "pending_match"
	BountyClaimed      BountyStatus = "claimed"
	BountyFulfilled    BountyStatus = "fulfilled"
	BountyExpired      BountyStatus = "expired"
	BountyRejected     BountyStatus = "rejected"
)

// Terminal reports whether the bounty status is final.
func (s BountyStatus) Terminal() bool {
	switch s {
	case BountyFulfilled, BountyExpired, BountyRejected:
		return true
	}
	return false
}

// Fee kinds for offerings.
const (
	FeeKindFixed      = "fixed"
	FeeKindPercentage = "percentage"
)

// Bounty categories.
const (
	CategoryDigital  = "digital"
	CategoryPhysical = "physical"
)

// Handler capability names, as declared in an offering manifest.
const (
	CapabilityExecute        = "execute"
	CapabilityValidate       = "validate"
	CapabilityRequestPayment = "request_payment"
	CapabilityRequestFunds   = "request_funds"
)

// Default limits and messages.
const (
	DefaultPaymentMessage   = "Please proceed with payment to start the job."
	DefaultRejectReason     = "Requested offering is not available from this agent."
	DefaultValidationReason = "Request did not pass offering validation."
)
