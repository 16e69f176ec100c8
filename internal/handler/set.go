// Package handler defines the capability table for offering business logic and
// the subprocess loader that builds one from an offering's handler program.
// The job state machine depends only on Set, never on how it was loaded.
package handler

import (
	"context"
	"fmt"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// Request is the input given to every handler capability for one job.
type Request struct {
	JobID         int64          `json:"job_id"`
	Offering      string         `json:"offering"`
	Requirements  map[string]any `json:"requirements,omitempty"`
	Price         float64        `json:"price,omitempty"`
	ClientAddress string         `json:"client_address,omitempty"`
}

// ValidationResult is the normalized outcome of a Validate capability. The
// loader accepts both the bare-boolean and the structured reply forms and
// normalizes here; the ambiguity never leaks past this package.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ExecuteResult is the outcome of an Execute capability.
type ExecuteResult struct {
	Deliverable models.Deliverable    `json:"deliverable"`
	Payable     *models.PayableDetail `json:"payable,omitempty"`
}

// Set is the capability table for one offering. Execute is required; the rest
// are optional and nil when the offering does not declare them.
type Set struct {
	Execute        func(ctx context.Context, req Request) (ExecuteResult, error)
	Validate       func(ctx context.Context, req Request) (ValidationResult, error)
	RequestPayment func(ctx context.Context, req Request) (string, error)
	RequestFunds   func(ctx context.Context, req Request) (models.FundsRequest, error)
}

// Capabilities returns the declared capability names present on the set.
func (s Set) Capabilities() []string {
	var caps []string
	if s.Execute != nil {
		caps = append(caps, models.CapabilityExecute)
	}
	if s.Validate != nil {
		caps = append(caps, models.CapabilityValidate)
	}
	if s.RequestPayment != nil {
		caps = append(caps, models.CapabilityRequestPayment)
	}
	if s.RequestFunds != nil {
		caps = append(caps, models.CapabilityRequestFunds)
	}
	return caps
}

// Check verifies the structural handler invariants for a set serving a config
// with the given flags. It returns every violation found, not just the first.
func Check(caps map[string]bool, requiresExternalFunds bool) []error {
	var errs []error
	if !caps[models.CapabilityExecute] {
		errs = append(errs, fmt.Errorf("handler must provide the %s capability", models.CapabilityExecute))
	}
	hasFunds := caps[models.CapabilityRequestFunds]
	if requiresExternalFunds && !hasFunds {
		errs = append(errs, fmt.Errorf("requires_external_funds is true but the %s capability is missing", models.CapabilityRequestFunds))
	}
	if !requiresExternalFunds && hasFunds {
		errs = append(errs, fmt.Errorf("handler provides %s but requires_external_funds is false", models.CapabilityRequestFunds))
	}
	for name := range caps {
		switch name {
		case models.CapabilityExecute, models.CapabilityValidate, models.CapabilityRequestPayment, models.CapabilityRequestFunds:
		default:
			errs = append(errs, fmt.Errorf("unknown handler capability %q", name))
		}
	}
	return errs
}
