// Package seller runs the seller-side job state machine: it consumes job
// lifecycle events pushed by the marketplace and drives each job's offering
// handlers through accept/reject, payment request, execution and delivery.
//
// The machine keeps no per-job local state. Every decision is derived from the
// inbound event plus a fresh offering load, which is what makes duplicate and
// out-of-order delivery safe: replaying an event reproduces the same
// marketplace calls instead of corrupting anything.
package seller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/handler"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/offering"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/otel"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// Marketplace is the subset of the marketplace API the state machine calls.
type Marketplace interface {
	GetJob(ctx context.Context, jobID int64) (*models.Job, error)
	AcceptJob(ctx context.Context, jobID int64, reason string) error
	RejectJob(ctx context.Context, jobID int64, reason string) error
	RequestPayment(ctx context.Context, jobID int64, message string, funds *models.FundsRequest) error
	DeliverJob(ctx context.Context, jobID int64, deliverable models.Deliverable, payable *models.PayableDetail) error
}

// Loader resolves offerings within one identity's namespace.
type Loader interface {
	Load(name, identity string) (*offering.Offering, error)
}

// Machine handles job events for one seller identity.
type Machine struct {
	Market    Marketplace
	Offerings Loader
	Identity  string // profile slug scoping the offering namespace
}

// HandleEvent processes one inbound job event. The event is already
// acknowledged to the transport; all failures here are logged with the job id
// and swallowed, so a bad job never takes the runtime down.
func (m *Machine) HandleEvent(ctx context.Context, ev models.JobEvent) {
	switch ev.Phase {
	case models.PhaseRequest:
		m.handleRequest(ctx, ev)
	case models.PhaseTransaction:
		m.handleTransaction(ctx, ev)
	default:
		// Evaluation and terminal phases are informational for the seller.
		slog.Info("ignoring job event", "job", ev.JobID, "phase", ev.Phase)
		otel.RecordJobEvent(ctx, string(ev.Phase), "ignored")
	}
}

// handleRequest runs the request-phase sequence: resolve offering, validate,
// accept, request payment.
func (m *Machine) handleRequest(ctx context.Context, ev models.JobEvent) {
	payload, err := negotiationPayload(ev.Memo)
	if err != nil || payload.Offering == "" {
		slog.Warn("job request without resolvable offering, rejecting", "job", ev.JobID, "err", err)
		m.reject(ctx, ev.JobID, models.DefaultRejectReason)
		otel.RecordJobEvent(ctx, string(ev.Phase), "rejected")
		return
	}

	off, err := m.Offerings.Load(payload.Offering, m.Identity)
	if err != nil {
		slog.Warn("offering failed to load, rejecting job", "job", ev.JobID, "offering", payload.Offering, "err", err)
		m.reject(ctx, ev.JobID, models.DefaultRejectReason)
		otel.RecordJobEvent(ctx, string(ev.Phase), "rejected")
		return
	}

	req := handler.Request{
		JobID:         ev.JobID,
		Offering:      off.Config.Name,
		Requirements:  payload.Requirements,
		Price:         ev.Price,
		ClientAddress: ev.ClientAddress,
	}

	if off.Handlers.Validate != nil {
		result, err := guard(ev.JobID, models.CapabilityValidate, func() (handler.ValidationResult, error) {
			return off.Handlers.Validate(ctx, req)
		})
		if err != nil {
			slog.Error("validate handler failed", "job", ev.JobID, "offering", off.Config.Name, "err", err)
			otel.RecordHandlerFailure(ctx, off.Config.Name, models.CapabilityValidate)
			otel.RecordJobEvent(ctx, string(ev.Phase), "handler_error")
			return
		}
		if !result.Valid {
			reason := strings.TrimSpace(result.Reason)
			if reason == "" {
				reason = models.DefaultValidationReason
			}
			slog.Info("job request failed validation, rejecting", "job", ev.JobID, "offering", off.Config.Name, "reason", reason)
			m.reject(ctx, ev.JobID, reason)
			otel.RecordJobEvent(ctx, string(ev.Phase), "rejected")
			return
		}
	}

	if err := m.Market.AcceptJob(ctx, ev.JobID, "offer accepted"); err != nil {
		slog.Error("accept call failed", "job", ev.JobID, "err", err)
	}

	var funds *models.FundsRequest
	if off.Config.RequiresExternalFunds {
		if off.Handlers.RequestFunds == nil {
			slog.Error("offering requires external funds but has no request_funds handler", "job", ev.JobID, "offering", off.Config.Name)
			otel.RecordJobEvent(ctx, string(ev.Phase), "handler_error")
			return
		}
		fr, err := guard(ev.JobID, models.CapabilityRequestFunds, func() (models.FundsRequest, error) {
			return off.Handlers.RequestFunds(ctx, req)
		})
		if err != nil {
			slog.Error("request_funds handler failed", "job", ev.JobID, "offering", off.Config.Name, "err", err)
			otel.RecordHandlerFailure(ctx, off.Config.Name, models.CapabilityRequestFunds)
			otel.RecordJobEvent(ctx, string(ev.Phase), "handler_error")
			return
		}
		funds = &fr
	}

	message, err := m.paymentMessage(ctx, off, req, funds)
	if err != nil {
		slog.Error("request_payment handler failed", "job", ev.JobID, "offering", off.Config.Name, "err", err)
		otel.RecordHandlerFailure(ctx, off.Config.Name, models.CapabilityRequestPayment)
		otel.RecordJobEvent(ctx, string(ev.Phase), "handler_error")
		return
	}

	// An accept that succeeded is not rolled back if this call fails; the
	// marketplace expires stalled jobs on its own.
	if err := m.Market.RequestPayment(ctx, ev.JobID, message, funds); err != nil {
		slog.Error("request payment call failed", "job", ev.JobID, "err", err)
		otel.RecordJobEvent(ctx, string(ev.Phase), "market_error")
		return
	}
	slog.Info("payment requested", "job", ev.JobID, "offering", off.Config.Name)
	otel.RecordJobEvent(ctx, string(ev.Phase), "payment_requested")
}

// paymentMessage picks the human-readable payment text: a custom
// request_payment handler wins, then the funds request's content, then the
// fixed default.
func (m *Machine) paymentMessage(ctx context.Context, off *offering.Offering, req handler.Request, funds *models.FundsRequest) (string, error) {
	if off.Handlers.RequestPayment != nil {
		msg, err := guard(req.JobID, models.CapabilityRequestPayment, func() (string, error) {
			return off.Handlers.RequestPayment(ctx, req)
		})
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(msg) != "" {
			return msg, nil
		}
	}
	if funds != nil && strings.TrimSpace(funds.Content) != "" {
		return funds.Content, nil
	}
	return models.DefaultPaymentMessage, nil
}

// handleTransaction executes the offering and delivers the result.
func (m *Machine) handleTransaction(ctx context.Context, ev models.JobEvent) {
	payload, err := negotiationPayload(ev.Memo)
	if err != nil || payload.Offering == "" {
		// Transaction events do not always repeat the negotiation memo; fall
		// back to the job's memo history.
		payload, err = m.payloadFromJob(ctx, ev.JobID)
		if err != nil {
			slog.Error("cannot resolve offering for transaction", "job", ev.JobID, "err", err)
			otel.RecordJobEvent(ctx, string(ev.Phase), "unresolved")
			return
		}
	}

	// Fresh load: considerable time may have passed since the request phase
	// and the offering's files may have changed.
	off, err := m.Offerings.Load(payload.Offering, m.Identity)
	if err != nil {
		slog.Error("offering failed to load for delivery", "job", ev.JobID, "offering", payload.Offering, "err", err)
		otel.RecordJobEvent(ctx, string(ev.Phase), "unresolved")
		return
	}

	req := handler.Request{
		JobID:         ev.JobID,
		Offering:      off.Config.Name,
		Requirements:  payload.Requirements,
		Price:         ev.Price,
		ClientAddress: ev.ClientAddress,
	}

	result, err := guard(ev.JobID, models.CapabilityExecute, func() (handler.ExecuteResult, error) {
		return off.Handlers.Execute(ctx, req)
	})
	if err != nil {
		slog.Error("execute handler failed", "job", ev.JobID, "offering", off.Config.Name, "err", err)
		otel.RecordHandlerFailure(ctx, off.Config.Name, models.CapabilityExecute)
		otel.RecordJobEvent(ctx, string(ev.Phase), "handler_error")
		return
	}

	if err := m.Market.DeliverJob(ctx, ev.JobID, result.Deliverable, result.Payable); err != nil {
		slog.Error("deliver call failed", "job", ev.JobID, "err", err)
		otel.RecordJobEvent(ctx, string(ev.Phase), "market_error")
		return
	}
	slog.Info("job delivered", "job", ev.JobID, "offering", off.Config.Name)
	otel.RecordDelivery(ctx, off.Config.Name)
	otel.RecordJobEvent(ctx, string(ev.Phase), "delivered")
}

func (m *Machine) reject(ctx context.Context, jobID int64, reason string) {
	if err := m.Market.RejectJob(ctx, jobID, reason); err != nil {
		slog.Error("reject call failed", "job", jobID, "err", err)
	}
}

// payloadFromJob re-fetches the job and scans its memo history for the latest
// negotiation payload.
func (m *Machine) payloadFromJob(ctx context.Context, jobID int64) (models.NegotiationPayload, error) {
	job, err := m.Market.GetJob(ctx, jobID)
	if err != nil {
		return models.NegotiationPayload{}, fmt.Errorf("fetch job %d: %w", jobID, err)
	}
	for i := len(job.Memos) - 1; i >= 0; i-- {
		payload, err := negotiationPayload(job.Memos[i])
		if err == nil && payload.Offering != "" {
			return payload, nil
		}
	}
	return models.NegotiationPayload{}, fmt.Errorf("job %d has no negotiation memo", jobID)
}

func negotiationPayload(memo models.Memo) (models.NegotiationPayload, error) {
	if strings.TrimSpace(memo.Content) == "" {
		return models.NegotiationPayload{}, fmt.Errorf("memo %d is empty", memo.MemoID)
	}
	var payload models.NegotiationPayload
	if err := json.Unmarshal([]byte(memo.Content), &payload); err != nil {
		return models.NegotiationPayload{}, fmt.Errorf("memo %d: %w", memo.MemoID, err)
	}
	return payload, nil
}

// guard invokes a handler and converts panics in dynamically loaded handler
// code into errors, keeping one bad job from crashing the runtime.
func guard[T any](jobID int64, capability string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %d: %s handler panicked: %v", jobID, capability, p)
		}
	}()
	return fn()
}
