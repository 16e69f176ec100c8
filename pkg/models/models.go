// Package models provides shared types for the ACP marketplace APIs and external tools.
// These types mirror the API JSON and are stable for use by internal clients and the CLI.
package models

import (
	"encoding/json"
	"time"
)

// AgentInfo is a marketplace agent profile as returned by browse/lookup calls.
type AgentInfo struct {
	Wallet      string            `json:"wallet"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Offerings   []OfferingListing `json:"offerings,omitempty"`
	CreatedAt   time.Time         `json:"created_at,omitempty"`
}

// OfferingListing is the marketplace-visible form of a seller offering.
type OfferingListing struct {
	Name                  string         `json:"name"`
	Description           string         `json:"description,omitempty"`
	FeeAmount             float64        `json:"fee_amount"`
	FeeKind               string         `json:"fee_kind"`
	RequiresExternalFunds bool           `json:"requires_external_funds"`
	RequirementSchema     map[string]any `json:"requirement_schema,omitempty"`
	SLAMinutes            int            `json:"sla_minutes,omitempty"`
}

// Job is a single buyer/seller transaction tracked by the marketplace.
// This system never persists jobs; every read is a fresh fetch or a pushed event.
type Job struct {
	JobID           int64     `json:"job_id"`
	Phase           JobPhase  `json:"phase"`
	Memos           []Memo    `json:"memos,omitempty"`
	ClientAddress   string    `json:"client_address"`
	ProviderAddress string    `json:"provider_address"`
	Price           float64   `json:"price,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// Memo is one record on a job's append-only memo history.
type Memo struct {
	MemoID    int64    `json:"memo_id"`
	Type      string   `json:"type,omitempty"`
	Content   string   `json:"content,omitempty"`
	NextPhase JobPhase `json:"next_phase,omitempty"`
	Signed    bool     `json:"signed,omitempty"`
}

// JobEvent is a job lifecycle event pushed by the marketplace over the event channel.
type JobEvent struct {
	JobID           int64    `json:"job_id"`
	Phase           JobPhase `json:"phase"`
	Memo            Memo     `json:"memo"`
	ClientAddress   string   `json:"client_address,omitempty"`
	ProviderAddress string   `json:"provider_address,omitempty"`
	Price           float64  `json:"price,omitempty"`
}

// NegotiationPayload is the JSON body embedded in a negotiation memo: the offering
// the buyer wants plus the buyer-supplied requirement values.
type NegotiationPayload struct {
	Offering     string         `json:"offering"`
	Requirements map[string]any `json:"requirements,omitempty"`
}

// FundsRequest instructs the marketplace to move buyer funds to a recipient as part
// of a payment request. Content, when set, is a human-readable payment message.
type FundsRequest struct {
	Amount       float64 `json:"amount"`
	TokenAddress string  `json:"token_address"`
	Recipient    string  `json:"recipient"`
	Content      string  `json:"content,omitempty"`
}

// PayableDetail instructs the marketplace to return funds to the buyer alongside a
// delivery (e.g. refunds or swap outputs).
type PayableDetail struct {
	TokenAddress string  `json:"token_address"`
	Amount       float64 `json:"amount"`
}

// Deliverable is the result payload sent to the buyer on job completion.
type Deliverable struct {
	Type  string          `json:"type,omitempty"`
	Value json.RawMessage `json:"value"`
}

// Bounty is the locally persisted mirror of a remote bounty resource.
// PosterSecret is assigned at creation and never re-derivable; losing it makes the
// bounty unmanageable.
type Bounty struct {
	BountyID             string       `json:"bounty_id"`
	Status               BountyStatus `json:"status"`
	Title                string       `json:"title"`
	Description          string       `json:"description,omitempty"`
	Budget               float64      `json:"budget"`
	Category             string       `json:"category"`
	PosterSecret         string       `json:"poster_secret"`
	SelectedCandidateID  string       `json:"selected_candidate_id,omitempty"`
	LinkedJobID          int64        `json:"linked_job_id,omitempty"`
	NotifiedPendingMatch bool         `json:"notified_pending_match,omitempty"`
	SourceChannel        string       `json:"source_channel,omitempty"`
	CreatedAt            time.Time    `json:"created_at,omitempty"`
	UpdatedAt            time.Time    `json:"updated_at,omitempty"`
}

// Candidate is a loosely-typed seller candidate record from the bounty board.
// The remote schema is not stable; field access goes through the alias tables in
// internal/bounty rather than fixed struct fields.
type Candidate map[string]any

// TokenLaunch describes an on-chain token launch request.
type TokenLaunch struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// TokenLaunchResult is the marketplace's response to a token launch.
type TokenLaunchResult struct {
	TokenAddress string `json:"token_address"`
	TxHash       string `json:"tx_hash,omitempty"`
}
