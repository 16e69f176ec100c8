package store

import (
	"errors"
	"time"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// ErrNotFound is returned for lookups of records that do not exist.
var ErrNotFound = errors.New("store: record not found")

// RuntimeRecord identifies a live seller runtime process. One runtime per machine;
// a record whose PID no longer maps to a live process is treated as absent.
type RuntimeRecord struct {
	PID       int       `json:"pid"`
	Wallet    string    `json:"wallet"`
	Identity  string    `json:"identity"`
	StartedAt time.Time `json:"started_at"`
}

// Store is the persistence interface for bounties, the active agent identity, and
// the seller runtime record. The file implementation reads and rewrites whole JSON
// documents; callers must not assume partial updates or cross-call transactions.
type Store interface {
	// Bounties. Exactly one record per bounty id; Put replaces.
	GetBounty(id string) (models.Bounty, error)
	PutBounty(b models.Bounty) error
	ListBounties() ([]models.Bounty, error)
	DeleteBounty(id string) error

	// Active agent identity (name of the profile currently in use).
	GetActiveAgent() (string, error)
	SetActiveAgent(name string) error
	ClearActiveAgent() error

	// Seller runtime record.
	GetRuntimeRecord() (RuntimeRecord, error)
	SetRuntimeRecord(r RuntimeRecord) error
	ClearRuntimeRecord() error
}
