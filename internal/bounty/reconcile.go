package bounty

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/bountyboard"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/otel"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/store"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// Board is the slice of the bounty board client the reconciler needs.
type Board interface {
	GetMatchStatus(ctx context.Context, bountyID, posterSecret string) (*bountyboard.MatchStatus, error)
	ConfirmMatch(ctx context.Context, bountyID, posterSecret, candidateID string, jobID int64) error
	RejectCandidates(ctx context.Context, bountyID, posterSecret string) error
	SyncJobStatus(ctx context.Context, bountyID, posterSecret, status string) error
}

// JobFetcher is the slice of the marketplace client the reconciler needs.
type JobFetcher interface {
	GetJob(ctx context.Context, jobID int64) (*models.Job, error)
}

// PendingBounty is a bounty that newly entered pending_match with candidates
// awaiting a selection decision.
type PendingBounty struct {
	Bounty     models.Bounty      `json:"bounty"`
	Candidates []models.Candidate `json:"candidates"`
}

// ClaimedJob is a claimed bounty whose linked job is still in flight.
type ClaimedJob struct {
	BountyID string          `json:"bounty_id"`
	JobID    int64           `json:"job_id"`
	Phase    models.JobPhase `json:"phase"`
}

// CleanedBounty is a bounty removed from the local store because it reached a
// terminal state remotely.
type CleanedBounty struct {
	BountyID string `json:"bounty_id"`
	Status   string `json:"status"`
}

// BountyError records a per-bounty failure that did not stop the pass.
type BountyError struct {
	BountyID string `json:"bounty_id"`
	Err      string `json:"error"`
}

// Summary is the outcome of one reconciliation pass.
type Summary struct {
	Checked      int             `json:"checked"`
	PendingMatch []PendingBounty `json:"pending_match,omitempty"`
	ClaimedJobs  []ClaimedJob    `json:"claimed_jobs,omitempty"`
	Cleaned      []CleanedBounty `json:"cleaned,omitempty"`
	Errors       []BountyError   `json:"errors,omitempty"`
	StoreEmpty   bool            `json:"store_empty"`
}

// Reconciler advances locally tracked bounties against the remote board and
// marketplace. A pass is read-modify-write per bounty; one bounty failing
// never aborts the rest of the batch.
type Reconciler struct {
	Store store.Store
	Board Board
	Jobs  JobFetcher
}

// Reconcile runs a single pass over every tracked bounty.
func (r *Reconciler) Reconcile(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary

	bounties, err := r.Store.ListBounties()
	if err != nil {
		return sum, fmt.Errorf("list bounties: %w", err)
	}
	sum.Checked = len(bounties)

	for _, b := range bounties {
		if b.Status == models.BountyClaimed && b.LinkedJobID != 0 {
			r.reconcileClaimed(ctx, b, &sum)
		} else {
			r.reconcileUnclaimed(ctx, b, &sum)
		}
	}

	remaining, err := r.Store.ListBounties()
	if err == nil && len(remaining) == 0 {
		sum.StoreEmpty = true
	}
	otel.RecordReconcilePass(ctx, time.Since(start))
	return sum, nil
}

func (r *Reconciler) reconcileClaimed(ctx context.Context, b models.Bounty, sum *Summary) {
	job, err := r.Jobs.GetJob(ctx, b.LinkedJobID)
	if err != nil {
		sum.Errors = append(sum.Errors, BountyError{BountyID: b.BountyID, Err: fmt.Sprintf("fetch job %d: %v", b.LinkedJobID, err)})
		return
	}
	if !job.Phase.Terminal() {
		b.UpdatedAt = time.Now().UTC()
		if err := r.Store.PutBounty(b); err != nil {
			sum.Errors = append(sum.Errors, BountyError{BountyID: b.BountyID, Err: err.Error()})
			return
		}
		sum.ClaimedJobs = append(sum.ClaimedJobs, ClaimedJob{BountyID: b.BountyID, JobID: b.LinkedJobID, Phase: job.Phase})
		return
	}

	status := terminalBountyStatus(job.Phase)
	// Best effort: the board learning the outcome matters less than the
	// local store not re-checking a finished job forever.
	if err := r.Board.SyncJobStatus(ctx, b.BountyID, b.PosterSecret, status); err != nil {
		slog.Warn("sync job status with bounty board failed", "bounty", b.BountyID, "status", status, "error", err)
	}
	if err := r.Store.DeleteBounty(b.BountyID); err != nil {
		sum.Errors = append(sum.Errors, BountyError{BountyID: b.BountyID, Err: err.Error()})
		return
	}
	sum.Cleaned = append(sum.Cleaned, CleanedBounty{BountyID: b.BountyID, Status: status})
	otel.RecordBountyCleaned(ctx, status)
}

func (r *Reconciler) reconcileUnclaimed(ctx context.Context, b models.Bounty, sum *Summary) {
	ms, err := r.Board.GetMatchStatus(ctx, b.BountyID, b.PosterSecret)
	if err != nil {
		sum.Errors = append(sum.Errors, BountyError{BountyID: b.BountyID, Err: fmt.Sprintf("match status: %v", err)})
		return
	}

	if ms.Status.Terminal() {
		if err := r.Store.DeleteBounty(b.BountyID); err != nil {
			sum.Errors = append(sum.Errors, BountyError{BountyID: b.BountyID, Err: err.Error()})
			return
		}
		sum.Cleaned = append(sum.Cleaned, CleanedBounty{BountyID: b.BountyID, Status: string(ms.Status)})
		otel.RecordBountyCleaned(ctx, string(ms.Status))
		return
	}

	b.Status = ms.Status
	if ms.Status != models.BountyPendingMatch {
		// Leaving pending_match re-arms the notification for the next
		// candidate set.
		b.NotifiedPendingMatch = false
	}
	if ms.Status == models.BountyPendingMatch && len(ms.Candidates) > 0 && !b.NotifiedPendingMatch {
		// The flag is sticky: the operator is told about candidates once,
		// not on every subsequent pass.
		b.NotifiedPendingMatch = true
		b.UpdatedAt = time.Now().UTC()
		if err := r.Store.PutBounty(b); err != nil {
			sum.Errors = append(sum.Errors, BountyError{BountyID: b.BountyID, Err: err.Error()})
			return
		}
		sum.PendingMatch = append(sum.PendingMatch, PendingBounty{Bounty: b, Candidates: ms.Candidates})
		return
	}

	b.UpdatedAt = time.Now().UTC()
	if err := r.Store.PutBounty(b); err != nil {
		sum.Errors = append(sum.Errors, BountyError{BountyID: b.BountyID, Err: err.Error()})
	}
}

// terminalBountyStatus maps a finished job phase to the status reported to
// the bounty board. A completed job fulfills the bounty; every other terminal
// phase passes through lowercased.
func terminalBountyStatus(phase models.JobPhase) string {
	if phase == models.PhaseCompleted {
		return "fulfilled"
	}
	return strings.ToLower(string(phase))
}
