package bounty

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/market"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/store"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// JobCreator is the slice of the marketplace client needed to place a job
// against a chosen candidate.
type JobCreator interface {
	CreateJob(ctx context.Context, req market.CreateJobRequest) (int64, error)
}

// SelectResult reports the bounty state after a selection decision.
type SelectResult struct {
	Status models.BountyStatus `json:"status"`
	JobID  int64               `json:"job_id,omitempty"`
}

// Selector applies the operator's decision on a pending_match bounty: either
// hire one candidate or reject the whole set.
type Selector struct {
	Store store.Store
	Board Board
	Jobs  JobCreator
}

// rejectAll reports whether the id argument means "decline every candidate".
func rejectAll(candidateID string) bool {
	switch strings.ToLower(strings.TrimSpace(candidateID)) {
	case "", "none", "0":
		return true
	}
	return false
}

// Select acts on a tracked bounty. A candidateID of "none" (or "0", or empty)
// rejects the current candidate set and reopens the bounty; any other value
// hires that candidate by creating a marketplace job and confirming the match.
// answers supplies the buyer-side requirement fields the candidate's offering
// demands.
func (s *Selector) Select(ctx context.Context, bountyID, candidateID string, answers map[string]any) (SelectResult, error) {
	b, err := s.Store.GetBounty(bountyID)
	if err != nil {
		return SelectResult{}, fmt.Errorf("bounty %s: %w", bountyID, err)
	}

	if rejectAll(candidateID) {
		if err := s.Board.RejectCandidates(ctx, b.BountyID, b.PosterSecret); err != nil {
			return SelectResult{}, fmt.Errorf("reject candidates for bounty %s: %w", bountyID, err)
		}
		b.Status = models.BountyOpen
		b.SelectedCandidateID = ""
		b.LinkedJobID = 0
		b.NotifiedPendingMatch = false
		b.UpdatedAt = time.Now().UTC()
		if err := s.Store.PutBounty(b); err != nil {
			return SelectResult{}, err
		}
		return SelectResult{Status: models.BountyOpen}, nil
	}

	// Candidates are never trusted from the local mirror; the decision is
	// checked against the board's current state.
	ms, err := s.Board.GetMatchStatus(ctx, b.BountyID, b.PosterSecret)
	if err != nil {
		return SelectResult{}, fmt.Errorf("match status for bounty %s: %w", bountyID, err)
	}
	if ms.Status != models.BountyPendingMatch || len(ms.Candidates) == 0 {
		return SelectResult{}, fmt.Errorf("bounty %s is no longer awaiting selection (status %s)", bountyID, ms.Status)
	}

	var chosen models.Candidate
	for _, c := range ms.Candidates {
		if CandidateID(c) == candidateID {
			chosen = c
			break
		}
	}
	if chosen == nil {
		return SelectResult{}, fmt.Errorf("bounty %s has no candidate %s", bountyID, candidateID)
	}

	wallet, err := CandidateWallet(chosen)
	if err != nil {
		return SelectResult{}, err
	}
	offeringName, err := CandidateOffering(chosen)
	if err != nil {
		return SelectResult{}, err
	}
	if missing := missingAnswers(chosen, answers); len(missing) > 0 {
		return SelectResult{}, fmt.Errorf("candidate %s requires fields not supplied: %s", candidateID, strings.Join(missing, ", "))
	}

	jobID, err := s.Jobs.CreateJob(ctx, market.CreateJobRequest{
		ProviderAddress: wallet,
		Offering:        offeringName,
		Requirements:    answers,
		Budget:          b.Budget,
		Nonce:           uuid.NewString(),
	})
	if err != nil {
		return SelectResult{}, fmt.Errorf("create job for bounty %s: %w", bountyID, err)
	}
	if err := s.Board.ConfirmMatch(ctx, b.BountyID, b.PosterSecret, candidateID, jobID); err != nil {
		// The job exists either way. The bounty stays pending locally so the
		// operator can retry or resolve it via a later status check.
		return SelectResult{}, fmt.Errorf("job %d created but confirming match for bounty %s failed: %w", jobID, bountyID, err)
	}

	b.Status = models.BountyClaimed
	b.SelectedCandidateID = candidateID
	b.LinkedJobID = jobID
	b.UpdatedAt = time.Now().UTC()
	if err := s.Store.PutBounty(b); err != nil {
		return SelectResult{}, err
	}
	return SelectResult{Status: models.BountyClaimed, JobID: jobID}, nil
}

func missingAnswers(c models.Candidate, answers map[string]any) []string {
	var missing []string
	for _, field := range CandidateRequiredFields(c) {
		if _, ok := answers[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}
