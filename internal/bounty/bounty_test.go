package bounty

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/bountyboard"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/market"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/store"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

type fakeBoard struct {
	calls      []string
	match      map[string]*bountyboard.MatchStatus
	matchErr   map[string]error
	confirmErr error
	rejectErr  error
	createRes  *bountyboard.CreateBountyResult
	createErr  error
}

func (f *fakeBoard) GetMatchStatus(_ context.Context, bountyID, _ string) (*bountyboard.MatchStatus, error) {
	f.calls = append(f.calls, "match:"+bountyID)
	if err := f.matchErr[bountyID]; err != nil {
		return nil, err
	}
	if ms, ok := f.match[bountyID]; ok {
		return ms, nil
	}
	return &bountyboard.MatchStatus{Status: models.BountyOpen}, nil
}

func (f *fakeBoard) ConfirmMatch(_ context.Context, bountyID, _, candidateID string, jobID int64) error {
	f.calls = append(f.calls, fmt.Sprintf("confirm:%s:%s:%d", bountyID, candidateID, jobID))
	return f.confirmErr
}

func (f *fakeBoard) RejectCandidates(_ context.Context, bountyID, _ string) error {
	f.calls = append(f.calls, "rejectcands:"+bountyID)
	return f.rejectErr
}

func (f *fakeBoard) SyncJobStatus(_ context.Context, bountyID, _, status string) error {
	f.calls = append(f.calls, "sync:"+bountyID+":"+status)
	return nil
}

func (f *fakeBoard) CreateBounty(_ context.Context, req bountyboard.CreateBountyRequest) (*bountyboard.CreateBountyResult, error) {
	f.calls = append(f.calls, "create:"+req.Title)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createRes, nil
}

type fakeJobs struct {
	calls     []string
	jobs      map[int64]*models.Job
	jobErr    map[int64]error
	nextJobID int64
	createErr error
}

func (f *fakeJobs) GetJob(_ context.Context, jobID int64) (*models.Job, error) {
	f.calls = append(f.calls, fmt.Sprintf("get:%d", jobID))
	if err := f.jobErr[jobID]; err != nil {
		return nil, err
	}
	if j, ok := f.jobs[jobID]; ok {
		return j, nil
	}
	return nil, fmt.Errorf("job %d not found", jobID)
}

func (f *fakeJobs) CreateJob(_ context.Context, req market.CreateJobRequest) (int64, error) {
	f.calls = append(f.calls, fmt.Sprintf("createjob:%s:%s", req.ProviderAddress, req.Offering))
	if f.createErr != nil {
		return 0, f.createErr
	}
	return f.nextJobID, nil
}

func newStore(t *testing.T) *store.FileStore {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return st
}

func seedBounty(t *testing.T, st store.Store, b models.Bounty) {
	t.Helper()
	if b.Status == "" {
		b.Status = models.BountyOpen
	}
	if b.PosterSecret == "" {
		b.PosterSecret = "secret-" + b.BountyID
	}
	if err := st.PutBounty(b); err != nil {
		t.Fatalf("seed bounty %s: %v", b.BountyID, err)
	}
}

func TestReconcile_oneFailureDoesNotStopTheBatch(t *testing.T) {
	st := newStore(t)
	board := &fakeBoard{matchErr: map[string]error{"b5": fmt.Errorf("board down")}}
	for i := 1; i <= 10; i++ {
		seedBounty(t, st, models.Bounty{BountyID: fmt.Sprintf("b%d", i), Title: "t", Budget: 1})
	}

	r := &Reconciler{Store: st, Board: board, Jobs: &fakeJobs{}}
	sum, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if sum.Checked != 10 {
		t.Fatalf("checked = %d, want 10", sum.Checked)
	}
	if len(sum.Errors) != 1 || sum.Errors[0].BountyID != "b5" {
		t.Fatalf("errors = %+v, want one error for b5", sum.Errors)
	}
	if len(board.calls) != 10 {
		t.Fatalf("board calls = %d, want all 10 bounties polled", len(board.calls))
	}
}

func TestReconcile_completedJobReportsFulfilledAndCleans(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{BountyID: "b1", Status: models.BountyClaimed, LinkedJobID: 42})
	board := &fakeBoard{}
	jobs := &fakeJobs{jobs: map[int64]*models.Job{42: {JobID: 42, Phase: models.PhaseCompleted}}}

	r := &Reconciler{Store: st, Board: board, Jobs: jobs}
	sum, err := r.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	want := []string{"sync:b1:fulfilled"}
	if fmt.Sprint(board.calls) != fmt.Sprint(want) {
		t.Fatalf("board calls = %v, want %v", board.calls, want)
	}
	if len(sum.Cleaned) != 1 || sum.Cleaned[0].Status != "fulfilled" {
		t.Fatalf("cleaned = %+v, want one fulfilled entry", sum.Cleaned)
	}
	if !sum.StoreEmpty {
		t.Fatal("store should be empty after cleaning the only bounty")
	}
	if _, err := st.GetBounty("b1"); err == nil {
		t.Fatal("cleaned bounty still present in store")
	}
}

func TestReconcile_rejectedJobReportsLowercasedPhase(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{BountyID: "b1", Status: models.BountyClaimed, LinkedJobID: 7})
	board := &fakeBoard{}
	jobs := &fakeJobs{jobs: map[int64]*models.Job{7: {JobID: 7, Phase: models.PhaseRejected}}}

	r := &Reconciler{Store: st, Board: board, Jobs: jobs}
	sum, _ := r.Reconcile(context.Background())
	if len(sum.Cleaned) != 1 || sum.Cleaned[0].Status != "rejected" {
		t.Fatalf("cleaned = %+v, want status rejected", sum.Cleaned)
	}
}

func TestReconcile_claimedJobStillRunningIsKept(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{BountyID: "b1", Status: models.BountyClaimed, LinkedJobID: 9})
	jobs := &fakeJobs{jobs: map[int64]*models.Job{9: {JobID: 9, Phase: models.PhaseTransaction}}}

	r := &Reconciler{Store: st, Board: &fakeBoard{}, Jobs: jobs}
	sum, _ := r.Reconcile(context.Background())
	if len(sum.ClaimedJobs) != 1 || sum.ClaimedJobs[0].Phase != models.PhaseTransaction {
		t.Fatalf("claimed jobs = %+v", sum.ClaimedJobs)
	}
	if _, err := st.GetBounty("b1"); err != nil {
		t.Fatalf("in-flight bounty must stay tracked: %v", err)
	}
}

func TestReconcile_jobFetchFailureIsPerBounty(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{BountyID: "b1", Status: models.BountyClaimed, LinkedJobID: 3})
	seedBounty(t, st, models.Bounty{BountyID: "b2"})
	jobs := &fakeJobs{jobErr: map[int64]error{3: fmt.Errorf("market down")}}

	r := &Reconciler{Store: st, Board: &fakeBoard{}, Jobs: jobs}
	sum, _ := r.Reconcile(context.Background())
	if len(sum.Errors) != 1 || sum.Errors[0].BountyID != "b1" {
		t.Fatalf("errors = %+v, want one for b1", sum.Errors)
	}
	if _, err := st.GetBounty("b1"); err != nil {
		t.Fatal("bounty with failed job fetch must not be deleted")
	}
}

func TestReconcile_remoteTerminalStatusCleansBounty(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{BountyID: "b1"})
	board := &fakeBoard{match: map[string]*bountyboard.MatchStatus{"b1": {Status: models.BountyExpired}}}

	r := &Reconciler{Store: st, Board: board, Jobs: &fakeJobs{}}
	sum, _ := r.Reconcile(context.Background())
	if len(sum.Cleaned) != 1 || sum.Cleaned[0].Status != "expired" {
		t.Fatalf("cleaned = %+v, want expired", sum.Cleaned)
	}
	if _, err := st.GetBounty("b1"); err == nil {
		t.Fatal("expired bounty still present")
	}
}

func TestReconcile_pendingMatchNotificationIsSticky(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{BountyID: "b1"})
	board := &fakeBoard{match: map[string]*bountyboard.MatchStatus{
		"b1": {Status: models.BountyPendingMatch, Candidates: []models.Candidate{{"id": "1", "wallet": "0xw"}}},
	}}
	r := &Reconciler{Store: st, Board: board, Jobs: &fakeJobs{}}

	first, _ := r.Reconcile(context.Background())
	if len(first.PendingMatch) != 1 {
		t.Fatalf("first pass pending = %+v, want the new candidate set surfaced", first.PendingMatch)
	}
	b, err := st.GetBounty("b1")
	if err != nil {
		t.Fatalf("get bounty: %v", err)
	}
	if !b.NotifiedPendingMatch || b.Status != models.BountyPendingMatch {
		t.Fatalf("bounty after first pass = %+v", b)
	}

	second, _ := r.Reconcile(context.Background())
	if len(second.PendingMatch) != 0 {
		t.Fatalf("second pass surfaced candidates again: %+v", second.PendingMatch)
	}

	// Leaving pending_match re-arms the notification.
	board.match["b1"] = &bountyboard.MatchStatus{Status: models.BountyOpen}
	if _, err := r.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	board.match["b1"] = &bountyboard.MatchStatus{
		Status: models.BountyPendingMatch, Candidates: []models.Candidate{{"id": "2", "wallet": "0xw2"}},
	}
	fourth, _ := r.Reconcile(context.Background())
	if len(fourth.PendingMatch) != 1 {
		t.Fatalf("new candidate set after reopen must be surfaced, got %+v", fourth.PendingMatch)
	}
}

func TestSelect_noneRejectsAndReopens(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{
		BountyID: "b1", Status: models.BountyPendingMatch,
		SelectedCandidateID: "stale", LinkedJobID: 5, NotifiedPendingMatch: true,
	})
	board := &fakeBoard{}
	sel := &Selector{Store: st, Board: board, Jobs: &fakeJobs{}}

	for _, id := range []string{"none", "0", ""} {
		res, err := sel.Select(context.Background(), "b1", id, nil)
		if err != nil {
			t.Fatalf("select %q: %v", id, err)
		}
		if res.Status != models.BountyOpen {
			t.Fatalf("select %q: status = %s, want open", id, res.Status)
		}
	}
	want := []string{"rejectcands:b1", "rejectcands:b1", "rejectcands:b1"}
	if fmt.Sprint(board.calls) != fmt.Sprint(want) {
		t.Fatalf("board calls = %v, want %v", board.calls, want)
	}
	b, _ := st.GetBounty("b1")
	if b.Status != models.BountyOpen || b.SelectedCandidateID != "" || b.LinkedJobID != 0 || b.NotifiedPendingMatch {
		t.Fatalf("bounty not fully reset: %+v", b)
	}
}

func TestSelect_hiresCandidateAndConfirms(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{BountyID: "b1", Status: models.BountyPendingMatch, Budget: 12.5})
	board := &fakeBoard{match: map[string]*bountyboard.MatchStatus{
		"b1": {Status: models.BountyPendingMatch, Candidates: []models.Candidate{
			{"id": "1", "wallet": "0xprov", "offering": "translate"},
			{"id": "2", "wallet": "0xother", "offering": "summarize"},
		}},
	}}
	jobs := &fakeJobs{nextJobID: 77}
	sel := &Selector{Store: st, Board: board, Jobs: jobs}

	res, err := sel.Select(context.Background(), "b1", "1", map[string]any{"text": "hola"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if res.Status != models.BountyClaimed || res.JobID != 77 {
		t.Fatalf("result = %+v, want claimed with job 77", res)
	}
	wantBoard := []string{"match:b1", "confirm:b1:1:77"}
	if fmt.Sprint(board.calls) != fmt.Sprint(wantBoard) {
		t.Fatalf("board calls = %v, want %v", board.calls, wantBoard)
	}
	wantJobs := []string{"createjob:0xprov:translate"}
	if fmt.Sprint(jobs.calls) != fmt.Sprint(wantJobs) {
		t.Fatalf("job calls = %v, want %v", jobs.calls, wantJobs)
	}
	b, _ := st.GetBounty("b1")
	if b.Status != models.BountyClaimed || b.SelectedCandidateID != "1" || b.LinkedJobID != 77 {
		t.Fatalf("persisted bounty = %+v", b)
	}
}

func TestSelect_missingRequiredAnswers(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{BountyID: "b1", Status: models.BountyPendingMatch})
	board := &fakeBoard{match: map[string]*bountyboard.MatchStatus{
		"b1": {Status: models.BountyPendingMatch, Candidates: []models.Candidate{{
			"id": "1", "wallet": "0xprov", "offering": "translate",
			"requirementSchema": map[string]any{"required": []any{"text", "target_language"}},
		}}},
	}}
	jobs := &fakeJobs{nextJobID: 77}
	sel := &Selector{Store: st, Board: board, Jobs: jobs}

	_, err := sel.Select(context.Background(), "b1", "1", map[string]any{"text": "hola"})
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
	if !strings.Contains(err.Error(), "target_language") {
		t.Fatalf("error %q does not name the missing field", err)
	}
	if len(jobs.calls) != 0 {
		t.Fatalf("no job must be created when answers are incomplete, got %v", jobs.calls)
	}
}

func TestSelect_confirmFailureNamesOrphanJob(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{BountyID: "b1", Status: models.BountyPendingMatch})
	board := &fakeBoard{
		match: map[string]*bountyboard.MatchStatus{
			"b1": {Status: models.BountyPendingMatch, Candidates: []models.Candidate{{"id": "1", "wallet": "0xp", "offering": "t"}}},
		},
		confirmErr: fmt.Errorf("board timeout"),
	}
	sel := &Selector{Store: st, Board: board, Jobs: &fakeJobs{nextJobID: 88}}

	_, err := sel.Select(context.Background(), "b1", "1", nil)
	if err == nil || !strings.Contains(err.Error(), "88") {
		t.Fatalf("error %v must name the created job id", err)
	}
	b, _ := st.GetBounty("b1")
	if b.Status == models.BountyClaimed {
		t.Fatal("bounty must not be claimed locally when confirm fails")
	}
}

func TestSelect_rejectsWhenNotPendingMatch(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{BountyID: "b1", Status: models.BountyPendingMatch})
	board := &fakeBoard{match: map[string]*bountyboard.MatchStatus{"b1": {Status: models.BountyOpen}}}
	sel := &Selector{Store: st, Board: board, Jobs: &fakeJobs{}}

	if _, err := sel.Select(context.Background(), "b1", "1", nil); err == nil {
		t.Fatal("expected error when the bounty is not awaiting selection")
	}
}

func TestSelect_unknownCandidate(t *testing.T) {
	st := newStore(t)
	seedBounty(t, st, models.Bounty{BountyID: "b1", Status: models.BountyPendingMatch})
	board := &fakeBoard{match: map[string]*bountyboard.MatchStatus{
		"b1": {Status: models.BountyPendingMatch, Candidates: []models.Candidate{{"id": "2"}}},
	}}
	sel := &Selector{Store: st, Board: board, Jobs: &fakeJobs{}}

	if _, err := sel.Select(context.Background(), "b1", "1", nil); err == nil {
		t.Fatal("expected error for unknown candidate id")
	}
}

func TestCreate_persistsIDAndSecret(t *testing.T) {
	st := newStore(t)
	board := &fakeBoard{createRes: &bountyboard.CreateBountyResult{BountyID: "bb-9", PosterSecret: "s3cret"}}

	b, err := Create(context.Background(), st, board, CreateRequest{
		Title: "translate docs", Budget: 5, Category: models.CategoryDigital,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.BountyID != "bb-9" || b.PosterSecret != "s3cret" || b.Status != models.BountyOpen {
		t.Fatalf("bounty = %+v", b)
	}
	got, err := st.GetBounty("bb-9")
	if err != nil {
		t.Fatalf("get persisted bounty: %v", err)
	}
	if got.PosterSecret != "s3cret" {
		t.Fatalf("persisted secret = %q, want s3cret", got.PosterSecret)
	}
}

func TestCreate_validation(t *testing.T) {
	st := newStore(t)
	cases := []struct {
		name string
		req  CreateRequest
	}{
		{"no title", CreateRequest{Budget: 1, Category: models.CategoryDigital}},
		{"zero budget", CreateRequest{Title: "t", Category: models.CategoryDigital}},
		{"bad category", CreateRequest{Title: "t", Budget: 1, Category: "virtual"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			board := &fakeBoard{}
			if _, err := Create(context.Background(), st, board, tc.req); err == nil {
				t.Fatal("expected validation error")
			}
			if len(board.calls) != 0 {
				t.Fatalf("board must not be called on invalid input, got %v", board.calls)
			}
		})
	}
}

func TestCandidateAliases(t *testing.T) {
	c := models.Candidate{
		"candidateId":    float64(3),
		"wallet_address": "0xabc",
		"service_name":   "review",
		"requirements":   map[string]any{"required": []any{"repo", "branch"}},
	}
	if got := CandidateID(c); got != "3" {
		t.Fatalf("id = %q, want 3", got)
	}
	if w, err := CandidateWallet(c); err != nil || w != "0xabc" {
		t.Fatalf("wallet = %q, %v", w, err)
	}
	if o, err := CandidateOffering(c); err != nil || o != "review" {
		t.Fatalf("offering = %q, %v", o, err)
	}
	if got := CandidateRequiredFields(c); len(got) != 2 || got[0] != "repo" {
		t.Fatalf("required fields = %v", got)
	}

	if _, err := CandidateWallet(models.Candidate{"id": "1"}); err == nil {
		t.Fatal("expected error for candidate without wallet")
	}
}
