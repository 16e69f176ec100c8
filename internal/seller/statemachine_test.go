package seller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/handler"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/offering"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// fakeMarket records the call sequence the machine produces.
type fakeMarket struct {
	mu    sync.Mutex
	calls []string

	job        *models.Job
	jobErr     error
	acceptErr  error
	payErr     error
	deliverErr error
}

func (f *fakeMarket) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeMarket) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeMarket) GetJob(_ context.Context, jobID int64) (*models.Job, error) {
	f.record("get:%d", jobID)
	if f.jobErr != nil {
		return nil, f.jobErr
	}
	return f.job, nil
}

func (f *fakeMarket) AcceptJob(_ context.Context, jobID int64, _ string) error {
	f.record("accept:%d", jobID)
	return f.acceptErr
}

func (f *fakeMarket) RejectJob(_ context.Context, jobID int64, reason string) error {
	f.record("reject:%d:%s", jobID, reason)
	return nil
}

func (f *fakeMarket) RequestPayment(_ context.Context, jobID int64, message string, funds *models.FundsRequest) error {
	if funds != nil {
		f.record("pay:%d:%s:funds=%s", jobID, message, funds.Recipient)
	} else {
		f.record("pay:%d:%s", jobID, message)
	}
	return f.payErr
}

func (f *fakeMarket) DeliverJob(_ context.Context, jobID int64, deliverable models.Deliverable, payable *models.PayableDetail) error {
	if payable != nil {
		f.record("deliver:%d:%s:payable=%v", jobID, deliverable.Value, payable.Amount)
	} else {
		f.record("deliver:%d:%s", jobID, deliverable.Value)
	}
	return f.deliverErr
}

// fakeLoader serves in-memory offerings, proving the machine depends only on
// the capability table, not on how it was loaded.
type fakeLoader struct {
	offerings map[string]*offering.Offering
}

func (f *fakeLoader) Load(name, identity string) (*offering.Offering, error) {
	if identity != "trader" {
		return nil, fmt.Errorf("offering %q (identity %q): %w", name, identity, offering.ErrNotFound)
	}
	off, ok := f.offerings[name]
	if !ok {
		return nil, fmt.Errorf("offering %q: %w", name, offering.ErrNotFound)
	}
	return off, nil
}

func basicOffering(name string, set handler.Set) *offering.Offering {
	return &offering.Offering{
		Config: offering.Config{
			Name:       name,
			Fee:        offering.Fee{Amount: 5, Kind: models.FeeKindFixed},
			SLAMinutes: 60,
		},
		Handlers: set,
	}
}

func executeOK() func(context.Context, handler.Request) (handler.ExecuteResult, error) {
	return func(context.Context, handler.Request) (handler.ExecuteResult, error) {
		return handler.ExecuteResult{Deliverable: models.Deliverable{Type: "text", Value: json.RawMessage(`"done"`)}}, nil
	}
}

func requestEvent(jobID int64, offeringName string) models.JobEvent {
	content, _ := json.Marshal(models.NegotiationPayload{
		Offering:     offeringName,
		Requirements: map[string]any{"text": "hola"},
	})
	return models.JobEvent{
		JobID:         jobID,
		Phase:         models.PhaseRequest,
		Memo:          models.Memo{MemoID: 1, Content: string(content), NextPhase: models.PhaseNegotiation},
		ClientAddress: "0xbuyer",
		Price:         5,
	}
}

func machine(market *fakeMarket, offerings map[string]*offering.Offering) *Machine {
	return &Machine{Market: market, Offerings: &fakeLoader{offerings: offerings}, Identity: "trader"}
}

func TestRequest_acceptAndRequestPayment(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{}
	m := machine(market, map[string]*offering.Offering{
		"translate": basicOffering("translate", handler.Set{Execute: executeOK()}),
	})

	m.HandleEvent(context.Background(), requestEvent(1, "translate"))

	want := []string{"accept:1", "pay:1:" + models.DefaultPaymentMessage}
	if got := market.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls: got %v, want %v", got, want)
	}
}

func TestRequest_unknownOfferingRejected(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{}
	m := machine(market, map[string]*offering.Offering{})

	m.HandleEvent(context.Background(), requestEvent(2, "ghost"))

	want := []string{"reject:2:" + models.DefaultRejectReason}
	if got := market.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls: got %v, want %v", got, want)
	}
}

func TestRequest_unparseableMemoRejected(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{}
	m := machine(market, nil)

	ev := models.JobEvent{JobID: 3, Phase: models.PhaseRequest, Memo: models.Memo{MemoID: 1, Content: "{broken"}}
	m.HandleEvent(context.Background(), ev)

	want := []string{"reject:3:" + models.DefaultRejectReason}
	if got := market.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls: got %v, want %v", got, want)
	}
}

func TestRequest_validateRejects(t *testing.T) {
	t.Parallel()
	// Boolean-form false: generic reason. Structured form: reason verbatim.
	cases := []struct {
		name   string
		result handler.ValidationResult
		want   string
	}{
		{"boolean false", handler.ValidationResult{Valid: false}, models.DefaultValidationReason},
		{"structured reason", handler.ValidationResult{Valid: false, Reason: "budget too low"}, "budget too low"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			market := &fakeMarket{}
			set := handler.Set{
				Execute: executeOK(),
				Validate: func(context.Context, handler.Request) (handler.ValidationResult, error) {
					return tc.result, nil
				},
			}
			m := machine(market, map[string]*offering.Offering{"translate": basicOffering("translate", set)})

			m.HandleEvent(context.Background(), requestEvent(4, "translate"))

			want := []string{"reject:4:" + tc.want}
			if got := market.Calls(); !reflect.DeepEqual(got, want) {
				t.Fatalf("calls: got %v, want %v", got, want)
			}
		})
	}
}

func TestRequest_replayIsIdempotent(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{}
	m := machine(market, map[string]*offering.Offering{
		"translate": basicOffering("translate", handler.Set{Execute: executeOK()}),
	})

	ev := requestEvent(5, "translate")
	m.HandleEvent(context.Background(), ev)
	m.HandleEvent(context.Background(), ev)

	once := []string{"accept:5", "pay:5:" + models.DefaultPaymentMessage}
	want := append(append([]string(nil), once...), once...)
	if got := market.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("replay must reproduce the same calls: got %v, want %v", got, want)
	}
}

func TestRequest_externalFunds(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{}
	off := basicOffering("swap", handler.Set{
		Execute: executeOK(),
		RequestFunds: func(context.Context, handler.Request) (models.FundsRequest, error) {
			return models.FundsRequest{Amount: 10, TokenAddress: "0xtok", Recipient: "0xrec", Content: "send 10 to the vault"}, nil
		},
	})
	off.Config.RequiresExternalFunds = true
	m := machine(market, map[string]*offering.Offering{"swap": off})

	m.HandleEvent(context.Background(), requestEvent(6, "swap"))

	// Funds content is the payment message (no custom request_payment handler)
	// and the funds instruction rides on the payment request.
	want := []string{"accept:6", "pay:6:send 10 to the vault:funds=0xrec"}
	if got := market.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls: got %v, want %v", got, want)
	}
}

func TestRequest_paymentMessagePriority(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{}
	off := basicOffering("swap", handler.Set{
		Execute: executeOK(),
		RequestPayment: func(context.Context, handler.Request) (string, error) {
			return "custom message", nil
		},
		RequestFunds: func(context.Context, handler.Request) (models.FundsRequest, error) {
			return models.FundsRequest{Amount: 1, TokenAddress: "0xtok", Recipient: "0xrec", Content: "funds content"}, nil
		},
	})
	off.Config.RequiresExternalFunds = true
	m := machine(market, map[string]*offering.Offering{"swap": off})

	m.HandleEvent(context.Background(), requestEvent(7, "swap"))

	want := []string{"accept:7", "pay:7:custom message:funds=0xrec"}
	if got := market.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("custom handler message must win: got %v, want %v", got, want)
	}
}

func TestRequest_handlerPanicDoesNotCrash(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{}
	set := handler.Set{
		Execute: executeOK(),
		Validate: func(context.Context, handler.Request) (handler.ValidationResult, error) {
			panic("boom")
		},
	}
	m := machine(market, map[string]*offering.Offering{"translate": basicOffering("translate", set)})

	m.HandleEvent(context.Background(), requestEvent(8, "translate"))

	// A handler crash terminates this job's progress without marketplace calls.
	if got := market.Calls(); len(got) != 0 {
		t.Fatalf("calls after panic: got %v, want none", got)
	}
}

func TestRequest_acceptFailureDoesNotAbortSequence(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{acceptErr: errors.New("network down")}
	m := machine(market, map[string]*offering.Offering{
		"translate": basicOffering("translate", handler.Set{Execute: executeOK()}),
	})

	m.HandleEvent(context.Background(), requestEvent(9, "translate"))

	want := []string{"accept:9", "pay:9:" + models.DefaultPaymentMessage}
	if got := market.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls: got %v, want %v", got, want)
	}
}

func TestTransaction_executeAndDeliver(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{}
	set := handler.Set{
		Execute: func(context.Context, handler.Request) (handler.ExecuteResult, error) {
			return handler.ExecuteResult{
				Deliverable: models.Deliverable{Type: "text", Value: json.RawMessage(`"translated"`)},
				Payable:     &models.PayableDetail{TokenAddress: "0xtok", Amount: 2.5},
			}, nil
		},
	}
	m := machine(market, map[string]*offering.Offering{"translate": basicOffering("translate", set)})

	ev := requestEvent(10, "translate")
	ev.Phase = models.PhaseTransaction
	m.HandleEvent(context.Background(), ev)

	want := []string{`deliver:10:"translated":payable=2.5`}
	if got := market.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls: got %v, want %v", got, want)
	}
}

func TestTransaction_memoFallbackToJobHistory(t *testing.T) {
	t.Parallel()
	content, _ := json.Marshal(models.NegotiationPayload{Offering: "translate", Requirements: map[string]any{"text": "hej"}})
	market := &fakeMarket{
		job: &models.Job{
			JobID: 11,
			Phase: models.PhaseTransaction,
			Memos: []models.Memo{
				{MemoID: 1, Content: "not a payload"},
				{MemoID: 2, Content: string(content)},
			},
		},
	}
	var gotReq handler.Request
	set := handler.Set{
		Execute: func(_ context.Context, req handler.Request) (handler.ExecuteResult, error) {
			gotReq = req
			return handler.ExecuteResult{Deliverable: models.Deliverable{Value: json.RawMessage(`"ok"`)}}, nil
		},
	}
	m := machine(market, map[string]*offering.Offering{"translate": basicOffering("translate", set)})

	// Transaction event without an embedded memo.
	m.HandleEvent(context.Background(), models.JobEvent{JobID: 11, Phase: models.PhaseTransaction})

	want := []string{"get:11", `deliver:11:"ok"`}
	if got := market.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls: got %v, want %v", got, want)
	}
	if gotReq.Requirements["text"] != "hej" {
		t.Fatalf("requirements from job history: got %+v", gotReq.Requirements)
	}
}

func TestTransaction_executeErrorStopsDelivery(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{}
	set := handler.Set{
		Execute: func(context.Context, handler.Request) (handler.ExecuteResult, error) {
			return handler.ExecuteResult{}, errors.New("upstream api 500")
		},
	}
	m := machine(market, map[string]*offering.Offering{"translate": basicOffering("translate", set)})

	ev := requestEvent(12, "translate")
	ev.Phase = models.PhaseTransaction
	m.HandleEvent(context.Background(), ev)

	if got := market.Calls(); len(got) != 0 {
		t.Fatalf("calls after execute error: got %v, want none", got)
	}
}

func TestEvaluationAndTerminalPhases_areNoOps(t *testing.T) {
	t.Parallel()
	market := &fakeMarket{}
	m := machine(market, map[string]*offering.Offering{
		"translate": basicOffering("translate", handler.Set{Execute: executeOK()}),
	})

	for _, phase := range []models.JobPhase{models.PhaseEvaluation, models.PhaseNegotiation, models.PhaseCompleted, models.PhaseRejected, models.PhaseExpired} {
		ev := requestEvent(13, "translate")
		ev.Phase = phase
		m.HandleEvent(context.Background(), ev)
	}

	if got := market.Calls(); len(got) != 0 {
		t.Fatalf("calls for informational phases: got %v, want none", got)
	}
}
