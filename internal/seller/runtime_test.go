package seller

import (
	"context"
	"testing"
	"time"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/events"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/identity"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

type fakeChannel struct {
	wallet  string
	deliver chan models.JobEvent
	closed  chan struct{}
}

type fakeSubscription struct {
	ch *fakeChannel
}

func (s *fakeSubscription) Close() error {
	close(s.ch.closed)
	return nil
}

func (c *fakeChannel) Subscribe(ctx context.Context, wallet string, fn events.Handler) (events.Subscription, error) {
	c.wallet = wallet
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-c.deliver:
				fn(ctx, ev)
			}
		}
	}()
	return &fakeSubscription{ch: c}, nil
}

func TestRuntime_subscribesAndClosesOnCancel(t *testing.T) {
	t.Parallel()
	ch := &fakeChannel{deliver: make(chan models.JobEvent), closed: make(chan struct{})}
	market := &fakeMarket{}
	rt := &Runtime{
		Machine: machine(market, nil),
		Channel: ch,
		Profile: identity.Profile{Name: "trader", Wallet: "0xabc"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	// Give the runtime a moment to subscribe, then shut down.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	select {
	case <-ch.closed:
	default:
		t.Fatal("subscription was not closed on shutdown")
	}
	if ch.wallet != "0xabc" {
		t.Errorf("subscribed wallet: got %q", ch.wallet)
	}
}

func TestRuntime_requiresWallet(t *testing.T) {
	t.Parallel()
	rt := &Runtime{
		Machine: machine(&fakeMarket{}, nil),
		Channel: &fakeChannel{deliver: make(chan models.JobEvent), closed: make(chan struct{})},
		Profile: identity.Profile{Name: "trader"},
	}
	if err := rt.Run(context.Background()); err == nil {
		t.Fatal("expected error without wallet")
	}
}
