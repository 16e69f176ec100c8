package seller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/events"
	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/internal/identity"
)

// Runtime binds the state machine to one identity's event subscription. It is
// the long-lived body of the seller daemon.
type Runtime struct {
	Machine *Machine
	Channel events.Channel
	Profile identity.Profile
}

// Run subscribes to the identity's job events and blocks until ctx is
// cancelled, then closes the channel. Event handling happens on the channel's
// delivery goroutine; the machine itself holds no cross-event state, so no
// further synchronization is needed here.
func (r *Runtime) Run(ctx context.Context) error {
	if r.Profile.Wallet == "" {
		return fmt.Errorf("seller runtime: profile wallet is required")
	}
	sub, err := r.Channel.Subscribe(ctx, r.Profile.Wallet, r.Machine.HandleEvent)
	if err != nil {
		return fmt.Errorf("seller runtime: %w", err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			slog.Warn("event channel close failed", "err", err)
		}
	}()

	slog.Info("seller runtime listening", "identity", r.Profile.Name, "wallet", r.Profile.Wallet)
	<-ctx.Done()
	slog.Info("seller runtime shutting down", "identity", r.Profile.Name)
	return nil
}
