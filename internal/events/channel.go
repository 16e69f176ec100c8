// Package events provides the job event channel: a persistent push subscription
// delivering job lifecycle events for one wallet address. Each event is
// acknowledged to the transport before business handling; business failures are
// logged by the handler, never signaled as transport NAKs.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// Handler processes one inbound job event. The event is already acknowledged by
// the time the handler runs; the handler owns logging its own failures.
type Handler func(ctx context.Context, ev models.JobEvent)

// Subscription is a live event subscription. Close drains and disconnects.
type Subscription interface {
	Close() error
}

// Channel is a push-event transport keyed by wallet address.
type Channel interface {
	Subscribe(ctx context.Context, wallet string, fn Handler) (Subscription, error)
}

// SubjectFor returns the transport subject carrying job events for a wallet.
func SubjectFor(wallet string) string {
	return "acp.jobs." + strings.ToLower(strings.TrimSpace(wallet))
}

// DecodeEvent parses a raw event payload. A payload without a job id is
// malformed: the event cannot be attributed to any job, so it is unusable.
func DecodeEvent(data []byte) (models.JobEvent, error) {
	var ev models.JobEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.JobEvent{}, fmt.Errorf("decode job event: %w", err)
	}
	if ev.JobID == 0 {
		return models.JobEvent{}, fmt.Errorf("decode job event: missing job id")
	}
	return ev, nil
}
