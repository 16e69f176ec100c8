package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSChannel subscribes to the marketplace's JetStream push feed. Reconnection
// and backoff are owned by the NATS client; this type only opens, feeds, and
// closes the subscription.
type NATSChannel struct {
	URL string // e.g. "nats://events.acp.example:4222"
}

// NewNATSChannel returns a channel against the given NATS URL.
func NewNATSChannel(url string) *NATSChannel {
	return &NATSChannel{URL: url}
}

type natsSubscription struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

func (s *natsSubscription) Close() error {
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

// Subscribe opens a durable push consumer for the wallet's job events. Every
// message is acked exactly once, before the handler runs: a malformed payload is
// logged and dropped rather than left to poison redelivery.
func (c *NATSChannel) Subscribe(ctx context.Context, wallet string, fn Handler) (Subscription, error) {
	if strings.TrimSpace(wallet) == "" {
		return nil, fmt.Errorf("events: wallet is required")
	}

	conn, err := nats.Connect(c.URL,
		nats.Name("sentinel-"+strings.ToLower(wallet)),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("event channel disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("event channel reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", c.URL, err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: jetstream: %w", err)
	}

	durable := "sentinel-" + strings.ToLower(wallet)
	sub, err := js.Subscribe(SubjectFor(wallet), func(msg *nats.Msg) {
		ev, err := DecodeEvent(msg.Data)
		_ = msg.Ack()
		if err != nil {
			slog.Warn("event channel: dropping malformed event", "subject", msg.Subject, "err", err)
			return
		}
		fn(ctx, ev)
	}, nats.ManualAck(), nats.Durable(durable))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: subscribe %s: %w", SubjectFor(wallet), err)
	}

	slog.Info("event channel open", "subject", SubjectFor(wallet), "durable", durable)
	return &natsSubscription{conn: conn, sub: sub}, nil
}
