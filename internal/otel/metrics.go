package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce   sync.Once
	jobEventsCounter  metric.Int64Counter
	deliveriesCounter metric.Int64Counter
	handlerFailures   metric.Int64Counter
	reconcileCounter  metric.Int64Counter
	reconcileDuration metric.Float64Histogram
	bountiesCleaned   metric.Int64Counter
)

// InitMetrics creates the meter instruments. Safe to call multiple times; only
// runs once. Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		jobEventsCounter, err = m.Int64Counter("sentinel_job_events_total", metric.WithDescription("Job lifecycle events received, by phase and outcome"))
		if err != nil {
			return
		}
		deliveriesCounter, err = m.Int64Counter("sentinel_deliveries_total", metric.WithDescription("Deliverables sent to buyers"))
		if err != nil {
			return
		}
		handlerFailures, err = m.Int64Counter("sentinel_handler_failures_total", metric.WithDescription("Offering handler invocations that failed"))
		if err != nil {
			return
		}
		reconcileCounter, err = m.Int64Counter("sentinel_reconcile_passes_total", metric.WithDescription("Bounty reconciliation passes"))
		if err != nil {
			return
		}
		reconcileDuration, err = m.Float64Histogram("sentinel_reconcile_duration_seconds", metric.WithDescription("Bounty reconciliation pass duration in seconds"))
		if err != nil {
			return
		}
		bountiesCleaned, err = m.Int64Counter("sentinel_bounties_cleaned_total", metric.WithDescription("Bounties removed after reaching a terminal state"))
	})
	return err
}

// RecordJobEvent records one inbound job event and its handling outcome.
func RecordJobEvent(ctx context.Context, phase, outcome string) {
	if jobEventsCounter == nil {
		return
	}
	jobEventsCounter.Add(ctx, 1, metric.WithAttributes(AttrPhase.String(phase), AttrOutcome.String(outcome)))
}

// RecordDelivery records one deliverable sent for an offering.
func RecordDelivery(ctx context.Context, offeringName string) {
	if deliveriesCounter == nil {
		return
	}
	deliveriesCounter.Add(ctx, 1, metric.WithAttributes(AttrOffering.String(offeringName)))
}

// RecordHandlerFailure records a failed handler invocation.
func RecordHandlerFailure(ctx context.Context, offeringName, capability string) {
	if handlerFailures == nil {
		return
	}
	handlerFailures.Add(ctx, 1, metric.WithAttributes(AttrOffering.String(offeringName), AttrOutcome.String(capability)))
}

// RecordReconcilePass records one reconciliation pass and its duration.
func RecordReconcilePass(ctx context.Context, duration time.Duration) {
	if reconcileCounter != nil {
		reconcileCounter.Add(ctx, 1)
	}
	if reconcileDuration != nil {
		reconcileDuration.Record(ctx, duration.Seconds())
	}
}

// RecordBountyCleaned records one bounty cleaned with its terminal status.
func RecordBountyCleaned(ctx context.Context, status string) {
	if bountiesCleaned == nil {
		return
	}
	bountiesCleaned.Add(ctx, 1, metric.WithAttributes(AttrStatus.String(status)))
}
