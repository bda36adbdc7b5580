package journal

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/thebtf/decision-fitness/internal/journal"

// journalMetrics counts journal writes through the global meter provider.
type journalMetrics struct {
	saved    metric.Int64Counter
	writes   metric.Int64Counter
	failures metric.Int64Counter
	rejected metric.Int64Counter
}

func newJournalMetrics() journalMetrics {
	meter := otel.Meter(meterName)
	return journalMetrics{
		saved: counter(meter, "journal.decisions.saved",
			"Decisions saved", "{decision}"),
		writes: counter(meter, "journal.writes.total",
			"Persisted journal writes by operation", "{write}"),
		failures: counter(meter, "journal.writes.failed",
			"Journal writes rolled back after a store failure", "{write}"),
		rejected: counter(meter, "journal.saves.rejected",
			"Saves rejected by the quota policy", "{decision}"),
	}
}

func counter(meter metric.Meter, name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Metric disabled")
		return noop.Int64Counter{}
	}
	return c
}

func (m journalMetrics) write(ctx context.Context, op string, err error) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	if err != nil {
		m.failures.Add(ctx, 1, attrs)
		return
	}
	m.writes.Add(ctx, 1, attrs)
}
