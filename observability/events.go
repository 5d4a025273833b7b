package observability

import (
	"tokensale/core/events"
)

// MetricsEmitter bridges structured sale events into prometheus counters. It
// satisfies events.Emitter so hosts can chain it in front of another emitter
// without the engine knowing about metrics.
type MetricsEmitter struct {
	metrics *SaleMetricsRegistry
	next    events.Emitter
}

// NewMetricsEmitter wraps the provided emitter with metric recording. A nil
// next emitter discards events after counting them.
func NewMetricsEmitter(next events.Emitter) *MetricsEmitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &MetricsEmitter{metrics: SaleMetrics(), next: next}
}

// Emit records the event in the metrics registry and forwards it downstream.
func (m *MetricsEmitter) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	switch payload := evt.(type) {
	case events.SalePurchaseSettled:
		m.metrics.RecordSettlement(payload.Value, payload.Tokens)
	case events.SaleAllocationUpdated:
		m.metrics.RecordAllocationUpdate()
	}
	m.next.Emit(evt)
}
