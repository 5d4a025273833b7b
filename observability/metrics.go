package observability

import (
	"math"
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SaleMetricsRegistry tracks settlement activity for the sale module.
type SaleMetricsRegistry struct {
	settlements       prometheus.Counter
	valueReceived     prometheus.Counter
	tokensMinted      prometheus.Counter
	allocationUpdates prometheus.Counter
	rejectedPurchases *prometheus.CounterVec
}

var (
	saleMetricsOnce sync.Once
	saleRegistry    *SaleMetricsRegistry
)

// SaleMetrics returns the lazily-initialised metrics registry for the sale
// module.
func SaleMetrics() *SaleMetricsRegistry {
	saleMetricsOnce.Do(func() {
		saleRegistry = &SaleMetricsRegistry{
			settlements: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tokensale",
				Subsystem: "sale",
				Name:      "settlements_total",
				Help:      "Count of purchases that committed successfully.",
			}),
			valueReceived: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tokensale",
				Subsystem: "sale",
				Name:      "value_received_total",
				Help:      "Running sum of value forwarded to the collection account.",
			}),
			tokensMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tokensale",
				Subsystem: "sale",
				Name:      "tokens_minted_total",
				Help:      "Running sum of tokens minted by settled purchases.",
			}),
			allocationUpdates: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "tokensale",
				Subsystem: "sale",
				Name:      "allocation_updates_total",
				Help:      "Count of administrative allocation overwrites.",
			}),
			rejectedPurchases: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tokensale",
				Subsystem: "sale",
				Name:      "rejected_purchases_total",
				Help:      "Count of rejected purchases segmented by failure reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			saleRegistry.settlements,
			saleRegistry.valueReceived,
			saleRegistry.tokensMinted,
			saleRegistry.allocationUpdates,
			saleRegistry.rejectedPurchases,
		)
	})
	return saleRegistry
}

// RecordSettlement counts one committed purchase and its amounts.
func (m *SaleMetricsRegistry) RecordSettlement(value, tokens *big.Int) {
	if m == nil {
		return
	}
	m.settlements.Inc()
	m.valueReceived.Add(bigToFloat(value))
	m.tokensMinted.Add(bigToFloat(tokens))
}

// RecordAllocationUpdate counts one administrative overwrite.
func (m *SaleMetricsRegistry) RecordAllocationUpdate() {
	if m == nil {
		return
	}
	m.allocationUpdates.Inc()
}

// RecordRejectedPurchase counts one rejected purchase by reason.
func (m *SaleMetricsRegistry) RecordRejectedPurchase(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.rejectedPurchases.WithLabelValues(reason).Inc()
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
