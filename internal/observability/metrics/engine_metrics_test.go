package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestEngineMetrics_ObserveSale(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewEngineMetrics(registry, Config{Environment: "test"})

	m.ObserveSale("Paid", 3)
	m.ObserveSale("Credit", 1)
	m.IncSaleFailure("INSUFFICIENT_STOCK")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.salesProcessed.WithLabelValues("Paid")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.saleItems))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.saleFailures.WithLabelValues("INSUFFICIENT_STOCK")))
}

func TestNilEngineMetricsAreSafe(t *testing.T) {
	var m *EngineMetrics
	m.ObserveSale("Paid", 1)
	m.IncUsageRejection("sales")
	m.IncInvoiceTransition("sent", "paid")
}
