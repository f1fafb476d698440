package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics counts business outcomes of the sales engine.
type EngineMetrics struct {
	salesProcessed    *prometheus.CounterVec
	saleFailures      *prometheus.CounterVec
	saleItems         prometheus.Counter
	stockConflicts    prometheus.Counter
	salesReversed     prometheus.Counter
	partialPayments   *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	usageRejections   *prometheus.CounterVec
	invoiceTransition *prometheus.CounterVec
}

var (
	engineMetricsOnce sync.Once
	engineMetrics     *EngineMetrics
)

// Engine returns the singleton engine metrics registry.
func Engine() *EngineMetrics {
	return EngineWithConfig(Config{})
}

func EngineWithConfig(cfg Config) *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = NewEngineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return engineMetrics
}

func NewEngineMetrics(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	m := &EngineMetrics{
		salesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "salesengine_sales_processed_total",
			Help:        "Committed sales by initial payment status.",
			ConstLabels: constLabels,
		}, []string{"payment_status"}),
		saleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "salesengine_sale_failures_total",
			Help:        "Rejected sales by error kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		saleItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "salesengine_sale_items_total",
			Help:        "Sale line items committed.",
			ConstLabels: constLabels,
		}),
		stockConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "salesengine_stock_conflicts_total",
			Help:        "Conditional stock decrements that matched no row.",
			ConstLabels: constLabels,
		}),
		salesReversed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "salesengine_sales_reversed_total",
			Help:        "Sales reversed with inventory restored.",
			ConstLabels: constLabels,
		}),
		partialPayments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "salesengine_partial_payments_total",
			Help:        "Partial payments by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "salesengine_payment_status_transitions_total",
			Help:        "Sale payment status transitions.",
			ConstLabels: constLabels,
		}, []string{"from", "to"}),
		usageRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "salesengine_usage_limit_rejections_total",
			Help:        "Usage increments refused because the limit was reached.",
			ConstLabels: constLabels,
		}, []string{"feature"}),
		invoiceTransition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "salesengine_invoice_transitions_total",
			Help:        "Invoice status transitions.",
			ConstLabels: constLabels,
		}, []string{"from", "to"}),
	}

	registerer.MustRegister(
		m.salesProcessed,
		m.saleFailures,
		m.saleItems,
		m.stockConflicts,
		m.salesReversed,
		m.partialPayments,
		m.statusTransitions,
		m.usageRejections,
		m.invoiceTransition,
	)
	return m
}

func (m *EngineMetrics) ObserveSale(paymentStatus string, items int) {
	if m == nil {
		return
	}
	m.salesProcessed.WithLabelValues(paymentStatus).Inc()
	m.saleItems.Add(float64(items))
}

func (m *EngineMetrics) IncSaleFailure(kind string) {
	if m == nil {
		return
	}
	m.saleFailures.WithLabelValues(kind).Inc()
}

func (m *EngineMetrics) IncStockConflict() {
	if m == nil {
		return
	}
	m.stockConflicts.Inc()
}

func (m *EngineMetrics) IncSaleReversed() {
	if m == nil {
		return
	}
	m.salesReversed.Inc()
}

func (m *EngineMetrics) IncPartialPayment(outcome string) {
	if m == nil {
		return
	}
	m.partialPayments.WithLabelValues(outcome).Inc()
}

func (m *EngineMetrics) IncStatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

func (m *EngineMetrics) IncUsageRejection(feature string) {
	if m == nil {
		return
	}
	m.usageRejections.WithLabelValues(feature).Inc()
}

func (m *EngineMetrics) IncInvoiceTransition(from, to string) {
	if m == nil {
		return
	}
	m.invoiceTransition.WithLabelValues(from, to).Inc()
}
