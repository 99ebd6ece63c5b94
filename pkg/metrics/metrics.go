package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var HistogramBuckets = []float64{
	// --- Fast responses (0 - 500ms) ---
	25, 50, 75, 100, 150, 200, 300, 400, 500,

	// --- Medium responses (500ms - 2s) ---
	750, 1000, 1250, 1500, 1750, 2000,

	// --- Slow gateway calls (2s - 30s) ---
	2500, 3000, 4000, 5000, 7500, 10000, 15000, 20000, 30000,
}

// Metric is a definition for the name, description, type, ID, and
// prometheus.Collector type (i.e. CounterVec, Summary, etc) of each metric
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            string
	Args            []string
}

// NewMetric associates prometheus.Collector based on Metric.Type
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "counter_vec":
		metric = prometheus.NewCounterVec(
			prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	case "counter":
		metric = prometheus.NewCounter(
			prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
		)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description, Buckets: HistogramBuckets},
			m.Args,
		)
	case "summary_vec":
		metric = prometheus.NewSummaryVec(
			prometheus.SummaryOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description},
			m.Args,
		)
	}
	return metric
}

var invoiceTotal = &Metric{
	ID:          "invoiceTotal",
	Name:        "invoice_total",
	Description: "Invoice creation attempts, partitioned by gateway and outcome.",
	Type:        "counter_vec",
	Args:        []string{"gateway", "outcome"},
}

var webhookTotal = &Metric{
	ID:          "webhookTotal",
	Name:        "webhook_total",
	Description: "Inbound gateway webhooks, partitioned by gateway and outcome.",
	Type:        "counter_vec",
	Args:        []string{"gateway", "outcome"},
}

var gatewayDur = &Metric{
	ID:          "gatewayDur",
	Name:        "gateway_dur_ms",
	Description: "Outbound gateway call latency in milliseconds.",
	Type:        "histogram_vec",
	Args:        []string{"gateway", "operation"},
}

// Payment holds the business metrics of invoice creation and webhook handling.
// A nil *Payment is valid and records nothing.
type Payment struct {
	invoices   *prometheus.CounterVec
	webhooks   *prometheus.CounterVec
	gatewayDur *prometheus.HistogramVec
}

// NewPayment registers the payment metrics on reg.
func NewPayment(reg prometheus.Registerer) (*Payment, error) {
	p := &Payment{
		invoices:   NewMetric(invoiceTotal, "paygate").(*prometheus.CounterVec),
		webhooks:   NewMetric(webhookTotal, "paygate").(*prometheus.CounterVec),
		gatewayDur: NewMetric(gatewayDur, "paygate").(*prometheus.HistogramVec),
	}
	for _, c := range []prometheus.Collector{p.invoices, p.webhooks, p.gatewayDur} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewDefaultPayment registers on the process-wide registry served at /metrics.
func NewDefaultPayment() (*Payment, error) {
	return NewPayment(prometheus.DefaultRegisterer)
}

func (p *Payment) Invoice(gateway, outcome string) {
	if p == nil {
		return
	}
	p.invoices.WithLabelValues(gateway, outcome).Inc()
}

func (p *Payment) Webhook(gateway, outcome string) {
	if p == nil {
		return
	}
	p.webhooks.WithLabelValues(gateway, outcome).Inc()
}

// ObserveGateway records the latency of one outbound call started at start.
func (p *Payment) ObserveGateway(gateway, operation string, start time.Time) {
	if p == nil {
		return
	}
	p.gatewayDur.WithLabelValues(gateway, operation).Observe(MillisecondsSince(start))
}

// MillisecondsSince returns the elapsed time since start in milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

var Module = fx.Options(
	fx.Provide(NewDefaultPayment),
)
