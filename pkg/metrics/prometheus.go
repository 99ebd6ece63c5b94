package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultMetricsPath = "/metrics"

var httpLabels = []string{"code", "method", "route"}

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "http_requests_total",
	Description: "HTTP requests processed, by status code, method and route.",
	Type:        "counter_vec",
	Args:        httpLabels,
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "http_request_duration_ms",
	Description: "HTTP request latency in milliseconds.",
	Type:        "histogram_vec",
	Args:        httpLabels,
}

var reqSz = &Metric{
	ID:          "reqSz",
	Name:        "http_request_size_bytes",
	Description: "Approximate HTTP request size in bytes.",
	Type:        "summary_vec",
	Args:        httpLabels,
}

var resSz = &Metric{
	ID:          "resSz",
	Name:        "http_response_size_bytes",
	Description: "HTTP response size in bytes.",
	Type:        "summary_vec",
	Args:        httpLabels,
}

// RouteLabelFn maps a request to its "route" label. It must keep cardinality
// bounded, so ids in the path have to be collapsed.
type RouteLabelFn func(c *gin.Context) string

// RouteTemplate labels a request with its gin route template, e.g.
// "/invoices/:order_id". Unmatched requests share one label.
func RouteTemplate(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return "unmatched"
}

type HTTPOptions struct {
	Subsystem string
	Path      string
	Route     RouteLabelFn
	// Registry defaults to the process-wide prometheus registry.
	Registry *prometheus.Registry
}

// HTTP collects per-request metrics for a gin engine and serves them.
type HTTP struct {
	reqCnt       *prometheus.CounterVec
	reqDur       *prometheus.HistogramVec
	reqSz, resSz *prometheus.SummaryVec

	gatherer prometheus.Gatherer
	path     string
	route    RouteLabelFn
}

func NewHTTP(o HTTPOptions) (*HTTP, error) {
	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if o.Registry != nil {
		reg, gatherer = o.Registry, o.Registry
	}
	h := &HTTP{gatherer: gatherer, path: o.Path, route: o.Route}
	if h.path == "" {
		h.path = DefaultMetricsPath
	}
	if h.route == nil {
		h.route = RouteTemplate
	}

	collectors := map[*Metric]prometheus.Collector{}
	for _, def := range []*Metric{reqCnt, reqDur, reqSz, resSz} {
		c := NewMetric(def, o.Subsystem)
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register %s: %w", def.Name, err)
		}
		collectors[def] = c
	}
	h.reqCnt = collectors[reqCnt].(*prometheus.CounterVec)
	h.reqDur = collectors[reqDur].(*prometheus.HistogramVec)
	h.reqSz = collectors[reqSz].(*prometheus.SummaryVec)
	h.resSz = collectors[resSz].(*prometheus.SummaryVec)
	return h, nil
}

// Middleware records every request except scrapes of the metrics path.
func (h *HTTP) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == h.path {
			c.Next()
			return
		}
		start := time.Now()
		in := approxRequestSize(c.Request)

		c.Next()

		labels := []string{strconv.Itoa(c.Writer.Status()), c.Request.Method, h.route(c)}
		h.reqCnt.WithLabelValues(labels...).Inc()
		h.reqDur.WithLabelValues(labels...).Observe(MillisecondsSince(start))
		h.reqSz.WithLabelValues(labels...).Observe(float64(in))
		h.resSz.WithLabelValues(labels...).Observe(float64(c.Writer.Size()))
	}
}

// Handler serves the gathered metrics in the Prometheus text format.
func (h *HTTP) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}

// Server returns a dedicated listener exposing only the metrics path. The
// caller owns its lifecycle.
func (h *HTTP) Server(addr string) *http.Server {
	r := gin.New()
	r.GET(h.path, h.Handler())
	return &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
}

// approxRequestSize follows promhttp's estimate: request line, headers, host
// and declared body length.
func approxRequestSize(r *http.Request) int {
	n := len(r.Method) + len(r.Proto) + len(r.Host)
	if r.URL != nil {
		n += len(r.URL.String())
	}
	for name, values := range r.Header {
		n += len(name)
		for _, v := range values {
			n += len(v)
		}
	}
	if r.ContentLength > 0 {
		n += int(r.ContentLength)
	}
	return n
}
