package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the storefront collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	ordersPlaced  *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders committed, by payment method.",
		}, []string{"payment_method"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_rejections_total",
			Help: "Order placements rejected, by reason.",
		}, []string{"reason"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_payment_confirmations_total",
			Help: "Payment confirmation webhook outcomes.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ordersPlaced, r.rejections, r.confirmations, r.httpRequests, r.httpDuration,
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) OrderPlaced(method string) {
	if r == nil {
		return
	}
	r.ordersPlaced.WithLabelValues(method).Inc()
}

// OrderRejected counts a failed placement. reason is a small fixed set:
// validation, insufficient_stock, error.
func (r *Recorder) OrderRejected(reason string) {
	if r == nil {
		return
	}
	r.rejections.WithLabelValues(reason).Inc()
}

func (r *Recorder) PaymentConfirmation(outcome string) {
	if r == nil {
		return
	}
	r.confirmations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
