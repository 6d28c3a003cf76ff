package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fulfillment"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	service = Subsystem(service)
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

func (m *ServerMetrics) Observe(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(float64(d.Milliseconds()))
}

// Fulfillment tracks engine outcomes. A nil *Fulfillment is a valid no-op recorder.
type Fulfillment struct {
	OrdersCreated   prometheus.Counter
	Failures        *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
	UnitOfWorkMS    *prometheus.HistogramVec
	Rejections      *prometheus.CounterVec
	ReorderRequests prometheus.Counter
}

func NewFulfillment(reg prometheus.Registerer) *Fulfillment {
	f := &Fulfillment{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders committed with their allocation and invoice.",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Failed engine operations by operation and error kind.",
		}, []string{"op", "kind"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Committed order status transitions.",
		}, []string{"from", "to"}),
		UnitOfWorkMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_of_work_duration_ms",
			Help:      "Duration of transactional units of work in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}, []string{"op"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "material_rejections_total",
			Help:      "Material rejection lifecycle events.",
		}, []string{"status"}),
		ReorderRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reorder_requests_total",
			Help:      "Reorder requests emitted by the replenisher.",
		}),
	}
	reg.MustRegister(f.OrdersCreated, f.Failures, f.Transitions, f.UnitOfWorkMS, f.Rejections, f.ReorderRequests)
	return f
}

func (f *Fulfillment) OrderCreated() {
	if f == nil {
		return
	}
	f.OrdersCreated.Inc()
}

func (f *Fulfillment) Failed(op, kind string) {
	if f == nil {
		return
	}
	f.Failures.WithLabelValues(op, kind).Inc()
}

func (f *Fulfillment) Transitioned(from, to string) {
	if f == nil {
		return
	}
	f.Transitions.WithLabelValues(from, to).Inc()
}

func (f *Fulfillment) UnitOfWork(op string, d time.Duration) {
	if f == nil {
		return
	}
	f.UnitOfWorkMS.WithLabelValues(op).Observe(float64(d.Microseconds()) / 1000)
}

func (f *Fulfillment) Rejection(status string) {
	if f == nil {
		return
	}
	f.Rejections.WithLabelValues(status).Inc()
}

func (f *Fulfillment) ReorderRequested() {
	if f == nil {
		return
	}
	f.ReorderRequests.Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Subsystem turns a service name into a valid metric name segment ("order-api" -> "order_api").
func Subsystem(service string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, service)
}
