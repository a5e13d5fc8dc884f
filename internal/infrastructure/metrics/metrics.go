// Package metrics exposes Prometheus counters for the order and cart engine.
// All methods are safe on a nil *Metrics so collaborators can run without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "krume"

type Metrics struct {
	registry         *prometheus.Registry
	ordersCreated    prometheus.Counter
	orderTransitions *prometheus.CounterVec
	couponsRemoved   prometheus.Counter
	stockMovements   *prometheus.CounterVec
	gatewayCalls     *prometheus.CounterVec
	backgroundTasks  *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	rateLimited      prometheus.Counter
}

// New registers the service collectors on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry:      reg,
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders placed.",
		}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions by target status.",
		}, []string{"status"}),
		couponsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_coupons_auto_removed_total",
			Help:      "Coupons detached from carts that stopped qualifying.",
		}),
		stockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_movements_total",
			Help:      "Stock debits and credits by reason and result.",
		}, []string{"reason", "result"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_gateway_calls_total",
			Help:      "Shipping provider calls by operation and result.",
		}, []string{"operation", "result"}),
		backgroundTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_tasks_total",
			Help:      "Detached side-effect tasks by name and result.",
		}, []string{"task", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the per-IP rate limiter.",
		}),
	}
	reg.MustRegister(
		m.ordersCreated, m.orderTransitions, m.couponsRemoved, m.stockMovements,
		m.gatewayCalls, m.backgroundTasks, m.httpRequests, m.httpDuration, m.rateLimited,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) OrderTransition(status string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) CouponAutoRemoved() {
	if m == nil {
		return
	}
	m.couponsRemoved.Inc()
}

func (m *Metrics) StockMovement(reason string, err error) {
	if m == nil {
		return
	}
	m.stockMovements.WithLabelValues(reason, result(err)).Inc()
}

func (m *Metrics) GatewayCall(operation string, err error) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(operation, result(err)).Inc()
}

func (m *Metrics) BackgroundTask(task string, err error) {
	if m == nil {
		return
	}
	m.backgroundTasks.WithLabelValues(task, result(err)).Inc()
}

// HTTPRequest records a served request. An empty route means no pattern matched.
func (m *Metrics) HTTPRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
