// internal/metrics/metrics.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "coffeeshop_pos"

// Collector is a prometheus.Collector for the POS server.
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	ordersCreated *prometheus.CounterVec
	orderRevenue  prometheus.Counter
	activeShifts  prometheus.Gauge
	shiftExpiries prometheus.Counter
	shiftWarnings *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "http_requests_total",
				Help:      "The number of HTTP requests served.",
			}, []string{"method", "route", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "http_request_duration_seconds",
				Help:      "The time taken to serve an HTTP request.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"},
		),
		ordersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "orders_created_total",
				Help:      "The number of orders placed.",
			}, []string{"payment_method"},
		),
		orderRevenue: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "order_revenue_total",
				Help:      "The sum of the totals of placed orders.",
			},
		),
		activeShifts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "active_shifts",
				Help:      "The number of cashier shifts currently running.",
			},
		),
		shiftExpiries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "shift_expiries_total",
				Help:      "The number of shifts that ran out and forced a logout.",
			},
		),
		shiftWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "shift_warnings_total",
				Help:      "The number of end-of-shift warnings sent.",
			}, []string{"minutes_left"},
		),
	}
}

func (c *Collector) ObserveRequest(method, route string, code int, took time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func (c *Collector) OrderCreated(paymentMethod string, total float64) {
	c.ordersCreated.WithLabelValues(paymentMethod).Inc()
	c.orderRevenue.Add(total)
}

func (c *Collector) SetActiveShifts(n int) { c.activeShifts.Set(float64(n)) }

func (c *Collector) ShiftExpired() { c.shiftExpiries.Inc() }

func (c *Collector) ShiftWarning(remaining time.Duration) {
	c.shiftWarnings.WithLabelValues(strconv.Itoa(int(remaining.Round(time.Minute) / time.Minute))).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.httpRequests.Describe(ch)
	c.httpDuration.Describe(ch)
	c.ordersCreated.Describe(ch)
	c.orderRevenue.Describe(ch)
	c.activeShifts.Describe(ch)
	c.shiftExpiries.Describe(ch)
	c.shiftWarnings.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.httpRequests.Collect(ch)
	c.httpDuration.Collect(ch)
	c.ordersCreated.Collect(ch)
	c.orderRevenue.Collect(ch)
	c.activeShifts.Collect(ch)
	c.shiftExpiries.Collect(ch)
	c.shiftWarnings.Collect(ch)
}
