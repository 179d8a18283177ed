package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts engine outcomes. result is a short label such as
// "success" or "insufficient_seats".
type Recorder interface {
	ObserveReservation(result string)
	ObserveCancellation(result string)
	ObservePublish(result string)
}

type Metrics struct {
	reg *prometheus.Registry

	reservations  *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	published     *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		reg: reg,
		reservations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "reservations_total",
			Help: "Total number of reserve attempts by result.",
		}, []string{"result"}),
		cancellations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cancellations_total",
			Help: "Total number of cancel attempts by result.",
		}, []string{"result"}),
		published: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "booking_events_published_total",
			Help: "Total number of booking lifecycle events handed to the queue.",
		}, []string{"result"}),
		httpDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.3, 0.6, 1, 3},
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) ObserveReservation(result string) {
	m.reservations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCancellation(result string) {
	m.cancellations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePublish(result string) {
	m.published.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Middleware records request latency keyed by the matched route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Nop discards every observation.
type Nop struct{}

func (Nop) ObserveReservation(string)  {}
func (Nop) ObserveCancellation(string) {}
func (Nop) ObservePublish(string)      {}
