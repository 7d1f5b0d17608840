package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	reObjectID  = regexp.MustCompile(`/[0-9a-fA-F]{24}(/|$)`)
	reReference = regexp.MustCompile(`/TB-[A-Z0-9]{8}(/|$)`)
)

type Metrics struct {
	registry    *prometheus.Registry
	httpReqCnt  *prometheus.CounterVec
	httpDur     *prometheus.HistogramVec
	httpInfl    prometheus.Gauge
	bookingEvts *prometheus.CounterVec
	paymentOps  *prometheus.CounterVec
	webhookEvts *prometheus.CounterVec
	kafkaMsgs   *prometheus.CounterVec
	kafkaDur    *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: r,
		httpReqCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		httpInfl: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "http_requests_inflight",
			Help: "HTTP requests currently being served.",
		}),
		bookingEvts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "booking_transitions_total",
			Help: "Booking lifecycle transitions.",
		}, []string{"event"}),
		paymentOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "payment_provider_calls_total",
			Help: "Calls to the payment provider by operation and outcome.",
		}, []string{"operation", "outcome"}),
		webhookEvts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "payment_webhook_events_total",
			Help: "Verified payment webhook events by type.",
		}, []string{"type"}),
		kafkaMsgs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "kafka_messages_total",
			Help: "Kafka messages by direction, topic and outcome.",
		}, []string{"direction", "topic", "outcome"}),
		kafkaDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "kafka_message_duration_seconds",
			Help:    "Kafka message handling latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"direction", "topic"}),
	}

	r.MustRegister(m.httpReqCnt, m.httpDur, m.httpInfl, m.bookingEvts, m.paymentOps, m.webhookEvts, m.kafkaMsgs, m.kafkaDur)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Middleware records request count, latency and in-flight gauge.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := RouteLabel(r.URL.Path)
			m.httpInfl.Inc()
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				status := strconv.Itoa(rec.status)
				m.httpReqCnt.WithLabelValues(r.Method, route, status).Inc()
				m.httpDur.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
				m.httpInfl.Dec()
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

func (m *Metrics) BookingTransition(event string) {
	m.bookingEvts.WithLabelValues(event).Inc()
}

func (m *Metrics) PaymentCall(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.paymentOps.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) WebhookEvent(eventType string) {
	m.webhookEvts.WithLabelValues(eventType).Inc()
}

func (m *Metrics) KafkaMessage(direction, topic string, since time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.kafkaMsgs.WithLabelValues(direction, topic, outcome).Inc()
	m.kafkaDur.WithLabelValues(direction, topic).Observe(time.Since(since).Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RouteLabel collapses ids and booking references so label cardinality
// stays bounded.
func RouteLabel(path string) string {
	path = reObjectID.ReplaceAllString(path, "/:id$1")
	path = reObjectID.ReplaceAllString(path, "/:id$1")
	return reReference.ReplaceAllString(path, "/:reference$1")
}
