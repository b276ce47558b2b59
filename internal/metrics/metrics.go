package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adsboard"

// Metrics holds the custom Prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	Registry *prometheus.Registry

	adsCreated      *prometheus.CounterVec
	adsRejected     *prometheus.CounterVec
	imagesUploaded  prometheus.Counter
	imagesDestroyed *prometheus.CounterVec
	pushMessages    *prometheus.CounterVec
	fanoutDuration  prometheus.Histogram
}

// New registers collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		adsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ads_created_total",
			Help:      "Ads persisted, by category.",
		}, []string{"category"}),
		adsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ads_rejected_total",
			Help:      "Ad submissions that failed, by category and reason.",
		}, []string{"category", "reason"}),
		imagesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_uploaded_total",
			Help:      "Inline images written to object storage.",
		}),
		imagesDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_destroyed_total",
			Help:      "Image destroy attempts, by result.",
		}, []string{"result"}),
		pushMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_messages_total",
			Help:      "Push messages handed to the gateway, by result.",
		}, []string{"result"}),
		fanoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_fanout_seconds",
			Help:      "Duration of one new-ad notification fan-out.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		m.adsCreated,
		m.adsRejected,
		m.imagesUploaded,
		m.imagesDestroyed,
		m.pushMessages,
		m.fanoutDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) AdCreated(category string) {
	if m == nil {
		return
	}
	m.adsCreated.WithLabelValues(category).Inc()
}

func (m *Metrics) AdRejected(category, reason string) {
	if m == nil {
		return
	}
	m.adsRejected.WithLabelValues(category, reason).Inc()
}

func (m *Metrics) ImageUploaded() {
	if m == nil {
		return
	}
	m.imagesUploaded.Inc()
}

func (m *Metrics) ImageDestroyed(ok bool) {
	if m == nil {
		return
	}
	m.imagesDestroyed.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) PushSent(ok, failed int) {
	if m == nil {
		return
	}
	m.pushMessages.WithLabelValues("ok").Add(float64(ok))
	m.pushMessages.WithLabelValues("error").Add(float64(failed))
}

func (m *Metrics) ObserveFanout(seconds float64) {
	if m == nil {
		return
	}
	m.fanoutDuration.Observe(seconds)
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
