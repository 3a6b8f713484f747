package metrics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts onboarding controller events by outcome.
type Recorder struct {
	events *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "onboard_client_events_total",
		Help: "Onboarding controller events by outcome",
	}, []string{"event", "outcome"})
	reg.MustRegister(events)
	return &Recorder{events: events}
}

func (r *Recorder) Record(event, outcome string) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(event, outcome).Inc()
}

// HTTPMetrics counts served requests by route pattern and status code.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "onboard_devd_requests_total",
		Help: "Development backend requests by route and status",
	}, []string{"method", "route", "code"})
	reg.MustRegister(requests)
	return &HTTPMetrics{requests: requests}
}

func (m *HTTPMetrics) Observe(method, route string, code int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

var (
	runsDesc = prometheus.NewDesc(
		"onboard_devd_runs",
		"Stored runs by status",
		[]string{"status"},
		nil,
	)
	interestsDesc = prometheus.NewDesc(
		"onboard_devd_interests",
		"Stored follow-up interest submissions",
		nil,
		nil,
	)
)

// StoreCounts is the read side StoreCollector scrapes.
type StoreCounts interface {
	CountRunsByStatus(ctx context.Context) (map[string]int, error)
	CountInterests(ctx context.Context) (int, error)
}

// StoreCollector reads stored run and interest counts on each scrape.
type StoreCollector struct {
	store  StoreCounts
	logger *slog.Logger
}

func NewStoreCollector(store StoreCounts, logger *slog.Logger) *StoreCollector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &StoreCollector{store: store, logger: logger}
}

func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- runsDesc
	ch <- interestsDesc
}

func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx := context.Background()
	runs, err := c.store.CountRunsByStatus(ctx)
	if err != nil {
		c.logger.Error("failed to collect run metrics", "error", err)
	} else {
		for status, n := range runs {
			ch <- prometheus.MustNewConstMetric(runsDesc, prometheus.GaugeValue, float64(n), status)
		}
	}
	interests, err := c.store.CountInterests(ctx)
	if err != nil {
		c.logger.Error("failed to collect interest metrics", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(interestsDesc, prometheus.GaugeValue, float64(interests))
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
