package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"boombot/pkg/boombot"
)

const namespace = "boombot"

// Collector owns a private registry with HTTP, pipeline and Telegram metrics.
// It implements boombot.Observer.
type Collector struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	sectorChecks       *prometheus.CounterVec
	generationTotal    *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	parseTotal         *prometheus.CounterVec
	parseRecords       prometheus.Histogram
	telegramMessages   *prometheus.CounterVec
}

var _ boombot.Observer = (*Collector)(nil)

// New constructs a collector. Process and Go runtime collectors are included
// when withRuntime is set.
func New(withRuntime bool) (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"method", "route", "status"}),
		sectorChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sector",
			Name:      "checks_total",
			Help:      "Sector validations by deciding layer and outcome.",
		}, []string{"layer", "result"}),
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Generation requests by provider and result code.",
		}, []string{"provider", "code"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Latency of generation requests.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"provider"}),
		parseTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "responses_total",
			Help:      "Parsed responses by outcome.",
		}, []string{"outcome"}),
		parseRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "records",
			Help:      "Recommendation records per parsed response.",
			Buckets:   []float64{0, 1, 2, 3},
		}),
		telegramMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "messages_total",
			Help:      "Telegram messages by direction and kind.",
		}, []string{"direction", "kind"}),
	}

	toRegister := []prometheus.Collector{
		c.requestDuration,
		c.requestTotal,
		c.sectorChecks,
		c.generationTotal,
		c.generationDuration,
		c.parseTotal,
		c.parseRecords,
		c.telegramMessages,
	}
	if withRuntime {
		toRegister = append(toRegister,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	for _, collector := range toRegister {
		if err := c.registry.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency. The route label uses the chi
// route pattern so path parameters do not explode cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		labels := []string{r.Method, route, strconv.Itoa(status)}
		c.requestTotal.WithLabelValues(labels...).Inc()
		c.requestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

func (c *Collector) ObserveSectorCheck(layer boombot.MatchLayer, matched bool) {
	result := "invalid"
	if matched {
		result = "valid"
	}
	l := string(layer)
	if l == "" {
		l = "none"
	}
	c.sectorChecks.WithLabelValues(l, result).Inc()
}

func (c *Collector) ObserveGeneration(provider string, code boombot.ErrorCode, elapsed time.Duration) {
	label := string(code)
	if label == "" {
		label = "OK"
	}
	c.generationTotal.WithLabelValues(provider, label).Inc()
	c.generationDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveParse(records int, fallback bool) {
	outcome := "records"
	if fallback {
		outcome = "fallback"
	}
	c.parseTotal.WithLabelValues(outcome).Inc()
	c.parseRecords.Observe(float64(records))
}

// ObserveTelegramMessage counts one inbound update or outbound message.
func (c *Collector) ObserveTelegramMessage(direction, kind string) {
	c.telegramMessages.WithLabelValues(direction, kind).Inc()
}
