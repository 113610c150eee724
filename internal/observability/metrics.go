package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

const namespace = "coursegen"

// Metrics is the process-wide Prometheus surface. Every method is safe on a
// nil receiver so callers never need to check Enabled.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge
	// long-lived routes (event streams, blocking approvals) are kept apart
	// so they do not skew request latency
	longLatency  *prometheus.HistogramVec
	longInflight *prometheus.GaugeVec

	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec

	activityTime  *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	guardrail     *prometheus.CounterVec
	repair        *prometheus.CounterVec
	pollFallbacks *prometheus.CounterVec
	redisUp       prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", true)
}

func Current() *Metrics {
	return instance
}

// Init builds the process metrics once. It returns nil when METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		if !Enabled() {
			if log != nil {
				log.Info("metrics disabled")
			}
			return
		}
		instance = New()
	})
	return instance
}

// New builds an unshared registry. Init is the process-wide entry point.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "api_requests_total", Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "api_request_duration_seconds", Help: "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "api_inflight_requests", Help: "HTTP requests in flight.",
		}),
		longLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "api_long_request_duration_seconds", Help: "Duration of long-lived HTTP requests.",
			Buckets: []float64{1, 5, 15, 60, 180, 300, 600, 900, 1800, 3600},
		}, []string{"method", "route", "status"}),
		longInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "api_long_inflight_requests", Help: "Long-lived HTTP requests open by route.",
		}, []string{"route"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_requests_total", Help: "Model requests by model, endpoint and status.",
		}, []string{"model", "endpoint", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "llm_request_duration_seconds", Help: "Model request latency including client retries.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"model", "endpoint"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_tokens_total", Help: "Model tokens by direction.",
		}, []string{"model", "direction"}),
		activityTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "activity_duration_seconds", Help: "Generation activity attempts by outcome.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		}, []string{"activity", "status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "run_transitions_total", Help: "Run status transitions observed by the event projector.",
		}, []string{"status"}),
		guardrail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "guardrail_verdicts_total", Help: "Guardrail verdicts by side and outcome.",
		}, []string{"side", "outcome"}),
		repair: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "repair_outcomes_total", Help: "Repair and validation outcomes by artifact.",
		}, []string{"target", "outcome"}),
		pollFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "status_poll_fallbacks_total", Help: "Status polls answered without the workflow query.",
		}, []string{"source"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "redis_up", Help: "1 when the last Redis ping succeeded.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight, m.longLatency, m.longInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.activityTime, m.transitions, m.guardrail, m.repair, m.pollFallbacks, m.redisUp,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

// ObserveLongRequest records a request on a route that is expected to stay
// open for minutes.
func (m *Metrics) ObserveLongRequest(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.longLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) LongInflightInc(route string) {
	if m == nil {
		return
	}
	m.longInflight.WithLabelValues(route).Inc()
}

func (m *Metrics) LongInflightDec(route string) {
	if m == nil {
		return
	}
	m.longInflight.WithLabelValues(route).Dec()
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(model, endpoint, status).Inc()
	m.llmLatency.WithLabelValues(model, endpoint).Observe(dur.Seconds())
	if inputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}

func (m *Metrics) ObserveActivity(activityName, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.activityTime.WithLabelValues(activityName, status).Observe(dur.Seconds())
}

func (m *Metrics) IncTransition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveGuardrail(side, outcome string) {
	if m == nil {
		return
	}
	m.guardrail.WithLabelValues(side, outcome).Inc()
}

func (m *Metrics) ObserveRepair(target, outcome string) {
	if m == nil {
		return
	}
	m.repair.WithLabelValues(target, outcome).Inc()
}

func (m *Metrics) IncPollFallback(source string) {
	if m == nil {
		return
	}
	m.pollFallbacks.WithLabelValues(source).Inc()
}

type pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// StartRedisCollector pings Redis every scrape interval until ctx is done.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb pinger) {
	if m == nil || rdb == nil {
		return
	}
	interval := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 15*time.Second)
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := rdb.Ping(pingCtx).Err()
			cancel()
			if err != nil {
				m.redisUp.Set(0)
				if log != nil {
					log.Debug("redis ping failed", "error", err)
				}
			} else {
				m.redisUp.Set(1)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
