package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — Prometheus метрики deck.
//
// Методы безопасны для nil-получателя: runtime без метрик просто их не пишет.
type Metrics struct {
	stepRuns     *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	staleCommits prometheus.Counter
	subscribers  prometheus.Gauge
	httpRequests *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		stepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deck_step_runs_total",
			Help: "Total step invocations by outcome",
		}, []string{"step", "outcome"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deck_step_duration_seconds",
			Help:    "Step invocation duration from LOADING to the terminal state",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		staleCommits: factory.NewCounter(prometheus.CounterOpts{
			Name: "deck_stale_commits_total",
			Help: "Terminal states discarded because a newer invocation started",
		}),
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deck_subscribers",
			Help: "Current number of state subscribers",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deck_api_http_requests_total",
			Help: "Total HTTP requests handled by deck-api",
		}, []string{"method", "status"}),
	}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics возвращает метрики, зарегистрированные в prometheus.DefaultRegisterer.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// StepFinished учитывает завершённый запуск шага.
func (m *Metrics) StepFinished(stepID, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepRuns.WithLabelValues(stepID, outcome).Inc()
	m.stepDuration.WithLabelValues(stepID).Observe(d.Seconds())
}

// StaleCommit учитывает отброшенное устаревшее состояние.
func (m *Metrics) StaleCommit() {
	if m == nil {
		return
	}
	m.staleCommits.Inc()
}

// SetSubscribers выставляет текущее число подписчиков.
func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

// HTTPRequest учитывает обработанный HTTP-запрос.
func (m *Metrics) HTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
