// Package metrics содержит Prometheus метрики проверок зависимостей.
//
// Метрики:
//   - llmchat_dependency_up: последнее состояние зависимости (1=ok, 0=ошибка)
//   - llmchat_dependency_check_duration_seconds: длительность проверки
//   - llmchat_dependency_check_failures_total: число неуспешных проверок
//   - llmchat_database_connect_attempts_total: попытки SELECT 1 по результату
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace префикс всех метрик сервиса
const Namespace = "llmchat"

// Collector набор метрик сервиса в собственном реестре
type Collector struct {
	registry *prometheus.Registry

	up        *prometheus.GaugeVec
	duration  *prometheus.HistogramVec
	failures  *prometheus.CounterVec
	dbAttempt *prometheus.CounterVec
}

// NewCollector создает и регистрирует метрики. Если registry == nil,
// создается новый реестр с метриками процесса и Go runtime.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		registry: registry,
		up: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "dependency_up",
				Help:      "Last observed dependency state (1=ok, 0=failed)",
			},
			[]string{"dependency"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "dependency_check_duration_seconds",
				Help:      "Dependency check duration in seconds, retries included",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"dependency"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "dependency_check_failures_total",
				Help:      "Total number of failed dependency checks",
			},
			[]string{"dependency"},
		),
		dbAttempt: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "database_connect_attempts_total",
				Help:      "Total number of database connection attempts by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(c.up, c.duration, c.failures, c.dbAttempt)
	return c
}

// ObserveCheck записывает результат проверки зависимости
func (c *Collector) ObserveCheck(dependency string, took time.Duration, err error) {
	c.duration.WithLabelValues(dependency).Observe(took.Seconds())
	if err != nil {
		c.up.WithLabelValues(dependency).Set(0)
		c.failures.WithLabelValues(dependency).Inc()
		return
	}
	c.up.WithLabelValues(dependency).Set(1)
}

// ObserveDatabaseAttempt учитывает одну попытку подключения к БД
func (c *Collector) ObserveDatabaseAttempt(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.dbAttempt.WithLabelValues(result).Inc()
}

// Registry возвращает реестр метрик
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler HTTP обработчик для /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
