package repository

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/repoquery/internal/derive"
	"github.com/roach88/repoquery/internal/method"
)

// MustRegisterMetrics will register all repository related metrics on the given registry.
// If metrics with the same name already exist on the registry this function will panic.
func MustRegisterMetrics(registry *prometheus.Registry) {
	registry.MustRegister(invokeDuration, invokeCounter, compileCounter)
}

// InstrumentCache samples `repoquery_compile_total` for every compilation
// the cache runs. Call it once, before the cache is shared.
func InstrumentCache(c *derive.Cache) {
	c.OnCompile(sampleCompile)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func sampleInvoke(repository, name string, elapsed time.Duration, err error) {
	labels := prometheus.Labels{
		"status":     status(err),
		"repository": repository,
		"name":       name,
	}
	invokeDuration.With(labels).Observe(elapsed.Seconds())
	invokeCounter.With(labels).Inc()
}

func sampleCompile(sig method.Signature, err error) {
	compileCounter.With(prometheus.Labels{"status": status(err)}).Inc()
}

var (
	invokeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repoquery_invoke_duration_seconds",
			Help:    "Duration of derived method invocations, store access included",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"status", "repository", "name"},
	)
	invokeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repoquery_invoke_total",
			Help: "Total of derived method invocations",
		},
		[]string{"status", "repository", "name"},
	)
	compileCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repoquery_compile_total",
			Help: "Total of method signature compilations",
		},
		[]string{"status"},
	)
)
