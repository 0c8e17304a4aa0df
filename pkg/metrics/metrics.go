package metrics

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type manager struct {
	namespace string
	system    string
	registry  *prometheus.Registry
}

var (
	mu             sync.RWMutex
	defaultManager = &manager{
		namespace: "default",
		system:    "default",
		registry:  prometheus.NewRegistry(),
	}
)

func RegisterGoMetrics(r prometheus.Registerer) {
	register(r, collectors.NewGoCollector())
	register(r, collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// SetupMetricsManager sets the namespace and registry used by every
// collector created afterwards.
func SetupMetricsManager(ns, system string, registry *prometheus.Registry) {
	mu.Lock()
	defaultManager = &manager{
		namespace: ns,
		system:    system,
		registry:  registry,
	}
	mu.Unlock()
	RegisterGoMetrics(registry)
}

func current() *manager {
	mu.RLock()
	defer mu.RUnlock()
	return defaultManager
}

// Registry returns the registry collectors are registered with.
func Registry() *prometheus.Registry {
	return current().registry
}

func NewCounterVec(name string, labels []string) *prometheus.CounterVec {
	m := current()
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: FmtFixer(m.namespace),
			Subsystem: FmtFixer(m.system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s count of /%s/%s", name, m.namespace, m.system),
		},
		labels,
	)
	return register(m.registry, vec).(*prometheus.CounterVec)
}

func NewHistogramVec(name string, labels []string) *prometheus.HistogramVec {
	return NewHistogramVecWithBuckets(name, labels, prometheus.DefBuckets)
}

func NewHistogramVecWithBuckets(name string, labels []string, buckets []float64) *prometheus.HistogramVec {
	m := current()
	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: FmtFixer(m.namespace),
			Subsystem: FmtFixer(m.system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s duration of /%s/%s", name, m.namespace, m.system),
			Buckets:   buckets,
		},
		labels,
	)
	return register(m.registry, vec).(*prometheus.HistogramVec)
}

func NewGaugeVec(name string, labels []string) *prometheus.GaugeVec {
	m := current()
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: FmtFixer(m.namespace),
			Subsystem: FmtFixer(m.system),
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s gauge of /%s/%s", name, m.namespace, m.system),
		},
		labels,
	)
	return register(m.registry, vec).(*prometheus.GaugeVec)
}

// register returns the collector already registered under the same
// descriptor, if any.
func register(r prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := r.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

func DefaultExportHandler() gin.HandlerFunc {
	reg := current().registry
	h := promhttp.InstrumentMetricHandler(reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func FmtFixer(in string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_").Replace(in)
}
