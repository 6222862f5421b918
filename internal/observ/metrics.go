package observ

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registry lazily creates prometheus vectors keyed by metric name. Label key
// sets must be consistent per name; the first caller fixes them.
type registry struct {
	mu       sync.Mutex
	prom     *prometheus.Registry
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	hist     map[string]*prometheus.HistogramVec
}

var reg = &registry{
	prom:     prometheus.NewRegistry(),
	counters: map[string]*prometheus.CounterVec{},
	gauges:   map[string]*prometheus.GaugeVec{},
	hist:     map[string]*prometheus.HistogramVec{},
}

func labelKeys(lbl map[string]string) []string {
	keys := make([]string, 0, len(lbl))
	for k := range lbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asLabels(lbl map[string]string) prometheus.Labels {
	if lbl == nil {
		return prometheus.Labels{}
	}
	return prometheus.Labels(lbl)
}

func IncCounter(name string, labels map[string]string) {
	IncCounterBy(name, labels, 1)
}

func IncCounterBy(name string, labels map[string]string, value float64) {
	reg.mu.Lock()
	vec, ok := reg.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelKeys(labels))
		reg.prom.MustRegister(vec)
		reg.counters[name] = vec
	}
	reg.mu.Unlock()
	vec.With(asLabels(labels)).Add(value)
}

func SetGauge(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	vec, ok := reg.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labelKeys(labels))
		reg.prom.MustRegister(vec)
		reg.gauges[name] = vec
	}
	reg.mu.Unlock()
	vec.With(asLabels(labels)).Set(value)
}

func Observe(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	vec, ok := reg.hist[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Buckets: prometheus.DefBuckets,
		}, labelKeys(labels))
		reg.prom.MustRegister(vec)
		reg.hist[name] = vec
	}
	reg.mu.Unlock()
	vec.With(asLabels(labels)).Observe(value)
}

// RecordDuration records a duration histogram in seconds.
func RecordDuration(name string, d time.Duration, labels map[string]string) {
	Observe(name, d.Seconds(), labels)
}

// Handler exposes the registry in prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(reg.prom, promhttp.HandlerOpts{})
}

// HealthStatus is the payload served by HealthHandler.
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
	Version   string `json:"version"`
}

var (
	startTime = time.Now()
	version   = "dev" // until SetVersion
)

// SetVersion sets the version string for health reports.
func SetVersion(v string) {
	version = v
}

// HealthHandler returns a JSON liveness endpoint.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		health := HealthStatus{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
			Version:   version,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(health)
	})
}
