package devserver

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Metrics records live-reload and rebuild activity of the development loop.
type Metrics struct {
	reloads     *prom.CounterVec
	clients     prom.Gauge
	dropped     prom.Counter
	runDuration *prom.HistogramVec
	runResults  *prom.CounterVec
}

// NewMetrics constructs the development loop metrics and registers them with reg.
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	m := &Metrics{
		reloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kiln",
			Name:      "livereload_events_total",
			Help:      "Reload events broadcast to browsers by kind",
		}, []string{"kind"}),
		clients: prom.NewGauge(prom.GaugeOpts{
			Namespace: "kiln",
			Name:      "livereload_clients",
			Help:      "Connected live-reload clients",
		}),
		dropped: prom.NewCounter(prom.CounterOpts{
			Namespace: "kiln",
			Name:      "livereload_dropped_total",
			Help:      "Reload events dropped because a client was not reading",
		}),
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "kiln",
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of watch-triggered rebuilds",
			Buckets:   prom.DefBuckets,
		}, []string{"binding"}),
		runResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "kiln",
			Name:      "rebuild_results_total",
			Help:      "Watch-triggered rebuild results by outcome",
		}, []string{"binding", "result"}),
	}
	reg.MustRegister(m.reloads, m.clients, m.dropped, m.runDuration, m.runResults)
	return m
}

func (m *Metrics) incReload(kind string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(kind).Inc()
}

func (m *Metrics) setClients(n int) {
	if m == nil {
		return
	}
	m.clients.Set(float64(n))
}

func (m *Metrics) incDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// ObserveRun records one rebuild of binding.
func (m *Metrics) ObserveRun(binding string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(binding).Observe(d.Seconds())
	result := "success"
	if err != nil {
		result = "failed"
	}
	m.runResults.WithLabelValues(binding, result).Inc()
}
