package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics exposes counters/histograms for booking page persistence.
type SyncMetrics struct {
	loadsTotal     *prometheus.CounterVec
	hydrations     *prometheus.CounterVec
	savesTotal     *prometheus.CounterVec
	saveLatency    prometheus.Histogram
	fieldFallbacks *prometheus.CounterVec
	staleDiscards  prometheus.Counter
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		loadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingpage",
			Subsystem: "sync",
			Name:      "loads_total",
			Help:      "Remote settings loads by outcome",
		}, []string{"outcome"}),
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingpage",
			Subsystem: "sync",
			Name:      "cache_hydrations_total",
			Help:      "Local cache hydration attempts by result",
		}, []string{"result"}),
		savesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingpage",
			Subsystem: "sync",
			Name:      "saves_total",
			Help:      "Settings saves by outcome",
		}, []string{"outcome"}),
		saveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bookingpage",
			Subsystem: "sync",
			Name:      "save_latency_seconds",
			Help:      "Latency of settings saves",
			Buckets:   prometheus.DefBuckets,
		}),
		fieldFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingpage",
			Subsystem: "sync",
			Name:      "field_fallbacks_total",
			Help:      "Persisted fields replaced by defaults during decode",
		}, []string{"field"}),
		staleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookingpage",
			Subsystem: "sync",
			Name:      "stale_loads_total",
			Help:      "Remote loads discarded after a tenant switch",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.loadsTotal, m.hydrations, m.savesTotal, m.saveLatency, m.fieldFallbacks, m.staleDiscards)
	return m
}

func (m *SyncMetrics) ObserveLoad(outcome string) {
	if m == nil {
		return
	}
	m.loadsTotal.WithLabelValues(outcome).Inc()
}

func (m *SyncMetrics) ObserveHydration(result string) {
	if m == nil {
		return
	}
	m.hydrations.WithLabelValues(result).Inc()
}

func (m *SyncMetrics) ObserveSave(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.savesTotal.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		m.saveLatency.Observe(seconds)
	}
}

func (m *SyncMetrics) ObserveFallback(field string) {
	if m == nil {
		return
	}
	m.fieldFallbacks.WithLabelValues(field).Inc()
}

func (m *SyncMetrics) ObserveStaleLoad() {
	if m == nil {
		return
	}
	m.staleDiscards.Inc()
}
