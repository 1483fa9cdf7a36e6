package scanner

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsScan holds Prometheus metrics for workspace scans
type metricsScan struct {
	once sync.Once

	filesScanned prometheus.Counter
	scanErrors   prometheus.Counter

	scanDuration prometheus.Histogram
}

var scanMetrics metricsScan

func (m *metricsScan) init() {
	m.once.Do(func() {
		m.filesScanned = prometheus.NewCounter(prometheus.CounterOpts{Name: "vectree_scan_files_total", Help: "Regular files collected across all scans"})
		m.scanErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "vectree_scan_errors_total", Help: "Non-fatal per-entry scan failures"})

		m.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vectree_scan_seconds",
			Help:    "Duration of workspace scans",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		})

		prometheus.MustRegister(m.filesScanned, m.scanErrors, m.scanDuration)
	})
}

func recordScan(files, errs int, seconds float64) {
	scanMetrics.init()
	scanMetrics.filesScanned.Add(float64(files))
	scanMetrics.scanErrors.Add(float64(errs))
	scanMetrics.scanDuration.Observe(seconds)
}
