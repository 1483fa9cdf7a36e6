package embedder

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsEmbed holds Prometheus metrics for the embedding subsystem
type metricsEmbed struct {
	once sync.Once

	batchesSent prometheus.Counter
	retries     prometheus.Counter
	fallbacks   prometheus.Counter
	blankSkips  prometheus.Counter
	cacheHits   prometheus.Counter
	truncations prometheus.Counter

	embedDuration prometheus.Histogram
}

var embMetrics metricsEmbed

func (m *metricsEmbed) init() {
	m.once.Do(func() {
		m.batchesSent = prometheus.NewCounter(prometheus.CounterOpts{Name: "vectree_embed_batches_total", Help: "Embedding batches sent to a provider"})
		m.retries = prometheus.NewCounter(prometheus.CounterOpts{Name: "vectree_embed_retries_total", Help: "Embedding call retries"})
		m.fallbacks = prometheus.NewCounter(prometheus.CounterOpts{Name: "vectree_embed_fallbacks_total", Help: "Texts degraded to zero vectors after retry exhaustion"})
		m.blankSkips = prometheus.NewCounter(prometheus.CounterOpts{Name: "vectree_embed_blank_skips_total", Help: "Blank inputs answered locally without a provider call"})
		m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "vectree_embed_cache_hits_total", Help: "Embeddings served from the LRU cache"})
		m.truncations = prometheus.NewCounter(prometheus.CounterOpts{Name: "vectree_embed_truncations_total", Help: "Inputs truncated to the local provider's chunk ceiling"})

		m.embedDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vectree_embed_seconds",
			Help:    "Duration of Embed calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		})

		prometheus.MustRegister(
			m.batchesSent, m.retries, m.fallbacks, m.blankSkips, m.cacheHits, m.truncations,
			m.embedDuration,
		)
	})
}

// record helpers - used by providers for metrics tracking
func recordBatchSent()  { embMetrics.init(); embMetrics.batchesSent.Inc() }
func recordRetry()      { embMetrics.init(); embMetrics.retries.Inc() }
func recordBlankSkip()  { embMetrics.init(); embMetrics.blankSkips.Inc() }
func recordCacheHit()   { embMetrics.init(); embMetrics.cacheHits.Inc() }
func recordTruncation() { embMetrics.init(); embMetrics.truncations.Inc() }

func recordFallback(texts int) {
	embMetrics.init()
	embMetrics.fallbacks.Add(float64(texts))
}

func recordEmbedDuration(seconds float64) {
	embMetrics.init()
	embMetrics.embedDuration.Observe(seconds)
}
