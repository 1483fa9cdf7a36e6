package merkle

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsTree holds Prometheus metrics for the hash tree
type metricsTree struct {
	once sync.Once

	dirReplacements   prometheus.Counter
	nodesPruned       prometheus.Counter
	diffShortCircuits prometheus.Counter
}

var treeMetrics = newTreeMetrics()

func newTreeMetrics() *metricsTree {
	m := &metricsTree{}
	m.once.Do(func() {
		m.dirReplacements = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vectree_merkle_dir_replacements_total",
			Help: "Directories replaced by a file at the same name during upsert",
		})
		m.nodesPruned = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vectree_merkle_dirs_pruned_total",
			Help: "Empty directories pruned after deletions",
		})
		m.diffShortCircuits = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vectree_merkle_diff_short_circuits_total",
			Help: "Whole-tree diffs skipped because root hashes matched",
		})
		prometheus.MustRegister(m.dirReplacements, m.nodesPruned, m.diffShortCircuits)
	})
	return m
}
