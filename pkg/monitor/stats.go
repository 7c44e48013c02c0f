package monitor

import (
	"sync/atomic"

	"arbor/pkg/common"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// QueryStats counts lookups served by the HTTP layer.
type QueryStats struct {
	lookups  *prometheus.CounterVec
	misses   prometheus.Counter
	indexed  *prometheus.GaugeVec
	depth    *prometheus.GaugeVec
	dropped  prometheus.Gauge
	served   uint64
	notFound uint64
}

// NewQueryStats registers the lookup metrics with reg.
func NewQueryStats(reg prometheus.Registerer) *QueryStats {
	f := promauto.With(reg)
	return &QueryStats{
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbor_lookups_total",
			Help: "Number of index lookups served, by category and query kind",
		}, []string{"category", "kind"}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Name: "arbor_unknown_category_total",
			Help: "Number of requests naming an unrecognised category",
		}),
		indexed: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arbor_index_records",
			Help: "Number of records held by each category index",
		}, []string{"category"}),
		depth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arbor_index_depth",
			Help: "Longest root-to-leaf path of each category index",
		}, []string{"category"}),
		dropped: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbor_records_dropped",
			Help: "Records excluded at build time for missing measurements",
		}),
	}
}

func (qs *QueryStats) RecordLookup(category common.AgeCategory, kind string) {
	atomic.AddUint64(&qs.served, 1)
	qs.lookups.WithLabelValues(category.Slug(), kind).Inc()
}

func (qs *QueryStats) RecordUnknownCategory() {
	atomic.AddUint64(&qs.notFound, 1)
	qs.misses.Inc()
}

// SetIndex publishes the shape of one category index.
func (qs *QueryStats) SetIndex(category common.AgeCategory, size, depth int) {
	qs.indexed.WithLabelValues(category.Slug()).Set(float64(size))
	qs.depth.WithLabelValues(category.Slug()).Set(float64(depth))
}

// SetDropped publishes how many unmeasured records were left out of the indexes.
func (qs *QueryStats) SetDropped(n int) {
	qs.dropped.Set(float64(n))
}

func (qs *QueryStats) Served() uint64 {
	return atomic.LoadUint64(&qs.served)
}

func (qs *QueryStats) NotFound() uint64 {
	return atomic.LoadUint64(&qs.notFound)
}
