package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CatalogStats is what CatalogCollector exports.
type CatalogStats struct {
	Documents int
	Folders   int
	SizeBytes uint64
}

// StatsFunc reports the current catalog statistics.
type StatsFunc func() (CatalogStats, error)

// CatalogCollector exports the catalog size at collection time.
type CatalogCollector struct {
	stats StatsFunc

	documents *prometheus.Desc
	folders   *prometheus.Desc
	sizeBytes *prometheus.Desc
}

// NewCatalogCollector creates a collector that calls stats on every scrape.
func NewCatalogCollector(stats StatsFunc) *CatalogCollector {
	return &CatalogCollector{
		stats: stats,
		documents: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "catalog", "documents"),
			"Number of documents in the local catalog",
			nil, nil,
		),
		folders: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "catalog", "folders"),
			"Number of folders in the local catalog",
			nil, nil,
		),
		sizeBytes: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "catalog", "size_bytes"),
			"Disk usage of the catalog database",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *CatalogCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.documents
	ch <- c.folders
	ch <- c.sizeBytes
}

// Collect implements prometheus.Collector.
func (c *CatalogCollector) Collect(ch chan<- prometheus.Metric) {
	st, err := c.stats()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.documents, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.documents, prometheus.GaugeValue, float64(st.Documents))
	ch <- prometheus.MustNewConstMetric(c.folders, prometheus.GaugeValue, float64(st.Folders))
	ch <- prometheus.MustNewConstMetric(c.sizeBytes, prometheus.GaugeValue, float64(st.SizeBytes))
}
