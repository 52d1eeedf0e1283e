package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// dbStatsCollector exports pgxpool connection statistics.
type dbStatsCollector struct {
	pool *pgxpool.Pool

	totalConns    *prometheus.Desc
	idleConns     *prometheus.Desc
	acquiredConns *prometheus.Desc
	maxConns      *prometheus.Desc
}

// RegisterDBStats attaches a pgxpool stats collector to the registry.
func (m *Metrics) RegisterDBStats(pool *pgxpool.Pool) {
	m.registry.MustRegister(&dbStatsCollector{
		pool: pool,
		totalConns: prometheus.NewDesc(
			"rita_db_total_conns", "Total connections in the pool.", nil, nil),
		idleConns: prometheus.NewDesc(
			"rita_db_idle_conns", "Idle connections in the pool.", nil, nil),
		acquiredConns: prometheus.NewDesc(
			"rita_db_acquired_conns", "Connections currently acquired.", nil, nil),
		maxConns: prometheus.NewDesc(
			"rita_db_max_conns", "Maximum pool size.", nil, nil),
	})
}

func (c *dbStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalConns
	ch <- c.idleConns
	ch <- c.acquiredConns
	ch <- c.maxConns
}

func (c *dbStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.acquiredConns, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.maxConns, prometheus.GaugeValue, float64(stat.MaxConns()))
}
