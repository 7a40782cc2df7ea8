package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alertcore/alertcore/pkg/types"
	"github.com/alertcore/alertcore/server/internal/alerts"
)

// Collector exposes manager state as Prometheus metrics. Values are read on
// every scrape.
type Collector struct {
	mgr *alerts.Manager

	alerts        *prometheus.Desc
	alertsByLevel *prometheus.Desc
	pending       *prometheus.Desc
	descriptors   *prometheus.Desc
	notifications *prometheus.Desc
}

// NewCollector creates a Collector for mgr.
func NewCollector(mgr *alerts.Manager) *Collector {
	return &Collector{
		mgr: mgr,
		alerts: prometheus.NewDesc("alertcore_alerts",
			"Live alerts by current state.", []string{"state"}, nil),
		alertsByLevel: prometheus.NewDesc("alertcore_alerts_by_level",
			"Live alerts by level.", []string{"level"}, nil),
		pending: prometheus.NewDesc("alertcore_alerts_pending",
			"Live alerts whose current state is not terminal.", nil, nil),
		descriptors: prometheus.NewDesc("alertcore_descriptors",
			"Registered alert descriptors.", nil, nil),
		notifications: prometheus.NewDesc("alertcore_notifications_total",
			"Receiver notifications by result.", []string{"result"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.alerts
	ch <- c.alertsByLevel
	ch <- c.pending
	ch <- c.descriptors
	ch <- c.notifications
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.mgr.Summary()
	for _, st := range types.States() {
		ch <- prometheus.MustNewConstMetric(c.alerts, prometheus.GaugeValue, float64(s.ByState[st]), st.String())
	}
	for lvl := types.LevelInfo; lvl <= types.LevelFatal; lvl++ {
		ch <- prometheus.MustNewConstMetric(c.alertsByLevel, prometheus.GaugeValue, float64(s.ByLevel[lvl]), lvl.String())
	}
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(s.Pending))
	ch <- prometheus.MustNewConstMetric(c.descriptors, prometheus.GaugeValue, float64(len(c.mgr.Descriptors())))

	st := c.mgr.DispatchStats()
	ch <- prometheus.MustNewConstMetric(c.notifications, prometheus.CounterValue, float64(st.Delivered), "delivered")
	ch <- prometheus.MustNewConstMetric(c.notifications, prometheus.CounterValue, float64(st.Failed), "failed")
	ch <- prometheus.MustNewConstMetric(c.notifications, prometheus.CounterValue, float64(st.Rejected), "rejected")
	ch <- prometheus.MustNewConstMetric(c.notifications, prometheus.CounterValue, float64(st.Dropped), "dropped")
}

// MetricsHandler serves GET /metrics from a dedicated registry holding the
// alert collector plus the Go runtime and process collectors.
func MetricsHandler(mgr *alerts.Manager) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(mgr),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
