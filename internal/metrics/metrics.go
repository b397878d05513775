package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run collects the counters of one conversion run. The CLI has no scrape
// endpoint, so the registry is exported as a node_exporter textfile.
type Run struct {
	registry         *prometheus.Registry
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	pagesTotal       *prometheus.CounterVec
	sourceBytesTotal prometheus.Counter
	pageBytesTotal   prometheus.Counter
	pixelsTotal      prometheus.Counter
	lastRunTimestamp prometheus.Gauge
}

func NewRun() *Run {
	registry := prometheus.NewRegistry()

	m := &Run{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mkpdf_runs_total",
			Help: "Conversion runs by resize mode and final status.",
		}, []string{"mode", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mkpdf_run_duration_seconds",
			Help:    "Wall time of a conversion run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode", "status"}),
		pagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mkpdf_pages_total",
			Help: "Pages written, split by whether the input jpeg was embedded verbatim.",
		}, []string{"kind"}),
		sourceBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mkpdf_source_bytes_total",
			Help: "Bytes read from input images.",
		}),
		pageBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mkpdf_page_bytes_total",
			Help: "Bytes of jpeg data embedded as pages.",
		}),
		pixelsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mkpdf_page_pixels_total",
			Help: "Pixels across all written pages.",
		}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mkpdf_last_run_timestamp_seconds",
			Help: "Unix time the run finished.",
		}),
	}

	registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.pagesTotal,
		m.sourceBytesTotal,
		m.pageBytesTotal,
		m.pixelsTotal,
		m.lastRunTimestamp,
	)
	return m
}

func (m *Run) ObservePage(passthrough bool, sourceBytes, pageBytes, width, height int) {
	kind := "encoded"
	if passthrough {
		kind = "passthrough"
	}
	m.pagesTotal.WithLabelValues(kind).Inc()
	m.sourceBytesTotal.Add(float64(sourceBytes))
	m.pageBytesTotal.Add(float64(pageBytes))
	m.pixelsTotal.Add(float64(width * height))
}

func (m *Run) Finish(mode string, err error, elapsed time.Duration) {
	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	m.runsTotal.WithLabelValues(mode, status).Inc()
	m.runDuration.WithLabelValues(mode, status).Observe(elapsed.Seconds())
	m.lastRunTimestamp.SetToCurrentTime()
}

func (m *Run) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the collected metrics to path atomically.
func (m *Run) WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
