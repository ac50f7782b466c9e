package pipeline

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the run counters in a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	reg *prometheus.Registry

	linesRead           prometheus.Counter
	recordsParsed       prometheus.Counter
	malformed           prometheus.Counter
	skipped             prometheus.Counter
	submissionsEmitted  prometheus.Counter
	submissionsFiltered prometheus.Counter
	commentsEmitted     prometheus.Counter
	removed             prometheus.Counter
	orphans             prometheus.Counter
	cycles              prometheus.Counter
	openSubmissions     prometheus.Gauge
	threadSize          prometheus.Histogram
}

func NewMetrics() *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "threadweave",
			Name:      name,
			Help:      help,
		})
	}
	m := &Metrics{
		reg:                 prometheus.NewRegistry(),
		linesRead:           counter("lines_read_total", "Input lines read."),
		recordsParsed:       counter("records_parsed_total", "Comment records parsed."),
		malformed:           counter("records_malformed_total", "Lines that failed to parse."),
		skipped:             counter("records_skipped_total", "Records dropped by the subreddit filter."),
		submissionsEmitted:  counter("submissions_emitted_total", "Threads written."),
		submissionsFiltered: counter("submissions_filtered_total", "Threads below the comment threshold."),
		commentsEmitted:     counter("comments_emitted_total", "Live comments in written threads."),
		removed:             counter("comments_removed_total", "Dead comments dropped by compaction."),
		orphans:             counter("comments_orphaned_total", "Comments not connected to a root."),
		cycles:              counter("reply_cycles_total", "Parent links that would have closed a cycle."),
		openSubmissions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "threadweave",
			Name:      "open_submissions",
			Help:      "Submissions buffered by the grouper.",
		}),
		threadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "threadweave",
			Name:      "thread_comments",
			Help:      "Live comments per written thread.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	m.reg.MustRegister(
		m.linesRead, m.recordsParsed, m.malformed, m.skipped,
		m.submissionsEmitted, m.submissionsFiltered, m.commentsEmitted,
		m.removed, m.orphans, m.cycles, m.openSubmissions, m.threadSize,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

func (m *Metrics) line() {
	if m != nil {
		m.linesRead.Inc()
	}
}

func (m *Metrics) parsed() {
	if m != nil {
		m.recordsParsed.Inc()
	}
}

func (m *Metrics) malformedLine() {
	if m != nil {
		m.malformed.Inc()
	}
}

func (m *Metrics) skippedRecord() {
	if m != nil {
		m.skipped.Inc()
	}
}

func (m *Metrics) open(n int) {
	if m != nil {
		m.openSubmissions.Set(float64(n))
	}
}

func (m *Metrics) outcome(r result) {
	if m == nil {
		return
	}
	o := r.outcome
	m.removed.Add(float64(o.Removed))
	m.orphans.Add(float64(o.Orphans()))
	m.cycles.Add(float64(o.Cycles))
	if o.Filtered {
		m.submissionsFiltered.Inc()
		return
	}
	m.submissionsEmitted.Inc()
	m.commentsEmitted.Add(float64(o.Live))
	m.threadSize.Observe(float64(o.Live))
}
