// Package metrics exports live engine state as Prometheus metrics.
package metrics

import (
	"sync"

	"github.com/kisy/maapd/pkg/maap"
	"github.com/prometheus/client_golang/prometheus"
)

// Source is the subset of *maap.Engine the exporter reads on every scrape.
type Source interface {
	Ranges() []*maap.Range
	Notifications() *maap.NotifyQueue
}

// Exporter is a prometheus.Collector over a live engine. promhttp serves
// scrapes on their own per-request goroutine, so Collect takes mu — the
// same lock the host loop holds around every HandlePacket/HandleTimer call
// — before touching engine state, rather than racing its map reads.
type Exporter struct {
	mu  *sync.Mutex
	src Source

	rangesByState *prometheus.Desc
	notifyQueue   *prometheus.Desc
}

// NewExporter builds an Exporter reading from src, synchronized by mu.
func NewExporter(src Source, mu *sync.Mutex) *Exporter {
	return &Exporter{
		mu:  mu,
		src: src,
		rangesByState: prometheus.NewDesc(
			"maap_ranges", "Number of address ranges by state.", []string{"state"}, nil,
		),
		notifyQueue: prometheus.NewDesc(
			"maap_notify_queue_depth", "Pending notifications not yet drained by the host.", nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.rangesByState
	ch <- e.notifyQueue
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.mu.Lock()
	defer e.mu.Unlock()

	counts := map[maap.State]int{}
	for _, r := range e.src.Ranges() {
		counts[r.State()]++
	}
	for _, state := range []maap.State{maap.StateProbing, maap.StateDefending, maap.StateReleased} {
		ch <- prometheus.MustNewConstMetric(
			e.rangesByState, prometheus.GaugeValue, float64(counts[state]), state.String(),
		)
	}
	ch <- prometheus.MustNewConstMetric(
		e.notifyQueue, prometheus.GaugeValue, float64(e.src.Notifications().Len()),
	)
}
