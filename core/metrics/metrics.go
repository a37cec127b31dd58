// Package metrics provides Prometheus counters for a single tool run.
//
// The tool is a batch process, so nothing is scraped: after a run the
// counters are written in the text exposition format to a file that a
// node-exporter textfile collector can pick up.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Recorder owns a private registry so runs never share state.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry
	command  string

	rowsImported      *prometheus.CounterVec
	rowsDropped       *prometheus.CounterVec
	conflictsResolved *prometheus.CounterVec
	stockChanges      *prometheus.CounterVec
	purchaseCost      *prometheus.GaugeVec
	purchaseLines     *prometheus.GaugeVec
	runDuration       *prometheus.GaugeVec
	lastRun           *prometheus.GaugeVec
}

// NewRecorder creates a recorder labelled with the running command.
func NewRecorder(command string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		command:  command,

		rowsImported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_rows_imported_total",
				Help: "Rows written to a table by an import",
			},
			[]string{"command", "table"},
		),
		rowsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_rows_dropped_total",
				Help: "Imported rows dropped for missing required values",
			},
			[]string{"command", "table"},
		),
		conflictsResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_conflicts_resolved_total",
				Help: "Device attribute conflicts resolved",
			},
			[]string{"command", "field", "decision"},
		),
		stockChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bom_stock_parts_total",
				Help: "Parts added to or removed from stock",
			},
			[]string{"command", "direction"},
		),
		purchaseCost: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bom_purchase_cost",
				Help: "Total price of a purchase list per shop",
			},
			[]string{"command", "shop"},
		),
		purchaseLines: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bom_purchase_lines",
				Help: "Devices on a purchase list per shop",
			},
			[]string{"command", "shop"},
		),
		runDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bom_run_duration_seconds",
				Help: "Wall time of the last run",
			},
			[]string{"command"},
		),
		lastRun: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bom_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
			[]string{"command"},
		),
	}
}

// RecordImport records rows written and rows dropped for a table.
func (r *Recorder) RecordImport(table string, written, dropped int) {
	if r == nil {
		return
	}
	r.rowsImported.WithLabelValues(r.command, table).Add(float64(written))
	r.rowsDropped.WithLabelValues(r.command, table).Add(float64(dropped))
}

// RecordConflict records one resolved attribute conflict.
func (r *Recorder) RecordConflict(field, decision string) {
	if r == nil {
		return
	}
	r.conflictsResolved.WithLabelValues(r.command, field, decision).Inc()
}

// RecordStock records parts moved into (positive) or out of (negative) stock.
func (r *Recorder) RecordStock(delta int) {
	if r == nil || delta == 0 {
		return
	}
	direction := "in"
	if delta < 0 {
		direction = "out"
		delta = -delta
	}
	r.stockChanges.WithLabelValues(r.command, direction).Add(float64(delta))
}

// RecordPurchase records the priced total and line count of one shop group.
func (r *Recorder) RecordPurchase(shop string, total decimal.Decimal, lines int) {
	if r == nil {
		return
	}
	r.purchaseCost.WithLabelValues(r.command, shop).Set(total.InexactFloat64())
	r.purchaseLines.WithLabelValues(r.command, shop).Set(float64(lines))
}

// Finish stamps the run duration measured from start.
func (r *Recorder) Finish(start time.Time) {
	if r == nil {
		return
	}
	now := time.Now()
	r.runDuration.WithLabelValues(r.command).Set(now.Sub(start).Seconds())
	r.lastRun.WithLabelValues(r.command).Set(float64(now.Unix()))
}

// WriteTextfile writes every metric to path in the text exposition format.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
