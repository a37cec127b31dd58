package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder("purchase")
	r.RecordImport("bom", 4, 1)
	r.RecordImport("bom", 2, 0)
	r.RecordConflict("manufacturer", "take_new")
	r.RecordStock(10)
	r.RecordStock(-3)
	r.RecordPurchase("pytest1", decimal.RequireFromString("50.5"), 2)
	r.Finish(time.Now().Add(-time.Second))

	path := filepath.Join(t.TempDir(), "bom.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `bom_rows_imported_total{command="purchase",table="bom"} 6`)
	assert.Contains(t, out, `bom_rows_dropped_total{command="purchase",table="bom"} 1`)
	assert.Contains(t, out, `bom_conflicts_resolved_total{command="purchase",decision="take_new",field="manufacturer"} 1`)
	assert.Contains(t, out, `bom_stock_parts_total{command="purchase",direction="in"} 10`)
	assert.Contains(t, out, `bom_stock_parts_total{command="purchase",direction="out"} 3`)
	assert.Contains(t, out, `bom_purchase_cost{command="purchase",shop="pytest1"} 50.5`)
	assert.Contains(t, out, `bom_purchase_lines{command="purchase",shop="pytest1"} 2`)
	assert.Contains(t, out, "bom_run_duration_seconds")
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordImport("bom", 1, 1)
		r.RecordConflict("f", "d")
		r.RecordStock(1)
		r.RecordPurchase("s", decimal.Zero, 0)
		r.Finish(time.Now())
	})
	assert.NoError(t, r.WriteTextfile("/nonexistent/dir/file.prom"))
	assert.Nil(t, r.Registry())
}

func TestRecorder_EmptyPath(t *testing.T) {
	assert.NoError(t, NewRecorder("x").WriteTextfile(""))
}
