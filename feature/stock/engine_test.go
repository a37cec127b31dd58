package stock

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bom-manager/core/apperr"
	"bom-manager/core/identity"
	"bom-manager/core/plan"
	"bom-manager/core/report"
	"bom-manager/core/store"
	"bom-manager/core/store/storetest"
	"bom-manager/core/table"
	"bom-manager/core/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var commitDay = time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

func newEngine(s *store.Store, opts ...Option) (*Engine, *report.Collector) {
	sink := &report.Collector{}
	opts = append([]Option{WithClock(func() time.Time { return commitDay })}, opts...)
	return NewEngine(s, sink, opts...), sink
}

func seedDevices(t *testing.T, s *store.Store, ids ...string) map[string]identity.Key {
	t.Helper()
	keys := map[string]identity.Key{}
	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		k := identity.Of(id, "TI")
		keys[id] = k
		rows = append(rows, table.Row{
			"device_hash":         k,
			"device_id":           id,
			"device_manufacturer": "TI",
			"device_description":  id + " part",
		})
	}
	_, err := s.Put(context.Background(), "device", rows, store.ReplaceRow)
	require.NoError(t, err)
	return keys
}

func put(t *testing.T, s *store.Store, name string, rows ...table.Row) {
	t.Helper()
	_, err := s.Put(context.Background(), name, rows, store.ReplaceRow)
	require.NoError(t, err)
}

func stockLevels(t *testing.T, s *store.Store) map[string]int {
	t.Helper()
	rows, err := s.Get(context.Background(), TableStock, store.Query{Follow: true})
	require.NoError(t, err)
	out := map[string]int{}
	for _, r := range rows {
		out[utils.ToString(r["device_id"])] = utils.ToInt(r["quantity"])
	}
	return out
}

func TestCommit_LedgerDelta(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	keys := seedDevices(t, s, "r1")
	put(t, s, TableBOM, table.Row{"device_hash": keys["r1"], "project": "amp", "quantity": 10})

	e, sink := newEngine(s)
	res, err := e.Commit(ctx, "amp")
	require.NoError(t, err)
	assert.Equal(t, 10, res.Added)
	assert.Equal(t, map[string]int{"r1": 10}, stockLevels(t, s))

	ledger, err := s.Get(ctx, TableLedger, store.Query{})
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, "2026-05-02", utils.ToString(ledger[0]["commit_date"]))

	res, err = e.Commit(ctx, "amp")
	require.NoError(t, err)
	assert.True(t, res.NoOp())
	assert.Equal(t, map[string]int{"r1": 10}, stockLevels(t, s), "committing twice adds nothing")
	_, found := sink.Find("project already committed")
	assert.True(t, found)

	put(t, s, TableBOM, table.Row{"device_hash": keys["r1"], "project": "amp", "quantity": 4})
	res, err = e.Commit(ctx, "amp")
	require.NoError(t, err)
	assert.Equal(t, 6, res.Removed)
	assert.Equal(t, map[string]int{"r1": 4}, stockLevels(t, s), "stock follows the latest import")
}

func TestCommit_AddsToExistingStock(t *testing.T) {
	s := storetest.New(t)
	keys := seedDevices(t, s, "r1", "c1")
	put(t, s, TableStock, table.Row{"device_hash": keys["r1"], "quantity": 5})
	put(t, s, TableBOM,
		table.Row{"device_hash": keys["r1"], "project": "amp", "quantity": 2},
		table.Row{"device_hash": keys["c1"], "project": "amp", "quantity": 3})

	e, _ := newEngine(s)
	_, err := e.Commit(context.Background(), "amp")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"r1": 7, "c1": 3}, stockLevels(t, s))
}

func TestCommit_ShrinkBelowZero(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	keys := seedDevices(t, s, "r1")
	put(t, s, TableBOM, table.Row{"device_hash": keys["r1"], "project": "amp", "quantity": 10})
	e, _ := newEngine(s)
	_, err := e.Commit(ctx, "amp")
	require.NoError(t, err)

	_, err = e.Use(ctx, "amp", 0.8)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"r1": 2}, stockLevels(t, s))

	put(t, s, TableBOM, table.Row{"device_hash": keys["r1"], "project": "amp", "quantity": 1})
	_, err = e.Commit(ctx, "amp")
	var ise *apperr.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "r1", ise.Shortfalls[0].Device)
	assert.Equal(t, map[string]int{"r1": 2}, stockLevels(t, s))
}

func TestCommit_UnknownProject(t *testing.T) {
	e, _ := newEngine(storetest.New(t))
	_, err := e.Commit(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownProject)
}

func TestUse(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	keys := seedDevices(t, s, "r1", "c1")
	put(t, s, TableStock,
		table.Row{"device_hash": keys["r1"], "quantity": 10},
		table.Row{"device_hash": keys["c1"], "quantity": 8})
	put(t, s, TableBOM,
		table.Row{"device_hash": keys["r1"], "project": "amp", "quantity": 5},
		table.Row{"device_hash": keys["c1"], "project": "amp", "quantity": 1})
	e, _ := newEngine(s)

	res, err := e.Use(ctx, "amp", 2)
	require.NoError(t, err)
	assert.Equal(t, 12, res.Consumed)
	assert.Equal(t, 1, res.Emptied)
	assert.Equal(t, map[string]int{"c1": 6}, stockLevels(t, s), "entries reaching zero are removed")
}

func TestUse_Insufficient(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	keys := seedDevices(t, s, "r1", "c1")
	put(t, s, TableStock,
		table.Row{"device_hash": keys["r1"], "quantity": 10},
		table.Row{"device_hash": keys["c1"], "quantity": 1})
	put(t, s, TableBOM,
		table.Row{"device_hash": keys["r1"], "project": "amp", "quantity": 1},
		table.Row{"device_hash": keys["c1"], "project": "amp", "quantity": 3})
	e, _ := newEngine(s)

	_, err := e.Use(ctx, "amp", 1)
	var ise *apperr.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "amp", ise.Project)
	require.Len(t, ise.Shortfalls, 1)
	assert.Equal(t, apperr.Shortfall{Device: "c1", Required: 3, Available: 1}, ise.Shortfalls[0])
	assert.Equal(t, map[string]int{"r1": 10, "c1": 1}, stockLevels(t, s), "stock is left unchanged")

	_, err = e.Use(ctx, "amp", -1)
	assert.Error(t, err)
}

type fakePublisher struct {
	paths []string
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.paths = append(f.paths, path)
	return "lists/" + filepath.Base(path), nil
}

func readList(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func seedPurchase(t *testing.T) *store.Store {
	t.Helper()
	s := storetest.New(t)
	keys := seedDevices(t, s, "aa", "bb", "cc")
	put(t, s, TableBOM,
		table.Row{"device_hash": keys["aa"], "project": "amp", "quantity": 1},
		table.Row{"device_hash": keys["bb"], "project": "amp", "quantity": 4},
		table.Row{"device_hash": keys["cc"], "project": "amp", "quantity": 2})
	put(t, s, TableStock, table.Row{"device_hash": keys["bb"], "quantity": 1})
	put(t, s, TableShop,
		table.Row{"device_hash": keys["aa"], "shop": "pytest1", "shop_id": "P1-AA", "order_qty": 5, "price": "10", "date": "2026-01-01"},
		table.Row{"device_hash": keys["aa"], "shop": "pytest2", "shop_id": "P2-AA", "order_qty": 10, "price": "20", "date": "2026-01-01"},
		table.Row{"device_hash": keys["bb"], "shop": "pytest2", "shop_id": "P2-BB", "order_qty": 1, "price": "0.5", "date": "2026-01-01"})
	return s
}

func TestPurchase_SplitPerShop(t *testing.T) {
	s := seedPurchase(t)
	dir := t.TempDir()
	pub := &fakePublisher{}
	e, sink := newEngine(s, WithPublisher(pub), WithUnknownShop("none"))

	sum, err := e.Purchase(context.Background(), PurchaseRequest{Split: true, OutputDir: dir, BaseName: "order", Publish: true})
	require.NoError(t, err)
	require.Len(t, sum.Groups, 3)
	assert.Equal(t, 1, sum.Unpriced)
	assert.True(t, sum.Total.Equal(decimal.RequireFromString("51.5")))

	byShop := map[string]GroupSummary{}
	for _, g := range sum.Groups {
		byShop[g.Shop] = g
	}
	assert.True(t, byShop["pytest1"].Total.Equal(decimal.NewFromInt(50)))
	assert.True(t, byShop["pytest2"].Total.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, "lists/order_none.csv", byShop["none"].Object)
	assert.Len(t, pub.paths, 3)

	records := readList(t, filepath.Join(dir, "order_pytest1.csv"))
	assert.Equal(t, [][]string{
		ListColumns,
		{"5", "aa", "TI", "aa part", "pytest1", "P1-AA"},
	}, records)

	records = readList(t, filepath.Join(dir, "order_pytest2.csv"))
	assert.Equal(t, []string{"3", "bb", "TI", "bb part", "pytest2", "P2-BB"}, records[1], "net of one part on hand")

	_, warned := sink.Find("devices without shop offers")
	assert.True(t, warned)
}

func TestPurchase_SingleList(t *testing.T) {
	s := seedPurchase(t)
	dir := t.TempDir()
	e, _ := newEngine(s)

	sum, err := e.Purchase(context.Background(), PurchaseRequest{Project: "amp", Multiplier: 2, OutputDir: dir})
	require.NoError(t, err)
	require.Len(t, sum.Groups, 1)
	assert.Equal(t, filepath.Join(dir, "purchase.csv"), sum.Groups[0].Path)
	assert.Empty(t, sum.Groups[0].Object, "no publisher configured")

	records := readList(t, sum.Groups[0].Path)
	assert.Len(t, records, 4)
}

func TestPurchase_Empty(t *testing.T) {
	e, sink := newEngine(storetest.New(t))
	sum, err := e.Purchase(context.Background(), PurchaseRequest{OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, sum.Groups)
	assert.True(t, sum.Total.IsZero())
	_, found := sink.Find("nothing to purchase")
	assert.True(t, found)
}

func TestPlanPurchase_CostTieGoesToShopByName(t *testing.T) {
	s := storetest.New(t)
	keys := seedDevices(t, s, "aa")
	put(t, s, TableBOM, table.Row{"device_hash": keys["aa"], "project": "amp", "quantity": 2})
	put(t, s, TableShop,
		table.Row{"device_hash": keys["aa"], "shop": "zeta", "shop_id": "Z-AA", "order_qty": 1, "price": "3", "date": "2026-01-01"},
		table.Row{"device_hash": keys["aa"], "shop": "alpha", "shop_id": "A-AA", "order_qty": 2, "price": "3", "date": "2026-01-01"})
	e, _ := newEngine(s)

	lines, err := e.PlanPurchase(context.Background(), "amp", 1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "alpha", lines[0].Shop)
	assert.Equal(t, "A-AA", lines[0].ShopID)
	assert.True(t, lines[0].Cost.Equal(decimal.NewFromInt(6)))
}

func TestPurchase_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown project", func(t *testing.T) {
		e, _ := newEngine(seedPurchase(t))
		_, err := e.Purchase(ctx, PurchaseRequest{Project: "nope", OutputDir: t.TempDir()})
		assert.ErrorIs(t, err, ErrUnknownProject)
	})

	t.Run("orphan bom line", func(t *testing.T) {
		s := storetest.New(t)
		put(t, s, TableBOM, table.Row{"device_hash": identity.Of("ghost", "X"), "project": "amp", "quantity": 1})
		e, _ := newEngine(s)
		_, err := e.Purchase(ctx, PurchaseRequest{OutputDir: t.TempDir()})
		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{identity.Of("ghost", "X").String()}, ve.Devices)
	})

	t.Run("publish failure", func(t *testing.T) {
		cause := errors.New("bucket gone")
		e, _ := newEngine(seedPurchase(t), WithPublisher(&fakePublisher{err: cause}))
		_, err := e.Purchase(ctx, PurchaseRequest{OutputDir: t.TempDir(), Publish: true})
		assert.ErrorIs(t, err, cause)
	})
}

func TestProjects(t *testing.T) {
	s := seedPurchase(t)
	ctx := context.Background()
	keys := seedDevices(t, s, "aa")
	put(t, s, TableBOM, table.Row{"device_hash": keys["aa"], "project": "psu", "quantity": 2})
	put(t, s, TableStock, table.Row{"device_hash": keys["aa"], "quantity": 100})
	e, _ := newEngine(s)
	_, err := e.Commit(ctx, "psu")
	require.NoError(t, err)

	projects, err := e.Projects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Project{
		{Name: "amp", Devices: 3, Parts: 7},
		{Name: "psu", Devices: 1, Parts: 2, Committed: true},
	}, projects)
}

func TestRemoveProject(t *testing.T) {
	s := seedPurchase(t)
	ctx := context.Background()
	e, _ := newEngine(s)
	_, err := e.Commit(ctx, "amp")
	require.NoError(t, err)

	p, res, err := e.RemoveProject(ctx, "amp", false, plan.Options{DryRun: true, Confirmed: true})
	require.NoError(t, err)
	assert.Len(t, p.Actions, 1)
	assert.Zero(t, res.Executed, "dry run")

	_, res, err = e.RemoveProject(ctx, "amp", true, plan.Options{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Executed)
	assert.EqualValues(t, 6, res.Removed)

	projects, err := e.Projects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
	n, err := s.Count(ctx, TableLedger)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NotEmpty(t, stockLevels(t, s), "stock is kept")
}
