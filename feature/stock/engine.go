package stock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"bom-manager/core/apperr"
	"bom-manager/core/identity"
	"bom-manager/core/metrics"
	"bom-manager/core/plan"
	"bom-manager/core/report"
	"bom-manager/core/store"
	"bom-manager/core/table"
	"bom-manager/core/utils"
	"bom-manager/feature/importer"
)

// Tables and columns the engine works on.
const (
	TableBOM    = "bom"
	TableStock  = "stock"
	TableShop   = "shop"
	TableLedger = "commit_ledger"

	colHash     = "device_hash"
	colProject  = "project"
	colQuantity = "quantity"
	colDeviceID = "device_id"
)

// ErrUnknownProject is returned for a project without BOM lines.
var ErrUnknownProject = errors.New("unknown project")

// Publisher uploads a local file and returns the object name.
type Publisher interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

// Engine runs stock transactions against a store.
type Engine struct {
	store       *store.Store
	sink        report.Sink
	metrics     *metrics.Recorder
	publisher   Publisher
	unknownShop string
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records stock movements and purchase totals on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = rec }
}

// WithPublisher enables publishing purchase lists.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithUnknownShop sets the marker for devices without offers.
func WithUnknownShop(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.unknownShop = name
		}
	}
}

// WithClock overrides the ledger date source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine.
func NewEngine(st *store.Store, sink report.Sink, opts ...Option) *Engine {
	if sink == nil {
		sink = report.Discard
	}
	e := &Engine{store: st, sink: sink, unknownShop: "unknown", now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CommitResult reports a commit.
type CommitResult struct {
	Project string
	Devices int
	Added   int
	Removed int
}

// NoOp reports whether the commit changed nothing.
func (r *CommitResult) NoOp() bool {
	return r.Added == 0 && r.Removed == 0
}

// Commit migrates the BOM of project into stock, applying only what changed
// since the last commit.
func (e *Engine) Commit(ctx context.Context, project string) (*CommitResult, error) {
	res := &CommitResult{Project: project}
	err := e.store.Transaction(ctx, func(tx *store.Store) error {
		bom, err := tx.Get(ctx, TableBOM, store.Query{By: colProject, Values: []any{project}, Follow: true})
		if err != nil {
			return err
		}
		if len(bom) == 0 {
			return fmt.Errorf("%w %q", ErrUnknownProject, project)
		}
		demand, names, err := sumByDevice(bom)
		if err != nil {
			return err
		}

		ledger, err := tx.Get(ctx, TableLedger, store.Query{By: colProject, Values: []any{project}})
		if err != nil {
			return err
		}
		committed, _, err := sumByDevice(ledger)
		if err != nil {
			return err
		}

		keys := unionKeys(demand, committed)
		onHand, err := e.stockOf(ctx, tx, keys)
		if err != nil {
			return err
		}

		p := plan.New("commit " + project)
		var updated []table.Row
		var emptied []any
		var shortfalls []apperr.Shortfall
		for _, k := range keys {
			delta := demand[k] - committed[k]
			if delta == 0 {
				continue
			}
			next := onHand[k] + delta
			switch {
			case next < 0:
				shortfalls = append(shortfalls, apperr.Shortfall{Device: nameOf(names, k), Required: -delta, Available: onHand[k]})
				continue
			case next == 0:
				emptied = append(emptied, k)
			default:
				updated = append(updated, table.Row{colHash: k, colQuantity: next})
			}
			if delta > 0 {
				res.Added += delta
			} else {
				res.Removed -= delta
			}
			res.Devices++
		}
		if len(shortfalls) > 0 {
			return &apperr.InsufficientStockError{Project: project, Shortfalls: shortfalls}
		}

		date := e.now().Format(importer.DateLayout)
		entries := make([]table.Row, 0, len(demand))
		for _, k := range sortedKeys(demand) {
			entries = append(entries, table.Row{colProject: project, colHash: k, colQuantity: demand[k], "commit_date": date})
		}
		if res.NoOp() {
			return nil
		}
		p.Remove(TableStock, colHash, emptied, "quantity reached zero").
			Put(TableStock, updated, store.ReplaceRow, "commit project demand").
			Remove(TableLedger, colProject, []any{project}, "replace ledger").
			Put(TableLedger, entries, store.ReplaceRow, "record committed quantities")
		_, err = plan.Execute(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, wrapTx("commit "+project, err)
	}

	e.metrics.RecordStock(res.Added - res.Removed)
	if res.NoOp() {
		report.Info(e.sink, "project already committed", report.F("project", project))
	} else {
		report.Info(e.sink, "project committed",
			report.F("project", project),
			report.F("added", res.Added),
			report.F("removed", res.Removed))
	}
	return res, nil
}

// UseResult reports a use.
type UseResult struct {
	Project  string
	Devices  int
	Consumed int
	Emptied  int
}

// Use subtracts the BOM of project, times factor boards, from stock.
func (e *Engine) Use(ctx context.Context, project string, factor float64) (*UseResult, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("invalid multiplier %v", factor)
	}
	res := &UseResult{Project: project}
	err := e.store.Transaction(ctx, func(tx *store.Store) error {
		bom, err := tx.Get(ctx, TableBOM, store.Query{By: colProject, Values: []any{project}, Follow: true})
		if err != nil {
			return err
		}
		if len(bom) == 0 {
			return fmt.Errorf("%w %q", ErrUnknownProject, project)
		}
		demand, names, err := sumByDevice(bom)
		if err != nil {
			return err
		}
		keys := sortedKeys(demand)
		onHand, err := e.stockOf(ctx, tx, keys)
		if err != nil {
			return err
		}

		var updated []table.Row
		var emptied []any
		var shortfalls []apperr.Shortfall
		for _, k := range keys {
			need := importer.Scale(demand[k], factor)
			left := onHand[k] - need
			switch {
			case left < 0:
				shortfalls = append(shortfalls, apperr.Shortfall{Device: nameOf(names, k), Required: need, Available: onHand[k]})
				continue
			case left == 0:
				emptied = append(emptied, k)
			default:
				updated = append(updated, table.Row{colHash: k, colQuantity: left})
			}
			res.Devices++
			res.Consumed += need
		}
		if len(shortfalls) > 0 {
			sort.Slice(shortfalls, func(i, j int) bool { return shortfalls[i].Device < shortfalls[j].Device })
			return &apperr.InsufficientStockError{Project: project, Shortfalls: shortfalls}
		}
		res.Emptied = len(emptied)

		p := plan.New("use "+project).
			Remove(TableStock, colHash, emptied, "quantity reached zero").
			Put(TableStock, updated, store.ReplaceRow, "consume project parts")
		_, err = plan.Execute(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, wrapTx("use "+project, err)
	}

	e.metrics.RecordStock(-res.Consumed)
	report.Info(e.sink, "project parts used",
		report.F("project", project),
		report.F("consumed", res.Consumed),
		report.F("emptied", res.Emptied))
	return res, nil
}

// stockOf returns the on-hand quantity of keys; absent entries are zero.
func (e *Engine) stockOf(ctx context.Context, tx *store.Store, keys []identity.Key) (map[identity.Key]int, error) {
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = k
	}
	rows, err := tx.Get(ctx, TableStock, store.Query{By: colHash, Values: values})
	if err != nil {
		return nil, err
	}
	onHand, _, err := sumByDevice(rows)
	return onHand, err
}

// wrapTx reports domain failures as they are and anything else as a rolled
// back transaction.
func wrapTx(operation string, err error) error {
	var ise *apperr.InsufficientStockError
	var ve *apperr.ValidationError
	if errors.As(err, &ise) || errors.As(err, &ve) || errors.Is(err, ErrUnknownProject) {
		return err
	}
	return &apperr.TransactionIntegrityError{Operation: operation, Err: err}
}

// sumByDevice sums quantity per device hash. names maps hashes to device_id
// when rows carry it.
func sumByDevice(rows []table.Row) (map[identity.Key]int, map[identity.Key]string, error) {
	sums := make(map[identity.Key]int, len(rows))
	names := make(map[identity.Key]string, len(rows))
	for _, r := range rows {
		k, err := identity.From(r[colHash])
		if err != nil {
			return nil, nil, fmt.Errorf("row %v: %w", r, err)
		}
		sums[k] += utils.ToInt(r[colQuantity])
		if id := utils.ToString(r[colDeviceID]); id != "" {
			names[k] = id
		}
	}
	return sums, names, nil
}

func nameOf(names map[identity.Key]string, k identity.Key) string {
	if n, ok := names[k]; ok {
		return n
	}
	return k.String()
}

func sortedKeys(m map[identity.Key]int) []identity.Key {
	keys := make([]identity.Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func unionKeys(a, b map[identity.Key]int) []identity.Key {
	merged := make(map[identity.Key]int, len(a)+len(b))
	for k := range a {
		merged[k] = 0
	}
	for k := range b {
		merged[k] = 0
	}
	return sortedKeys(merged)
}
