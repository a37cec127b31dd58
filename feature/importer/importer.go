package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"bom-manager/core/apperr"
	"bom-manager/core/identity"
	"bom-manager/core/metrics"
	"bom-manager/core/plan"
	"bom-manager/core/report"
	"bom-manager/core/scheme"
	"bom-manager/core/store"
	"bom-manager/core/table"
	"bom-manager/core/utils"
	"bom-manager/feature/attributes"
)

// Column names the importer fills in when a file does not carry them.
const (
	ColProject  = "project"
	ColQuantity = "quantity"
	ColShop     = "shop"
	ColDate     = "date"
)

// Request describes one file import.
type Request struct {
	Path   string
	Table  string
	Format string
	// Project tags bom rows lacking a project; default is the file name stem.
	Project string
	// Shop names shop rows lacking a shop; default is the format name.
	Shop       string
	Multiplier Multiplier
	Asker      Asker
	// Overwrite replaces rows previously imported from the same file.
	Overwrite bool
}

// Summary reports what an import did.
type Summary struct {
	Table      string
	File       string
	Read       int
	Written    int
	Dropped    int
	Incomplete int
	Removed    int64

	DevicesInserted int
	DevicesUpdated  int
	Conflicts       int
}

// Importer runs imports against a store.
type Importer struct {
	store       *store.Store
	formats     Formats
	reconciler  *attributes.Reconciler
	sink        report.Sink
	metrics     *metrics.Recorder
	now         func() time.Time
	headerShift int
}

// Option configures an Importer.
type Option func(*Importer)

// WithClock overrides the import date source.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) { i.now = now }
}

// WithMetrics records row counts on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(i *Importer) { i.metrics = rec }
}

// WithHeaderShift skips n extra lines before every header.
func WithHeaderShift(n int) Option {
	return func(i *Importer) { i.headerShift = n }
}

// New creates an importer.
func New(st *store.Store, formats Formats, reconciler *attributes.Reconciler, sink report.Sink, opts ...Option) *Importer {
	if formats == nil {
		formats = DefaultFormats()
	}
	if sink == nil {
		sink = report.Discard
	}
	if reconciler == nil {
		reconciler = attributes.New(nil, nil, sink, nil)
	}
	i := &Importer{
		store:      st,
		formats:    formats,
		reconciler: reconciler,
		sink:       sink,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import reads req.Path and writes its rows into req.Table.
func (i *Importer) Import(ctx context.Context, req Request) (*Summary, error) {
	f, err := i.formats.Get(req.Format)
	if err != nil {
		return nil, err
	}
	f.Header += i.headerShift

	raw, err := ReadFile(req.Path, f)
	if err != nil {
		return nil, err
	}
	return i.ImportTable(ctx, raw, f, req)
}

// ImportTable imports raw rows already read from req.Path.
func (i *Importer) ImportTable(ctx context.Context, raw table.Table, f Format, req Request) (*Summary, error) {
	target, err := i.store.Scheme().Table(req.Table)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(req.Path)
	sum := &Summary{Table: req.Table, File: base, Read: raw.Len()}

	aligned, err := Align(raw, req.Path, f, i.now())
	if err != nil {
		return nil, err
	}
	i.fillDefaults(&aligned, target.HasColumn, f, req)

	if target.HasColumn(ColQuantity) {
		if err := ScaleQuantity(aligned, ColQuantity, req.Multiplier, req.Asker); err != nil {
			return nil, err
		}
	}

	res, err := i.store.Scheme().Resolve(req.Table)
	if err != nil {
		return nil, err
	}
	vr, err := ValidateAndHash(aligned, res, f.HeaderRows())
	if err != nil {
		return nil, err
	}
	vr.Report(i.sink, base)
	sum.Dropped = len(vr.Dropped)
	sum.Incomplete = len(vr.Incomplete)

	rows := vr.Table.Rows
	if len(rows) == 0 {
		report.Warn(i.sink, "nothing to import", report.F("file", base), report.F("table", req.Table))
		i.metrics.RecordImport(req.Table, 0, sum.Dropped)
		return sum, nil
	}

	hashColumn := deviceColumn(target.Foreign)
	if req.Table == attributes.DeviceTable {
		hashColumn = attributes.FieldHash
	}

	err = i.store.Transaction(ctx, func(tx *store.Store) error {
		if hashColumn != "" {
			out, err := i.reconciler.Reconcile(ctx, tx, deviceRows(rows, hashColumn))
			if err != nil {
				return err
			}
			if _, err := plan.Execute(ctx, tx, out.Plan); err != nil {
				return err
			}
			sum.DevicesInserted = out.Inserted
			sum.DevicesUpdated = out.Updated
			sum.Conflicts = out.Conflicts()
			if req.Table == attributes.DeviceTable {
				sum.Written = out.Inserted + out.Updated
				return nil
			}
			for _, r := range rows {
				if k, err := identity.From(r[hashColumn]); err == nil {
					r[hashColumn] = out.Canonical(k)
				}
			}
		}

		rows = collapse(rows, target.ConflictKey(), target.HasColumn(ColQuantity))

		policy := store.ReplaceRow
		if req.Overwrite {
			if target.HasColumn(ColFileName) {
				n, err := tx.Remove(ctx, req.Table, ColFileName, []any{base})
				if err != nil {
					return err
				}
				sum.Removed = n
			}
		} else if target.HasColumn(ColQuantity) {
			policy = store.AddTo(ColQuantity)
		}

		put, err := tx.Put(ctx, req.Table, rows, policy)
		if err != nil {
			return err
		}
		sum.Written = put.Inserted + put.Updated
		return nil
	})
	if err != nil {
		return nil, &apperr.TransactionIntegrityError{Operation: "import " + base, Err: err}
	}

	i.metrics.RecordImport(req.Table, sum.Written, sum.Dropped)
	report.Info(i.sink, "import finished",
		report.F("file", base),
		report.F("table", req.Table),
		report.F("written", sum.Written),
		report.F("dropped", sum.Dropped))
	return sum, nil
}

// fillDefaults sets project, shop and date cells the file left empty.
func (i *Importer) fillDefaults(t *table.Table, has func(string) bool, f Format, req Request) {
	fill := func(column string, value any) {
		t.AddColumn(column)
		for _, r := range t.Rows {
			if r.IsNA(column) {
				r[column] = value
			}
		}
	}
	if has(ColProject) {
		project := req.Project
		if project == "" {
			project = strings.TrimSuffix(filepath.Base(req.Path), filepath.Ext(req.Path))
		}
		fill(ColProject, project)
	}
	if has(ColShop) {
		shop := req.Shop
		if shop == "" {
			shop = f.Name
		}
		fill(ColShop, shop)
	}
	if has(ColDate) {
		fill(ColDate, i.now().Format(DateLayout))
	}
}

// deviceColumn returns the local column referencing the device table.
func deviceColumn(fks []scheme.ForeignKey) string {
	for _, fk := range fks {
		if fk.RefTable == attributes.DeviceTable {
			return fk.Column
		}
	}
	return ""
}

// deviceRows projects import rows onto device columns.
func deviceRows(rows []table.Row, hashColumn string) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row{
			attributes.FieldHash:         r[hashColumn],
			attributes.FieldID:           r[attributes.FieldID],
			attributes.FieldManufacturer: r[attributes.FieldManufacturer],
			attributes.FieldDescription:  r[attributes.FieldDescription],
			attributes.FieldPackage:      r[attributes.FieldPackage],
			attributes.FieldCategory1:    r[attributes.FieldCategory1],
			attributes.FieldCategory2:    r[attributes.FieldCategory2],
		}
	}
	return out
}

// collapse merges rows sharing a conflict key, summing quantities when
// sum is set and keeping the last row otherwise.
func collapse(rows []table.Row, key []string, sum bool) []table.Row {
	if len(key) == 0 {
		return rows
	}
	var out []table.Row
	index := map[string]int{}
	for _, r := range rows {
		parts := make([]string, len(key))
		for j, c := range key {
			parts[j] = utils.ToString(r[c])
		}
		k := strings.Join(parts, "\x1f")
		at, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, r)
			continue
		}
		if sum {
			q := utils.ToInt(out[at][ColQuantity]) + utils.ToInt(r[ColQuantity])
			r[ColQuantity] = q
		}
		out[at] = r
	}
	return out
}

// String renders the summary on one line.
func (s *Summary) String() string {
	return fmt.Sprintf("%s -> %s: read %d, written %d, dropped %d, incomplete %d",
		s.File, s.Table, s.Read, s.Written, s.Dropped, s.Incomplete)
}
