package attributes

import (
	"context"
	"fmt"
	"sort"

	"bom-manager/core/identity"
	"bom-manager/core/metrics"
	"bom-manager/core/plan"
	"bom-manager/core/report"
	"bom-manager/core/scheme"
	"bom-manager/core/store"
	"bom-manager/core/table"
	"bom-manager/core/utils"
)

// DeviceTable is the table holding canonical devices.
const DeviceTable = "device"

// Reconciler merges proposed devices into the canonical device table.
type Reconciler struct {
	policies Policies
	decider  Decider
	sink     report.Sink
	metrics  *metrics.Recorder
}

// New creates a reconciler. Nil arguments fall back to DefaultPolicies,
// Strict and report.Discard.
func New(policies Policies, decider Decider, sink report.Sink, rec *metrics.Recorder) *Reconciler {
	if policies == nil {
		policies = DefaultPolicies()
	}
	if decider == nil {
		decider = Strict{}
	}
	if sink == nil {
		sink = report.Discard
	}
	return &Reconciler{policies: policies, decider: decider, sink: sink, metrics: rec}
}

// Outcome is the result of a reconciliation pass.
type Outcome struct {
	// Plan holds every device write and dependent re-key, in order.
	Plan *plan.Plan
	// Remap maps each proposed identity to its canonical identity.
	Remap map[identity.Key]identity.Key

	Inserted   int
	Updated    int
	Unchanged  int
	Merged     int
	Distinct   int
	AutoMerged int
}

// Canonical returns the identity k resolved to, or k itself.
func (o *Outcome) Canonical(k identity.Key) identity.Key {
	if to, ok := o.Remap[k]; ok {
		return to
	}
	return k
}

// Conflicts counts decisions that touched more than one candidate.
func (o *Outcome) Conflicts() int {
	return o.Merged + o.Distinct + o.AutoMerged
}

type proposal struct {
	key  identity.Key
	id   string
	mfr  string
	rows []table.Row
}

// run carries the state of one Reconcile call.
type run struct {
	*Reconciler
	ctx    context.Context
	st     *store.Store
	out    *Outcome
	byHash map[identity.Key]table.Row
	byID   map[string][]identity.Key
}

// Reconcile resolves proposed device rows against the devices on record.
// It reads through st and returns the writes as a plan; nothing is written.
func (r *Reconciler) Reconcile(ctx context.Context, st *store.Store, proposed []table.Row) (*Outcome, error) {
	groups, err := groupProposals(proposed)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Plan: plan.New("reconcile devices"), Remap: make(map[identity.Key]identity.Key)}
	if len(groups) == 0 {
		return out, nil
	}

	ids := make([]any, 0, len(groups))
	seen := map[string]bool{}
	for _, g := range groups {
		if !seen[g.id] {
			seen[g.id] = true
			ids = append(ids, g.id)
		}
	}
	existing, err := st.Get(ctx, DeviceTable, store.Query{By: FieldID, Values: ids})
	if err != nil {
		return nil, err
	}

	rn := &run{
		Reconciler: r,
		ctx:        ctx,
		st:         st,
		out:        out,
		byHash:     make(map[identity.Key]table.Row, len(existing)),
		byID:       make(map[string][]identity.Key),
	}
	sort.SliceStable(existing, func(i, j int) bool {
		return utils.ToString(existing[i][FieldManufacturer]) < utils.ToString(existing[j][FieldManufacturer])
	})
	for _, row := range existing {
		k, err := identity.From(row[FieldHash])
		if err != nil {
			return nil, fmt.Errorf("device %v: %w", row[FieldID], err)
		}
		row[FieldHash] = k
		rn.index(k, row)
	}

	for _, g := range groups {
		if err := rn.resolve(g); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func groupProposals(rows []table.Row) ([]*proposal, error) {
	var groups []*proposal
	byKey := map[identity.Key]*proposal{}
	for _, row := range rows {
		k, err := identity.From(row[FieldHash])
		if err != nil {
			return nil, fmt.Errorf("proposed device %v: %w", row[FieldID], err)
		}
		g, ok := byKey[k]
		if !ok {
			g = &proposal{key: k, id: utils.ToString(row[FieldID]), mfr: utils.ToString(row[FieldManufacturer])}
			byKey[k] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}
	return groups, nil
}

func (rn *run) index(k identity.Key, row table.Row) {
	if _, ok := rn.byHash[k]; !ok {
		id := utils.ToString(row[FieldID])
		rn.byID[id] = append(rn.byID[id], k)
	}
	rn.byHash[k] = row
}

func (rn *run) unindex(k identity.Key) {
	row, ok := rn.byHash[k]
	if !ok {
		return
	}
	delete(rn.byHash, k)
	id := utils.ToString(row[FieldID])
	keys := rn.byID[id]
	for i, other := range keys {
		if other == k {
			rn.byID[id] = append(keys[:i:i], keys[i+1:]...)
			break
		}
	}
}

func (rn *run) resolve(g *proposal) error {
	if current, ok := rn.byHash[g.key]; ok {
		merged, changed, err := rn.merge(g.id, current, g.rows)
		if err != nil {
			return err
		}
		rn.out.Remap[g.key] = g.key
		if !changed {
			rn.out.Unchanged++
			return nil
		}
		rn.out.Plan.Put(DeviceTable, []table.Row{merged}, store.ReplaceRow, "merge attributes of "+g.id)
		rn.index(g.key, merged)
		rn.out.Updated++
		return nil
	}

	others := rn.byID[g.id]
	if len(others) == 0 {
		merged, _, err := rn.merge(g.id, nil, g.rows)
		if err != nil {
			return err
		}
		rn.out.Plan.Put(DeviceTable, []table.Row{merged}, store.ReplaceRow, "new device "+g.id)
		rn.index(g.key, merged)
		rn.out.Remap[g.key] = g.key
		rn.out.Inserted++
		return nil
	}

	decision, target, err := rn.chooseIdentity(g, others)
	if err != nil {
		return err
	}
	rn.metrics.RecordConflict(FieldManufacturer, string(decision))
	report.Info(rn.sink, "manufacturer conflict resolved",
		report.F("device", g.id),
		report.F("proposed", g.mfr),
		report.F("decision", string(decision)))

	switch decision {
	case KeepExisting:
		current := rn.byHash[target]
		merged, changed, err := rn.merge(g.id, current, g.rows)
		if err != nil {
			return err
		}
		if changed {
			rn.out.Plan.Put(DeviceTable, []table.Row{merged}, store.ReplaceRow, "merge attributes of "+g.id)
			rn.index(target, merged)
		}
		rn.out.Remap[g.key] = target
		rn.out.Merged++
	case TakeNew:
		current := rn.byHash[target]
		merged, _, err := rn.merge(g.id, current, g.rows)
		if err != nil {
			return err
		}
		merged[FieldHash] = g.key
		merged[FieldManufacturer] = g.mfr
		if err := rn.rekey(target, g.key, g.id); err != nil {
			return err
		}
		rn.out.Plan.
			Remove(DeviceTable, FieldHash, []any{target}, "replaced by "+g.mfr+" "+g.id).
			Put(DeviceTable, []table.Row{merged}, store.ReplaceRow, "take new identity of "+g.id)
		rn.unindex(target)
		rn.index(g.key, merged)
		rn.out.Remap[g.key] = g.key
		rn.out.Remap[target] = g.key
		rn.out.Merged++
	case Distinct:
		merged, _, err := rn.merge(g.id, nil, g.rows)
		if err != nil {
			return err
		}
		rn.out.Plan.Put(DeviceTable, []table.Row{merged}, store.ReplaceRow, "distinct device "+g.id)
		rn.index(g.key, merged)
		rn.out.Remap[g.key] = g.key
		rn.out.Distinct++
	default:
		return fmt.Errorf("device %s: unknown decision %q", g.id, decision)
	}
	return nil
}

// chooseIdentity decides how proposal g relates to the devices recorded under
// the same device_id with other manufacturers.
func (rn *run) chooseIdentity(g *proposal, others []identity.Key) (Decision, identity.Key, error) {
	candidates := make([]string, 0, len(others)+1)
	for _, k := range others {
		candidates = append(candidates, utils.ToString(rn.byHash[k][FieldManufacturer]))
	}
	candidates = append(candidates, g.mfr)
	c := Conflict{DeviceID: g.id, Field: FieldManufacturer, Candidates: candidates}

	if len(others) > 1 {
		// More than two manufacturers: the operator names the canonical one.
		i, err := rn.decider.ChooseValue(c)
		if err != nil {
			return "", identity.Key{}, err
		}
		if i == len(others) {
			return Distinct, identity.Key{}, nil
		}
		return KeepExisting, others[i], nil
	}

	v := decide(rn.policies.of(FieldManufacturer), candidates, true)
	if v.ask {
		d, err := rn.decider.ChooseMergeAction(c)
		return d, others[0], err
	}
	if v.auto {
		rn.out.AutoMerged++
	}
	if v.index == 0 {
		return KeepExisting, others[0], nil
	}
	return TakeNew, others[0], nil
}

// merge folds the proposals into current field by field. current may be nil
// for a device not on record. It reports whether any watched field changed.
func (rn *run) merge(deviceID string, current table.Row, proposals []table.Row) (table.Row, bool, error) {
	first := proposals[0]
	merged := table.Row{
		FieldHash:         first[FieldHash],
		FieldID:           first[FieldID],
		FieldManufacturer: first[FieldManufacturer],
	}
	if current != nil {
		merged[FieldHash] = current[FieldHash]
		merged[FieldID] = current[FieldID]
		merged[FieldManufacturer] = current[FieldManufacturer]
	}

	changed := current == nil
	for _, field := range watched {
		candidates := distinctValues(field, append([]table.Row{current}, proposals...)...)
		hasExisting := current != nil && !current.IsNA(field)
		v := decide(rn.policies.of(field), candidates, hasExisting)

		index := v.index
		if v.ask {
			i, err := rn.decider.ChooseValue(Conflict{DeviceID: deviceID, Field: field, Candidates: candidates})
			if err != nil {
				return nil, false, err
			}
			index = i
			rn.metrics.RecordConflict(field, "operator")
		}
		if index < 0 {
			merged[field] = nil
			continue
		}
		merged[field] = candidates[index]

		if v.auto {
			rn.out.AutoMerged++
			rn.metrics.RecordConflict(field, string(rn.policies.of(field)))
			report.Info(rn.sink, "attributes merged automatically",
				report.F("device", deviceID),
				report.F("field", field),
				report.F("kept", candidates[index]))
		}
		if current != nil && utils.ToString(current[field]) != candidates[index] {
			changed = true
		}
	}
	return merged, changed, nil
}

// rekey plans moving every dependent row from identity from to identity to.
func (rn *run) rekey(from, to identity.Key, deviceID string) error {
	sch := rn.st.Scheme()
	refs, err := sch.Dependents(DeviceTable)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		t, err := sch.Table(ref.Table)
		if err != nil {
			return err
		}
		if !referencesDevice(t.Foreign, ref.Column) {
			continue
		}
		rows, err := rn.st.Get(rn.ctx, ref.Table, store.Query{By: ref.Column, Values: []any{from}})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		moved := make([]table.Row, len(rows))
		for i, row := range rows {
			moved[i] = row.Clone()
			moved[i][ref.Column] = to
		}
		policy := store.ReplaceRow
		if t.HasColumn("quantity") {
			policy = store.AddTo("quantity")
		}
		reason := fmt.Sprintf("re-key %s rows of %s", ref.Table, deviceID)
		rn.out.Plan.
			Remove(ref.Table, ref.Column, []any{from}, reason).
			Put(ref.Table, moved, policy, reason)
	}
	return nil
}

func referencesDevice(fks []scheme.ForeignKey, column string) bool {
	for _, fk := range fks {
		if fk.Column == column && fk.RefTable == DeviceTable {
			return true
		}
	}
	return false
}
