package attributes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bom-manager/core/apperr"
	"bom-manager/core/identity"
	"bom-manager/core/plan"
	"bom-manager/core/report"
	"bom-manager/core/store"
	"bom-manager/core/store/storetest"
	"bom-manager/core/table"
	"bom-manager/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dev(id, mfr, desc string) table.Row {
	return table.Row{
		FieldHash:         identity.Of(id, mfr),
		FieldID:           id,
		FieldManufacturer: mfr,
		FieldDescription:  desc,
	}
}

func seed(t *testing.T, s *store.Store, tableName string, rows ...table.Row) {
	t.Helper()
	_, err := s.Put(context.Background(), tableName, rows, store.ReplaceRow)
	require.NoError(t, err)
}

func apply(t *testing.T, s *store.Store, out *Outcome) {
	t.Helper()
	_, err := plan.Apply(context.Background(), s, out.Plan, plan.Options{Confirmed: true})
	require.NoError(t, err)
}

func devices(t *testing.T, s *store.Store) map[string]table.Row {
	t.Helper()
	rows, err := s.Get(context.Background(), DeviceTable, store.Query{})
	require.NoError(t, err)
	out := map[string]table.Row{}
	for _, r := range rows {
		out[utils.ToString(r[FieldHash])] = r
	}
	return out
}

func TestReconcile_NewDevices(t *testing.T) {
	s := storetest.New(t)
	r := New(nil, nil, nil, nil)

	out, err := r.Reconcile(context.Background(), s, []table.Row{
		dev("NE555", "TI", "timer"),
		dev("NE555", "TI", "precision timer"),
		dev("LM358", "TI", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Inserted)
	assert.Equal(t, 1, out.AutoMerged)
	apply(t, s, out)

	got := devices(t, s)
	require.Len(t, got, 2)
	assert.Equal(t, "precision timer", got[identity.Of("NE555", "TI").String()][FieldDescription])
}

func TestReconcile_DescriptionPolicy(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		proposed string
		decider  Decider
		want     string
		wantErr  bool
		updated  int
	}{
		{name: "longer proposed wins", existing: "opamp", proposed: "dual opamp", want: "dual opamp", updated: 1},
		{name: "longer existing kept", existing: "dual opamp", proposed: "opamp", want: "dual opamp"},
		{name: "equal length strict", existing: "abcd", proposed: "wxyz", wantErr: true},
		{name: "equal length operator", existing: "abcd", proposed: "wxyz", decider: Fixed{Value: -1}, want: "wxyz", updated: 1},
		{name: "identical", existing: "same", proposed: "same", want: "same"},
		{name: "existing empty", existing: "", proposed: "filled", want: "filled", updated: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storetest.New(t)
			seed(t, s, DeviceTable, dev("LM358", "TI", tt.existing))

			sink := &report.Collector{}
			out, err := New(nil, tt.decider, sink, nil).Reconcile(context.Background(), s, []table.Row{dev("LM358", "TI", tt.proposed)})
			if tt.wantErr {
				var ce *apperr.ReconciliationConflictError
				require.True(t, errors.As(err, &ce), "got %v", err)
				assert.Equal(t, FieldDescription, ce.Field)
				assert.Equal(t, []string{tt.existing, tt.proposed}, ce.Candidates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.updated, out.Updated)
			apply(t, s, out)

			got := devices(t, s)[identity.Of("LM358", "TI").String()]
			assert.Equal(t, tt.want, got[FieldDescription])
		})
	}
}

func TestReconcile_AutomaticMergeIsReported(t *testing.T) {
	s := storetest.New(t)
	seed(t, s, DeviceTable, dev("LM358", "TI", "opamp"))

	sink := &report.Collector{}
	_, err := New(nil, nil, sink, nil).Reconcile(context.Background(), s, []table.Row{dev("LM358", "TI", "dual opamp")})
	require.NoError(t, err)

	e, ok := sink.Find("attributes merged automatically")
	require.True(t, ok)
	assert.Equal(t, "dual opamp", e.Field("kept"))
	assert.Equal(t, FieldDescription, e.Field("field"))
}

func TestReconcile_ManufacturerStrict(t *testing.T) {
	s := storetest.New(t)
	seed(t, s, DeviceTable, dev("LM358", "TI", "opamp"))

	_, err := New(nil, Strict{}, nil, nil).Reconcile(context.Background(), s, []table.Row{dev("LM358", "onsemi", "opamp")})
	var ce *apperr.ReconciliationConflictError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "LM358", ce.DeviceID)
	assert.Equal(t, FieldManufacturer, ce.Field)
	assert.Equal(t, []string{"TI", "onsemi"}, ce.Candidates)
}

func TestReconcile_ManufacturerKeepExisting(t *testing.T) {
	s := storetest.New(t)
	seed(t, s, DeviceTable, dev("LM358", "TI", "opamp"))

	out, err := New(nil, Fixed{Decision: KeepExisting}, nil, nil).Reconcile(context.Background(), s, []table.Row{dev("LM358", "onsemi", "dual opamp")})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Merged)
	assert.Equal(t, identity.Of("LM358", "TI"), out.Canonical(identity.Of("LM358", "onsemi")))
	apply(t, s, out)

	got := devices(t, s)
	require.Len(t, got, 1)
	kept := got[identity.Of("LM358", "TI").String()]
	assert.Equal(t, "TI", kept[FieldManufacturer])
	assert.Equal(t, "dual opamp", kept[FieldDescription])
}

// TestReconcile_ManufacturerTakeNew tests that dependents move to the new identity.
func TestReconcile_ManufacturerTakeNew(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	old, fresh := identity.Of("LM358", "TI"), identity.Of("LM358", "onsemi")
	seed(t, s, DeviceTable, dev("LM358", "TI", "opamp"))
	seed(t, s, "bom", table.Row{"device_hash": old, "project": "amp", "quantity": 3})
	seed(t, s, "stock", table.Row{"device_hash": old, "quantity": 5})

	out, err := New(nil, Fixed{Decision: TakeNew}, nil, nil).Reconcile(ctx, s, []table.Row{dev("LM358", "onsemi", "")})
	require.NoError(t, err)
	assert.Equal(t, fresh, out.Canonical(old))
	apply(t, s, out)

	got := devices(t, s)
	require.Len(t, got, 1)
	taken := got[fresh.String()]
	require.NotNil(t, taken)
	assert.Equal(t, "onsemi", taken[FieldManufacturer])
	assert.Equal(t, "opamp", taken[FieldDescription])

	for _, name := range []string{"bom", "stock"} {
		rows, err := s.Get(ctx, name, store.Query{})
		require.NoError(t, err)
		require.Len(t, rows, 1, name)
		assert.Equal(t, fresh.String(), rows[0]["device_hash"], name)
	}
	rows, err := s.Get(ctx, "stock", store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 5, utils.ToInt(rows[0]["quantity"]))
}

func TestReconcile_ManufacturerDistinct(t *testing.T) {
	s := storetest.New(t)
	seed(t, s, DeviceTable, dev("LM358", "TI", "opamp"))

	out, err := New(nil, Fixed{Decision: Distinct}, nil, nil).Reconcile(context.Background(), s, []table.Row{dev("LM358", "onsemi", "opamp")})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Distinct)
	apply(t, s, out)
	assert.Len(t, devices(t, s), 2)
}

func TestReconcile_ManufacturerManyCandidates(t *testing.T) {
	s := storetest.New(t)
	seed(t, s, DeviceTable, dev("LM358", "TI", ""), dev("LM358", "onsemi", ""))

	out, err := New(nil, Fixed{Value: 0}, nil, nil).Reconcile(context.Background(), s, []table.Row{dev("LM358", "ST", "")})
	require.NoError(t, err)
	assert.Equal(t, identity.Of("LM358", "TI"), out.Canonical(identity.Of("LM358", "ST")))

	out, err = New(nil, Fixed{Value: -1}, nil, nil).Reconcile(context.Background(), s, []table.Row{dev("LM358", "ST", "")})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Distinct)
}

func TestReconcile_ManufacturerPolicyWithoutPrompt(t *testing.T) {
	s := storetest.New(t)
	seed(t, s, DeviceTable, dev("LM358", "TI", ""))

	policies := DefaultPolicies()
	policies[FieldManufacturer] = PolicyKeepExisting
	out, err := New(policies, Strict{}, nil, nil).Reconcile(context.Background(), s, []table.Row{dev("LM358", "onsemi", "")})
	require.NoError(t, err)
	assert.Equal(t, identity.Of("LM358", "TI"), out.Canonical(identity.Of("LM358", "onsemi")))
}

func TestReconcile_RejectsMissingHash(t *testing.T) {
	s := storetest.New(t)
	_, err := New(nil, nil, nil, nil).Reconcile(context.Background(), s, []table.Row{{FieldID: "x"}})
	assert.Error(t, err)
}

func TestTerminal(t *testing.T) {
	var out strings.Builder
	term := NewTerminal(strings.NewReader("maybe\nt\nx\n2\n"), &out)
	c := Conflict{DeviceID: "LM358", Field: FieldManufacturer, Candidates: []string{"TI", "onsemi"}}

	d, err := term.ChooseMergeAction(c)
	require.NoError(t, err)
	assert.Equal(t, TakeNew, d)

	i, err := term.ChooseValue(c)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Contains(t, out.String(), "onsemi (proposed)")

	_, err = term.ChooseValue(c)
	assert.Error(t, err, "EOF aborts")

	_, err = NewTerminal(strings.NewReader("a\n"), &out).ChooseMergeAction(c)
	var ce *apperr.ReconciliationConflictError
	assert.True(t, errors.As(err, &ce))
}

func TestConfig_Policies(t *testing.T) {
	p, err := Config{Manufacturer: "keep_existing", Category: "take_new"}.Policies()
	require.NoError(t, err)
	assert.Equal(t, PolicyKeepExisting, p[FieldManufacturer])
	assert.Equal(t, PolicyLongest, p[FieldDescription])
	assert.Equal(t, PolicyTakeNew, p[FieldCategory1])
	assert.Equal(t, PolicyTakeNew, p[FieldCategory2])

	_, err = Config{Description: "coin_flip"}.Policies()
	assert.ErrorContains(t, err, "coin_flip")
}

func TestDecide(t *testing.T) {
	assert.Equal(t, verdict{index: -1}, decide(PolicyAsk, nil, false))
	assert.Equal(t, verdict{index: 0}, decide(PolicyAsk, []string{"a"}, true))
	assert.Equal(t, verdict{ask: true}, decide(PolicyLongest, []string{"a", "bb", "ccc"}, true))
	assert.Equal(t, verdict{ask: true}, decide(PolicyTakeNew, []string{"a", "b", "c"}, true))
	assert.Equal(t, verdict{index: 1}, decide(PolicyTakeNew, []string{"a", "b"}, true))
	assert.Equal(t, verdict{index: 0}, decide(PolicyKeepExisting, []string{"a", "b"}, true))
	assert.Equal(t, verdict{ask: true}, decide(PolicyKeepExisting, []string{"a", "b"}, false))
	assert.Equal(t, verdict{index: 1, auto: true}, decide(PolicyLongest, []string{"a", "bb"}, true))
}
