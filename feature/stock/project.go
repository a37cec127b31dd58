package stock

import (
	"context"
	"sort"

	"bom-manager/core/plan"
	"bom-manager/core/store"
	"bom-manager/core/utils"
)

// Project summarizes one imported project.
type Project struct {
	Name      string
	Devices   int
	Parts     int
	Committed bool
}

// Projects lists every project with BOM lines, sorted by name.
func (e *Engine) Projects(ctx context.Context) ([]Project, error) {
	bom, err := e.store.Get(ctx, TableBOM, store.Query{Columns: []string{colProject, colHash, colQuantity}})
	if err != nil {
		return nil, err
	}
	ledger, err := e.store.Get(ctx, TableLedger, store.Query{Columns: []string{colProject}})
	if err != nil {
		return nil, err
	}
	committed := map[string]bool{}
	for _, r := range ledger {
		committed[utils.ToString(r[colProject])] = true
	}

	byName := map[string]*Project{}
	for _, r := range bom {
		name := utils.ToString(r[colProject])
		p, ok := byName[name]
		if !ok {
			p = &Project{Name: name, Committed: committed[name]}
			byName[name] = p
		}
		p.Devices++
		p.Parts += utils.ToInt(r[colQuantity])
	}
	out := make([]Project, 0, len(byName))
	for _, p := range byName {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// PlanProjectRemoval plans deleting the BOM lines of project. purgeLedger
// also forgets what was committed, so a later import and commit adds the
// parts to stock again.
func PlanProjectRemoval(project string, purgeLedger bool) *plan.Plan {
	p := plan.New("remove project "+project).
		Remove(TableBOM, colProject, []any{project}, "project BOM lines")
	if purgeLedger {
		p.Remove(TableLedger, colProject, []any{project}, "commit ledger entries")
	}
	return p
}

// RemoveProject plans and applies the removal of project under opts.
func (e *Engine) RemoveProject(ctx context.Context, project string, purgeLedger bool, opts plan.Options) (*plan.Plan, plan.Result, error) {
	p := PlanProjectRemoval(project, purgeLedger)
	res, err := plan.Apply(ctx, e.store, p, opts)
	return p, res, err
}
