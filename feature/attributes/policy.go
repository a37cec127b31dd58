package attributes

import (
	"bom-manager/core/table"
	"bom-manager/core/utils"
)

// Device columns the reconciler watches.
const (
	FieldHash         = "device_hash"
	FieldID           = "device_id"
	FieldManufacturer = "device_manufacturer"
	FieldDescription  = "device_description"
	FieldPackage      = "package"
	FieldCategory1    = "category1"
	FieldCategory2    = "category2"
)

// watched lists the attribute fields merged under an identity, in order.
var watched = []string{FieldDescription, FieldPackage, FieldCategory1, FieldCategory2}

// Policy decides between differing values of one field.
type Policy string

const (
	PolicyAsk          Policy = "ask"
	PolicyLongest      Policy = "longest"
	PolicyKeepExisting Policy = "keep_existing"
	PolicyTakeNew      Policy = "take_new"
)

func (p Policy) valid() bool {
	switch p {
	case PolicyAsk, PolicyLongest, PolicyKeepExisting, PolicyTakeNew:
		return true
	}
	return false
}

// Policies maps device fields to their policy.
type Policies map[string]Policy

// DefaultPolicies asks for manufacturers, prefers longer descriptions and
// keeps existing packages and categories.
func DefaultPolicies() Policies {
	return Policies{
		FieldManufacturer: PolicyAsk,
		FieldDescription:  PolicyLongest,
		FieldPackage:      PolicyKeepExisting,
		FieldCategory1:    PolicyKeepExisting,
		FieldCategory2:    PolicyKeepExisting,
	}
}

func (p Policies) of(field string) Policy {
	if policy, ok := p[field]; ok {
		return policy
	}
	return PolicyAsk
}

// verdict is what a policy concluded for a candidate list.
type verdict struct {
	index int
	auto  bool
	ask   bool
}

// decide applies policy to candidates. When hasExisting is set the first
// candidate is the value on record. Candidates are distinct and non-empty.
func decide(policy Policy, candidates []string, hasExisting bool) verdict {
	switch len(candidates) {
	case 0:
		return verdict{index: -1}
	case 1:
		return verdict{index: 0}
	}

	switch policy {
	case PolicyKeepExisting:
		if hasExisting {
			return verdict{index: 0}
		}
	case PolicyTakeNew:
		fresh := len(candidates)
		if hasExisting {
			fresh--
		}
		if fresh == 1 {
			return verdict{index: len(candidates) - 1}
		}
	case PolicyLongest:
		if len(candidates) == 2 {
			a, b := len(candidates[0]), len(candidates[1])
			switch {
			case a > b:
				return verdict{index: 0, auto: true}
			case b > a:
				return verdict{index: 1, auto: true}
			}
		}
	}
	return verdict{ask: true}
}

// distinctValues collects the non-empty string values of field over rows,
// in order of first appearance.
func distinctValues(field string, rows ...table.Row) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range rows {
		if r == nil || r.IsNA(field) {
			continue
		}
		v := utils.ToString(r[field])
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
