package plan

import (
	"bom-manager/core/store"
	"bom-manager/core/table"
)

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionRemove deletes rows whose column matches one of the values.
	ActionRemove ActionType = "remove"
	// ActionPut writes rows under a conflict policy.
	ActionPut ActionType = "put"
)

// Action represents a planned mutation operation on one table.
type Action struct {
	Type  ActionType `json:"type"`
	Table string     `json:"table"`

	// Column and Values select the rows of a remove action.
	Column string `json:"column,omitempty"`
	Values []any  `json:"values,omitempty"`

	// Rows and Policy describe a put action.
	Rows   []table.Row    `json:"-"`
	Policy store.Conflict `json:"-"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`
}

// Size returns the number of rows or keys the action touches.
func (a Action) Size() int {
	if a.Type == ActionPut {
		return len(a.Rows)
	}
	return len(a.Values)
}

// Summary provides aggregate counts for a plan.
type Summary struct {
	Removes    int `json:"removes"`
	RemoveKeys int `json:"remove_keys"`
	Puts       int `json:"puts"`
	PutRows    int `json:"put_rows"`
	Tables     int `json:"tables"`
}

// Options controls whether Apply executes.
type Options struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool
	// Confirmed indicates the operator accepted the plan.
	// If false, mutations will not execute regardless of DryRun.
	Confirmed bool
}

// Result counts what an applied plan did.
type Result struct {
	Executed int   `json:"executed"`
	Removed  int64 `json:"removed"`
	Inserted int   `json:"inserted"`
	Updated  int   `json:"updated"`
	Skipped  int   `json:"skipped"`
}
