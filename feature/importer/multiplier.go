package importer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bom-manager/core/table"
	"bom-manager/core/utils"
)

// AskValue is the multiplier sentinel that defers the value to an Asker.
const AskValue = "ask"

// Multiplier scales quantity columns.
type Multiplier struct {
	Value float64
	Ask   bool
}

// One leaves quantities unchanged.
var One = Multiplier{Value: 1}

// ParseMultiplier accepts a positive number or "ask". Empty means One.
func ParseMultiplier(s string) (Multiplier, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return One, nil
	case AskValue:
		return Multiplier{Ask: true}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return Multiplier{}, fmt.Errorf("invalid multiplier %q: want a positive number or %q", s, AskValue)
	}
	return Multiplier{Value: v}, nil
}

func (m Multiplier) String() string {
	if m.Ask {
		return AskValue
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// Asker supplies a multiplier when the operator chose "ask".
type Asker interface {
	AskMultiplier(column string) (float64, error)
}

// AskerFunc adapts a function to Asker.
type AskerFunc func(column string) (float64, error)

func (f AskerFunc) AskMultiplier(column string) (float64, error) { return f(column) }

// ErrNoAsker is returned when an "ask" multiplier has nobody to ask.
var ErrNoAsker = errors.New("multiplier is \"ask\" but no interactive asker is available")

// Resolve returns the concrete factor, asking if needed.
func (m Multiplier) Resolve(column string, asker Asker) (float64, error) {
	if !m.Ask {
		if m.Value == 0 {
			return 1, nil
		}
		return m.Value, nil
	}
	if asker == nil {
		return 0, ErrNoAsker
	}
	v, err := asker.AskMultiplier(column)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid multiplier %v for %s", v, column)
	}
	return v, nil
}

// Scale multiplies q by factor rounding up to whole parts.
func Scale(q int, factor float64) int {
	if factor == 1 {
		return q
	}
	return int(math.Ceil(float64(q)*factor - 1e-9))
}

// ScaleQuantity multiplies column in every row of t. Missing cells are left
// alone. A table without column is not an error.
func ScaleQuantity(t table.Table, column string, m Multiplier, asker Asker) error {
	if !t.HasColumn(column) || t.Len() == 0 {
		return nil
	}
	factor, err := m.Resolve(column, asker)
	if err != nil {
		return err
	}
	if factor == 1 {
		return nil
	}
	for _, r := range t.Rows {
		if r.IsNA(column) {
			continue
		}
		r[column] = Scale(utils.ToInt(r[column]), factor)
	}
	return nil
}
