package utils

import (
	"testing"

	"bom-manager/core/identity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"int", 5, 5},
		{"int64", int64(7), 7},
		{"float", 2.9, 2},
		{"string", " 12 ", 12},
		{"bytes", []byte("3"), 3},
		{"decimal", decimal.RequireFromString("4.5"), 4},
		{"nil", nil, 0},
		{"garbage", "abc", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToInt(tt.in))
		})
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "a", ToString([]byte("a")))
	assert.Equal(t, "3", ToString(3))

	k := identity.Of("x")
	assert.Equal(t, k.String(), ToString(k))
}

func TestToDecimal(t *testing.T) {
	d, ok := ToDecimal("10.50")
	assert.True(t, ok)
	assert.True(t, d.Equal(decimal.RequireFromString("10.5")))

	d, ok = ToDecimal(int64(20))
	assert.True(t, ok)
	assert.True(t, d.Equal(decimal.NewFromInt(20)))

	d, ok = ToDecimal(0.25)
	assert.True(t, ok)
	assert.Equal(t, "0.25", d.String())

	_, ok = ToDecimal("n/a")
	assert.False(t, ok)
	_, ok = ToDecimal(nil)
	assert.False(t, ok)
}
