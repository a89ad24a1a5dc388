package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"1,20,000.50": 120000.5,
		"Rs 500":      500,
		"₹ 1,180.00":  1180,
		"-25":         -25,
		"(25)":        -25,
		"":            0,
		"abc":         0,
		"1.2.3":       0,
		"1e3":         1000,
		"1.5E+05":     150000,
		"-2.5e2":      -250,
		"500/-":       500,
		"12-5":        0,
		"1+2":         0,
	}
	for in, want := range cases {
		require.InDelta(t, want, Amount(in), 0.0001, in)
	}
}

func TestWithinToleranceDefaultsWhenUnset(t *testing.T) {
	require.True(t, withinTolerance("100.1", "100", 0))
	require.False(t, withinTolerance("100.2", "100", 0))
	require.True(t, withinTolerance("0.3", "0.1", 0.2))
}
