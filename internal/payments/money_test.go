package payments

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"70.00", 7000},
		{"10", 1000},
		{"0.01", 1},
		{"19.995", 2000},
		{"19.994", 1999},
		{"0", 0},
	}
	for _, tc := range cases {
		got := MinorUnits(decimal.RequireFromString(tc.amount))
		assert.Equal(t, tc.want, got, "amount %s", tc.amount)
	}
}

func TestMajorUnitsRoundTrips(t *testing.T) {
	major := MajorUnits(7000)
	assert.True(t, major.Equal(decimal.RequireFromString("70")), "got %s", major)
	assert.EqualValues(t, 7000, MinorUnits(major))
}
