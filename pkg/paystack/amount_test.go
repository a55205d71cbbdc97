package paystack

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"1":       100,
		"2900":    290000,
		"10.5":    1050,
		"19.99":   1999,
		"0.005":   1,
		"12.344":  1234,
		"12.345":  1235,
		"1000000": 100000000,
	}
	for in, want := range cases {
		assert.Equal(t, want, ToMinorUnits(decimal.RequireFromString(in)), in)
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, FromMinorUnits(290050).Equal(decimal.RequireFromString("2900.5")))
}
