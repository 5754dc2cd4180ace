package postgres

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPriceConversion(t *testing.T) {
	for _, tt := range []struct {
		numeric string
		minor   int64
	}{
		{numeric: "0", minor: 0},
		{numeric: "19.99", minor: 1999},
		{numeric: "5", minor: 500},
		{numeric: "1234.5", minor: 123450},
	} {
		d := decimal.RequireFromString(tt.numeric)
		assert.Equal(t, tt.minor, toMinorUnits(d), tt.numeric)
		assert.True(t, d.Equal(toNumeric(tt.minor)), tt.numeric)
	}

	// Values beyond the column scale are rounded.
	assert.Equal(t, int64(1000), toMinorUnits(decimal.RequireFromString("9.995")))
}
