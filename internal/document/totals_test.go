package document

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeLineTotals(t *testing.T) {
	cases := []struct {
		name      string
		quantity  string
		unitPrice string
		taxRate   string
		net       string
		tax       string
		gross     string
	}{
		{"reference scenario", "2.5", "100.50", "20", "251.25", "50.25", "301.50"},
		{"zero quantity", "0", "99.99", "20", "0", "0", "0"},
		{"zero price", "10", "0", "20", "0", "0", "0"},
		{"zero tax rate", "3", "19.99", "0", "59.97", "0", "59.97"},
		{"full tax rate", "1", "100", "100", "100", "100", "200"},
		{"three decimal quantity", "1.333", "3", "10", "4", "0.4", "4.4"},
		{"staged rounding", "0.333", "0.10", "20", "0.03", "0.01", "0.04"},
		{"half up boundary", "0.5", "0.05", "0", "0.03", "0", "0.03"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeLineTotals(d(tc.quantity), d(tc.unitPrice), d(tc.taxRate))
			assert.True(t, got.Net.Equal(d(tc.net)), "net = %s, want %s", got.Net, tc.net)
			assert.True(t, got.Tax.Equal(d(tc.tax)), "tax = %s, want %s", got.Tax, tc.tax)
			assert.True(t, got.Gross.Equal(d(tc.gross)), "gross = %s, want %s", got.Gross, tc.gross)
		})
	}
}

func TestComputeLineTotals_RoundsEachStage(t *testing.T) {
	// net rounds before tax is derived: 1.005 * 1 -> 1.01 (half up),
	// then 1.01 * 19 / 100 = 0.1919 -> 0.19.
	got := ComputeLineTotals(d("1.005"), d("1"), d("19"))
	assert.Equal(t, "1.01", got.Net.StringFixed(2))
	assert.Equal(t, "0.19", got.Tax.StringFixed(2))
	assert.Equal(t, "1.20", got.Gross.StringFixed(2))
}

func TestSumTotals(t *testing.T) {
	lines := []LineTotals{
		ComputeLineTotals(d("2.5"), d("100.50"), d("20")),
		ComputeLineTotals(d("1"), d("49.99"), d("10")),
	}

	got := SumTotals(lines)
	assert.Equal(t, "301.24", got.Net.StringFixed(2))
	assert.Equal(t, "55.25", got.Tax.StringFixed(2))
	assert.Equal(t, "356.49", got.Gross.StringFixed(2))
	assert.True(t, got.Net.Add(got.Tax).Sub(got.Gross).Abs().LessThanOrEqual(d("0.01")))
}

func TestSumTotals_Empty(t *testing.T) {
	got := SumTotals(nil)
	assert.Equal(t, "0.00", got.Net.StringFixed(2))
	assert.Equal(t, "0.00", got.Tax.StringFixed(2))
	assert.Equal(t, "0.00", got.Gross.StringFixed(2))
}

func TestSumTotals_Idempotent(t *testing.T) {
	lines := []LineTotals{
		ComputeLineTotals(d("3.333"), d("7.77"), d("5.5")),
	}
	first := SumTotals(lines)
	second := SumTotals(lines)
	assert.True(t, first.Net.Equal(second.Net))
	assert.True(t, first.Tax.Equal(second.Tax))
	assert.True(t, first.Gross.Equal(second.Gross))
}
