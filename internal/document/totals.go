// Package document holds the arithmetic and guard contracts shared by
// quotes and invoices.
package document

import "github.com/shopspring/decimal"

// LineTotals are the derived amounts of a single line.
type LineTotals struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Gross decimal.Decimal
}

// Totals are the derived amounts of a whole document.
type Totals struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Gross decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// ComputeLineTotals derives net, tax and gross from quantity, unit price and
// tax rate. Rounding is half-up to 2 decimals and applied at each stage, in
// this exact order:
//
//	net   = round(quantity * unitPrice, 2)
//	tax   = round(net * taxRate / 100, 2)
//	gross = round(net + tax, 2)
//
// Callers must not persist user-provided totals; this derivation is the only
// source of truth.
func ComputeLineTotals(quantity, unitPrice, taxRate decimal.Decimal) LineTotals {
	net := quantity.Mul(unitPrice).Round(2)
	tax := net.Mul(taxRate).Div(oneHundred).Round(2)
	gross := net.Add(tax).Round(2)
	return LineTotals{Net: net, Tax: tax, Gross: gross}
}

// SumTotals sums the three derived fields over the given lines, rounding each
// sum to 2 decimals. An empty set yields zero totals.
func SumTotals(lines []LineTotals) Totals {
	var net, tax, gross decimal.Decimal
	for _, line := range lines {
		net = net.Add(line.Net)
		tax = tax.Add(line.Tax)
		gross = gross.Add(line.Gross)
	}
	return Totals{
		Net:   net.Round(2),
		Tax:   tax.Round(2),
		Gross: gross.Round(2),
	}
}
