// Package finance computes naive self-employment tax estimates.
package finance

import "github.com/shopspring/decimal"

var (
	DefaultMileageRate   = decimal.RequireFromString("0.70")
	DefaultIncomeTaxRate = decimal.RequireFromString("0.12")

	// Self-employment tax applies to 92.35% of net earnings at 15.3%.
	seTaxableShare = decimal.RequireFromString("0.9235")
	seTaxRate      = decimal.RequireFromString("0.153")
	quarters       = decimal.NewFromInt(4)
)

type Rates struct {
	MileageRate   decimal.Decimal
	IncomeTaxRate decimal.Decimal
}

// DefaultRates returns the standard mileage rate and a flat 12% income tax.
func DefaultRates() Rates {
	return Rates{MileageRate: DefaultMileageRate, IncomeTaxRate: DefaultIncomeTaxRate}
}

type Estimate struct {
	Income            decimal.Decimal `json:"income"`
	Expenses          decimal.Decimal `json:"expenses"`
	Miles             decimal.Decimal `json:"miles"`
	MileageDeduction  decimal.Decimal `json:"mileage_deduction"`
	NetProfit         decimal.Decimal `json:"net_profit"`
	SelfEmploymentTax decimal.Decimal `json:"self_employment_tax"`
	IncomeTax         decimal.Decimal `json:"income_tax"`
	TotalTax          decimal.Decimal `json:"total_tax"`
	Quarterly         decimal.Decimal `json:"quarterly_payment"`
}

// MileageDeduction is miles times the per-mile rate, rounded to cents.
func (r Rates) MileageDeduction(miles decimal.Decimal) decimal.Decimal {
	return miles.Mul(r.MileageRate).Round(2)
}

// Estimate folds a period's income, expenses and miles into a tax estimate.
// A loss is reported as negative net profit but taxed as zero.
func (r Rates) Estimate(income, expenses, miles decimal.Decimal) Estimate {
	e := Estimate{
		Income:           income,
		Expenses:         expenses,
		Miles:            miles,
		MileageDeduction: r.MileageDeduction(miles),
	}
	e.NetProfit = income.Sub(expenses).Sub(e.MileageDeduction)

	taxable := decimal.Max(e.NetProfit, decimal.Zero)
	e.SelfEmploymentTax = taxable.Mul(seTaxableShare).Mul(seTaxRate).Round(2)
	e.IncomeTax = taxable.Mul(r.IncomeTaxRate).Round(2)
	e.TotalTax = e.SelfEmploymentTax.Add(e.IncomeTax)
	e.Quarterly = e.TotalTax.Div(quarters).Round(2)
	return e
}
