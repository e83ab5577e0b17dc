package models

import (
	"github.com/shopspring/decimal"
)

// EventTotal accumulates quantity and value of corporate events (bonuses).
type EventTotal struct {
	Quantity decimal.Decimal `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

func (e *EventTotal) Add(other EventTotal) {
	e.Quantity = e.Quantity.Add(other.Quantity)
	e.Value = e.Value.Add(other.Value)
}

// Taxes is the tax sub-record of a category's monthly Stats. Value is the
// amount owed for the month, Residual carries amounts from prior months that
// stayed below the DARF minimum. Items are the manual tax entries that
// contributed to Value.
type Taxes struct {
	Value    decimal.Decimal    `json:"value"`
	Residual decimal.Decimal    `json:"residual"`
	Paid     bool               `json:"paid"`
	Items    map[int64]TaxEntry `json:"items,omitempty"`
}

func NewTaxes() *Taxes {
	return &Taxes{Items: make(map[int64]TaxEntry)}
}

// Total is the amount that counts toward the DARF minimum: what is owed this
// month plus everything already carried.
func (t *Taxes) Total() decimal.Decimal {
	return t.Value.Add(t.Residual)
}

func (t *Taxes) AddItem(entry TaxEntry) {
	t.Items[entry.ID] = entry
}

func (t *Taxes) MergeItems(other *Taxes) {
	for id, entry := range other.Items {
		t.Items[id] = entry
	}
}

// Stats is the per-category, per-month accumulator. Flow fields (Buy, Sell,
// Tax, Profits, Losses, ExemptProfit, CompensatedLosses, Bonus and
// Taxes.Value) add up when months are merged; CumulativeLosses,
// Taxes.Residual and Patrimony are point-in-time balances.
type Stats struct {
	Buy               decimal.Decimal `json:"buy"`
	Sell              decimal.Decimal `json:"sell"`
	Tax               decimal.Decimal `json:"tax"` // withheld at source
	Profits           decimal.Decimal `json:"profits"`
	Losses            decimal.Decimal `json:"losses"` // negative
	ExemptProfit      decimal.Decimal `json:"exempt_profit"`
	CumulativeLosses  decimal.Decimal `json:"cumulative_losses"` // negative, open for compensation
	CompensatedLosses decimal.Decimal `json:"compensated_losses"`
	Patrimony         decimal.Decimal `json:"patrimony"`
	Bonus             EventTotal      `json:"bonus"`
	Taxes             *Taxes          `json:"taxes"`
}

func NewStats() *Stats {
	return &Stats{Taxes: NewTaxes()}
}

// AddAssetFlows folds one asset's period result into the category totals.
// A positive realized capital is a profit, a negative one a loss; losses also
// open up as cumulative losses for later compensation. Patrimony is the
// asset's end-of-period position value, which can differ from the period buy
// total when sales ran against an opening position.
func (s *Stats) AddAssetFlows(buyTotal, buyTax, sellTotal, sellTax, capital, patrimony decimal.Decimal, bonus EventTotal) {
	s.Buy = s.Buy.Add(buyTotal)
	s.Sell = s.Sell.Add(sellTotal)
	s.Tax = s.Tax.Add(buyTax).Add(sellTax)
	if capital.IsPositive() {
		s.Profits = s.Profits.Add(capital)
	} else if capital.IsNegative() {
		s.Losses = s.Losses.Add(capital)
		s.CumulativeLosses = s.CumulativeLosses.Add(capital)
	}
	s.Bonus.Add(bonus)
	s.Patrimony = s.Patrimony.Add(patrimony)
}

// MergeFlows adds the other Stats' flow fields into s. Balance fields
// (CumulativeLosses, Taxes.Residual, Patrimony) are left to the caller, since
// the right rule depends on whether months or categories are being merged.
func (s *Stats) MergeFlows(other *Stats) {
	s.Buy = s.Buy.Add(other.Buy)
	s.Sell = s.Sell.Add(other.Sell)
	s.Tax = s.Tax.Add(other.Tax)
	s.Profits = s.Profits.Add(other.Profits)
	s.Losses = s.Losses.Add(other.Losses)
	s.ExemptProfit = s.ExemptProfit.Add(other.ExemptProfit)
	s.CompensatedLosses = s.CompensatedLosses.Add(other.CompensatedLosses)
	s.Bonus.Add(other.Bonus)
	s.Taxes.Value = s.Taxes.Value.Add(other.Taxes.Value)
	s.Taxes.MergeItems(other.Taxes)
}
