package processors

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/irpfolio/src/models"
)

var oneHundred = decimal.NewFromInt(100)

// BuySide is the open buy lot of an asset: running quantity, weighted average
// price and total cost. Invariant while Quantity > 0: AvgPrice == Total/Quantity.
type BuySide struct {
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Total    decimal.Decimal `json:"total"`
	Tax      decimal.Decimal `json:"tax"`
}

// SellSide accumulates the window's sales and the capital they realized.
type SellSide struct {
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Total    decimal.Decimal `json:"total"`
	Tax      decimal.Decimal `json:"tax"`
	Capital  decimal.Decimal `json:"capital"`
}

// PeriodResult is the net buy-minus-sell outcome of a window.
type PeriodResult struct {
	Quantity decimal.Decimal `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Total    decimal.Decimal `json:"total"`
	Tax      decimal.Decimal `json:"tax"`
}

// AssetPosition is the per-asset ledger mutated by the consolidation walk.
type AssetPosition struct {
	Code    string                 `json:"code"`
	Buy     BuySide                `json:"buy"`
	Sell    SellSide               `json:"sell"`
	Bonus   models.EventTotal      `json:"bonus"`
	Opening *models.PositionRecord `json:"opening,omitempty"`
}

func NewAssetPosition(code string) *AssetPosition {
	return &AssetPosition{Code: code}
}

// NewAssetPositionFromRecord seeds a ledger from a persisted opening balance.
func NewAssetPositionFromRecord(record models.PositionRecord) *AssetPosition {
	opening := record
	return &AssetPosition{
		Code: record.Code,
		Buy: BuySide{
			Quantity: record.Quantity,
			AvgPrice: record.AvgPrice,
			Total:    record.Total,
		},
		Opening: &opening,
	}
}

// ApplyBuy adds a purchase and recomputes the weighted average price.
func (p *AssetPosition) ApplyBuy(quantity, price, tax decimal.Decimal) {
	p.Buy.Quantity = p.Buy.Quantity.Add(quantity)
	p.Buy.Total = p.Buy.Total.Add(quantity.Mul(price))
	p.Buy.Tax = p.Buy.Tax.Add(tax)
	if p.Buy.Quantity.IsPositive() {
		p.Buy.AvgPrice = p.Buy.Total.Div(p.Buy.Quantity)
	}
}

// ApplyBonus grants floor(quantity * proportion/100) units valued at baseValue
// each, diluting the average price. A bonus on an empty position is a no-op.
func (p *AssetPosition) ApplyBonus(proportion, baseValue decimal.Decimal) {
	if !p.Buy.Quantity.IsPositive() {
		return
	}
	bonusQuantity := p.Buy.Quantity.Mul(proportion).Div(oneHundred).Floor()
	if !bonusQuantity.IsPositive() {
		return
	}
	bonusValue := bonusQuantity.Mul(baseValue)

	p.Buy.Quantity = p.Buy.Quantity.Add(bonusQuantity)
	p.Buy.Total = p.Buy.Total.Add(bonusValue)
	p.Buy.AvgPrice = p.Buy.Total.Div(p.Buy.Quantity)

	p.Bonus.Add(models.EventTotal{Quantity: bonusQuantity, Value: bonusValue})
}

// ApplySell removes units valued at the current average price, so the average
// price itself never moves on a sell. The realized capital is tracked on the
// sell side against the weighted average of the window's sales. Selling more
// than the held quantity is rejected.
func (p *AssetPosition) ApplySell(quantity, price, tax decimal.Decimal) error {
	if quantity.GreaterThan(p.Buy.Quantity) {
		return fmt.Errorf("asset %s: sell of %s units exceeds held quantity %s",
			p.Code, quantity.String(), p.Buy.Quantity.String())
	}

	p.Sell.Quantity = p.Sell.Quantity.Add(quantity)
	p.Sell.Total = p.Sell.Total.Add(quantity.Mul(price))
	p.Sell.Tax = p.Sell.Tax.Add(tax)
	if p.Sell.Quantity.IsPositive() {
		p.Sell.AvgPrice = p.Sell.Total.Div(p.Sell.Quantity)
		p.Sell.Capital = p.Sell.Quantity.Mul(p.Sell.AvgPrice.Sub(p.Buy.AvgPrice))
	}

	p.Buy.Quantity = p.Buy.Quantity.Sub(quantity)
	p.Buy.Total = p.Buy.Quantity.Mul(p.Buy.AvgPrice)
	return nil
}

// Period derives the window's net result. A zero or negative net quantity
// yields zero average price and total rather than a division fault.
func (p *AssetPosition) Period() PeriodResult {
	quantity := p.Buy.Quantity.Sub(p.Sell.Quantity)
	period := PeriodResult{Quantity: quantity, Tax: p.Buy.Tax}
	if quantity.IsPositive() {
		period.Total = p.Buy.Total
		period.AvgPrice = period.Total.Div(quantity)
	}
	return period
}

// Snapshot returns an immutable value copy of the ledger, safe to hand to
// downstream aggregation.
func (p *AssetPosition) Snapshot() AssetPosition {
	snapshot := *p
	if p.Opening != nil {
		opening := *p.Opening
		snapshot.Opening = &opening
	}
	return snapshot
}
