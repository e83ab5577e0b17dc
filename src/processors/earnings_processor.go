package processors

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/irpfolio/src/models"
	"github.com/username/irpfolio/src/utils"
)

// EarningsGroup totals one kind of earning (dividends, income, ...) for an
// asset inside a window.
type EarningsGroup struct {
	Title    string           `json:"title"`
	Quantity decimal.Decimal  `json:"quantity"`
	Value    decimal.Decimal  `json:"value"`
	Items    []models.Earning `json:"items"`
}

// earningsProcessorImpl groups credit events per asset.
type earningsProcessorImpl struct {
	source EarningsSource
	flow   string
}

func NewEarningsProcessor(source EarningsSource) *earningsProcessorImpl {
	return &earningsProcessorImpl{source: source, flow: models.FlowCredit}
}

// Report groups the asset's credits by slugified kind. An asset with no
// earnings yields an empty map, not an error.
func (p *earningsProcessorImpl) Report(userID int64, code, institution string, start, end time.Time) (map[string]EarningsGroup, error) {
	earnings, err := p.source.FetchEarnings(userID, code, institution, p.flow, start, end)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]EarningsGroup)
	for _, earning := range earnings {
		key := utils.Slugify(earning.Kind)
		group, ok := groups[key]
		if !ok {
			group = EarningsGroup{Title: earning.Kind}
		}
		group.Quantity = group.Quantity.Add(earning.Quantity)
		group.Value = group.Value.Add(earning.Total)
		group.Items = append(group.Items, earning)
		groups[key] = group
	}
	return groups, nil
}
