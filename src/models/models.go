package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies an asset for tax purposes. Subscription-right
// categories are transient: their results are folded into the parent
// category when a multi-month report is compiled.
type Category int

const (
	CategoryStock Category = iota + 1
	CategoryBDR
	CategoryFII
	CategorySubscriptionStock
	CategorySubscriptionFII
)

var categoryNames = map[Category]string{
	CategoryStock:             "stocks",
	CategoryBDR:               "bdrs",
	CategoryFII:               "fiis",
	CategorySubscriptionStock: "subscription_stocks",
	CategorySubscriptionFII:   "subscription_fiis",
}

// Categories returns every tracked category in report order.
func Categories() []Category {
	return []Category{
		CategoryStock,
		CategoryBDR,
		CategoryFII,
		CategorySubscriptionStock,
		CategorySubscriptionFII,
	}
}

func (c Category) Name() string {
	return categoryNames[c]
}

func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// Parent returns the category a subscription right folds into.
func (c Category) Parent() (Category, bool) {
	switch c {
	case CategorySubscriptionStock:
		return CategoryStock, true
	case CategorySubscriptionFII:
		return CategoryFII, true
	}
	return 0, false
}

// ParseCategory resolves a category by name. Unknown names are a caller
// error and fail fast.
func ParseCategory(name string) (Category, error) {
	for category, categoryName := range categoryNames {
		if categoryName == name {
			return category, nil
		}
	}
	return 0, fmt.Errorf("unknown asset category %q", name)
}

// Transaction kinds.
const (
	KindBuy  = "buy"
	KindSell = "sell"
)

// Earning flows.
const (
	FlowCredit = "credit"
	FlowDebit  = "debit"
)

// Transaction is a single buy or sell order, owned by the external ledger.
type Transaction struct {
	ID          int64           `json:"id,omitempty"`
	UserID      int64           `json:"user_id"`
	Code        string          `json:"code"`
	Institution string          `json:"institution"`
	Date        time.Time       `json:"date"`
	Kind        string          `json:"kind"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Tax         decimal.Decimal `json:"tax"` // withheld at source (IRRF)
}

// Enterprise is the registration record behind an asset code.
type Enterprise struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	CNPJ     string   `json:"cnpj,omitempty"`
	Category Category `json:"category"`
}

func (e *Enterprise) CategoryName() string {
	return e.Category.Name()
}

// Bonus is a proportional free allotment of units announced by an enterprise.
type Bonus struct {
	ID         int64           `json:"id,omitempty"`
	UserID     int64           `json:"user_id"`
	Code       string          `json:"code"`
	Date       time.Time       `json:"date"`
	Proportion decimal.Decimal `json:"proportion"` // percentage of held quantity
	BaseValue  decimal.Decimal `json:"base_value"` // unit value assigned to bonus shares
}

// Earning is a dividend-like credit or debit event for an asset.
type Earning struct {
	ID          int64           `json:"id,omitempty"`
	UserID      int64           `json:"user_id"`
	Code        string          `json:"code"`
	Institution string          `json:"institution"`
	Date        time.Time       `json:"date"`
	Flow        string          `json:"flow"` // credit or debit
	Kind        string          `json:"kind"` // e.g. "Dividendos", "Rendimento"
	Quantity    decimal.Decimal `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

// PositionRecord is a persisted opening balance used to seed a window's ledger.
type PositionRecord struct {
	UserID      int64           `json:"user_id"`
	Code        string          `json:"code"`
	Institution string          `json:"institution"`
	Date        time.Time       `json:"date"`
	Quantity    decimal.Decimal `json:"quantity"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	Total       decimal.Decimal `json:"total"`
}

// TaxEntry is a tax amount recorded manually by the user.
type TaxEntry struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Category    Category        `json:"category"`
	CreatedDate time.Time       `json:"created_date"`
	Total       decimal.Decimal `json:"total"`
	TaxesToPay  decimal.Decimal `json:"taxes_to_pay"`
	Paid        bool            `json:"paid"`
	// LinkedStats reports whether the entry is tied to computed statistics.
	// A paid entry with no link is a pure annotation and never enters totals.
	LinkedStats bool `json:"linked_stats"`
}

// Statistic consolidation scopes.
const (
	ConsolidationMonthly = "monthly"
	ConsolidationYearly  = "yearly"
)

// StatisticRecord is a persisted category snapshot (losses and residual taxes
// still open at the end of a month), used to seed a report when no in-memory
// prior month exists.
type StatisticRecord struct {
	ID               int64           `json:"id,omitempty"`
	UserID           int64           `json:"user_id"`
	Category         Category        `json:"category"`
	Institution      string          `json:"institution,omitempty"`
	Consolidation    string          `json:"consolidation"`
	Date             time.Time       `json:"date"` // always the last day of the month
	CumulativeLosses decimal.Decimal `json:"cumulative_losses"`
	ResidualTaxes    decimal.Decimal `json:"residual_taxes"`
	TaxEntries       []TaxEntry      `json:"tax_entries,omitempty"`
}
