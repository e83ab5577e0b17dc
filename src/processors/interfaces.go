package processors

import (
	"time"

	"github.com/username/irpfolio/src/models"
)

// The engine reads everything through these collaborator contracts. They are
// implemented by the persistence layer; a not-found result is a nil value,
// never an error.

// TransactionSource returns buy/sell orders for a user, ordered as recorded.
type TransactionSource interface {
	FetchTransactions(userID int64, institution string, start, end time.Time) ([]models.Transaction, error)
}

// PositionSource returns opening balances as of a date, keyed by asset code.
type PositionSource interface {
	FetchPositions(userID int64, institution string, asOf time.Time) (map[string]models.PositionRecord, error)
}

// EnterpriseSource resolves an asset code to its registration, or nil.
type EnterpriseSource interface {
	FetchEnterprise(code string) (*models.Enterprise, error)
}

// BonusSource returns bonus events announced inside a window.
type BonusSource interface {
	FetchBonuses(userID int64, start, end time.Time) ([]models.Bonus, error)
}

// EarningsSource returns earning events for an asset inside a window.
type EarningsSource interface {
	FetchEarnings(userID int64, code, institution, flow string, start, end time.Time) ([]models.Earning, error)
}

// StatisticSource returns the persisted monthly snapshot for a category, or nil.
type StatisticSource interface {
	FetchStatistic(userID int64, category models.Category, institution string, periodEnd time.Time) (*models.StatisticRecord, error)
}

// TaxEntrySource returns the user's manual tax entries inside a window.
type TaxEntrySource interface {
	FetchTaxEntries(userID int64, start, end time.Time) ([]models.TaxEntry, error)
}

// NegotiationProcessor consolidates a window of trading activity into one
// ordered result per asset. A non-nil openings map replaces the persisted
// opening balances, so chained runs can thread one window's closing positions
// into the next.
type NegotiationProcessor interface {
	Consolidate(userID int64, institution string, start, end time.Time, openings map[string]models.PositionRecord) ([]AssetResult, error)
}

// StatsProcessor rolls one month of asset results into per-category Stats,
// including tax computation and the residual carry.
type StatsProcessor interface {
	Generate(report *MonthReport, opts StatsOptions) (*StatsResult, error)
}
