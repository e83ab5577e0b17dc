package processors

import (
	"fmt"
	"sort"
	"time"

	"github.com/username/irpfolio/src/logger"
	"github.com/username/irpfolio/src/models"
	"github.com/username/irpfolio/src/utils"
)

// AssetResult is one asset's consolidated outcome for a window: the ledger
// snapshot, its net period result, registration metadata and earnings. It is
// a plain value with no behavior required by callers.
type AssetResult struct {
	Code        string                   `json:"code"`
	Institution string                   `json:"institution"`
	Enterprise  *models.Enterprise       `json:"enterprise"`
	Earnings    map[string]EarningsGroup `json:"earnings"`
	Position    AssetPosition            `json:"position"`
	Period      PeriodResult             `json:"period"`
}

type negotiationProcessorImpl struct {
	transactions TransactionSource
	positions    PositionSource
	enterprises  EnterpriseSource
	bonuses      BonusSource
	earnings     *earningsProcessorImpl
}

func NewNegotiationProcessor(
	transactions TransactionSource,
	positions PositionSource,
	enterprises EnterpriseSource,
	bonuses BonusSource,
	earnings EarningsSource,
) NegotiationProcessor {
	return &negotiationProcessorImpl{
		transactions: transactions,
		positions:    positions,
		enterprises:  enterprises,
		bonuses:      bonuses,
		earnings:     NewEarningsProcessor(earnings),
	}
}

// Consolidate walks every calendar date of [start, end] in order, applying
// bonus events before that day's buys and sells, and emits one ordered
// AssetResult per asset touched. Assets without an enterprise registration
// still appear, grouped last.
func (p *negotiationProcessorImpl) Consolidate(userID int64, institution string, start, end time.Time, openings map[string]models.PositionRecord) ([]AssetResult, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("invalid date range: end %s before start %s",
			end.Format(utils.DefaultDateFormat), start.Format(utils.DefaultDateFormat))
	}

	ledgers, err := p.seedLedgers(userID, institution, start, openings)
	if err != nil {
		return nil, err
	}

	transactions, err := p.transactions.FetchTransactions(userID, institution, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}
	bonuses, err := p.bonuses.FetchBonuses(userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching bonuses: %w", err)
	}

	transactionsByDay := groupTransactionsByDay(transactions)
	bonusesByDay := groupBonusesByDay(bonuses)

	for _, day := range utils.RangeDates(start, end) {
		// Bonus allotments count before the day's trades.
		for _, bonus := range bonusesByDay[day] {
			ledger, ok := ledgers[bonus.Code]
			if !ok {
				continue
			}
			ledger.ApplyBonus(bonus.Proportion, bonus.BaseValue)
		}
		for _, transaction := range transactionsByDay[day] {
			ledger, ok := ledgers[transaction.Code]
			if !ok {
				ledger = NewAssetPosition(transaction.Code)
				ledgers[transaction.Code] = ledger
			}
			switch transaction.Kind {
			case models.KindBuy:
				ledger.ApplyBuy(transaction.Quantity, transaction.Price, transaction.Tax)
			case models.KindSell:
				if err := ledger.ApplySell(transaction.Quantity, transaction.Price, transaction.Tax); err != nil {
					return nil, fmt.Errorf("consolidating %s on %s: %w",
						transaction.Code, day.Format(utils.DefaultDateFormat), err)
				}
			default:
				return nil, fmt.Errorf("unknown transaction kind %q for asset %s", transaction.Kind, transaction.Code)
			}
		}
	}

	results := make([]AssetResult, 0, len(ledgers))
	for code, ledger := range ledgers {
		enterprise, err := p.enterprises.FetchEnterprise(code)
		if err != nil {
			return nil, fmt.Errorf("fetching enterprise %s: %w", code, err)
		}
		if enterprise == nil {
			logger.L.Debug("Asset has no enterprise registration", "code", code)
		}
		earnings, err := p.earnings.Report(userID, code, institution, start, end)
		if err != nil {
			return nil, fmt.Errorf("fetching earnings for %s: %w", code, err)
		}
		results = append(results, AssetResult{
			Code:        code,
			Institution: institution,
			Enterprise:  enterprise,
			Earnings:    earnings,
			Position:    ledger.Snapshot(),
			Period:      ledger.Period(),
		})
	}
	sortAssetResults(results)
	return results, nil
}

// seedLedgers builds the window's opening ledgers: from the caller's carried
// positions when given (an empty non-nil map means nothing is held), otherwise
// from the persisted balances as of the window start.
func (p *negotiationProcessorImpl) seedLedgers(userID int64, institution string, start time.Time, openings map[string]models.PositionRecord) (map[string]*AssetPosition, error) {
	if openings == nil {
		records, err := p.positions.FetchPositions(userID, institution, start)
		if err != nil {
			return nil, fmt.Errorf("fetching opening positions: %w", err)
		}
		openings = records
	}
	ledgers := make(map[string]*AssetPosition, len(openings))
	for code, record := range openings {
		ledgers[code] = NewAssetPositionFromRecord(record)
	}
	return ledgers, nil
}

func groupTransactionsByDay(transactions []models.Transaction) map[time.Time][]models.Transaction {
	grouped := make(map[time.Time][]models.Transaction)
	for _, transaction := range transactions {
		day := utils.DateOnly(transaction.Date)
		grouped[day] = append(grouped[day], transaction)
	}
	return grouped
}

func groupBonusesByDay(bonuses []models.Bonus) map[time.Time][]models.Bonus {
	grouped := make(map[time.Time][]models.Bonus)
	for _, bonus := range bonuses {
		day := utils.DateOnly(bonus.Date)
		grouped[day] = append(grouped[day], bonus)
	}
	return grouped
}

// sortAssetResults orders results by enterprise category then code; assets
// without a registration sort after every known category, keyed by raw code.
func sortAssetResults(results []AssetResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		switch {
		case a.Enterprise != nil && b.Enterprise == nil:
			return true
		case a.Enterprise == nil && b.Enterprise != nil:
			return false
		case a.Enterprise != nil && b.Enterprise != nil:
			if a.Enterprise.Category != b.Enterprise.Category {
				return a.Enterprise.Category < b.Enterprise.Category
			}
		}
		return a.Code < b.Code
	})
}
