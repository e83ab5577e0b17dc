package processors

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/irpfolio/src/logger"
	"github.com/username/irpfolio/src/models"
)

func init() {
	logger.InitLogger("error")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeSources implements every collaborator contract from in-memory fixtures.
type fakeSources struct {
	transactions []models.Transaction
	positions    map[string]models.PositionRecord
	enterprises  map[string]*models.Enterprise
	bonuses      []models.Bonus
	earnings     []models.Earning
	statistics   []*models.StatisticRecord
	taxEntries   []models.TaxEntry
}

func newFakeSources() *fakeSources {
	return &fakeSources{
		positions:   make(map[string]models.PositionRecord),
		enterprises: make(map[string]*models.Enterprise),
	}
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func (f *fakeSources) FetchTransactions(userID int64, institution string, start, end time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, tx := range f.transactions {
		if tx.UserID == userID && tx.Institution == institution && inWindow(tx.Date, start, end) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeSources) FetchPositions(userID int64, institution string, asOf time.Time) (map[string]models.PositionRecord, error) {
	out := make(map[string]models.PositionRecord)
	for code, p := range f.positions {
		if p.UserID == userID && p.Institution == institution && !p.Date.After(asOf) {
			out[code] = p
		}
	}
	return out, nil
}

func (f *fakeSources) FetchEnterprise(code string) (*models.Enterprise, error) {
	return f.enterprises[code], nil
}

func (f *fakeSources) FetchBonuses(userID int64, start, end time.Time) ([]models.Bonus, error) {
	var out []models.Bonus
	for _, b := range f.bonuses {
		if b.UserID == userID && inWindow(b.Date, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeSources) FetchEarnings(userID int64, code, institution, flow string, start, end time.Time) ([]models.Earning, error) {
	var out []models.Earning
	for _, e := range f.earnings {
		if e.UserID == userID && e.Code == code && e.Institution == institution &&
			e.Flow == flow && inWindow(e.Date, start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSources) FetchStatistic(userID int64, category models.Category, institution string, periodEnd time.Time) (*models.StatisticRecord, error) {
	for _, record := range f.statistics {
		if record.UserID == userID && record.Category == category && record.Date.Equal(periodEnd) {
			if institution != "" && record.Institution != "" && record.Institution != institution {
				continue
			}
			return record, nil
		}
	}
	return nil, nil
}

func (f *fakeSources) FetchTaxEntries(userID int64, start, end time.Time) ([]models.TaxEntry, error) {
	var out []models.TaxEntry
	for _, entry := range f.taxEntries {
		if entry.UserID == userID && inWindow(entry.CreatedDate, start, end) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// testPolicy mirrors the default Brazilian rate table.
func testPolicy() TaxPolicy {
	return TaxPolicy{
		Rates: map[models.Category]CategoryRate{
			models.CategoryStock:             {SwingTradeRate: dec("0.15"), ExemptProfitThreshold: dec("20000")},
			models.CategoryBDR:               {SwingTradeRate: dec("0.15")},
			models.CategoryFII:               {SwingTradeRate: dec("0.20")},
			models.CategorySubscriptionStock: {SwingTradeRate: dec("0.15")},
			models.CategorySubscriptionFII:   {SwingTradeRate: dec("0.20")},
		},
		DarfMinValue: dec("10"),
	}
}
