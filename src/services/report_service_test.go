package services

import (
	"errors"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/irpfolio/src/config"
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

// fakeProvider is an in-memory DataProvider fixture.
type fakeProvider struct {
	transactions []models.Transaction
	enterprises  map[string]*models.Enterprise
}

func (f *fakeProvider) FetchTransactions(userID int64, institution string, start, end time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, tx := range f.transactions {
		if tx.UserID == userID && tx.Institution == institution &&
			!tx.Date.Before(start) && !tx.Date.After(end) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeProvider) FetchPositions(userID int64, institution string, asOf time.Time) (map[string]models.PositionRecord, error) {
	return map[string]models.PositionRecord{}, nil
}

func (f *fakeProvider) FetchEnterprise(code string) (*models.Enterprise, error) {
	return f.enterprises[code], nil
}

func (f *fakeProvider) FetchBonuses(userID int64, start, end time.Time) ([]models.Bonus, error) {
	return nil, nil
}

func (f *fakeProvider) FetchEarnings(userID int64, code, institution, flow string, start, end time.Time) ([]models.Earning, error) {
	return nil, nil
}

func (f *fakeProvider) FetchStatistic(userID int64, category models.Category, institution string, periodEnd time.Time) (*models.StatisticRecord, error) {
	return nil, nil
}

func (f *fakeProvider) FetchTaxEntries(userID int64, start, end time.Time) ([]models.TaxEntry, error) {
	return nil, nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		TaxRates: map[string]config.TaxRate{
			"stocks":              {SwingTradeRate: dec("0.15"), ExemptProfitThreshold: dec("20000")},
			"bdrs":                {SwingTradeRate: dec("0.15")},
			"fiis":                {SwingTradeRate: dec("0.20")},
			"subscription_stocks": {SwingTradeRate: dec("0.15")},
			"subscription_fiis":   {SwingTradeRate: dec("0.20")},
		},
		DarfMinValue: dec("10"),
	}
}

func newTestService(provider *fakeProvider) ReportService {
	policy, err := TaxPolicyFromConfig(testConfig())
	if err != nil {
		panic(err)
	}
	return NewReportService(provider, policy, cache.New(time.Minute, time.Minute))
}

func TestTaxPolicyFromConfig(t *testing.T) {
	policy, err := TaxPolicyFromConfig(testConfig())
	require.NoError(t, err)

	require.Len(t, policy.Rates, 5)
	stocks := policy.Rates[models.CategoryStock]
	assert.True(t, dec("0.15").Equal(stocks.SwingTradeRate))
	assert.True(t, dec("20000").Equal(stocks.ExemptProfitThreshold))
	assert.True(t, dec("10").Equal(policy.DarfMinValue))
}

func TestTaxPolicyFromConfigRejectsUnknownCategory(t *testing.T) {
	cfg := testConfig()
	cfg.TaxRates["crypto"] = config.TaxRate{SwingTradeRate: dec("0.15")}

	_, err := TaxPolicyFromConfig(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestGenerateReportRequiresInstitution(t *testing.T) {
	service := newTestService(&fakeProvider{})

	_, err := service.GenerateReport(ReportRequest{
		UserID:    1,
		StartDate: day("2023-01-01"),
		EndDate:   day("2023-01-31"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingInstitution))
}

func TestGenerateReportRejectsInvalidRange(t *testing.T) {
	service := newTestService(&fakeProvider{})

	_, err := service.GenerateReport(ReportRequest{
		UserID:      1,
		Institution: "XP",
		StartDate:   day("2023-02-01"),
		EndDate:     day("2023-01-01"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDateRange))
}

func TestGenerateReportRejectsUnknownCategory(t *testing.T) {
	service := newTestService(&fakeProvider{})

	_, err := service.GenerateReport(ReportRequest{
		UserID:      1,
		Institution: "XP",
		StartDate:   day("2023-01-01"),
		EndDate:     day("2023-01-31"),
		Categories:  []string{"crypto"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestGenerateReport(t *testing.T) {
	provider := &fakeProvider{
		enterprises: map[string]*models.Enterprise{
			"HGLG11": {Code: "HGLG11", Name: "CSHG Logística", Category: models.CategoryFII},
		},
		transactions: []models.Transaction{
			{UserID: 1, Code: "HGLG11", Institution: "XP", Date: day("2023-01-02"), Kind: models.KindBuy, Quantity: dec("100"), Price: dec("100")},
			{UserID: 1, Code: "HGLG11", Institution: "XP", Date: day("2023-02-10"), Kind: models.KindSell, Quantity: dec("100"), Price: dec("101")},
		},
	}
	service := newTestService(provider)

	result, err := service.GenerateReport(ReportRequest{
		UserID:      1,
		Institution: "XP",
		StartDate:   day("2023-01-01"),
		EndDate:     day("2023-02-28"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	require.Len(t, result.Months.Months, 2)

	// 100 units bought at 100, sold at 101: 100 profit taxed at 20%.
	assert.True(t, dec("100").Equal(result.Total.Profits), "got profits %s", result.Total.Profits)
	assert.True(t, dec("20").Equal(result.Total.Taxes.Value), "got taxes %s", result.Total.Taxes.Value)
}
