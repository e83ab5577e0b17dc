package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/irpfolio/src/models"
)

func newTestReportProcessor(f *fakeSources) ReportProcessor {
	negotiation := NewNegotiationProcessor(f, f, f, f, f)
	return NewReportProcessor(negotiation, f, f, testPolicy())
}

func fiiTradingFixtures() *fakeSources {
	f := newFakeSources()
	f.enterprises["HGLG11"] = &models.Enterprise{Code: "HGLG11", Name: "CSHG Logística", Category: models.CategoryFII}
	f.transactions = []models.Transaction{
		{UserID: 1, Code: "HGLG11", Institution: "XP", Date: day("2023-01-02"), Kind: models.KindBuy, Quantity: dec("100"), Price: dec("100")},
		{UserID: 1, Code: "HGLG11", Institution: "XP", Date: day("2023-01-10"), Kind: models.KindSell, Quantity: dec("100"), Price: dec("100.40")},
		{UserID: 1, Code: "HGLG11", Institution: "XP", Date: day("2023-02-02"), Kind: models.KindBuy, Quantity: dec("100"), Price: dec("100")},
		{UserID: 1, Code: "HGLG11", Institution: "XP", Date: day("2023-02-10"), Kind: models.KindSell, Quantity: dec("100"), Price: dec("100.40")},
	}
	return f
}

func TestGenerateByMonthThreadsResidualAcrossMonths(t *testing.T) {
	processor := newTestReportProcessor(fiiTradingFixtures())
	opts := StatsOptions{UserID: 1, Institution: "XP"}

	result, err := processor.GenerateByMonth(opts, day("2023-01-01"), day("2023-02-28"))
	require.NoError(t, err)
	require.Len(t, result.Months, 2)
	assert.Equal(t, 202301, result.Months[0].Key)
	assert.Equal(t, 202302, result.Months[1].Key)

	// January owes 8.00, under the DARF minimum: carried as residual.
	january := result.GetFirst().Stats.Get(models.CategoryFII)
	assert.True(t, january.Taxes.Value.IsZero())
	assertDecimal(t, "8", january.Taxes.Residual)

	// February owes another 8.00; with the carry the 10.00 minimum is
	// cleared and the closed month folds it all into the payable value.
	february := result.GetLast().Stats.Get(models.CategoryFII)
	assertDecimal(t, "16", february.Taxes.Value)
	assert.True(t, february.Taxes.Residual.IsZero())
	assert.True(t, february.Taxes.Paid)
}

func TestGenerateByMonthCarriesPositionsAcrossMonths(t *testing.T) {
	f := newFakeSources()
	f.enterprises["HGLG11"] = &models.Enterprise{Code: "HGLG11", Name: "CSHG Logística", Category: models.CategoryFII}
	f.transactions = []models.Transaction{
		{UserID: 1, Code: "HGLG11", Institution: "XP", Date: day("2023-01-05"), Kind: models.KindBuy, Quantity: dec("100"), Price: dec("100")},
		{UserID: 1, Code: "HGLG11", Institution: "XP", Date: day("2023-02-10"), Kind: models.KindSell, Quantity: dec("100"), Price: dec("101")},
	}
	processor := newTestReportProcessor(f)
	opts := StatsOptions{UserID: 1, Institution: "XP"}

	result, err := processor.GenerateByMonth(opts, day("2023-01-01"), day("2023-02-28"))
	require.NoError(t, err)
	require.Len(t, result.Months, 2)

	// February opens with January's closing position, so the sale realizes
	// capital against January's average price.
	february := result.GetLast()
	require.Len(t, february.Assets, 1)
	position := february.Assets[0].Position
	require.NotNil(t, position.Opening)
	assertDecimal(t, "100", position.Opening.Quantity)
	assertDecimal(t, "100", position.Opening.AvgPrice)
	assertDecimal(t, "100", position.Sell.Capital) // 100 * (101 - 100)

	fiis := february.Stats.Get(models.CategoryFII)
	assertDecimal(t, "100", fiis.Profits)
	assertDecimal(t, "20", fiis.Taxes.Value)
	assert.True(t, fiis.Taxes.Paid)
}

func TestGenerateByMonthClipsPartialWindows(t *testing.T) {
	processor := newTestReportProcessor(fiiTradingFixtures())
	opts := StatsOptions{UserID: 1, Institution: "XP"}

	result, err := processor.GenerateByMonth(opts, day("2023-01-15"), day("2023-02-10"))
	require.NoError(t, err)
	require.Len(t, result.Months, 2)

	first := result.Months[0]
	assert.Equal(t, day("2023-01-15"), first.Start)
	assert.Equal(t, day("2023-01-31"), first.End)

	last := result.Months[1]
	assert.Equal(t, day("2023-02-01"), last.Start)
	assert.Equal(t, day("2023-02-10"), last.End)
}

func TestGenerateByMonthIsDeterministic(t *testing.T) {
	processor := newTestReportProcessor(fiiTradingFixtures())
	opts := StatsOptions{UserID: 1, Institution: "XP"}

	first, err := processor.GenerateByMonth(opts, day("2023-01-01"), day("2023-02-28"))
	require.NoError(t, err)
	second, err := processor.GenerateByMonth(opts, day("2023-01-01"), day("2023-02-28"))
	require.NoError(t, err)

	firstFII := first.GetLast().Stats.Get(models.CategoryFII)
	secondFII := second.GetLast().Stats.Get(models.CategoryFII)
	assert.True(t, firstFII.Taxes.Value.Equal(secondFII.Taxes.Value))
	assert.True(t, firstFII.Sell.Equal(secondFII.Sell))
}

func TestGenerateByMonthRejectsInvalidRange(t *testing.T) {
	processor := newTestReportProcessor(newFakeSources())

	_, err := processor.GenerateByMonth(StatsOptions{UserID: 1}, day("2023-03-01"), day("2023-01-01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date range")
}

func TestCompileSumsFlowsAndKeepsLatestBalances(t *testing.T) {
	january := NewStatsResult()
	janStocks := models.NewStats()
	janStocks.Profits = dec("100")
	janStocks.Taxes.Residual = dec("3")
	janStocks.CumulativeLosses = dec("-50")
	janStocks.Patrimony = dec("1000")
	january.Set(models.CategoryStock, janStocks)

	february := NewStatsResult()
	febStocks := models.NewStats()
	febStocks.Profits = dec("200")
	febStocks.Taxes.Residual = dec("5")
	febStocks.Patrimony = dec("1200")
	february.Set(models.CategoryStock, febStocks)

	processor := newTestReportProcessor(newFakeSources())
	compiled := processor.Compile(&MultiMonthResult{Months: []MonthResult{
		{Key: 202301, Stats: january},
		{Key: 202302, Stats: february},
	}})

	stocks := compiled.Get(models.CategoryStock)
	assertDecimal(t, "300", stocks.Profits)
	// balances take the latest month's value
	assertDecimal(t, "5", stocks.Taxes.Residual)
	assertDecimal(t, "1200", stocks.Patrimony)
	// a zero cumulative balance in the latest month keeps the earlier one
	assertDecimal(t, "-50", stocks.CumulativeLosses)
}

func TestCompileFoldsSubscriptionsIntoParentCategory(t *testing.T) {
	month := NewStatsResult()
	fiis := models.NewStats()
	fiis.Profits = dec("100")
	fiis.Patrimony = dec("1000")
	month.Set(models.CategoryFII, fiis)

	subscription := models.NewStats()
	subscription.Profits = dec("30")
	subscription.Patrimony = dec("200")
	subscription.Taxes.Residual = dec("1")
	month.Set(models.CategorySubscriptionFII, subscription)

	processor := newTestReportProcessor(newFakeSources())
	compiled := processor.Compile(&MultiMonthResult{Months: []MonthResult{{Key: 202301, Stats: month}}})

	assert.Nil(t, compiled.Get(models.CategorySubscriptionFII))
	parent := compiled.Get(models.CategoryFII)
	assertDecimal(t, "130", parent.Profits)
	assertDecimal(t, "1200", parent.Patrimony)
	assertDecimal(t, "1", parent.Taxes.Residual)
}

func TestCompileLeavesSubscriptionWithoutParent(t *testing.T) {
	month := NewStatsResult()
	subscription := models.NewStats()
	subscription.Profits = dec("30")
	month.Set(models.CategorySubscriptionStock, subscription)

	processor := newTestReportProcessor(newFakeSources())
	compiled := processor.Compile(&MultiMonthResult{Months: []MonthResult{{Key: 202301, Stats: month}}})

	require.NotNil(t, compiled.Get(models.CategorySubscriptionStock))
	assertDecimal(t, "30", compiled.Get(models.CategorySubscriptionStock).Profits)
}

func TestCompileAllReducesToGrandTotal(t *testing.T) {
	processor := newTestReportProcessor(fiiTradingFixtures())
	opts := StatsOptions{UserID: 1, Institution: "XP"}

	result, err := processor.GenerateByMonth(opts, day("2023-01-01"), day("2023-02-28"))
	require.NoError(t, err)

	compiled := processor.Compile(result)
	grand := processor.CompileAll(compiled)

	// 80 total profit across the two months, 16 in taxes due.
	assertDecimal(t, "80", grand.Profits)
	assertDecimal(t, "16", grand.Taxes.Value)
}
