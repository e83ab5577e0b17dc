package processors

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/irpfolio/src/logger"
	"github.com/username/irpfolio/src/models"
	"github.com/username/irpfolio/src/utils"
)

// CategoryRate is the tax rule applied to one category's monthly profit.
// A zero ExemptProfitThreshold disables the sell-volume exemption.
type CategoryRate struct {
	SwingTradeRate        decimal.Decimal
	ExemptProfitThreshold decimal.Decimal
}

// TaxPolicy is the full rate table plus the DARF minimum payable amount.
type TaxPolicy struct {
	Rates        map[models.Category]CategoryRate
	DarfMinValue decimal.Decimal
}

// StatsOptions scopes one stats run.
type StatsOptions struct {
	UserID      int64
	Institution string
	// Categories restricts the run to an allow-list; empty means all.
	Categories []models.Category
}

// MonthReport is one month's consolidated input to the stats aggregation.
// Closed marks the final period of the report window.
type MonthReport struct {
	Key    int           `json:"month"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Closed bool          `json:"closed"`
	Assets []AssetResult `json:"assets"`
}

// StatsResult maps categories to their monthly Stats, preserving insertion
// order so reports render categories consistently.
type StatsResult struct {
	order []models.Category
	stats map[models.Category]*models.Stats
}

func NewStatsResult() *StatsResult {
	return &StatsResult{stats: make(map[models.Category]*models.Stats)}
}

// Categories returns the categories in insertion order.
func (r *StatsResult) Categories() []models.Category {
	return r.order
}

func (r *StatsResult) Get(category models.Category) *models.Stats {
	return r.stats[category]
}

func (r *StatsResult) Set(category models.Category, stats *models.Stats) {
	if _, ok := r.stats[category]; !ok {
		r.order = append(r.order, category)
	}
	r.stats[category] = stats
}

func (r *StatsResult) Delete(category models.Category) {
	if _, ok := r.stats[category]; !ok {
		return
	}
	delete(r.stats, category)
	for i, c := range r.order {
		if c == category {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *StatsResult) Len() int {
	return len(r.order)
}

// Compile reduces every category into one grand Stats: flows add up, and so
// do the balance fields, since categories never share losses or residuals.
func (r *StatsResult) Compile() *models.Stats {
	grand := models.NewStats()
	for _, category := range r.order {
		stats := r.stats[category]
		grand.MergeFlows(stats)
		grand.Taxes.Residual = grand.Taxes.Residual.Add(stats.Taxes.Residual)
		grand.CumulativeLosses = grand.CumulativeLosses.Add(stats.CumulativeLosses)
		grand.Patrimony = grand.Patrimony.Add(stats.Patrimony)
	}
	return grand
}

func (r *StatsResult) MarshalJSON() ([]byte, error) {
	named := make(map[string]*models.Stats, len(r.stats))
	for category, stats := range r.stats {
		named[category.Name()] = stats
	}
	return json.Marshal(named)
}

// statsProcessorImpl aggregates one month. The seed holds exactly the
// previous month's results; when a category is missing there, the persisted
// historical snapshot is consulted, and failing that the month starts empty.
type statsProcessorImpl struct {
	statistics StatisticSource
	taxEntries TaxEntrySource
	policy     TaxPolicy
	seed       *StatsResult
}

func NewStatsProcessor(statistics StatisticSource, taxEntries TaxEntrySource, policy TaxPolicy, seed *StatsResult) StatsProcessor {
	return &statsProcessorImpl{
		statistics: statistics,
		taxEntries: taxEntries,
		policy:     policy,
		seed:       seed,
	}
}

// Generate rolls the month's asset results into per-category Stats, then
// applies the tax policy and the residual carry.
func (p *statsProcessorImpl) Generate(report *MonthReport, opts StatsOptions) (*StatsResult, error) {
	results := NewStatsResult()

	// Seed every tracked category up front so finished positions can still
	// receive cross-category compensation.
	for _, category := range models.Categories() {
		if len(opts.Categories) > 0 && !containsCategory(opts.Categories, category) {
			continue
		}
		if _, err := p.getStats(results, category, report, opts); err != nil {
			return nil, err
		}
	}

	for _, asset := range report.Assets {
		if asset.Enterprise == nil {
			logger.L.Debug("Skipping unregistered asset in stats", "code", asset.Code)
			continue
		}
		category := asset.Enterprise.Category
		if len(opts.Categories) > 0 && !containsCategory(opts.Categories, category) {
			logger.L.Debug("Skipping asset outside requested categories",
				"code", asset.Code, "category", category.Name())
			continue
		}
		stats, err := p.getStats(results, category, report, opts)
		if err != nil {
			return nil, err
		}
		stats.AddAssetFlows(
			asset.Period.Total,
			asset.Period.Tax,
			asset.Position.Sell.Total,
			asset.Position.Sell.Tax,
			asset.Position.Sell.Capital,
			asset.Position.Buy.Total,
			asset.Position.Bonus,
		)
	}

	if err := p.generateTaxes(results); err != nil {
		return nil, err
	}
	if err := p.generateResidualTaxes(results, report, opts); err != nil {
		return nil, err
	}
	return results, nil
}

// getStats returns the category's accumulator, creating and seeding it on
// first access: in-memory prior month first, then the persisted historical
// snapshot, then empty.
func (p *statsProcessorImpl) getStats(results *StatsResult, category models.Category, report *MonthReport, opts StatsOptions) (*models.Stats, error) {
	if stats := results.Get(category); stats != nil {
		return stats, nil
	}
	stats := models.NewStats()

	if previous := p.seedStats(category); previous != nil {
		// Losses consumed last month no longer count against the carry.
		stats.CumulativeLosses = previous.CumulativeLosses.Add(previous.CompensatedLosses)
		stats.Taxes.Residual = previous.Taxes.Residual
		if !previous.Taxes.Paid {
			stats.Taxes.MergeItems(previous.Taxes)
		}
	} else {
		periodEnd := utils.EndOfMonth(report.Start.AddDate(0, -1, 0))
		record, err := p.statistics.FetchStatistic(opts.UserID, category, opts.Institution, periodEnd)
		if err != nil {
			return nil, fmt.Errorf("fetching statistic for %s: %w", category.Name(), err)
		}
		if record != nil {
			stats.CumulativeLosses = record.CumulativeLosses
			stats.Taxes.Residual = record.ResidualTaxes
			for _, entry := range record.TaxEntries {
				stats.Taxes.AddItem(entry)
			}
		}
	}

	results.Set(category, stats)
	return stats, nil
}

func (p *statsProcessorImpl) seedStats(category models.Category) *models.Stats {
	if p.seed == nil {
		return nil
	}
	return p.seed.Get(category)
}

// compensateLosses offsets a profit against a category's accumulated losses,
// recording what was consumed. Returns the profit that survives.
func compensateLosses(profits decimal.Decimal, stats *models.Stats) decimal.Decimal {
	if !profits.IsPositive() {
		return profits
	}
	cumulativeLosses := stats.CumulativeLosses.Abs()
	if cumulativeLosses.IsZero() {
		return profits
	}
	if cumulativeLosses.GreaterThanOrEqual(profits) {
		stats.CompensatedLosses = stats.CompensatedLosses.Add(profits)
		return decimal.Decimal{}
	}
	stats.CompensatedLosses = stats.CompensatedLosses.Add(cumulativeLosses)
	return profits.Sub(cumulativeLosses)
}

// generateTaxes applies each category's rule: exemption for stocks under the
// sell-volume threshold, loss compensation (cross-category only between
// stocks and BDRs), then the swing-trade rate on the surviving profit.
func (p *statsProcessorImpl) generateTaxes(results *StatsResult) error {
	for _, category := range results.Categories() {
		stats := results.Get(category)
		rate, ok := p.policy.Rates[category]
		if !ok {
			return fmt.Errorf("no tax rate configured for category %s", category.Name())
		}

		switch category {
		case models.CategoryStock:
			if stats.Sell.GreaterThan(rate.ExemptProfitThreshold) {
				p.taxProfits(stats, results.Get(models.CategoryBDR), rate)
			} else {
				// Swing-trade profit under the monthly sell threshold is exempt.
				stats.ExemptProfit = stats.ExemptProfit.Add(stats.Profits)
				stats.Profits = decimal.Decimal{}
			}
		case models.CategoryBDR:
			p.taxProfits(stats, results.Get(models.CategoryStock), rate)
		default:
			// FIIs and subscription rights: own losses only, no exemption.
			p.taxProfits(stats, nil, rate)
		}
	}
	return nil
}

// taxProfits runs the compensation chain (own losses, then the counterpart
// category's when given) and accrues tax on what remains.
func (p *statsProcessorImpl) taxProfits(stats, counterpart *models.Stats, rate CategoryRate) {
	profits := compensateLosses(stats.Profits, stats)
	if !profits.IsPositive() {
		return
	}
	if counterpart != nil {
		profits = compensateLosses(profits, counterpart)
		if !profits.IsPositive() {
			return
		}
	}
	stats.Taxes.Value = stats.Taxes.Value.Add(profits.Mul(rate.SwingTradeRate))
}

// generateResidualTaxes merges the user's manual tax entries for the window
// and applies the DARF minimum: below it, the month's tax moves into the
// residual carry; at or above it, a closed period folds the residual into the
// payable value and marks it paid.
func (p *statsProcessorImpl) generateResidualTaxes(results *StatsResult, report *MonthReport, opts StatsOptions) error {
	entries, err := p.taxEntries.FetchTaxEntries(opts.UserID, report.Start, report.End)
	if err != nil {
		return fmt.Errorf("fetching manual tax entries: %w", err)
	}

	grand := results.Compile()
	for _, category := range results.Categories() {
		stats := results.Get(category)
		for _, entry := range entries {
			if entry.Category != category || !entry.Total.IsPositive() {
				continue
			}
			// A paid entry with no computed-stats link is a user annotation.
			if entry.Paid && !entry.LinkedStats {
				continue
			}
			grand.Taxes.Value = grand.Taxes.Value.Add(entry.TaxesToPay)
			stats.Taxes.Value = stats.Taxes.Value.Add(entry.TaxesToPay)
			grand.Taxes.AddItem(entry)
			stats.Taxes.AddItem(entry)
		}
	}

	if grand.Taxes.Total().GreaterThanOrEqual(p.policy.DarfMinValue) {
		if !report.Closed {
			return nil
		}
		for _, category := range results.Categories() {
			stats := results.Get(category)
			stats.Taxes.Value = stats.Taxes.Value.Add(stats.Taxes.Residual)
			stats.Taxes.Residual = decimal.Decimal{}
			stats.Taxes.Paid = true
		}
		return nil
	}

	// Nothing is due this month; everything compounds into next month.
	for _, category := range results.Categories() {
		stats := results.Get(category)
		stats.Taxes.Residual = stats.Taxes.Residual.Add(stats.Taxes.Value)
		stats.Taxes.Value = decimal.Decimal{}
	}
	return nil
}

func containsCategory(categories []models.Category, category models.Category) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}
