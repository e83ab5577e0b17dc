package processors

import (
	"fmt"
	"time"

	"github.com/username/irpfolio/src/logger"
	"github.com/username/irpfolio/src/models"
	"github.com/username/irpfolio/src/utils"
)

// MonthResult pairs one month's consolidated assets with its category Stats.
type MonthResult struct {
	Key    int           `json:"month"`
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Assets []AssetResult `json:"assets"`
	Stats  *StatsResult  `json:"stats"`
}

// MultiMonthResult is the ordered outcome of a month-by-month report run.
type MultiMonthResult struct {
	Start  time.Time     `json:"start"`
	End    time.Time     `json:"end"`
	Months []MonthResult `json:"months"`
}

// GetFirst returns the first month's result.
func (r *MultiMonthResult) GetFirst() *MonthResult {
	if len(r.Months) == 0 {
		return nil
	}
	return &r.Months[0]
}

// GetLast returns the last month's result.
func (r *MultiMonthResult) GetLast() *MonthResult {
	if len(r.Months) == 0 {
		return nil
	}
	return &r.Months[len(r.Months)-1]
}

// ReportProcessor chains monthly stats runs over a date range and compiles
// the multi-month summary.
type ReportProcessor interface {
	GenerateByMonth(opts StatsOptions, start, end time.Time) (*MultiMonthResult, error)
	Compile(result *MultiMonthResult) *StatsResult
	CompileAll(compiled *StatsResult) *models.Stats
}

type reportProcessorImpl struct {
	negotiation NegotiationProcessor
	statistics  StatisticSource
	taxEntries  TaxEntrySource
	policy      TaxPolicy
}

func NewReportProcessor(
	negotiation NegotiationProcessor,
	statistics StatisticSource,
	taxEntries TaxEntrySource,
	policy TaxPolicy,
) ReportProcessor {
	return &reportProcessorImpl{
		negotiation: negotiation,
		statistics:  statistics,
		taxEntries:  taxEntries,
		policy:      policy,
	}
}

// GenerateByMonth consolidates and aggregates each month of [start, end] in
// ascending order, threading the previous month's results as the seed of the
// next and its closing positions as the next month's openings. Only the last
// month is marked closed.
func (p *reportProcessorImpl) GenerateByMonth(opts StatsOptions, start, end time.Time) (*MultiMonthResult, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("invalid date range: end %s before start %s",
			end.Format(utils.DefaultDateFormat), start.Format(utils.DefaultDateFormat))
	}
	start, end = utils.DateOnly(start), utils.DateOnly(end)

	result := &MultiMonthResult{Start: start, End: end}
	var seed *StatsResult
	var openings map[string]models.PositionRecord

	for monthStart := utils.StartOfMonth(start); !monthStart.After(end); monthStart = monthStart.AddDate(0, 1, 0) {
		windowStart := maxDate(monthStart, start)
		windowEnd := minDate(utils.EndOfMonth(monthStart), end)
		key := utils.MonthKey(monthStart)

		assets, err := p.negotiation.Consolidate(opts.UserID, opts.Institution, windowStart, windowEnd, openings)
		if err != nil {
			return nil, fmt.Errorf("consolidating month %d: %w", key, err)
		}

		report := &MonthReport{
			Key:    key,
			Start:  windowStart,
			End:    windowEnd,
			Closed: !utils.EndOfMonth(monthStart).Before(end),
			Assets: assets,
		}

		statsProcessor := NewStatsProcessor(p.statistics, p.taxEntries, p.policy, seed)
		stats, err := statsProcessor.Generate(report, opts)
		if err != nil {
			return nil, fmt.Errorf("aggregating month %d: %w", key, err)
		}

		result.Months = append(result.Months, MonthResult{
			Key:    key,
			Start:  windowStart,
			End:    windowEnd,
			Assets: assets,
			Stats:  stats,
		})
		seed = stats
		openings = closingPositions(assets, windowEnd, opts)
		logger.L.Debug("Month aggregated", "month", key, "assets", len(assets))
	}
	return result, nil
}

// closingPositions turns a month's held positions into the opening records of
// the following month. Emptied positions are dropped; a later buy reopens the
// asset with a fresh ledger.
func closingPositions(assets []AssetResult, asOf time.Time, opts StatsOptions) map[string]models.PositionRecord {
	openings := make(map[string]models.PositionRecord, len(assets))
	for _, asset := range assets {
		if !asset.Position.Buy.Quantity.IsPositive() {
			continue
		}
		openings[asset.Code] = models.PositionRecord{
			UserID:      opts.UserID,
			Code:        asset.Code,
			Institution: asset.Institution,
			Date:        asOf,
			Quantity:    asset.Position.Buy.Quantity,
			AvgPrice:    asset.Position.Buy.AvgPrice,
			Total:       asset.Position.Buy.Total,
		}
	}
	return openings
}

// Compile merges every month's Stats into one Stats per category: flows add
// up, while the residual and patrimony balances take the latest month's value
// (cumulative losses too, when the latest month carries any). Subscription
// rights are then folded into their parent categories and removed.
func (p *reportProcessorImpl) Compile(result *MultiMonthResult) *StatsResult {
	compiled := NewStatsResult()
	for _, month := range result.Months {
		for _, category := range month.Stats.Categories() {
			monthStats := month.Stats.Get(category)
			stats := compiled.Get(category)
			if stats == nil {
				stats = models.NewStats()
				compiled.Set(category, stats)
			}
			stats.MergeFlows(monthStats)
			stats.Taxes.Residual = monthStats.Taxes.Residual
			if !monthStats.CumulativeLosses.IsZero() {
				stats.CumulativeLosses = monthStats.CumulativeLosses
			}
			stats.Patrimony = monthStats.Patrimony
		}
	}
	compileSubscription(compiled, models.CategorySubscriptionStock)
	compileSubscription(compiled, models.CategorySubscriptionFII)
	return compiled
}

// CompileAll reduces the compiled per-category mapping into one grand Stats.
func (p *reportProcessorImpl) CompileAll(compiled *StatsResult) *models.Stats {
	return compiled.Compile()
}

// compileSubscription folds a subscription-right category into its parent and
// drops it. With no parent entry to receive the values, the subscription
// category is left in place.
func compileSubscription(compiled *StatsResult, subscription models.Category) {
	parentCategory, ok := subscription.Parent()
	if !ok {
		return
	}
	subscriptionStats := compiled.Get(subscription)
	if subscriptionStats == nil {
		return
	}
	parent := compiled.Get(parentCategory)
	if parent == nil {
		return
	}
	parent.MergeFlows(subscriptionStats)
	parent.Taxes.Residual = parent.Taxes.Residual.Add(subscriptionStats.Taxes.Residual)
	parent.CumulativeLosses = parent.CumulativeLosses.Add(subscriptionStats.CumulativeLosses)
	parent.Patrimony = parent.Patrimony.Add(subscriptionStats.Patrimony)
	compiled.Delete(subscription)
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
