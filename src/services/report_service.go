package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/irpfolio/src/config"
	"github.com/username/irpfolio/src/logger"
	"github.com/username/irpfolio/src/models"
	"github.com/username/irpfolio/src/processors"
)

// TaxPolicyFromConfig translates the configured rate table into the engine's
// policy value. An unknown category name in the table fails fast.
func TaxPolicyFromConfig(cfg *config.AppConfig) (processors.TaxPolicy, error) {
	policy := processors.TaxPolicy{
		Rates:        make(map[models.Category]processors.CategoryRate, len(cfg.TaxRates)),
		DarfMinValue: cfg.DarfMinValue,
	}
	for name, rate := range cfg.TaxRates {
		category, err := models.ParseCategory(name)
		if err != nil {
			return processors.TaxPolicy{}, fmt.Errorf("%w: tax rate table entry %q", ErrUnknownCategory, name)
		}
		policy.Rates[category] = processors.CategoryRate{
			SwingTradeRate:        rate.SwingTradeRate,
			ExemptProfitThreshold: rate.ExemptProfitThreshold,
		}
	}
	return policy, nil
}

// cachedEnterpriseSource memoizes enterprise lookups; registrations change
// rarely and every report run resolves the same handful of codes.
type cachedEnterpriseSource struct {
	source processors.EnterpriseSource
	cache  *cache.Cache
}

func (s *cachedEnterpriseSource) FetchEnterprise(code string) (*models.Enterprise, error) {
	if cached, ok := s.cache.Get(code); ok {
		return cached.(*models.Enterprise), nil
	}
	enterprise, err := s.source.FetchEnterprise(code)
	if err != nil {
		return nil, err
	}
	s.cache.Set(code, enterprise, cache.DefaultExpiration)
	return enterprise, nil
}

type reportServiceImpl struct {
	provider DataProvider
	policy   processors.TaxPolicy
	reports  processors.ReportProcessor
}

// NewReportService wires the consolidation and stats processors against the
// data provider.
func NewReportService(provider DataProvider, policy processors.TaxPolicy, enterpriseCache *cache.Cache) ReportService {
	enterprises := &cachedEnterpriseSource{source: provider, cache: enterpriseCache}
	negotiation := processors.NewNegotiationProcessor(provider, provider, enterprises, provider, provider)
	reports := processors.NewReportProcessor(negotiation, provider, provider, policy)
	return &reportServiceImpl{
		provider: provider,
		policy:   policy,
		reports:  reports,
	}
}

// GenerateReport runs the month-chained consolidation over the request range
// and compiles the multi-month and grand-total views.
func (s *reportServiceImpl) GenerateReport(req ReportRequest) (*ReportResult, error) {
	if req.Institution == "" {
		return nil, ErrMissingInstitution
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidDateRange,
			req.EndDate.Format("2006-01-02"), req.StartDate.Format("2006-01-02"))
	}

	opts := processors.StatsOptions{
		UserID:      req.UserID,
		Institution: req.Institution,
	}
	for _, name := range req.Categories {
		category, err := models.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
		}
		opts.Categories = append(opts.Categories, category)
	}

	started := time.Now()
	months, err := s.reports.GenerateByMonth(opts, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	compiled := s.reports.Compile(months)
	total := s.reports.CompileAll(compiled)

	result := &ReportResult{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Request:     req,
		Months:      months,
		Compiled:    compiled,
		Total:       total,
	}
	logger.L.Info("Report generated",
		"reportID", result.ID,
		"userID", req.UserID,
		"institution", req.Institution,
		"months", len(months.Months),
		"duration", time.Since(started).String())
	return result, nil
}
