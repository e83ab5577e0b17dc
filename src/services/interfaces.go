package services

import (
	"time"

	"github.com/username/irpfolio/src/models"
	"github.com/username/irpfolio/src/processors"
)

// DataProvider bundles every read-only collaborator the report engine needs.
// The sqlite store implements it; tests substitute fixtures.
type DataProvider interface {
	processors.TransactionSource
	processors.PositionSource
	processors.EnterpriseSource
	processors.BonusSource
	processors.EarningsSource
	processors.StatisticSource
	processors.TaxEntrySource
}

// ReportRequest scopes one report run.
type ReportRequest struct {
	UserID      int64
	Institution string
	StartDate   time.Time
	EndDate     time.Time
	// Categories optionally restricts the run, by category name.
	Categories []string
}

// ReportResult is the full outcome of a report run: per-month results, the
// per-category multi-month compilation and the grand total.
type ReportResult struct {
	ID          string                       `json:"id"`
	GeneratedAt time.Time                    `json:"generated_at"`
	Request     ReportRequest                `json:"-"`
	Months      *processors.MultiMonthResult `json:"months"`
	Compiled    *processors.StatsResult      `json:"compiled"`
	Total       *models.Stats                `json:"total"`
}

// ReportService defines the interface for the consolidation/tax report logic.
type ReportService interface {
	GenerateReport(req ReportRequest) (*ReportResult, error)
}
