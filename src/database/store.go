package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/irpfolio/src/models"
	"github.com/username/irpfolio/src/utils"
)

// SQLStore implements the engine's read-only collaborator contracts on top
// of the sqlite database. Not-found conditions are nil results, not errors.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func scanDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, nil
	}
	return decimal.NewFromString(raw)
}

func formatDate(t time.Time) string {
	return t.Format(utils.DefaultDateFormat)
}

func (s *SQLStore) FetchTransactions(userID int64, institution string, start, end time.Time) ([]models.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, code, institution, date, kind, quantity, price, tax
		FROM transactions
		WHERE user_id = ? AND institution = ? AND date >= ? AND date <= ?
		ORDER BY date, id`,
		userID, institution, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var date, quantity, price, tax string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Code, &t.Institution, &date, &t.Kind, &quantity, &price, &tax); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		if t.Date, err = utils.ParseDate(date); err != nil {
			return nil, err
		}
		if t.Quantity, err = scanDecimal(quantity); err != nil {
			return nil, err
		}
		if t.Price, err = scanDecimal(price); err != nil {
			return nil, err
		}
		if t.Tax, err = scanDecimal(tax); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (s *SQLStore) FetchPositions(userID int64, institution string, asOf time.Time) (map[string]models.PositionRecord, error) {
	rows, err := s.db.Query(`
		SELECT user_id, code, institution, date, quantity, avg_price, total
		FROM positions
		WHERE user_id = ? AND institution = ? AND date <= ?
		ORDER BY date, id`,
		userID, institution, formatDate(asOf))
	if err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	defer rows.Close()

	// Later records supersede earlier ones per code.
	positions := make(map[string]models.PositionRecord)
	for rows.Next() {
		var p models.PositionRecord
		var date, quantity, avgPrice, total string
		if err := rows.Scan(&p.UserID, &p.Code, &p.Institution, &date, &quantity, &avgPrice, &total); err != nil {
			return nil, fmt.Errorf("scanning position: %w", err)
		}
		if p.Date, err = utils.ParseDate(date); err != nil {
			return nil, err
		}
		if p.Quantity, err = scanDecimal(quantity); err != nil {
			return nil, err
		}
		if p.AvgPrice, err = scanDecimal(avgPrice); err != nil {
			return nil, err
		}
		if p.Total, err = scanDecimal(total); err != nil {
			return nil, err
		}
		positions[p.Code] = p
	}
	return positions, rows.Err()
}

func (s *SQLStore) FetchEnterprise(code string) (*models.Enterprise, error) {
	var e models.Enterprise
	var cnpj sql.NullString
	var category int
	err := s.db.QueryRow(`
		SELECT code, name, cnpj, category FROM enterprises WHERE code = ? COLLATE NOCASE`,
		code).Scan(&e.Code, &e.Name, &cnpj, &category)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying enterprise %s: %w", code, err)
	}
	e.CNPJ = cnpj.String
	e.Category = models.Category(category)
	if !e.Category.Valid() {
		return nil, fmt.Errorf("enterprise %s has invalid category %d", code, category)
	}
	return &e, nil
}

func (s *SQLStore) FetchBonuses(userID int64, start, end time.Time) ([]models.Bonus, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, code, date, proportion, base_value
		FROM bonuses
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date, id`,
		userID, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("querying bonuses: %w", err)
	}
	defer rows.Close()

	var bonuses []models.Bonus
	for rows.Next() {
		var b models.Bonus
		var date, proportion, baseValue string
		if err := rows.Scan(&b.ID, &b.UserID, &b.Code, &date, &proportion, &baseValue); err != nil {
			return nil, fmt.Errorf("scanning bonus: %w", err)
		}
		if b.Date, err = utils.ParseDate(date); err != nil {
			return nil, err
		}
		if b.Proportion, err = scanDecimal(proportion); err != nil {
			return nil, err
		}
		if b.BaseValue, err = scanDecimal(baseValue); err != nil {
			return nil, err
		}
		bonuses = append(bonuses, b)
	}
	return bonuses, rows.Err()
}

func (s *SQLStore) FetchEarnings(userID int64, code, institution, flow string, start, end time.Time) ([]models.Earning, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, code, institution, date, flow, kind, quantity, total
		FROM earnings
		WHERE user_id = ? AND code = ? COLLATE NOCASE AND institution = ?
		  AND flow = ? AND date >= ? AND date <= ?
		ORDER BY date, id`,
		userID, code, institution, flow, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("querying earnings: %w", err)
	}
	defer rows.Close()

	var earnings []models.Earning
	for rows.Next() {
		var e models.Earning
		var date, quantity, total string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Code, &e.Institution, &date, &e.Flow, &e.Kind, &quantity, &total); err != nil {
			return nil, fmt.Errorf("scanning earning: %w", err)
		}
		if e.Date, err = utils.ParseDate(date); err != nil {
			return nil, err
		}
		if e.Quantity, err = scanDecimal(quantity); err != nil {
			return nil, err
		}
		if e.Total, err = scanDecimal(total); err != nil {
			return nil, err
		}
		earnings = append(earnings, e)
	}
	return earnings, rows.Err()
}

func (s *SQLStore) FetchStatistic(userID int64, category models.Category, institution string, periodEnd time.Time) (*models.StatisticRecord, error) {
	query := `
		SELECT id, user_id, category, COALESCE(institution, ''), consolidation, date,
		       cumulative_losses, residual_taxes
		FROM statistics
		WHERE user_id = ? AND category = ? AND consolidation = ? AND date = ?`
	args := []any{userID, int(category), models.ConsolidationMonthly, formatDate(periodEnd)}
	if institution != "" {
		query += " AND institution = ?"
		args = append(args, institution)
	}

	var record models.StatisticRecord
	var categoryValue int
	var date, cumulativeLosses, residualTaxes string
	err := s.db.QueryRow(query, args...).Scan(
		&record.ID, &record.UserID, &categoryValue, &record.Institution,
		&record.Consolidation, &date, &cumulativeLosses, &residualTaxes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying statistic: %w", err)
	}
	record.Category = models.Category(categoryValue)
	if record.Date, err = utils.ParseDate(date); err != nil {
		return nil, err
	}
	if record.CumulativeLosses, err = scanDecimal(cumulativeLosses); err != nil {
		return nil, err
	}
	if record.ResidualTaxes, err = scanDecimal(residualTaxes); err != nil {
		return nil, err
	}
	if record.TaxEntries, err = s.fetchStatisticTaxEntries(record.ID); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *SQLStore) fetchStatisticTaxEntries(statisticID int64) ([]models.TaxEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, category, created_date, total, taxes_to_pay, paid, linked_stats
		FROM tax_entries
		WHERE statistic_id = ?
		ORDER BY created_date, id`,
		statisticID)
	if err != nil {
		return nil, fmt.Errorf("querying statistic tax entries: %w", err)
	}
	defer rows.Close()
	return scanTaxEntries(rows)
}

func (s *SQLStore) FetchTaxEntries(userID int64, start, end time.Time) ([]models.TaxEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, category, created_date, total, taxes_to_pay, paid, linked_stats
		FROM tax_entries
		WHERE user_id = ? AND created_date >= ? AND created_date <= ?
		ORDER BY created_date, id`,
		userID, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("querying tax entries: %w", err)
	}
	defer rows.Close()
	return scanTaxEntries(rows)
}

func scanTaxEntries(rows *sql.Rows) ([]models.TaxEntry, error) {
	var entries []models.TaxEntry
	for rows.Next() {
		var entry models.TaxEntry
		var category int
		var createdDate, total, taxesToPay string
		if err := rows.Scan(&entry.ID, &entry.UserID, &category, &createdDate, &total, &taxesToPay, &entry.Paid, &entry.LinkedStats); err != nil {
			return nil, fmt.Errorf("scanning tax entry: %w", err)
		}
		entry.Category = models.Category(category)
		var err error
		if entry.CreatedDate, err = utils.ParseDate(createdDate); err != nil {
			return nil, err
		}
		if entry.Total, err = scanDecimal(total); err != nil {
			return nil, err
		}
		if entry.TaxesToPay, err = scanDecimal(taxesToPay); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
