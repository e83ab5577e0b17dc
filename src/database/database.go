package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/irpfolio/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Ensuring database schema", "databasePath", databasePath)
	} else {
		stdlog.Println("Ensuring database schema for:", databasePath)
	}

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS enterprises (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		cnpj TEXT,
		category INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		code TEXT NOT NULL,
		institution TEXT NOT NULL,
		date TEXT NOT NULL,
		kind TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price TEXT NOT NULL,
		tax TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS positions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		code TEXT NOT NULL,
		institution TEXT NOT NULL,
		date TEXT NOT NULL,
		quantity TEXT NOT NULL,
		avg_price TEXT NOT NULL,
		total TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bonuses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		code TEXT NOT NULL,
		date TEXT NOT NULL,
		proportion TEXT NOT NULL,
		base_value TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS earnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		code TEXT NOT NULL,
		institution TEXT NOT NULL,
		date TEXT NOT NULL,
		flow TEXT NOT NULL,
		kind TEXT NOT NULL,
		quantity TEXT NOT NULL DEFAULT '0',
		total TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS tax_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		category INTEGER NOT NULL,
		created_date TEXT NOT NULL,
		total TEXT NOT NULL DEFAULT '0',
		taxes_to_pay TEXT NOT NULL DEFAULT '0',
		paid BOOLEAN DEFAULT FALSE,
		linked_stats BOOLEAN DEFAULT FALSE,
		statistic_id INTEGER
	);

	CREATE TABLE IF NOT EXISTS statistics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		category INTEGER NOT NULL,
		institution TEXT,
		consolidation TEXT NOT NULL,
		date TEXT NOT NULL,
		cumulative_losses TEXT NOT NULL DEFAULT '0',
		residual_taxes TEXT NOT NULL DEFAULT '0',
		UNIQUE(user_id, category, institution, consolidation, date)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_window
		ON transactions(user_id, institution, date);
	CREATE INDEX IF NOT EXISTS idx_earnings_window
		ON earnings(user_id, code, institution, date);
	`

	if _, err = DB.Exec(createTableStatement); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}
