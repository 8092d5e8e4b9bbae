package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/glebarez/go-sqlite"

	"perp_patrol/internal/domain"
)

// FillJournal persists confirmed fills and daily P&L in SQLite so the
// daily loss hard stop and positions survive a process restart.
type FillJournal struct {
	db *sql.DB
}

// NewFillJournal opens (or creates) the journal with WAL mode enabled.
func NewFillJournal(dbPath string) (*FillJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS fills (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			price REAL NOT NULL,
			size REAL NOT NULL,
			is_maker INTEGER NOT NULL,
			counterparty TEXT NOT NULL,
			ts_ms INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create fills table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	return &FillJournal{db: db}, nil
}

// Close releases the database handle.
func (j *FillJournal) Close() error { return j.db.Close() }

// RecordFill appends a fill.
func (j *FillJournal) RecordFill(ctx context.Context, f *domain.Fill) error {
	maker := 0
	if f.IsMaker {
		maker = 1
	}
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO fills (symbol, side, price, size, is_maker, counterparty, ts_ms) VALUES (?, ?, ?, ?, ?, ?, ?)",
		f.Symbol, string(f.Side), f.Price, f.Size, maker, f.Counterparty, f.TsMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fill: %w", err)
	}
	return nil
}

// SaveDailyPnL stores the running daily P&L.
func (j *FillJournal) SaveDailyPnL(ctx context.Context, pnl float64, tsMs int64) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES ('daily_pnl', ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		strconv.FormatFloat(pnl, 'f', -1, 64), tsMs,
	)
	return err
}

// LoadDailyPnL restores the stored daily P&L, returning 0 when none
// has been saved.
func (j *FillJournal) LoadDailyPnL(ctx context.Context) (float64, error) {
	var value string
	err := j.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'daily_pnl'").Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(value, 64)
}

// Positions rebuilds signed position notional per symbol from the
// recorded fills.
func (j *FillJournal) Positions(ctx context.Context) (map[string]float64, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT symbol,
		       SUM(CASE WHEN side = 'SELL' THEN -price * size ELSE price * size END)
		FROM fills GROUP BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var notional float64
		if err := rows.Scan(&symbol, &notional); err != nil {
			return nil, err
		}
		out[symbol] = notional
	}
	return out, rows.Err()
}
