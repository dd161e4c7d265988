package storage

// sqlite.go — historial de backtests.
//
// Estrategia:
//   - `runs`: una fila por backtest con baseline, equity final y metadatos.
//   - `transactions`: el ledger de cada run, en orden (seq).
//   - SaveRun escribe ambas en una sola transacción: o se guarda el run completo o nada.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/backtester/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id             TEXT PRIMARY KEY,
    symbol         TEXT     NOT NULL,
    strategy       TEXT     NOT NULL,
    fee            REAL     NOT NULL DEFAULT 0,
    closings       INTEGER  NOT NULL DEFAULT 0,
    baseline       REAL     NOT NULL DEFAULT 0,
    final_equity   REAL     NOT NULL DEFAULT 0,
    n_transactions INTEGER  NOT NULL DEFAULT 0,
    started_at     DATETIME NOT NULL,
    duration_ms    INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS transactions (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id  TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq     INTEGER NOT NULL,
    time    REAL    NOT NULL,
    price   REAL    NOT NULL,
    is_open INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started  ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_symbol   ON runs(symbol);
CREATE UNIQUE INDEX IF NOT EXISTS idx_tx_run ON transactions(run_id, seq);
`

const defaultHistoryLimit = 20

// SQLiteStorage implementa ports.RunStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveRun persiste el run y su ledger.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run domain.RunResult) error {
	if run.ID == "" {
		return fmt.Errorf("storage.SaveRun: empty run ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, symbol, strategy, fee, closings, baseline, final_equity,
			 n_transactions, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Symbol, run.Strategy, run.Fee, run.Closings,
		run.Baseline, run.FinalEquity, len(run.Transactions),
		run.StartedAt.UTC(), run.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run %s: %w", run.ID, err)
	}

	if len(run.Transactions) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO transactions (run_id, seq, time, price, is_open) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("storage.SaveRun: prepare: %w", err)
		}
		defer stmt.Close()

		for i, t := range run.Transactions {
			isOpen := 0
			if t.IsOpen {
				isOpen = 1
			}
			if _, err := stmt.ExecContext(ctx, run.ID, i, t.Time, t.Price, isOpen); err != nil {
				return fmt.Errorf("storage.SaveRun: insert transaction %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetRuns devuelve los runs más recientes primero, sin el ledger.
// symbol vacío devuelve todos; limit <= 0 usa defaultHistoryLimit.
func (s *SQLiteStorage) GetRuns(ctx context.Context, symbol string, limit int) ([]domain.RunResult, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, strategy, fee, closings, baseline, final_equity,
		       started_at, duration_ms
		FROM runs
		WHERE ? = '' OR symbol = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, symbol, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunResult
	for rows.Next() {
		var r domain.RunResult
		var startedAt time.Time
		var durationMs int64
		if err := rows.Scan(
			&r.ID, &r.Symbol, &r.Strategy, &r.Fee, &r.Closings,
			&r.Baseline, &r.FinalEquity, &startedAt, &durationMs,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan row: %w", err)
		}
		r.StartedAt = startedAt.UTC()
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetTransactions devuelve el ledger de un run en orden.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, runID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, price, is_open FROM transactions WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTransactions: query: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var isOpen int
		if err := rows.Scan(&t.Time, &t.Price, &isOpen); err != nil {
			return nil, fmt.Errorf("storage.GetTransactions: scan row: %w", err)
		}
		t.IsOpen = isOpen == 1
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
