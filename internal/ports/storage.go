package ports

import (
	"context"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// RunStorage persiste los resultados de cada backtest y su ledger.
type RunStorage interface {
	// SaveRun persiste el run y sus transacciones de forma atómica.
	SaveRun(ctx context.Context, run domain.RunResult) error

	// GetRuns devuelve los runs más recientes primero. symbol vacío = todos.
	GetRuns(ctx context.Context, symbol string, limit int) ([]domain.RunResult, error)

	// GetTransactions devuelve el ledger de un run en orden.
	GetTransactions(ctx context.Context, runID string) ([]domain.Transaction, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
