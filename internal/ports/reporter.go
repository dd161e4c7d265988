package ports

import (
	"context"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// Reporter presenta el resultado de un backtest al usuario.
type Reporter interface {
	Report(ctx context.Context, run domain.RunResult) error
}
