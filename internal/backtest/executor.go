package backtest

// executor.go — recorre la serie suavizada en ventanas de domain.WindowLen puntos,
// consulta a las estrategias registradas y mantiene el portfolio (cash XOR posición)
// y el ledger de transacciones.
//
// El ledger acumula entre llamadas a Backtest (el portfolio y la serie no):
// RunResult.Transactions contiene solo las del run, y ClearTransactions
// permite empezar de cero de forma explícita.

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/backtester/internal/domain"
	"github.com/alejandrodnm/backtester/internal/domain/strategy"
)

// Executor orquesta un backtest. No es seguro para uso concurrente: para
// ejecutar backtests en paralelo cada goroutine necesita su propio Executor
// y sus propias instancias de Strategy.
type Executor struct {
	portfolio    domain.Portfolio
	strategies   []strategy.Strategy
	transactions []domain.Transaction
	series       domain.SmoothedSeries
}

// NewExecutor crea un Executor sin estrategias.
func NewExecutor() *Executor {
	return &Executor{}
}

// AddStrategy registra una estrategia. Se evalúan en orden de registro.
func (e *Executor) AddStrategy(s strategy.Strategy) {
	e.strategies = append(e.strategies, s)
}

// Strategies devuelve las estrategias registradas.
func (e *Executor) Strategies() []strategy.Strategy {
	return slices.Clone(e.strategies)
}

// SmoothX devuelve los tiempos de la última serie suavizada.
func (e *Executor) SmoothX() []float64 {
	return slices.Clone(e.series.Times)
}

// SmoothY devuelve los precios de la última serie suavizada.
func (e *Executor) SmoothY() []float64 {
	return slices.Clone(e.series.Prices)
}

// Transactions devuelve el ledger acumulado.
func (e *Executor) Transactions() []domain.Transaction {
	return slices.Clone(e.transactions)
}

// ClearTransactions vacía el ledger.
func (e *Executor) ClearTransactions() {
	e.transactions = nil
}

// Portfolio devuelve el estado actual del portfolio.
func (e *Executor) Portfolio() domain.Portfolio {
	return e.portfolio
}

// Backtest ejecuta las estrategias sobre closings con la fee dada por operación.
// Devuelve el baseline (comprar al primer precio suavizado y vender al último,
// pagando la fee dos veces) y el equity final tras liquidar cualquier posición.
func (e *Executor) Backtest(fee float64, closings []float64) (baseline, finalEquity float64, err error) {
	return e.backtest(context.Background(), fee, closings)
}

// Run es Backtest con contexto, identificador y métricas para reportar o persistir.
func (e *Executor) Run(ctx context.Context, symbol string, fee float64, closings []float64) (domain.RunResult, error) {
	start := time.Now()
	before := len(e.transactions)

	baseline, final, err := e.backtest(ctx, fee, closings)
	if err != nil {
		return domain.RunResult{}, err
	}

	result := domain.RunResult{
		ID:           uuid.New().String(),
		Symbol:       symbol,
		Strategy:     e.strategyNames(),
		Fee:          fee,
		Closings:     len(closings),
		Baseline:     baseline,
		FinalEquity:  final,
		Transactions: slices.Clone(e.transactions[before:]),
		StartedAt:    start.UTC(),
		Duration:     time.Since(start),
	}

	slog.Info("backtest complete",
		"run_id", result.ID,
		"symbol", symbol,
		"strategy", result.Strategy,
		"closings", len(closings),
		"baseline", fmt.Sprintf("%.4f", baseline),
		"final_equity", fmt.Sprintf("%.4f", final),
		"transactions", len(result.Transactions),
		"verdict", result.Verdict(),
	)
	return result, nil
}

func (e *Executor) backtest(ctx context.Context, fee float64, closings []float64) (float64, float64, error) {
	if !(fee >= 0 && fee < 1) {
		return 0, 0, fmt.Errorf("backtest.Backtest: fee=%v must be in [0, 1): %w", fee, domain.ErrInvalidConfiguration)
	}

	series, err := Smooth(closings)
	if err != nil {
		return 0, 0, err
	}
	n := series.Len()
	if n <= domain.WindowLen {
		return 0, 0, fmt.Errorf("backtest.Backtest: %d smoothed points (from %d closings), need more than %d: %w",
			n, len(closings), domain.WindowLen, domain.ErrInsufficientData)
	}

	// Un run fallido no deja rastro visible: se restaura el estado previo.
	prevPortfolio, prevSeries, prevLedger := e.portfolio, e.series, len(e.transactions)
	restore := func() {
		e.portfolio = prevPortfolio
		e.series = prevSeries
		e.transactions = e.transactions[:prevLedger]
	}

	e.portfolio = domain.NewPortfolio()
	e.series = series

	x, y := series.Times, series.Prices
	baseline := domain.InitialCapital / y[0] * y[n-1] * (1 - fee) * (1 - fee)

	var lastPrice float64
	for index := domain.WindowLen; index < n; index++ {
		if err := ctx.Err(); err != nil {
			restore()
			return 0, 0, fmt.Errorf("backtest.Backtest: %w", err)
		}

		wx := x[index-domain.WindowLen : index]
		wy := y[index-domain.WindowLen : index]
		lastPrice = wy[len(wy)-1]

		for _, s := range e.strategies {
			motion, err := s.Tick(e.portfolio.Holding(), slices.Clone(wx), slices.Clone(wy))
			if err != nil {
				restore()
				return 0, 0, fmt.Errorf("backtest.Backtest: %s at index %d: %w", strategy.NameOf(s), index, err)
			}
			e.apply(motion, fee, lastPrice, domain.Transaction{Time: x[index], Price: y[index]})
		}
	}

	// Liquidación forzada al último precio de la última ventana, pagando fee.
	e.portfolio.USD += e.portfolio.Token * lastPrice * (1 - fee)
	e.portfolio.Token = 0

	return baseline, e.portfolio.USD, nil
}

// apply ejecuta el motion si el portfolio lo permite. Una estrategia anterior en
// el mismo tick puede haber consumido la oportunidad.
func (e *Executor) apply(motion domain.Motion, fee, price float64, tx domain.Transaction) {
	switch {
	case motion == domain.MotionOpen && e.portfolio.USD > 0:
		e.portfolio.Token = e.portfolio.USD / price * (1 - fee)
		e.portfolio.USD = 0
		tx.IsOpen = true
	case motion == domain.MotionClose && e.portfolio.Token > 0:
		e.portfolio.USD = e.portfolio.Token * price * (1 - fee)
		e.portfolio.Token = 0
		tx.IsOpen = false
	default:
		return
	}

	e.transactions = append(e.transactions, tx)
	slog.Debug("transaction",
		"side", tx.Side(),
		"time", tx.Time,
		"price", tx.Price,
		"fill_price", price,
		"usd", e.portfolio.USD,
		"token", e.portfolio.Token,
	)
}

func (e *Executor) strategyNames() string {
	if len(e.strategies) == 0 {
		return "none"
	}
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = strategy.NameOf(s)
	}
	return strings.Join(names, "+")
}

