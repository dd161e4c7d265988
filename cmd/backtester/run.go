package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/backtester/config"
	"github.com/alejandrodnm/backtester/internal/adapters/notify"
	"github.com/alejandrodnm/backtester/internal/adapters/prices"
	"github.com/alejandrodnm/backtester/internal/backtest"
	"github.com/alejandrodnm/backtester/internal/domain/strategy"
	"github.com/alejandrodnm/backtester/internal/ports"
)

// runBacktest ejecuta un único backtest. store nil = dry-run.
func runBacktest(
	ctx context.Context,
	cfg *config.Config,
	closings []float64,
	reporter ports.Reporter,
	store ports.RunStorage,
) error {
	strat, err := strategy.New(cfg.Strategy.Name, cfg.Strategy.LinReg)
	if err != nil {
		return err
	}

	exec := backtest.NewExecutor()
	exec.AddStrategy(strat)

	run, err := exec.Run(ctx, cfg.Backtest.Symbol, cfg.Fee(), closings)
	if err != nil {
		return err
	}

	if err := reporter.Report(ctx, run); err != nil {
		slog.Warn("reporter error", "err", err)
	}

	if store == nil {
		return nil
	}
	if err := store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	slog.Info("run saved", "id", run.ID, "transactions", len(run.Transactions))
	return nil
}

func runSweep(ctx context.Context, cfg *config.Config, closings []float64, notifier *notify.Console) error {
	sw := cfg.Backtest.Sweep
	grid := backtest.SweepGrid(cfg.Strategy.LinReg, sw.ShortWindows, sw.LongWindows)
	slog.Info("=== SWEEP MODE ===", "combinations", len(grid), "workers", cfg.Backtest.Workers)

	results, err := backtest.Sweep(ctx, closings, cfg.Fee(), grid, cfg.Backtest.Workers)
	if err != nil {
		return err
	}

	notifier.PrintSweep(cfg.Backtest.Symbol, results, sw.Top)
	slog.Info("sweep complete", "results", len(results))
	return nil
}

// runHistory imprime los runs guardados. symbol vacío = todos.
// Con ledger=true también reimprime el último run con sus transacciones.
func runHistory(ctx context.Context, store ports.RunStorage, notifier *notify.Console, symbol string, ledger bool) error {
	runs, err := store.GetRuns(ctx, symbol, 0)
	if err != nil {
		return err
	}
	notifier.PrintHistory(runs)
	if !ledger || len(runs) == 0 {
		return nil
	}

	last := runs[0]
	last.Transactions, err = store.GetTransactions(ctx, last.ID)
	if err != nil {
		return err
	}
	return notifier.Report(ctx, last)
}

// runExportParquet convierte las barras CSV del símbolo al directorio parquet,
// para que los siguientes runs puedan usar prices.source=parquet.
func runExportParquet(ctx context.Context, cfg *config.Config) error {
	bars, err := prices.NewCSVFile(cfg.Prices.CSVPath).ReadBars(ctx, cfg.Backtest.Symbol)
	if err != nil {
		return err
	}
	if err := prices.NewParquetDir(cfg.Prices.ParquetDir).WriteBars(ctx, cfg.Backtest.Symbol, bars); err != nil {
		return err
	}
	slog.Info("bars exported", "symbol", cfg.Backtest.Symbol, "bars", len(bars), "dir", cfg.Prices.ParquetDir)
	return nil
}
