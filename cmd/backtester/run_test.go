package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/backtester/config"
	"github.com/alejandrodnm/backtester/internal/adapters/prices"
	"github.com/alejandrodnm/backtester/internal/adapters/storage"
	"github.com/alejandrodnm/backtester/internal/domain"
)

type captureReporter struct {
	runs []domain.RunResult
}

func (c *captureReporter) Report(_ context.Context, run domain.RunResult) error {
	c.runs = append(c.runs, run)
	return nil
}

func flatClosings(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestNewPriceProvider(t *testing.T) {
	cfg := config.PricesConfig{Source: "csv", CSVPath: "data", ParquetDir: "pq", BaseURL: "http://x"}
	assert.IsType(t, &prices.CSVFile{}, newPriceProvider(cfg))

	cfg.Source = "parquet"
	assert.IsType(t, &prices.ParquetDir{}, newPriceProvider(cfg))

	cfg.Source = "http"
	assert.IsType(t, &prices.HTTPClient{}, newPriceProvider(cfg))
}

func TestRunBacktest_HoldSavesRun(t *testing.T) {
	cfg, err := config.Parse([]byte("backtest:\n  symbol: FLAT\nstrategy:\n  name: hold\n"))
	require.NoError(t, err)

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer store.Close()

	rep := &captureReporter{}
	ctx := context.Background()
	require.NoError(t, runBacktest(ctx, cfg, flatClosings(30, 50), rep, store))

	require.Len(t, rep.runs, 1)
	run := rep.runs[0]
	assert.Equal(t, "FLAT", run.Symbol)
	assert.Equal(t, "hold", run.Strategy)
	assert.InDelta(t, run.Baseline, run.FinalEquity, 1e-9)

	saved, err := store.GetRuns(ctx, "FLAT", 0)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, run.ID, saved[0].ID)

	txs, err := store.GetTransactions(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Transactions, txs)
}

func TestRunBacktest_DryRunWithoutStore(t *testing.T) {
	cfg, err := config.Parse([]byte("{}"))
	require.NoError(t, err)

	rep := &captureReporter{}
	require.NoError(t, runBacktest(context.Background(), cfg, flatClosings(30, 50), rep, nil))
	assert.Len(t, rep.runs, 1)
}

func TestRunBacktest_TooFewClosings(t *testing.T) {
	cfg, err := config.Parse([]byte("{}"))
	require.NoError(t, err)

	err = runBacktest(context.Background(), cfg, flatClosings(10, 50), &captureReporter{}, nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestRunExportParquet(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("date,close\n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "2024-01-%02d,%d\n", i, 100+i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ABC.csv"), []byte(b.String()), 0o644))

	cfg, err := config.Parse([]byte("backtest:\n  symbol: ABC\n"))
	require.NoError(t, err)
	cfg.Prices.CSVPath = dir
	cfg.Prices.ParquetDir = filepath.Join(dir, "parquet")

	ctx := context.Background()
	require.NoError(t, runExportParquet(ctx, cfg))

	closings, err := prices.NewParquetDir(cfg.Prices.ParquetDir).FetchClosings(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102, 103, 104, 105}, closings)
}
