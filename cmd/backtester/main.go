package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alejandrodnm/backtester/config"
	"github.com/alejandrodnm/backtester/internal/adapters/notify"
	"github.com/alejandrodnm/backtester/internal/adapters/prices"
	"github.com/alejandrodnm/backtester/internal/adapters/storage"
	"github.com/alejandrodnm/backtester/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	symbol := flag.String("symbol", "", "symbol to backtest (overrides config)")
	csvPath := flag.String("csv", "", "CSV file or directory with closings (forces prices.source=csv)")
	strategyName := flag.String("strategy", "", "strategy: linreg|hold (overrides config)")
	sweep := flag.Bool("sweep", false, "sweep short/long windows of the linreg strategy")
	history := flag.Bool("history", false, "print stored runs and exit")
	exportParquet := flag.Bool("export-parquet", false, "convert the CSV bars of -symbol into prices.parquet_dir and exit")
	dryRun := flag.Bool("dry-run", false, "do not persist runs")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	ledger := flag.Bool("ledger", false, "print the transaction table of each run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *symbol != "" {
		cfg.Backtest.Symbol = strings.ToUpper(*symbol)
	}
	if *csvPath != "" {
		cfg.Prices.Source = "csv"
		cfg.Prices.CSVPath = *csvPath
	}
	if *strategyName != "" {
		cfg.Strategy.Name = *strategyName
	}
	// los flags pueden dejar la config en un estado inválido
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	slog.Info("backtester starting",
		"config", *configPath,
		"symbol", cfg.Backtest.Symbol,
		"strategy", cfg.Strategy.Name,
		"source", cfg.Prices.Source,
		"fee", cfg.Fee(),
		"dry_run", *dryRun,
		"sweep", *sweep,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *exportParquet {
		if err := runExportParquet(ctx, cfg); err != nil {
			slog.Error("parquet export failed", "err", err)
			os.Exit(1)
		}
		return
	}

	var store *storage.SQLiteStorage
	if !*dryRun {
		store, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}

	notifier := notify.NewConsole(*ledger)

	if *history {
		if store == nil {
			slog.Error("-history needs storage, drop -dry-run")
			os.Exit(1)
		}
		if err := runHistory(ctx, store, notifier, strings.ToUpper(*symbol), *ledger); err != nil {
			slog.Error("history failed", "err", err)
			os.Exit(1)
		}
		return
	}

	provider := newPriceProvider(cfg.Prices)
	closings, err := provider.FetchClosings(ctx, cfg.Backtest.Symbol)
	if err != nil {
		slog.Error("failed to load closings", "err", err, "symbol", cfg.Backtest.Symbol)
		os.Exit(1)
	}
	slog.Info("closings loaded", "symbol", cfg.Backtest.Symbol, "count", len(closings))

	if *sweep {
		err = runSweep(ctx, cfg, closings, notifier)
	} else {
		var runStore ports.RunStorage
		if store != nil {
			runStore = store
		}
		err = runBacktest(ctx, cfg, closings, notifier, runStore)
	}
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	slog.Info("backtester stopped cleanly")
}

// newPriceProvider elige el adapter según prices.source (ya validado).
func newPriceProvider(cfg config.PricesConfig) ports.PriceProvider {
	switch cfg.Source {
	case "parquet":
		return prices.NewParquetDir(cfg.ParquetDir)
	case "http":
		return prices.NewHTTPClient(cfg.BaseURL, cfg.RatePerSec)
	default:
		return prices.NewCSVFile(cfg.CSVPath)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
