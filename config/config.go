package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/backtester/internal/domain"
	"github.com/alejandrodnm/backtester/internal/domain/strategy"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Strategy StrategyConfig `yaml:"strategy"`
	Prices   PricesConfig   `yaml:"prices"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla la ejecución.
type BacktestConfig struct {
	Symbol  string      `yaml:"symbol"`
	Fee     *float64    `yaml:"fee"`     // nil → default; 0 es un valor válido
	Workers int         `yaml:"workers"` // workers del sweep; 0 = NumCPU
	Sweep   SweepConfig `yaml:"sweep"`
}

// SweepConfig define el grid de ventanas a barrer.
type SweepConfig struct {
	ShortWindows []int `yaml:"short_windows"`
	LongWindows  []int `yaml:"long_windows"`
	Top          int   `yaml:"top"` // filas a imprimir
}

// StrategyConfig elige la estrategia y sus parámetros.
type StrategyConfig struct {
	Name   string                `yaml:"name"` // linreg | hold
	LinReg strategy.LinRegParams `yaml:"linreg"`
}

// PricesConfig indica de dónde se cargan los cierres.
type PricesConfig struct {
	Source     string  `yaml:"source"` // csv | parquet | http
	CSVPath    string  `yaml:"csv_path"`
	ParquetDir string  `yaml:"parquet_dir"`
	BaseURL    string  `yaml:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec"`
}

// StorageConfig controla dónde se persisten los runs.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

const defaultFee = 0.002

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse interpreta YAML, aplica overrides de entorno y defaults, y valida.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Fee devuelve la fee por operación.
func (c *Config) Fee() float64 {
	if c.Backtest.Fee == nil {
		return defaultFee
	}
	return *c.Backtest.Fee
}

// Validate comprueba lo que no tiene un default razonable.
func (c *Config) Validate() error {
	if fee := c.Fee(); fee < 0 || fee >= 1 {
		return fmt.Errorf("config: backtest.fee=%v must be in [0, 1): %w", fee, domain.ErrInvalidConfiguration)
	}
	switch c.Strategy.Name {
	case strategy.NameLinReg:
		if err := c.Strategy.LinReg.Validate(); err != nil {
			return fmt.Errorf("config: strategy.linreg: %w", err)
		}
	case strategy.NameHold:
	default:
		return fmt.Errorf("config: unknown strategy %q: %w", c.Strategy.Name, domain.ErrInvalidConfiguration)
	}
	switch c.Prices.Source {
	case "csv", "parquet", "http":
	default:
		return fmt.Errorf("config: unknown prices.source %q: %w", c.Prices.Source, domain.ErrInvalidConfiguration)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BACKTEST_FEE"); v != "" {
		fee, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: BACKTEST_FEE=%q: %w", v, domain.ErrInvalidConfiguration)
		}
		cfg.Backtest.Fee = &fee
	}
	if v := os.Getenv("PRICES_BASE_URL"); v != "" {
		cfg.Prices.BaseURL = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Backtest.Symbol == "" {
		cfg.Backtest.Symbol = "BTC"
	}
	if len(cfg.Backtest.Sweep.ShortWindows) == 0 {
		cfg.Backtest.Sweep.ShortWindows = []int{5, 10, 20}
	}
	if len(cfg.Backtest.Sweep.LongWindows) == 0 {
		cfg.Backtest.Sweep.LongWindows = []int{50, 65, 80, 90}
	}
	if cfg.Backtest.Sweep.Top <= 0 {
		cfg.Backtest.Sweep.Top = 10
	}
	if cfg.Strategy.Name == "" {
		cfg.Strategy.Name = strategy.NameLinReg
	}
	if cfg.Strategy.LinReg == (strategy.LinRegParams{}) {
		cfg.Strategy.LinReg = strategy.DefaultLinRegParams()
	}
	if cfg.Prices.Source == "" {
		cfg.Prices.Source = "csv"
	}
	if cfg.Prices.CSVPath == "" {
		cfg.Prices.CSVPath = "data"
	}
	if cfg.Prices.ParquetDir == "" {
		cfg.Prices.ParquetDir = "data/parquet"
	}
	if cfg.Prices.BaseURL == "" {
		cfg.Prices.BaseURL = "http://localhost:8080"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "backtester.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
