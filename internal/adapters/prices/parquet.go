package prices

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// BarRecord es el schema Parquet de una vela diaria.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// ParquetDir implementa ports.PriceProvider sobre un directorio con un
// <SYMBOL>.parquet por símbolo.
type ParquetDir struct {
	DataDir string
}

// NewParquetDir crea el provider.
func NewParquetDir(dataDir string) *ParquetDir {
	return &ParquetDir{DataDir: dataDir}
}

// FetchClosings implementa ports.PriceProvider. Las velas se ordenan por timestamp.
func (p *ParquetDir) FetchClosings(ctx context.Context, symbol string) ([]float64, error) {
	bars, err := p.ReadBars(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return domain.Closes(bars), nil
}

// ReadBars lee las velas de symbol ordenadas por timestamp.
func (p *ParquetDir) ReadBars(_ context.Context, symbol string) ([]domain.Bar, error) {
	path := p.path(symbol)
	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("prices.ParquetDir: read %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("prices.ParquetDir: %q has no rows: %w", path, domain.ErrInsufficientData)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})

	bars := make([]domain.Bar, len(records))
	for i, r := range records {
		bars[i] = domain.Bar{
			Symbol:    r.Symbol,
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		}
	}
	return bars, nil
}

// WriteBars escribe (reemplazando) el fichero de symbol.
func (p *ParquetDir) WriteBars(_ context.Context, symbol string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	records := make([]BarRecord, len(bars))
	for i, b := range bars {
		records[i] = BarRecord{
			Symbol:    strings.ToUpper(symbol),
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}

	path := p.path(symbol)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prices.ParquetDir: mkdir: %w", err)
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("prices.ParquetDir: write %q: %w", path, err)
	}
	return nil
}

// path: <DataDir>/<SYMBOL>.parquet
func (p *ParquetDir) path(symbol string) string {
	return filepath.Join(p.DataDir, strings.ToUpper(symbol)+".parquet")
}
