package prices

// csv.go — lee velas desde CSV con cabecera. Solo la columna close es obligatoria;
// date|timestamp, open, high, low y volume se leen si existen.

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/backtester/internal/domain"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// CSVFile implementa ports.PriceProvider sobre un fichero CSV, o sobre un
// directorio con un <SYMBOL>.csv por símbolo.
type CSVFile struct {
	path string
}

// NewCSVFile crea el provider. path puede ser un fichero o un directorio.
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

// FetchClosings implementa ports.PriceProvider.
func (c *CSVFile) FetchClosings(ctx context.Context, symbol string) ([]float64, error) {
	bars, err := c.ReadBars(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return domain.Closes(bars), nil
}

// ReadBars lee todas las velas del CSV correspondiente a symbol.
func (c *CSVFile) ReadBars(_ context.Context, symbol string) ([]domain.Bar, error) {
	path, err := c.resolve(symbol)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("prices.CSVFile: open %q: %w", path, err)
	}
	defer f.Close()

	bars, err := parseBars(f, strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("prices.CSVFile: %s: %w", path, err)
	}
	return bars, nil
}

func (c *CSVFile) resolve(symbol string) (string, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return "", fmt.Errorf("prices.CSVFile: stat %q: %w", c.path, err)
	}
	if !info.IsDir() {
		return c.path, nil
	}
	if symbol == "" {
		return "", fmt.Errorf("prices.CSVFile: %q is a directory and no symbol was given", c.path)
	}
	return filepath.Join(c.path, strings.ToUpper(symbol)+".csv"), nil
}

// parseBars lee un CSV con cabecera. Las líneas vacías se ignoran.
func parseBars(r io.Reader, symbol string) ([]domain.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: %w", domain.ErrInsufficientData)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	closeIdx, ok := cols["close"]
	if !ok {
		return nil, fmt.Errorf("no close column in header %v", header)
	}

	var bars []domain.Bar
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		b := domain.Bar{Symbol: symbol}
		if b.Close, err = floatField(row, closeIdx); err != nil {
			return nil, fmt.Errorf("line %d: close: %w", line, err)
		}
		for name, dst := range map[string]*float64{"open": &b.Open, "high": &b.High, "low": &b.Low} {
			if idx, ok := cols[name]; ok {
				if *dst, err = floatField(row, idx); err != nil {
					return nil, fmt.Errorf("line %d: %s: %w", line, name, err)
				}
			}
		}
		if idx, ok := cols["volume"]; ok && idx < len(row) && row[idx] != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: volume: %w", line, err)
			}
			b.Volume = int64(v)
		}
		if idx, ok := timeColumn(cols); ok && idx < len(row) {
			if b.Timestamp, err = parseTime(row[idx]); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		bars = append(bars, b)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("no rows: %w", domain.ErrInsufficientData)
	}
	return bars, nil
}

func floatField(row []string, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, fmt.Errorf("missing field %d", idx)
	}
	return strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
}

func timeColumn(cols map[string]int) (int, bool) {
	for _, name := range []string{"date", "timestamp", "time"} {
		if idx, ok := cols[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

// parseTime acepta fechas (ver dateLayouts) o segundos unix.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
