package prices_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/backtester/internal/adapters/prices"
	"github.com/alejandrodnm/backtester/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVFile_FetchClosings(t *testing.T) {
	path := writeFile(t, t.TempDir(), "btc.csv",
		"Date,Open,High,Low,Close,Volume\n"+
			"2024-01-01,10,12,9,11,1000\n"+
			"\n"+
			"2024-01-02,11,13,10,12.5,2000\n")

	closings, err := prices.NewCSVFile(path).FetchClosings(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 12.5}, closings)
}

func TestCSVFile_ReadBars_OptionalColumns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.csv",
		"timestamp, close\n"+
			"1704067200, 101\n"+
			"1704153600, 102\n")

	bars, err := prices.NewCSVFile(path).ReadBars(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "X", bars[0].Symbol)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Timestamp)
	assert.Equal(t, 102.0, bars[1].Close)
	assert.Zero(t, bars[1].Open)
}

func TestCSVFile_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ETH.csv", "close\n1\n2\n3\n")

	closings, err := prices.NewCSVFile(dir).FetchClosings(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, closings)

	_, err = prices.NewCSVFile(dir).FetchClosings(context.Background(), "")
	assert.Error(t, err)
}

func TestCSVFile_Errors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := prices.NewCSVFile(filepath.Join(dir, "missing.csv")).FetchClosings(ctx, "X")
	assert.Error(t, err)

	noClose := writeFile(t, dir, "a.csv", "date,open\n2024-01-01,1\n")
	_, err = prices.NewCSVFile(noClose).FetchClosings(ctx, "X")
	assert.ErrorContains(t, err, "no close column")

	bad := writeFile(t, dir, "b.csv", "close\n1\nabc\n")
	_, err = prices.NewCSVFile(bad).FetchClosings(ctx, "X")
	assert.ErrorContains(t, err, "line 3")

	headerOnly := writeFile(t, dir, "c.csv", "close\n")
	_, err = prices.NewCSVFile(headerOnly).FetchClosings(ctx, "X")
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	empty := writeFile(t, dir, "d.csv", "")
	_, err = prices.NewCSVFile(empty).FetchClosings(ctx, "X")
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}
