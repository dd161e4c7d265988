package backtest

// sweep.go — worker pool para barrer parámetros de LinReg en paralelo.
//
// Cada job construye su propio Executor y su propia LinReg: nada de estado
// compartido entre goroutines salvo closings, que solo se lee.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"github.com/alejandrodnm/backtester/internal/domain/strategy"
)

// SweepResult es el resultado de un backtest del barrido.
type SweepResult struct {
	Index       int // posición en el grid original
	Params      strategy.LinRegParams
	Baseline    float64
	FinalEquity float64
	Trades      int
}

// Excess devuelve FinalEquity − Baseline.
func (r SweepResult) Excess() float64 {
	return r.FinalEquity - r.Baseline
}

// SweepGrid expande base con todas las combinaciones de ventanas corta y larga.
func SweepGrid(base strategy.LinRegParams, shorts, longs []int) []strategy.LinRegParams {
	grid := make([]strategy.LinRegParams, 0, len(shorts)*len(longs))
	for _, s := range shorts {
		for _, l := range longs {
			p := base
			p.ShortTermWindow = s
			p.LongTermWindow = l
			grid = append(grid, p)
		}
	}
	return grid
}

// Sweep ejecuta un backtest por cada juego de parámetros del grid.
// Los parámetros inválidos se registran y se omiten; un error de datos o de
// contexto aborta el barrido. Resultados ordenados por equity final desc.
//
// Si workers <= 0 usa runtime.NumCPU().
func Sweep(
	ctx context.Context,
	closings []float64,
	fee float64,
	grid []strategy.LinRegParams,
	workers int,
) ([]SweepResult, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type job struct {
		index  int
		params strategy.LinRegParams
	}

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobCh := make(chan job, len(grid))
	resultCh := make(chan SweepResult, len(grid))
	errCh := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				if ctx.Err() != nil {
					return
				}
				res, err := sweepOne(ctx, closings, fee, j.index, j.params)
				if errors.Is(err, errSkipParams) {
					continue
				}
				if err != nil {
					errCh <- err
					cancel()
					return
				}
				resultCh <- res
			}
		}()
	}

	for i, p := range grid {
		jobCh <- job{index: i, params: p}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
		close(errCh)
	}()

	results := make([]SweepResult, 0, len(grid))
	for r := range resultCh {
		results = append(results, r)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if err := parent.Err(); err != nil {
		return nil, fmt.Errorf("backtest.Sweep: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalEquity != results[j].FinalEquity {
			return results[i].FinalEquity > results[j].FinalEquity
		}
		return results[i].Index < results[j].Index
	})

	slog.Debug("sweep complete",
		"grid", len(grid),
		"results", len(results),
		"workers", workers,
	)
	return results, nil
}

var errSkipParams = errors.New("skip params")

func sweepOne(ctx context.Context, closings []float64, fee float64, index int, params strategy.LinRegParams) (SweepResult, error) {
	s, err := strategy.NewLinReg(params)
	if err != nil {
		slog.Warn("sweep: skipping invalid params", "params", params.String(), "err", err)
		return SweepResult{}, errSkipParams
	}

	exec := NewExecutor()
	exec.AddStrategy(s)
	baseline, final, err := exec.backtest(ctx, fee, closings)
	if err != nil {
		return SweepResult{}, fmt.Errorf("backtest.Sweep: %s: %w", params, err)
	}

	return SweepResult{
		Index:       index,
		Params:      params,
		Baseline:    baseline,
		FinalEquity: final,
		Trades:      len(exec.transactions),
	}, nil
}
