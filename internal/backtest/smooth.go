package backtest

// smooth.go — densifica la serie de cierres sin inventar dirección.
//
// En vez de interpolar precios (que sobreoscila en los puntos de inflexión) se
// interpola la primera diferencia y se integra: 4N puntos de derivada, integración
// trapezoidal acumulada desde c[0], 4N−1 precios resultantes.

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/alejandrodnm/backtester/internal/domain"
)

const (
	upsampleFactor = 4
	timeOffset     = 0.5 // desplazamiento al punto medio
)

// SmoothedLen devuelve la longitud de la serie suavizada para n cierres.
func SmoothedLen(n int) int {
	return upsampleFactor*n - 1
}

// Smooth convierte los cierres en una curva (tiempo, precio) de longitud 4N−1.
// No modifica closings.
func Smooth(closings []float64) (domain.SmoothedSeries, error) {
	n := len(closings)
	if n < 2 {
		return domain.SmoothedSeries{}, fmt.Errorf("backtest.Smooth: %d closings, need at least 2: %w", n, domain.ErrInsufficientData)
	}
	for i, c := range closings {
		if !(c > 0) || math.IsInf(c, 0) {
			return domain.SmoothedSeries{}, fmt.Errorf("backtest.Smooth: closing[%d]=%v: %w", i, c, domain.ErrInvalidPrice)
		}
	}

	diff := make([]float64, n-1)
	for i := range diff {
		diff[i] = closings[i+1] - closings[i]
	}

	grid := floats.Span(make([]float64, upsampleFactor*n), 0, float64(n-1))

	diffInterp, err := interpolate(diff, grid)
	if err != nil {
		return domain.SmoothedSeries{}, fmt.Errorf("backtest.Smooth: interpolate: %w", err)
	}

	prices := cumulativeTrapezoid(diffInterp, grid, closings[0])

	times := make([]float64, len(grid)-1)
	for i := range times {
		times[i] = grid[i+1] + timeOffset
	}

	return domain.SmoothedSeries{Times: times, Prices: prices}, nil
}

// interpolate evalúa ys (muestreados en 0, 1, …, len(ys)−1) en cada punto de at.
// Fuera del rango de muestras devuelve el valor del extremo más cercano.
func interpolate(ys, at []float64) ([]float64, error) {
	out := make([]float64, len(at))
	if len(ys) == 1 {
		for i := range out {
			out[i] = ys[0]
		}
		return out, nil
	}

	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	for i, x := range at {
		out[i] = pl.Predict(x)
	}
	return out, nil
}

// cumulativeTrapezoid integra ys sobre xs acumulando desde seed.
// Devuelve len(ys)−1 valores: el i-ésimo es la integral hasta xs[i+1].
func cumulativeTrapezoid(ys, xs []float64, seed float64) []float64 {
	out := make([]float64, len(ys)-1)
	acc := seed
	for i := 1; i < len(ys); i++ {
		acc += (xs[i] - xs[i-1]) * (ys[i] + ys[i-1]) / 2
		out[i-1] = acc
	}
	return out
}
