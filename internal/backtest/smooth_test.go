package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// ramp devuelve n valores equiespaciados de from a to, ambos incluidos.
func ramp(n int, from, to float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + (to-from)*float64(i)/float64(n-1)
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSmooth_LengthLaw(t *testing.T) {
	for _, n := range []int{2, 3, 26, 50, 257} {
		s, err := Smooth(ramp(n, 10, 20))
		require.NoError(t, err, "n=%d", n)
		assert.Len(t, s.Prices, 4*n-1, "n=%d", n)
		assert.Len(t, s.Times, 4*n-1, "n=%d", n)
		assert.Equal(t, SmoothedLen(n), s.Len())
	}
}

func TestSmooth_LinearRoundTrip(t *testing.T) {
	const c0, step = 10.0, 3.0
	closings := make([]float64, 30)
	for i := range closings {
		closings[i] = c0 + step*float64(i)
	}

	s, err := Smooth(closings)
	require.NoError(t, err)
	for i := range s.Prices {
		want := c0 + step*(s.Times[i]-0.5)
		assert.InDelta(t, want, s.Prices[i], 1e-9, "i=%d", i)
	}
	// El último punto reproduce el último cierre.
	assert.InDelta(t, closings[len(closings)-1], s.Prices[s.Len()-1], 1e-9)
}

func TestSmooth_TimeGrid(t *testing.T) {
	const n = 10
	s, err := Smooth(ramp(n, 1, 2))
	require.NoError(t, err)

	spacing := float64(n-1) / float64(4*n-1)
	assert.InDelta(t, spacing+0.5, s.Times[0], 1e-12)
	assert.InDelta(t, float64(n-1)+0.5, s.Times[s.Len()-1], 1e-12)
	for i := 1; i < s.Len(); i++ {
		assert.Greater(t, s.Times[i], s.Times[i-1])
	}
}

func TestSmooth_TwoPoints(t *testing.T) {
	s, err := Smooth([]float64{100, 108})
	require.NoError(t, err)
	require.Equal(t, 7, s.Len())
	assert.InDelta(t, 108, s.Prices[6], 1e-9)
	assert.InDelta(t, 100+8*(s.Times[0]-0.5), s.Prices[0], 1e-9)
}

func TestSmooth_FlatSeries(t *testing.T) {
	s, err := Smooth(flat(40, 55))
	require.NoError(t, err)
	for _, p := range s.Prices {
		assert.Equal(t, 55.0, p)
	}
}

func TestSmooth_DoesNotMutateInput(t *testing.T) {
	closings := []float64{5, 7, 6, 9, 8}
	orig := append([]float64(nil), closings...)

	_, err := Smooth(closings)
	require.NoError(t, err)
	assert.Equal(t, orig, closings)
}

func TestSmooth_Errors(t *testing.T) {
	_, err := Smooth(nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	_, err = Smooth([]float64{100})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	for name, bad := range map[string]float64{
		"zero":     0,
		"negative": -5,
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Smooth([]float64{100, bad, 102})
			assert.ErrorIs(t, err, domain.ErrInvalidPrice)
		})
	}
}

func TestCumulativeTrapezoid(t *testing.T) {
	xs := []float64{0, 1, 2, 4}
	ys := []float64{1, 3, 3, 0}
	got := cumulativeTrapezoid(ys, xs, 10)
	assert.Equal(t, []float64{12, 15, 18}, got)
}

func TestInterpolate_ClampsPastLastSample(t *testing.T) {
	got, err := interpolate([]float64{0, 10}, []float64{0, 0.5, 1, 1.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, 10, 10}, got)
}
