package strategy

// linreg.go — estrategia de seguimiento de tendencia con doble regresión lineal
// y trailing stop.
//
// En cada tick:
//  1. Ajusta una recta a la ventana sin los últimos ShortTermWindow puntos (tendencia reciente)
//     y otra sin los últimos LongTermWindow puntos (tendencia larga). Ninguna de las dos
//     mira el borde de la ventana, para no reaccionar al ruido del último punto.
//  2. Stop-loss: si hay posición y el precio tocó sellBar, CLOSE sin mirar tendencias.
//  3. sellBar solo sube: max(sellBar, price × (1 − 2·fee − trailing)).
//  4. Reversión bajista (larga > reciente y precio bajo la banda) → CLOSE.
//     Ruptura alcista (reciente > larga y precio sobre la banda) → OPEN, y sellBar
//     se reinicia a price × (1 − loss + 2·fee).

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// NameLinReg identifica la estrategia LinReg.
const NameLinReg = "linreg"

// LinRegParams configura la estrategia.
type LinRegParams struct {
	SellTrendThreshold float64 `yaml:"sell_trend_threshold"` // mLong − mShort para vender
	BuyTrendThreshold  float64 `yaml:"buy_trend_threshold"`  // mShort − mLong para comprar
	ShortTermWindow    int     `yaml:"short_term_window"`    // puntos excluidos del final (fit corto)
	LongTermWindow     int     `yaml:"long_term_window"`     // puntos excluidos del final (fit largo)
	TradeFee           float64 `yaml:"trade_fee"`
	TrailingMargin     float64 `yaml:"trailing_margin"`
	LossMargin         float64 `yaml:"loss_margin"`
}

// DefaultLinRegParams devuelve los parámetros de referencia.
func DefaultLinRegParams() LinRegParams {
	return LinRegParams{
		SellTrendThreshold: 2.0,
		BuyTrendThreshold:  2.0,
		ShortTermWindow:    10,
		LongTermWindow:     80,
		TradeFee:           0.002,
		TrailingMargin:     0.02,
		LossMargin:         0.01,
	}
}

// minFitPoints es el mínimo de puntos para una regresión con pendiente definida.
const minFitPoints = 2

// Validate comprueba que los parámetros dejan al menos minFitPoints en cada fit
// con la ventana fija de domain.WindowLen puntos.
func (p LinRegParams) Validate() error {
	maxWindow := domain.WindowLen - minFitPoints
	windows := []struct {
		name string
		size int
	}{
		{"short_term_window", p.ShortTermWindow},
		{"long_term_window", p.LongTermWindow},
	}
	for _, w := range windows {
		if w.size < 1 || w.size > maxWindow {
			return fmt.Errorf("%s=%d must be in [1, %d]: %w", w.name, w.size, maxWindow, domain.ErrInvalidConfiguration)
		}
	}
	if p.TradeFee < 0 || p.TradeFee >= 1 {
		return fmt.Errorf("trade_fee=%v must be in [0, 1): %w", p.TradeFee, domain.ErrInvalidConfiguration)
	}
	if p.TrailingMargin < 0 || p.LossMargin < 0 {
		return fmt.Errorf("margins must be non-negative (trailing=%v, loss=%v): %w",
			p.TrailingMargin, p.LossMargin, domain.ErrInvalidConfiguration)
	}
	if !isFinite(p.SellTrendThreshold) || !isFinite(p.BuyTrendThreshold) {
		return fmt.Errorf("trend thresholds must be finite: %w", domain.ErrInvalidConfiguration)
	}
	return nil
}

// String resume los parámetros para logs y tablas.
func (p LinRegParams) String() string {
	return fmt.Sprintf("LinReg(short=%d, long=%d, buy=%.2f, sell=%.2f, trail=%.3f, loss=%.3f)",
		p.ShortTermWindow, p.LongTermWindow, p.BuyTrendThreshold, p.SellTrendThreshold,
		p.TrailingMargin, p.LossMargin)
}

// LinReg implementa Strategy. sellBar es estado propio de la instancia:
// no compartir una instancia entre backtests concurrentes.
type LinReg struct {
	params  LinRegParams
	sellBar float64
}

// NewLinReg crea la estrategia. Devuelve domain.ErrInvalidConfiguration si los
// parámetros no son válidos.
func NewLinReg(params LinRegParams) (*LinReg, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("strategy.NewLinReg: %w", err)
	}
	return &LinReg{params: params}, nil
}

// Name implementa Named.
func (*LinReg) Name() string { return NameLinReg }

// Params devuelve la configuración de la instancia.
func (s *LinReg) Params() LinRegParams { return s.params }

// SellBar devuelve el nivel actual del trailing stop.
func (s *LinReg) SellBar() float64 { return s.sellBar }

// Tick implementa Strategy.
func (s *LinReg) Tick(holding bool, times, prices []float64) (domain.Motion, error) {
	p := s.params
	n := len(prices)
	if len(times) != n {
		return domain.MotionNone, fmt.Errorf("strategy.LinReg.Tick: %d times vs %d prices: %w",
			len(times), n, domain.ErrInsufficientData)
	}
	if n-p.LongTermWindow < minFitPoints || n-p.ShortTermWindow < minFitPoints {
		return domain.MotionNone, fmt.Errorf("strategy.LinReg.Tick: window of %d points too short: %w",
			n, domain.ErrInsufficientData)
	}

	xShort, yShort := times[:n-p.ShortTermWindow], prices[:n-p.ShortTermWindow]
	mShort, _, err := fitLine(xShort, yShort)
	if err != nil {
		return domain.MotionNone, fmt.Errorf("strategy.LinReg.Tick: short fit: %w", err)
	}

	xLong, yLong := times[:n-p.LongTermWindow], prices[:n-p.LongTermWindow]
	mLong, bLong, err := fitLine(xLong, yLong)
	if err != nil {
		return domain.MotionNone, fmt.Errorf("strategy.LinReg.Tick: long fit: %w", err)
	}

	yFit := mLong*times[n-1] + bLong
	_, stdFit := stat.PopMeanStdDev(yLong, nil)
	price := prices[n-1]

	// El stop-loss tiene prioridad sobre cualquier señal de tendencia.
	if holding && price <= s.sellBar {
		return domain.MotionClose, nil
	}

	s.sellBar = math.Max(s.sellBar, price*(1-2*p.TradeFee-p.TrailingMargin))

	sellSignal := mLong-mShort > p.SellTrendThreshold && yFit-stdFit > price
	buySignal := mShort-mLong > p.BuyTrendThreshold && yFit+stdFit < price

	switch {
	case sellSignal && holding:
		return domain.MotionClose, nil
	case buySignal && !holding:
		s.sellBar = price * (1 - p.LossMargin + 2*p.TradeFee)
		return domain.MotionOpen, nil
	default:
		return domain.MotionNone, nil
	}
}

// fitLine ajusta y = m·x + b por mínimos cuadrados.
func fitLine(x, y []float64) (m, b float64, err error) {
	if len(x) < minFitPoints {
		return 0, 0, fmt.Errorf("%d points: %w", len(x), domain.ErrNumericalFit)
	}
	if floats.Max(x) == floats.Min(x) {
		return 0, 0, fmt.Errorf("all %d time values identical: %w", len(x), domain.ErrNumericalFit)
	}
	b, m = stat.LinearRegression(x, y, nil, false)
	if !isFinite(m) || !isFinite(b) {
		return 0, 0, fmt.Errorf("non-finite coefficients (m=%v, b=%v): %w", m, b, domain.ErrNumericalFit)
	}
	return m, b, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
