package domain

import (
	"math"
	"time"
)

// InitialCapital es el capital en USD con el que arranca cada backtest.
const InitialCapital = 100.0

// WindowLen es la longitud fija de la ventana que recibe cada estrategia
// (también el warm-up del executor).
const WindowLen = 100

// Transaction es una transición del portfolio: cash → posición (IsOpen) o posición → cash.
type Transaction struct {
	Time   float64
	Price  float64
	IsOpen bool
}

// Side devuelve "BUY" para aperturas y "SELL" para cierres.
func (t Transaction) Side() string {
	if t.IsOpen {
		return "BUY"
	}
	return "SELL"
}

// Portfolio de un solo activo. Tras el reset inicial nunca tiene USD y Token
// positivos a la vez: o cash o posición, nunca ambos, nunca cortos.
type Portfolio struct {
	USD   float64
	Token float64
}

// NewPortfolio devuelve el portfolio inicial {USD: 100, Token: 0}.
func NewPortfolio() Portfolio {
	return Portfolio{USD: InitialCapital}
}

// Holding indica si hay una posición abierta.
func (p Portfolio) Holding() bool {
	return p.Token > 0
}

// SmoothedSeries es la curva (tiempo, precio) resultante del suavizado.
type SmoothedSeries struct {
	Times  []float64
	Prices []float64
}

// Len devuelve el número de puntos de la serie.
func (s SmoothedSeries) Len() int {
	return len(s.Prices)
}

// RunResult es el resultado de un backtest, listo para reportar o persistir.
type RunResult struct {
	ID           string
	Symbol       string
	Strategy     string
	Fee          float64
	Closings     int // longitud de la serie de entrada
	Baseline     float64
	FinalEquity  float64
	Transactions []Transaction // solo las de este run
	StartedAt    time.Time
	Duration     time.Duration
}

const verdictTolerance = 1e-9

// Excess devuelve cuánto supera (o no) la estrategia al buy-and-hold.
func (r RunResult) Excess() float64 {
	return r.FinalEquity - r.Baseline
}

// Verdict clasifica el resultado frente al baseline.
func (r RunResult) Verdict() string {
	switch d := r.Excess(); {
	case math.Abs(d) <= verdictTolerance:
		return "MATCHES_HOLD"
	case d > 0:
		return "BEATS_HOLD"
	default:
		return "LOSES_TO_HOLD"
	}
}
