package domain

import "time"

// Bar es una vela diaria. El backtest solo usa Close; el resto se conserva
// para que los ficheros de datos no pierdan información al convertirse.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Closes extrae los cierres en el orden dado.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
