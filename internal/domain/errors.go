package domain

import "errors"

// Errores del backtest. Se envuelven con fmt.Errorf("...: %w") y se comparan con errors.Is.
var (
	// ErrInsufficientData: la serie es demasiado corta para suavizar o para el warm-up.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidPrice: precio no finito o <= 0.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidConfiguration: fee fuera de [0,1), ventanas fuera de rango, etc.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrNumericalFit: regresión degenerada (tiempos idénticos, NaN).
	ErrNumericalFit = errors.New("numerical fit failed")
)
