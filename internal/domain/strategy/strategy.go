package strategy

import (
	"fmt"

	"github.com/alejandrodnm/backtester/internal/domain"
)

// Strategy define el contrato de una unidad de decisión con estado propio.
// Cada estrategia encapsula una lógica de trading diferente; el executor la trata
// como opaca y nunca lee ni escribe su estado.
type Strategy interface {
	// Tick recibe la ventana de los últimos domain.WindowLen puntos de la serie
	// suavizada (el más reciente al final) y si hay posición abierta.
	// Devuelve domain.MotionNone cuando no hay nada que hacer.
	Tick(holding bool, times, prices []float64) (domain.Motion, error)
}

// Named es opcional: las estrategias que lo implementan aparecen con nombre en reportes.
type Named interface {
	Name() string
}

// NameOf devuelve el nombre de la estrategia para reportes.
func NameOf(s Strategy) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// New construye una estrategia por nombre. Para "linreg" usa params.
func New(name string, params LinRegParams) (Strategy, error) {
	switch name {
	case "", NameLinReg:
		return NewLinReg(params)
	case NameHold:
		return NewHold(), nil
	default:
		return nil, fmt.Errorf("strategy.New: unknown strategy %q: %w", name, domain.ErrInvalidConfiguration)
	}
}

var (
	_ Strategy = (*LinReg)(nil)
	_ Strategy = (*Hold)(nil)
)
