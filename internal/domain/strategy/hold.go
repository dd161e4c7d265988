package strategy

import "github.com/alejandrodnm/backtester/internal/domain"

// NameHold identifica la estrategia Hold.
const NameHold = "hold"

// Hold abre posición en el primer tick en que está sin posición y no cierra nunca.
// El executor la liquida al final, así que replica el buy-and-hold desde el warm-up.
type Hold struct{}

// NewHold crea la estrategia.
func NewHold() *Hold { return &Hold{} }

// Name implementa Named.
func (*Hold) Name() string { return NameHold }

// Tick implementa Strategy.
func (*Hold) Tick(holding bool, _, _ []float64) (domain.Motion, error) {
	if holding {
		return domain.MotionNone, nil
	}
	return domain.MotionOpen, nil
}
