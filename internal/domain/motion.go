package domain

// Motion es la decisión que emite una estrategia en cada tick.
// El valor cero (MotionNone) representa "no hacer nada".
type Motion int

const (
	MotionNone Motion = iota
	MotionOpen
	MotionClose
)

// String devuelve la representación usada en logs y en la consola.
func (m Motion) String() string {
	switch m {
	case MotionOpen:
		return "OPEN"
	case MotionClose:
		return "CLOSE"
	default:
		return "NONE"
	}
}
