package ports

import "context"

// PriceProvider obtiene la serie histórica de cierres de un símbolo,
// ordenada del más antiguo al más reciente.
type PriceProvider interface {
	FetchClosings(ctx context.Context, symbol string) ([]float64, error)
}
