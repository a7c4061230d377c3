package inventory

import (
	"fmt"
	"strings"
)

// ValuationMethod método de costeo del inventario.
type ValuationMethod string

const (
	// ValuationFIFO consume primero las capas más antiguas.
	ValuationFIFO ValuationMethod = "FIFO"
	// ValuationLIFO consume primero las capas más recientes.
	ValuationLIFO ValuationMethod = "LIFO"
	// ValuationWeightedAverage mantiene una sola capa sintética con costo promedio.
	ValuationWeightedAverage ValuationMethod = "WEIGHTED_AVERAGE"
)

// IsValid indica si el método es conocido.
func (v ValuationMethod) IsValid() bool {
	switch v {
	case ValuationFIFO, ValuationLIFO, ValuationWeightedAverage:
		return true
	}
	return false
}

// UsesLayers indica si el método consume capas individuales (FIFO/LIFO).
func (v ValuationMethod) UsesLayers() bool {
	return v == ValuationFIFO || v == ValuationLIFO
}

// ParseValuationMethod acepta "fifo", "LIFO", "weighted-average", "wavg"...
func ParseValuationMethod(s string) (ValuationMethod, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch norm {
	case "FIFO":
		return ValuationFIFO, nil
	case "LIFO":
		return ValuationLIFO, nil
	case "WEIGHTED_AVERAGE", "WAVG", "AVERAGE", "AVG":
		return ValuationWeightedAverage, nil
	}
	return "", fmt.Errorf("método de valuación desconocido: %q", s)
}
