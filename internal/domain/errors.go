package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Cada error del motor de inventario pertenece a uno de estos tipos; se comparan con errors.Is.
var (
	ErrValidation          = errors.New("entrada inválida")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrConsistency         = errors.New("el saldo no coincide con el libro de movimientos")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia")
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidTransition   = errors.New("transición de estado no permitida")
	ErrConflict            = errors.New("conflicto con el estado actual")
)

// StockError acompaña el tipo de error con el par (variación, bodega) que lo originó.
type StockError struct {
	Kind        error
	VariationID string
	LocationID  string
	Detail      string
	Err         error
}

func (e *StockError) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.VariationID != "" || e.LocationID != "" {
		msg += fmt.Sprintf(" (variation=%s, location=%s)", e.VariationID, e.LocationID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is permite errors.Is(err, domain.ErrInsufficientStock) sobre un *StockError.
func (e *StockError) Is(target error) bool {
	return e.Kind == target
}

func (e *StockError) Unwrap() error {
	return e.Err
}

// NewStockError construye un error tipado para un par variación/bodega.
func NewStockError(kind error, variationID, locationID, detail string) *StockError {
	return &StockError{Kind: kind, VariationID: variationID, LocationID: locationID, Detail: detail}
}

// Validationf crea un ErrValidation con detalle formateado.
func Validationf(format string, args ...any) error {
	return &StockError{Kind: ErrValidation, Detail: fmt.Sprintf(format, args...)}
}

// NotFoundf crea un ErrNotFound con detalle formateado.
func NotFoundf(format string, args ...any) error {
	return &StockError{Kind: ErrNotFound, Detail: fmt.Sprintf(format, args...)}
}

// KindOf devuelve el tipo de dominio de err, o nil si no es un error de dominio.
func KindOf(err error) error {
	for _, k := range []error{
		ErrValidation, ErrInsufficientStock, ErrConsistency, ErrConcurrencyConflict,
		ErrNotFound, ErrInvalidTransition, ErrConflict,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
