package entity

import "time"

// Variation configuración vendible de un producto (talla/color); unidad de control de stock.
// Serialized indica que cada unidad se rastrea por número de serie.
type Variation struct {
	ID         string
	BusinessID string
	ProductID  string
	SKU        string
	Name       string
	Serialized bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
