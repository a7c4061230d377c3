package entity

import "time"

// Location representa una bodega o tienda con saldos de stock independientes (multi-bodega).
type Location struct {
	ID         string
	BusinessID string
	Name       string
	Address    string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
