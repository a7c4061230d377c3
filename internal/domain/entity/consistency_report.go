package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConsistencyReport resultado de conciliar el saldo de un par contra su libro de movimientos.
type ConsistencyReport struct {
	VariationID   string
	LocationID    string
	StoredBalance decimal.Decimal
	LedgerSum     decimal.Decimal
	Difference    decimal.Decimal // StoredBalance - LedgerSum
	MovementCount int
	// BrokenChainSeq es el Seq del primer movimiento cuyo BalanceAfter no continúa la cadena (0 = sin ruptura).
	BrokenChainSeq int64
	Consistent     bool
	Proposed       *ProposedCorrection
	CheckedAt      time.Time
}

// CorrectionResolution cómo resolver una discrepancia aprobada por un operador.
type CorrectionResolution string

const (
	// ResolveTrustBalance agrega al libro un ajuste que cierra la brecha; el saldo no cambia.
	ResolveTrustBalance CorrectionResolution = "trust_balance"
	// ResolveTrustLedger fija el saldo en la suma del libro y deja una fila de auditoría en cero.
	ResolveTrustLedger CorrectionResolution = "trust_ledger"
)

// ProposedCorrection corrección sugerida; requiere aprobación explícita.
type ProposedCorrection struct {
	Resolution CorrectionResolution
	Delta      decimal.Decimal
	Note       string
}

// BackfillReport movimientos faltantes aplicados a un evento incompleto.
type BackfillReport struct {
	ReferenceType string
	ReferenceID   string
	Applied       []StockMovement
	AlreadyFine   int
	GeneratedAt   time.Time
}
