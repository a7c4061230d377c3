package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL serializable.
type TxRunner struct {
	pool           *pgxpool.Pool
	defaultTimeout time.Duration
}

// NewTxRunner construye el runner con el pool; defaultTimeout aplica cuando TxOptions no trae uno.
func NewTxRunner(pool *pgxpool.Pool, defaultTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, defaultTimeout: defaultTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// El timeout se aplica al contexto y como statement_timeout local de la transacción.
func (r *TxRunner) Run(ctx context.Context, opts repository.TxOptions, fn func(ctx context.Context, repos repository.Repos) error) error {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if timeout > 0 {
		// SET no acepta parámetros: el valor es un entero calculado aquí.
		stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", timeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return mapError("set statement_timeout", err)
		}
	}

	if err := fn(ctx, NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// NewRepos repositorios atados a q (pool para lecturas sueltas, tx dentro de Run).
func NewRepos(q Querier) repository.Repos {
	return repository.Repos{
		Balances:   NewBalanceRepository(q),
		Movements:  NewMovementRepository(q),
		Serials:    NewSerialRepository(q),
		Transfers:  NewTransferRepository(q),
		Returns:    NewReturnRepository(q),
		Locations:  NewLocationRepository(q),
		Variations: NewVariationRepository(q),
	}
}
