package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// PostgresLedger is the durable ledger backend. The exactly-once guarantee
// is the billing_events primary key over the idempotency key: concurrent
// inserts for the same key resolve to one committed charge no matter how
// many gateway instances race.
//
// The ledger borrows its pool from the caller and never closes it.
type PostgresLedger struct {
	pool *pgxpool.Pool

	mu     sync.RWMutex
	prices map[api.Event]int64
}

// NewPostgresLedger creates a ledger over an existing connection pool and
// verifies the connection before returning.
func NewPostgresLedger(ctx context.Context, pool *pgxpool.Pool, prices map[api.Event]int64) (*PostgresLedger, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("ledger database unreachable: %w", err)
	}
	return &PostgresLedger{
		pool:   pool,
		prices: copyPrices(prices),
	}, nil
}

// Charge commits a billing event under the idempotency key, exactly once.
// The insert is conditional on the key not existing; when the key lost the
// race (or was charged long ago) the prior row supplies the receipt.
func (l *PostgresLedger) Charge(ctx context.Context, event api.Event, idempotencyKey string) (api.Receipt, error) {
	if idempotencyKey == "" {
		return api.Receipt{}, api.NewOperationError(api.ErrorKindInternal, "charge requires an idempotency key")
	}

	price, ok := l.priceFor(event)
	if !ok {
		return api.Receipt{}, api.NewOperationError(api.ErrorKindInternal,
			fmt.Sprintf("no price configured for event %q", event))
	}

	const insert = `INSERT INTO billing_events (idempotency_key, event_name, cost_cents, charged_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING charged_at`

	var chargedAt time.Time
	err := l.pool.QueryRow(ctx, insert, idempotencyKey, string(event), price).Scan(&chargedAt)
	if err == nil {
		return api.Receipt{
			Event:     event,
			CostCents: price,
			ChargedAt: chargedAt,
		}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return api.Receipt{}, api.WrapOperationError(api.ErrorKindInternal, "record charge", err)
	}

	// No row returned means the key is already charged. Rows are
	// append-only, so the prior row is guaranteed to exist.
	const prior = `SELECT event_name, charged_at FROM billing_events WHERE idempotency_key = $1`

	var priorEvent string
	var priorAt time.Time
	if err := l.pool.QueryRow(ctx, prior, idempotencyKey).Scan(&priorEvent, &priorAt); err != nil {
		return api.Receipt{}, api.WrapOperationError(api.ErrorKindInternal, "read prior charge", err)
	}
	return api.Receipt{
		Event:     api.Event(priorEvent),
		CostCents: 0,
		Duplicate: true,
		ChargedAt: priorAt,
	}, nil
}

// SetPrices replaces the price table. Charges already committed keep the
// amount they were recorded with.
func (l *PostgresLedger) SetPrices(prices map[api.Event]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prices = copyPrices(prices)
}

func (l *PostgresLedger) priceFor(event api.Event) (int64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	price, ok := l.prices[event]
	return price, ok
}

// Close is a no-op; the pool is owned by the caller.
func (l *PostgresLedger) Close() error {
	return nil
}
