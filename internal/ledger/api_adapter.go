package ledger

import (
	"context"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// Ledger is the backend contract shared by the memory and Postgres ledgers.
type Ledger interface {
	Charge(ctx context.Context, event api.Event, idempotencyKey string) (api.Receipt, error)
	SetPrices(prices map[api.Event]int64)
	Close() error
}

// ensure both backends satisfy the contract.
var (
	_ Ledger = (*MemoryLedger)(nil)
	_ Ledger = (*PostgresLedger)(nil)
)

// Adapter adapts a Ledger to implement api.LedgerHandler
type Adapter struct {
	ledger Ledger
}

// NewAPIAdapter creates a new ledger adapter
func NewAPIAdapter(ledger Ledger) *Adapter {
	return &Adapter{ledger: ledger}
}

// Register registers the adapter with the API
func (a *Adapter) Register() {
	api.RegisterLedger(a)
}

func (a *Adapter) Charge(ctx context.Context, event api.Event, idempotencyKey string) (api.Receipt, error) {
	return a.ledger.Charge(ctx, event, idempotencyKey)
}

func (a *Adapter) SetPrices(prices map[api.Event]int64) {
	a.ledger.SetPrices(prices)
}

func (a *Adapter) Close() error {
	return a.ledger.Close()
}
