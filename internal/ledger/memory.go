package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// billingEntry is one committed charge. Entries are never updated or
// deleted; the ledger is append-only.
type billingEntry struct {
	event     api.Event
	costCents int64
	chargedAt time.Time
}

// MemoryLedger is the in-process ledger backend. A single mutex covers
// both the charge map and the price table, which keeps the
// check-then-insert of Charge atomic without any backend help.
type MemoryLedger struct {
	mu      sync.Mutex
	charges map[string]billingEntry
	prices  map[api.Event]int64

	now func() time.Time
}

// NewMemoryLedger creates a memory ledger with the given price table.
func NewMemoryLedger(prices map[api.Event]int64) *MemoryLedger {
	return &MemoryLedger{
		charges: make(map[string]billingEntry),
		prices:  copyPrices(prices),
		now:     time.Now,
	}
}

// Charge commits a billing event under the idempotency key, exactly once.
// The first call for a key records the current price and returns it; every
// later call returns a Duplicate receipt carrying zero cost and the
// original charge time.
func (l *MemoryLedger) Charge(_ context.Context, event api.Event, idempotencyKey string) (api.Receipt, error) {
	if idempotencyKey == "" {
		return api.Receipt{}, api.NewOperationError(api.ErrorKindInternal, "charge requires an idempotency key")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if prior, ok := l.charges[idempotencyKey]; ok {
		return api.Receipt{
			Event:     prior.event,
			CostCents: 0,
			Duplicate: true,
			ChargedAt: prior.chargedAt,
		}, nil
	}

	price, ok := l.prices[event]
	if !ok {
		return api.Receipt{}, api.NewOperationError(api.ErrorKindInternal,
			fmt.Sprintf("no price configured for event %q", event))
	}

	entry := billingEntry{
		event:     event,
		costCents: price,
		chargedAt: l.now(),
	}
	l.charges[idempotencyKey] = entry

	return api.Receipt{
		Event:     event,
		CostCents: price,
		ChargedAt: entry.chargedAt,
	}, nil
}

// SetPrices replaces the price table. Charges already committed keep the
// amount they were recorded with.
func (l *MemoryLedger) SetPrices(prices map[api.Event]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prices = copyPrices(prices)
}

// Len reports the number of committed charges.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.charges)
}

// Close is a no-op; the memory ledger holds no external resources.
func (l *MemoryLedger) Close() error {
	return nil
}
