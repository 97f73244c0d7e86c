package ledger

import (
	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/internal/config"
)

// PricesFromConfig flattens the pricing section into the per-event table
// the ledger backends consume. Every member of the closed event set gets
// an entry, so a missing price at charge time is a programming fault, not
// a configuration gap.
func PricesFromConfig(cfg config.PricingConfig) map[api.Event]int64 {
	return map[api.Event]int64{
		api.EventSearch:   cfg.SearchCents,
		api.EventConfig:   cfg.ConfigCents,
		api.EventValidate: cfg.ValidateCents,
		api.EventDeploy:   cfg.DeployCents,
	}
}

func copyPrices(prices map[api.Event]int64) map[api.Event]int64 {
	out := make(map[api.Event]int64, len(prices))
	for event, cents := range prices {
		out[event] = cents
	}
	return out
}
