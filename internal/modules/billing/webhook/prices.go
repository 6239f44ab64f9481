package webhook

import (
	"strings"

	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
)

// Prices maps provider price ids to tiers.
type Prices map[string]quota.Tier

// NewPrices builds the table from config, dropping entries with unknown tiers.
func NewPrices(raw map[string]string) Prices {
	out := make(Prices, len(raw))
	for priceID, name := range raw {
		if tier, ok := quota.ParseTier(name); ok && tier != quota.TierFree {
			out[strings.TrimSpace(priceID)] = tier
		}
	}
	return out
}

func (p Prices) TierFor(priceID string) (quota.Tier, bool) {
	tier, ok := p[priceID]
	return tier, ok
}
