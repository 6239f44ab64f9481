package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tier Tier
		want Limits
	}{
		{TierFree, Limits{MonthlyAICredits: 3, MaxBooks: 20}},
		{TierBasic, Limits{MonthlyAICredits: 30, AuthorSummaries: true, StudyGuide: true}},
		{TierPremium, Limits{MonthlyAICredits: 100, AuthorSummaries: true, StudyGuide: true, ExtraContext: true}},
		{Tier("gold"), Limits{MonthlyAICredits: 3, MaxBooks: 20}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.tier.Limits(), string(tt.tier))
	}
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	tier, ok := ParseTier(" Premium ")
	assert.True(t, ok)
	assert.Equal(t, TierPremium, tier)

	tier, ok = ParseTier("enterprise")
	assert.False(t, ok)
	assert.Equal(t, TierFree, tier)

	assert.True(t, TierBasic.Valid())
	assert.False(t, Tier("Basic").Valid())
}

func TestPlans(t *testing.T) {
	t.Parallel()

	plans := NewPlans(map[string]int{"basic": 50, "nope": 7, "premium": -1})
	assert.Equal(t, 50, plans.Allotment(TierBasic))
	assert.Equal(t, 100, plans.Allotment(TierPremium))
	assert.Equal(t, 3, plans.Allotment(TierFree))

	assert.Equal(t, TierBasic, plans.RequiredTier(FeatureAuthorSummaries))
	assert.Equal(t, TierBasic, plans.RequiredTier(FeatureStudyGuide))
	assert.Equal(t, TierPremium, plans.RequiredTier(FeatureExtraContext))
	assert.Equal(t, TierFree, plans.RequiredTier(FeatureBooks))

	assert.True(t, TierPremium.AtLeast(TierBasic))
	assert.False(t, TierFree.AtLeast(TierBasic))
}
