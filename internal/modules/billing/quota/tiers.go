package quota

import "strings"

// Tier is a subscription level. The set is closed.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// Tiers lists every tier from lowest to highest.
var Tiers = []Tier{TierFree, TierBasic, TierPremium}

// ParseTier maps a stored or user supplied name to a Tier.
func ParseTier(raw string) (Tier, bool) {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierFree:
		return TierFree, true
	case TierBasic:
		return TierBasic, true
	case TierPremium:
		return TierPremium, true
	default:
		return TierFree, false
	}
}

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPremium:
		return true
	}
	return false
}

func (t Tier) rank() int {
	switch t {
	case TierBasic:
		return 1
	case TierPremium:
		return 2
	default:
		return 0
	}
}

// Feature names a tier-gated capability.
type Feature string

const (
	FeatureAuthorSummaries Feature = "authorSummaries"
	FeatureStudyGuide      Feature = "studyGuide"
	FeatureExtraContext    Feature = "extraContext"
	FeatureBooks           Feature = "books"
)

// Limits is what a tier grants. MaxBooks 0 means unlimited.
type Limits struct {
	MonthlyAICredits int  `json:"monthlyAiCredits"`
	MaxBooks         int  `json:"maxBooks"`
	AuthorSummaries  bool `json:"authorSummaries"`
	StudyGuide       bool `json:"studyGuide"`
	ExtraContext     bool `json:"extraContext"`
}

// Limits returns the built-in limits of t. Unknown tiers get free limits.
func (t Tier) Limits() Limits {
	switch t {
	case TierBasic:
		return Limits{MonthlyAICredits: 30, AuthorSummaries: true, StudyGuide: true}
	case TierPremium:
		return Limits{MonthlyAICredits: 100, AuthorSummaries: true, StudyGuide: true, ExtraContext: true}
	default:
		return Limits{MonthlyAICredits: 3, MaxBooks: 20}
	}
}

// Allows reports whether the limits grant f. FeatureBooks is always granted;
// its cap is enforced through MaxBooks.
func (l Limits) Allows(f Feature) bool {
	switch f {
	case FeatureAuthorSummaries:
		return l.AuthorSummaries
	case FeatureStudyGuide:
		return l.StudyGuide
	case FeatureExtraContext:
		return l.ExtraContext
	default:
		return true
	}
}

// Plans resolves tier limits with configured credit overrides applied.
type Plans struct {
	credits map[Tier]int
}

// NewPlans builds Plans from per-tier monthly credit overrides keyed by tier name.
func NewPlans(overrides map[string]int) Plans {
	p := Plans{credits: map[Tier]int{}}
	for name, credits := range overrides {
		if tier, ok := ParseTier(name); ok && credits >= 0 {
			p.credits[tier] = credits
		}
	}
	return p
}

func (p Plans) Limits(t Tier) Limits {
	limits := t.Limits()
	if credits, ok := p.credits[t]; ok {
		limits.MonthlyAICredits = credits
	}
	return limits
}

// Allotment is the monthly credit grant of t.
func (p Plans) Allotment(t Tier) int {
	return p.Limits(t).MonthlyAICredits
}

// RequiredTier returns the lowest tier granting f.
func (p Plans) RequiredTier(f Feature) Tier {
	for _, tier := range Tiers {
		if p.Limits(tier).Allows(f) {
			return tier
		}
	}
	return TierPremium
}

// AtLeast reports whether t is the same as or above other.
func (t Tier) AtLeast(other Tier) bool {
	return t.rank() >= other.rank()
}
