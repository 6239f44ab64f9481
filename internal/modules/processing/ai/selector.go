package ai

// ModelTier is an opaque cost class mapped to a provider model by config.
type ModelTier string

const (
	TierCheap   ModelTier = "cheap"
	TierMedium  ModelTier = "medium"
	TierPremium ModelTier = "premium"
)

const (
	// MaxTokensCeiling bounds every token budget.
	MaxTokensCeiling = 4000
	retryTokenStep   = 400

	shortInputChars  = 500
	mediumInputChars = 2000
	largeInputChars  = 6000
)

// Models maps tiers to provider model identifiers.
type Models struct {
	Cheap   string `json:"cheap"`
	Medium  string `json:"medium"`
	Premium string `json:"premium"`
}

func (m Models) For(t ModelTier) string {
	switch t {
	case TierPremium:
		return m.Premium
	case TierMedium:
		return m.Medium
	default:
		return m.Cheap
	}
}

// Selection is the model choice for one attempt.
type Selection struct {
	Tier      ModelTier
	Model     string
	MaxTokens int
	Score     int
}

var baseBudgets = map[ModelTier]map[Length]int{
	TierCheap:   {LengthShort: 600, LengthMedium: 1000, LengthLong: 1500},
	TierMedium:  {LengthShort: 800, LengthMedium: 1300, LengthLong: 2000},
	TierPremium: {LengthShort: 1000, LengthMedium: 1600, LengthLong: 2500},
}

// ComplexityScore weighs the preferences and the size of the user input.
func ComplexityScore(p Preferences, inputLen int) int {
	score := 0
	if p.StudyGuide {
		score += 3
	}
	if p.ExamFocus {
		score += 2
	}
	if p.LiteraryContext {
		score += 2
	}
	if p.IncludeInfluences {
		score += 2
	}
	if p.IncludeTimeline {
		score++
	}
	if p.IncludeAwards {
		score++
	}
	if p.Style == StyleAcademic {
		score++
	}
	if p.Length == LengthLong {
		score += 2
	}
	switch {
	case inputLen > largeInputChars:
		score += 2
	case inputLen > mediumInputChars:
		score++
	}
	return score
}

func tierForScore(score int) ModelTier {
	switch {
	case score >= 6:
		return TierPremium
	case score >= 3:
		return TierMedium
	default:
		return TierCheap
	}
}

// SelectModel picks the model tier and token budget for attempt (1-based).
// Later attempts get a larger budget; the result never exceeds MaxTokensCeiling.
func SelectModel(models Models, p Preferences, inputLen, attempt int) Selection {
	score := ComplexityScore(p, inputLen)
	tier := tierForScore(score)

	length := p.Length
	if _, ok := baseBudgets[tier][length]; !ok {
		length = LengthMedium
	}
	tokens := baseBudgets[tier][length]

	if inputLen < shortInputChars {
		switch tier {
		case TierMedium:
			tokens = tokens * 9 / 10
		case TierPremium:
			tokens = tokens * 8 / 10
		}
	}
	if attempt > 1 {
		tokens += (attempt - 1) * retryTokenStep
	}
	if tokens > MaxTokensCeiling {
		tokens = MaxTokensCeiling
	}

	return Selection{Tier: tier, Model: models.For(tier), MaxTokens: tokens, Score: score}
}
