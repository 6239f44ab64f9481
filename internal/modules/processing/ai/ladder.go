package ai

// MaxAttempts bounds the retry ladder.
const MaxAttempts = 3

// rung derives the preferences of one attempt from the caller's.
type rung func(Preferences) Preferences

// ladder is applied in order; each rung builds on the previous one so the
// settings only ever get simpler.
var ladder = [MaxAttempts]rung{
	func(p Preferences) Preferences { return p },
	stripExtraContext,
	func(p Preferences) Preferences {
		p = stripExtraContext(p)
		p.Length = LengthShort
		p.Style = StyleCasual
		p.StudyGuide = false
		return p
	},
}

func stripExtraContext(p Preferences) Preferences {
	p.ExamFocus = false
	p.LiteraryContext = false
	p.IncludeTimeline = false
	p.IncludeAwards = false
	p.IncludeInfluences = false
	return p
}

// AttemptPreferences returns the preferences used on attempt (1-based).
func AttemptPreferences(p Preferences, attempt int) Preferences {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > MaxAttempts {
		attempt = MaxAttempts
	}
	return ladder[attempt-1](p)
}
