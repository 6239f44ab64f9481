package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttemptPreferences_Ladder(t *testing.T) {
	t.Parallel()
	full := Preferences{
		Style: StyleAcademic, Length: LengthLong, Focus: FocusThemes, Language: LangEN,
		ExamFocus: true, LiteraryContext: true, StudyGuide: true,
	}

	assert.Equal(t, full, AttemptPreferences(full, 1))

	second := AttemptPreferences(full, 2)
	assert.False(t, second.ExamFocus)
	assert.False(t, second.LiteraryContext)
	assert.Equal(t, LengthLong, second.Length, "length held on the second rung")
	assert.True(t, second.StudyGuide)

	third := AttemptPreferences(full, 3)
	assert.Equal(t, LengthShort, third.Length)
	assert.Equal(t, StyleCasual, third.Style)
	assert.False(t, third.StudyGuide)
	assert.False(t, third.HasExtraContext())
	assert.Equal(t, FocusThemes, third.Focus)
	assert.Equal(t, LangEN, third.Language)
}

func TestAttemptPreferences_ThirdRungShapeForAllInputs(t *testing.T) {
	t.Parallel()
	bools := []bool{false, true}
	for _, style := range []Style{StyleAcademic, StyleCasual, StyleCreative} {
		for _, length := range []Length{LengthShort, LengthMedium, LengthLong} {
			for _, guide := range bools {
				for _, extra := range bools {
					p := Preferences{Style: style, Length: length, StudyGuide: guide, ExamFocus: extra, IncludeAwards: extra}
					third := AttemptPreferences(p, 3)
					assert.Equal(t, LengthShort, third.Length)
					assert.Equal(t, StyleCasual, third.Style)
					assert.False(t, third.StudyGuide)

					// Never re-escalates: a toggle off on one rung stays off on later ones.
					second := AttemptPreferences(p, 2)
					assert.False(t, second.HasExtraContext())
					assert.LessOrEqual(t, ComplexityScore(second, 0), ComplexityScore(p, 0))
					assert.LessOrEqual(t, ComplexityScore(third, 0), ComplexityScore(second, 0))
				}
			}
		}
	}
}

func TestAttemptPreferences_Clamps(t *testing.T) {
	t.Parallel()
	p := Preferences{Style: StyleCreative, Length: LengthLong}
	assert.Equal(t, p, AttemptPreferences(p, 0))
	assert.Equal(t, AttemptPreferences(p, 3), AttemptPreferences(p, 7))
}
