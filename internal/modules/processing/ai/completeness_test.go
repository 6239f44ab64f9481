package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// sentence is 49 runes.
const sentence = "Tato kniha vypráví silný příběh o lidské odvaze. "

func repeatSentences(n int) string {
	return strings.TrimSpace(strings.Repeat(sentence, n))
}

func TestCompleteness_Boundaries(t *testing.T) {
	t.Parallel()

	text250 := strings.Repeat("a", 249) + "."
	assert.False(t, LooksCutOff(text250, false), "250 chars ending with a period passes the cut-off check")

	text90 := strings.Repeat("slovo ", 15)[:89] + "x"
	assert.True(t, LooksCutOff(text90, false), "90 chars ending mid-word is cut off")

	guide := "# Studijní průvodce\n\n" + repeatSentences(10)
	assert.True(t, LooksCutOff(guide, true), "study guide without a level-2 heading")
	assert.False(t, LooksCutOff(guide, false))

	guide = "# Studijní průvodce\n\n## Děj\n\n" + repeatSentences(10)
	assert.False(t, LooksCutOff(guide, true))
	assert.True(t, IsComplete(guide, true))
}

func TestIsComplete_Thresholds(t *testing.T) {
	t.Parallel()
	text150 := repeatSentences(3)
	assert.False(t, IsComplete(text150, false), "under the strict threshold")
	assert.False(t, LooksCutOff(text150, false), "over the loose threshold")
	assert.True(t, IsComplete(repeatSentences(5), false))
}

func TestIsComplete_Endings(t *testing.T) {
	t.Parallel()
	body := repeatSentences(5)

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"period", body, true},
		{"question", body + " Proč?", true},
		{"closing quote", body + " „Konec.“", true},
		{"closing paren", body + " (viz výše)", true},
		{"bold ending", body + " **Shrnutí je hotové.**", true},
		{"trailing whitespace", body + "  \n\n", true},
		{"ellipsis", body + " A pak...", false},
		{"unicode ellipsis", body + " A pak…", false},
		{"dangling hyphen", body + " nedokonče-", false},
		{"mid word", body + " a pak se hrdina vyd", false},
		{"no terminal punctuation", body + " Konec", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsComplete(tc.text, false))
		})
	}
}

func TestTrailingFragment(t *testing.T) {
	t.Parallel()
	assert.True(t, trailingFragmentOK("Věta. Další věta."))
	assert.True(t, trailingFragmentOK("Věta. (dvě slova)"))
	assert.False(t, trailingFragmentOK("Věta. a tady pokračuje dlouhý fragment"))
}

func TestWithAdvisory(t *testing.T) {
	t.Parallel()
	out := WithAdvisory("Text.\n", LangCS)
	assert.True(t, strings.HasPrefix(out, "Text.\n\n---"))
	assert.Contains(t, out, "Upozornění")
	assert.Contains(t, WithAdvisory("Text.", LangEN), "shorter length")
	assert.Contains(t, WithAdvisory("Text.", "de"), "shorter length")
}
