package ai

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	truncateMargin     = 100
	keywordBonus       = 5
	listBonus          = 5
	maxPositionBonus   = 10
	maxLengthBonus     = 5
	hardCutParagraphs  = 3
	paragraphSeparator = "\n\n"

	hardCutNotice     = "[Notes were shortened to fit the length limit.]"
	intelligentNotice = "[Notes were shortened: the most relevant paragraphs were kept in their original order.]"
)

var (
	paragraphSplit = regexp.MustCompile(`\n[ \t]*\n`)

	// noteKeywords mark paragraphs that carry literary analysis.
	noteKeywords = []string{
		"postav", "děj", "téma", "motiv", "kapitol", "hlavní", "konflikt", "symbol",
		"vypravěč", "kompozic", "žánr", "citát", "prostředí", "hrdin",
		"character", "plot", "theme", "motif", "chapter", "protagonist", "conflict",
		"narrator", "setting", "quote", "genre", "climax",
	}
)

// TruncateNotes shortens free-text notes to maxChars runes. Short inputs are
// returned unchanged; inputs of up to three paragraphs are cut hard; longer
// inputs keep the first paragraph plus the highest scoring others.
func TruncateNotes(text string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) <= hardCutParagraphs {
		return cutRunes(text, maxChars) + paragraphSeparator + hardCutNotice
	}

	budget := maxChars - truncateMargin
	if budget <= 0 {
		return cutRunes(text, maxChars) + paragraphSeparator + hardCutNotice
	}

	type scored struct {
		index int
		score int
		size  int
	}
	// The first paragraph is kept whole unless it alone exceeds the budget.
	first := cutRunes(paragraphs[0], budget)
	paragraphs[0] = first
	used := utf8.RuneCountInString(first)

	candidates := make([]scored, 0, len(paragraphs)-1)
	for i := 1; i < len(paragraphs); i++ {
		candidates = append(candidates, scored{
			index: i,
			score: scoreParagraph(paragraphs[i], i),
			size:  utf8.RuneCountInString(paragraphs[i]),
		})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	keep := make([]bool, len(paragraphs))
	keep[0] = true
	sepLen := utf8.RuneCountInString(paragraphSeparator)
	for _, c := range candidates {
		if used+sepLen+c.size > budget {
			continue
		}
		keep[c.index] = true
		used += sepLen + c.size
	}

	var b strings.Builder
	for i, p := range paragraphs {
		if !keep[i] {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(paragraphSeparator)
		}
		b.WriteString(p)
	}
	b.WriteString(paragraphSeparator)
	b.WriteString(intelligentNotice)
	return b.String()
}

func splitParagraphs(text string) []string {
	parts := paragraphSplit.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func scoreParagraph(p string, index int) int {
	score := maxPositionBonus - index
	if score < 0 {
		score = 0
	}

	lower := strings.ToLower(p)
	for _, kw := range noteKeywords {
		if strings.Contains(lower, kw) {
			score += keywordBonus
		}
	}

	lengthBonus := utf8.RuneCountInString(p) / 100
	if lengthBonus > maxLengthBonus {
		lengthBonus = maxLengthBonus
	}
	score += lengthBonus

	if isListLike(p) {
		score += listBonus
	}
	return score
}

func isListLike(p string) bool {
	for _, line := range strings.Split(p, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "), strings.HasPrefix(line, "• "):
			return true
		}
		digits := strings.TrimLeftFunc(line, unicode.IsDigit)
		if len(digits) < len(line) && (strings.HasPrefix(digits, ". ") || strings.HasPrefix(digits, ") ")) {
			return true
		}
	}
	return false
}

func cutRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
