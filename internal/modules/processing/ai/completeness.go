package ai

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	completeMinChars = 200
	cutOffMinChars   = 100
	maxTrailingWords = 4
)

var (
	terminalRunes = ".!?…\"'”“»«)]}"
	markdown      = goldmark.New()
)

// IsComplete is the strict check that decides whether to retry.
func IsComplete(text string, studyGuide bool) bool {
	return checkCompleteness(text, studyGuide, completeMinChars)
}

// LooksCutOff reports whether text appears truncated under the looser
// threshold used after retries are exhausted.
func LooksCutOff(text string, studyGuide bool) bool {
	return !checkCompleteness(text, studyGuide, cutOffMinChars)
}

func checkCompleteness(s string, studyGuide bool, minChars int) bool {
	trimmed := trimTrailingDecoration(s)
	if utf8.RuneCountInString(trimmed) <= minChars {
		return false
	}
	if strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, "…") {
		return false
	}
	if strings.HasSuffix(trimmed, "-") || strings.HasSuffix(trimmed, "–") {
		return false
	}
	if !endsWithTerminal(trimmed) {
		return false
	}
	if !trailingFragmentOK(trimmed) {
		return false
	}
	if studyGuide && !hasGuideHeadings(s) {
		return false
	}
	return true
}

// trimTrailingDecoration drops whitespace and Markdown emphasis markers.
func trimTrailingDecoration(s string) string {
	return strings.TrimRight(s, " \t\r\n*_")
}

func endsWithTerminal(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return strings.ContainsRune(terminalRunes, r)
}

// trailingFragmentOK inspects the text after the last sentence terminator
// within the final line. Headings and list items end lines without one.
func trailingFragmentOK(s string) bool {
	lastLine := s
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		lastLine = s[i+1:]
	}
	idx := strings.LastIndexAny(lastLine, ".!?")
	fragment := strings.TrimSpace(lastLine[idx+1:])
	if fragment == "" {
		return true
	}
	if len(strings.Fields(fragment)) < maxTrailingWords {
		return true
	}
	return endsWithTerminal(fragment)
}

// hasGuideHeadings requires a level-1 and a level-2 heading.
func hasGuideHeadings(s string) bool {
	source := []byte(s)
	doc := markdown.Parser().Parse(text.NewReader(source))
	var h1, h2 bool
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			switch h.Level {
			case 1:
				h1 = true
			case 2:
				h2 = true
			}
		}
		return ast.WalkContinue, nil
	})
	return h1 && h2
}

var advisories = map[Language]string{
	LangCS: "\n\n---\n*Upozornění: Text mohl být zkrácen. Pro úplný výsledek zkuste kratší délku nebo jednodušší nastavení.*",
	LangEN: "\n\n---\n*Note: This text may be incomplete. For a complete result try a shorter length or simpler settings.*",
}

// WithAdvisory appends the notice recommending simpler settings.
func WithAdvisory(text string, lang Language) string {
	notice, ok := advisories[lang]
	if !ok {
		notice = advisories[LangEN]
	}
	return strings.TrimRight(text, " \t\r\n") + notice
}
