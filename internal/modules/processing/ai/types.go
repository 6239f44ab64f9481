package ai

import (
	"fmt"
	"strings"
	"time"
)

// SubjectKind selects between the two generation paths.
type SubjectKind string

const (
	KindBook   SubjectKind = "book"
	KindAuthor SubjectKind = "author"
)

// Subject identifies what is summarized. Author-only subjects leave Title empty.
type Subject struct {
	Kind   SubjectKind `json:"kind"`
	Title  string      `json:"title,omitempty"`
	Author string      `json:"author"`
}

type Style string

const (
	StyleAcademic Style = "academic"
	StyleCasual   Style = "casual"
	StyleCreative Style = "creative"
)

type Length string

const (
	LengthShort  Length = "short"
	LengthMedium Length = "medium"
	LengthLong   Length = "long"
)

// Focus values. Plot, characters and themes apply to books; life, works and
// impact to authors; balanced to both.
type Focus string

const (
	FocusBalanced   Focus = "balanced"
	FocusPlot       Focus = "plot"
	FocusCharacters Focus = "characters"
	FocusThemes     Focus = "themes"
	FocusLife       Focus = "life"
	FocusWorks      Focus = "works"
	FocusImpact     Focus = "impact"
)

type Language string

const (
	LangCS Language = "cs"
	LangEN Language = "en"
)

// Preferences are the per-request knobs of a generation. The first three
// toggles belong to books, the last three to authors.
type Preferences struct {
	Style    Style    `json:"style"`
	Length   Length   `json:"length"`
	Focus    Focus    `json:"focus"`
	Language Language `json:"language"`

	ExamFocus       bool `json:"examFocus,omitempty"`
	LiteraryContext bool `json:"literaryContext,omitempty"`
	StudyGuide      bool `json:"studyGuide,omitempty"`

	IncludeTimeline   bool `json:"includeTimeline,omitempty"`
	IncludeAwards     bool `json:"includeAwards,omitempty"`
	IncludeInfluences bool `json:"includeInfluences,omitempty"`
}

// WithDefaults fills empty enum fields.
func (p Preferences) WithDefaults() Preferences {
	if p.Style == "" {
		p.Style = StyleCasual
	}
	if p.Length == "" {
		p.Length = LengthMedium
	}
	if p.Focus == "" {
		p.Focus = FocusBalanced
	}
	if p.Language == "" {
		p.Language = LangCS
	}
	return p
}

// Validate rejects unknown enum values and toggles that belong to the other
// subject kind. Call it on defaulted preferences.
func (p Preferences) Validate(kind SubjectKind) error {
	switch p.Style {
	case StyleAcademic, StyleCasual, StyleCreative:
	default:
		return fmt.Errorf("unknown style %q", p.Style)
	}
	switch p.Length {
	case LengthShort, LengthMedium, LengthLong:
	default:
		return fmt.Errorf("unknown length %q", p.Length)
	}
	switch p.Language {
	case LangCS, LangEN:
	default:
		return fmt.Errorf("unsupported language %q", p.Language)
	}

	switch kind {
	case KindBook:
		switch p.Focus {
		case FocusBalanced, FocusPlot, FocusCharacters, FocusThemes:
		default:
			return fmt.Errorf("focus %q does not apply to books", p.Focus)
		}
		if p.IncludeTimeline || p.IncludeAwards || p.IncludeInfluences {
			return fmt.Errorf("author options are not valid for book summaries")
		}
	case KindAuthor:
		switch p.Focus {
		case FocusBalanced, FocusLife, FocusWorks, FocusImpact:
		default:
			return fmt.Errorf("focus %q does not apply to authors", p.Focus)
		}
		if p.ExamFocus || p.LiteraryContext || p.StudyGuide {
			return fmt.Errorf("book options are not valid for author summaries")
		}
	default:
		return fmt.Errorf("unknown subject kind %q", kind)
	}
	return nil
}

// HasExtraContext reports whether any of the optional enrichment toggles is set.
func (p Preferences) HasExtraContext() bool {
	return p.ExamFocus || p.LiteraryContext || p.IncludeTimeline || p.IncludeAwards || p.IncludeInfluences
}

// CacheEntry is a stored completion.
type CacheEntry struct {
	Text        string      `json:"text"`
	CreatedAt   time.Time   `json:"createdAt"`
	Preferences Preferences `json:"preferences"`
}

// Attempt records one try of the retry ladder.
type Attempt struct {
	Index       int
	Preferences Preferences
	Model       string
	ModelTier   ModelTier
	MaxTokens   int
	Text        string
	Err         error
	Duration    time.Duration
}

// Request is the caller-facing input of a generation.
type Request struct {
	UserID      string
	Email       string
	Subject     Subject
	Notes       string
	Preferences Preferences
	// CreditsDeducted declares that the credit was already taken through a
	// receipt issued earlier. Receipt must carry that receipt.
	CreditsDeducted bool
	Receipt         string
}

func (r Request) hasNotes() bool {
	return strings.TrimSpace(r.Notes) != ""
}

// Result is returned on success.
type Result struct {
	Text             string    `json:"text"`
	FromCache        bool      `json:"fromCache"`
	Model            string    `json:"model,omitempty"`
	Attempts         int       `json:"attempts"`
	Incomplete       bool      `json:"incomplete,omitempty"`
	CreditsRemaining int       `json:"creditsRemaining"`
	CreditsTotal     int       `json:"creditsTotal"`
	AttemptLog       []Attempt `json:"-"`
}
