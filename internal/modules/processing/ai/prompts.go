package ai

import (
	"fmt"
	"strings"
)

// Prompt is the message pair sent to the inference service.
type Prompt struct {
	System string
	User   string
}

type promptText struct {
	system        string
	bookTask      string // title, author
	authorTask    string // author
	styles        map[Style]string
	focusBalanced string
	focusShare    string // focus label
	focusLabels   map[Focus]string
	wordRange     string // min, max
	noNotes       string
	guideIntro    string
	guideOutline  []string
	examSection   string
	contextSec    string
	timelineSec   string
	awardsSec     string
	influenceSec  string
	addSection    string // heading
	closing       string
	notesHeader   string
}

var wordRanges = map[Length][2]int{
	LengthShort:  {150, 200},
	LengthMedium: {300, 400},
	LengthLong:   {500, 700},
}

var promptTexts = map[Language]promptText{
	LangCS: {
		system:     "Jsi zkušený učitel literatury, který pomáhá studentům s čtenářským deníkem. Odpovídáš česky.",
		bookTask:   "Napiš shrnutí knihy „%s“ od autora %s.",
		authorTask: "Napiš medailonek autora %s.",
		styles: map[Style]string{
			StyleAcademic: "Piš odborným, věcným tónem vhodným pro maturitní přípravu.",
			StyleCasual:   "Piš srozumitelně a přátelsky, jako bys vysvětloval spolužákovi.",
			StyleCreative: "Piš poutavě a tvořivě, s živými formulacemi.",
		},
		focusBalanced: "Věnuj všem oblastem přibližně stejný prostor.",
		focusShare:    "Věnuj přibližně 70 %% obsahu tématu: %s.",
		focusLabels: map[Focus]string{
			FocusPlot:       "děj",
			FocusCharacters: "postavy",
			FocusThemes:     "témata a motivy",
			FocusLife:       "život autora",
			FocusWorks:      "dílo autora",
			FocusImpact:     "vliv a odkaz autora",
		},
		wordRange:   "Rozsah: %d–%d slov.",
		noNotes:     "Uživatel nepřiložil poznámky, vycházej ze svých obecných znalostí.",
		guideIntro:  "Dodrž tuto strukturu nadpisů:",
		guideOutline: []string{
			"# Studijní průvodce",
			"## Základní informace",
			"## Děj",
			"## Postavy",
			"## Témata a motivy",
			"## Jazyk a styl",
		},
		examSection:  "## Otázky k maturitě",
		contextSec:   "## Literární a historický kontext",
		timelineSec:  "## Časová osa",
		awardsSec:    "## Ocenění",
		influenceSec: "## Vlivy a inspirace",
		addSection:   "Přidej oddíl „%s“.",
		closing:      "Odpověď musí být úplná, nikdy neskonči uprostřed věty. Formátuj ji konzistentně v Markdownu.",
		notesHeader:  "Poznámky uživatele:",
	},
	LangEN: {
		system:     "You are an experienced literature teacher helping students keep a reading journal. Answer in English.",
		bookTask:   "Write a summary of the book \"%s\" by %s.",
		authorTask: "Write a profile of the author %s.",
		styles: map[Style]string{
			StyleAcademic: "Use an academic, precise tone suitable for exam preparation.",
			StyleCasual:   "Use a clear and friendly tone, as if explaining to a classmate.",
			StyleCreative: "Use an engaging, creative tone with vivid wording.",
		},
		focusBalanced: "Give all areas roughly even coverage.",
		focusShare:    "Allocate about 70%% of the content to %s.",
		focusLabels: map[Focus]string{
			FocusPlot:       "the plot",
			FocusCharacters: "the characters",
			FocusThemes:     "themes and motifs",
			FocusLife:       "the author's life",
			FocusWorks:      "the author's works",
			FocusImpact:     "the author's influence and legacy",
		},
		wordRange:  "Length: %d-%d words.",
		noNotes:    "The user attached no notes, rely on general background knowledge.",
		guideIntro: "Follow this heading structure:",
		guideOutline: []string{
			"# Study Guide",
			"## Basic Information",
			"## Plot",
			"## Characters",
			"## Themes and Motifs",
			"## Language and Style",
		},
		examSection:  "## Exam Questions",
		contextSec:   "## Literary and Historical Context",
		timelineSec:  "## Timeline",
		awardsSec:    "## Awards",
		influenceSec: "## Influences",
		addSection:   "Add a \"%s\" section.",
		closing:      "The response must be complete and must never stop mid-sentence. Format it consistently in Markdown.",
		notesHeader:  "User notes:",
	},
}

// BuildPrompt renders the prompt for subject. Notes are truncated to
// maxNoteChars and placed last. Empty enum fields fall back to defaults.
func BuildPrompt(subject Subject, notes string, prefs Preferences, maxNoteChars int) Prompt {
	prefs = prefs.WithDefaults()
	t, ok := promptTexts[prefs.Language]
	if !ok {
		t = promptTexts[LangCS]
	}

	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	if subject.Kind == KindAuthor {
		line(fmt.Sprintf(t.authorTask, subject.Author))
	} else {
		line(fmt.Sprintf(t.bookTask, subject.Title, subject.Author))
	}

	if style, ok := t.styles[prefs.Style]; ok {
		line(style)
	}
	if label, ok := t.focusLabels[prefs.Focus]; ok {
		line(fmt.Sprintf(t.focusShare, label))
	} else {
		line(t.focusBalanced)
	}
	if words, ok := wordRanges[prefs.Length]; ok {
		line(fmt.Sprintf(t.wordRange, words[0], words[1]))
	}

	notes = strings.TrimSpace(notes)
	if notes == "" {
		line(t.noNotes)
	}

	var sections []string
	if subject.Kind == KindAuthor {
		if prefs.IncludeTimeline {
			sections = append(sections, t.timelineSec)
		}
		if prefs.IncludeAwards {
			sections = append(sections, t.awardsSec)
		}
		if prefs.IncludeInfluences {
			sections = append(sections, t.influenceSec)
		}
	} else {
		if prefs.LiteraryContext {
			sections = append(sections, t.contextSec)
		}
		if prefs.ExamFocus {
			sections = append(sections, t.examSection)
		}
	}

	if subject.Kind != KindAuthor && prefs.StudyGuide {
		b.WriteByte('\n')
		line(t.guideIntro)
		for _, h := range t.guideOutline {
			line(h)
		}
		for _, h := range sections {
			line(h)
		}
	} else {
		for _, h := range sections {
			line(fmt.Sprintf(t.addSection, h))
		}
	}

	b.WriteByte('\n')
	line(t.closing)

	if notes != "" {
		b.WriteByte('\n')
		line(t.notesHeader)
		b.WriteString(TruncateNotes(notes, maxNoteChars))
	}

	return Prompt{System: t.system, User: strings.TrimRight(b.String(), "\n")}
}
