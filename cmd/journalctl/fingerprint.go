package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ctenarsky-denik/journal/internal/modules/processing/ai"
)

func (c *cli) fingerprintCmd() *cobra.Command {
	var (
		kind, title, author            string
		style, length, focus, language string
		prefs                          ai.Preferences
	)
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the completion cache key of a request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := ai.Subject{Kind: ai.SubjectKind(kind), Title: title, Author: author}
			if subject.Kind != ai.KindBook && subject.Kind != ai.KindAuthor {
				return fmt.Errorf("unknown kind %q, expected book or author", kind)
			}
			prefs.Style = ai.Style(style)
			prefs.Length = ai.Length(length)
			prefs.Focus = ai.Focus(focus)
			prefs.Language = ai.Language(language)
			prefs = prefs.WithDefaults()
			if err := prefs.Validate(subject.Kind); err != nil {
				return err
			}
			_, err := fmt.Fprintln(c.out, ai.Fingerprint(subject, prefs))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&kind, "kind", string(ai.KindBook), "book or author")
	f.StringVar(&title, "title", "", "book title")
	f.StringVar(&author, "author", "", "author name")
	f.StringVar(&style, "style", "", "academic, casual or creative")
	f.StringVar(&length, "length", "", "short, medium or long")
	f.StringVar(&focus, "focus", "", "summary focus")
	f.StringVar(&language, "language", "", "cs or en")
	f.BoolVar(&prefs.ExamFocus, "exam-focus", false, "exam preparation section")
	f.BoolVar(&prefs.LiteraryContext, "literary-context", false, "literary context section")
	f.BoolVar(&prefs.StudyGuide, "study-guide", false, "study guide layout")
	f.BoolVar(&prefs.IncludeTimeline, "timeline", false, "author timeline")
	f.BoolVar(&prefs.IncludeAwards, "awards", false, "author awards")
	f.BoolVar(&prefs.IncludeInfluences, "influences", false, "author influences")
	_ = cmd.MarkFlagRequired("author")
	return cmd
}
