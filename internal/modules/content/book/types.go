package book

import (
	"errors"
	"time"

	"github.com/ctenarsky-denik/journal/internal/models"
)

var (
	ErrNotFound = errors.New("book not found")
	ErrInvalid  = errors.New("invalid book")
)

// Changes is a partial update. Nil fields are left untouched.
type Changes struct {
	Title         *string
	Author        *string
	Genre         *string
	Notes         *string
	Summary       *string
	SummarySource *string
	AuthorSummary *string
	ReadAt        *time.Time
	ClearReadAt   bool
}

func (c Changes) IsEmpty() bool {
	return c.Title == nil && c.Author == nil && c.Genre == nil && c.Notes == nil &&
		c.Summary == nil && c.SummarySource == nil && c.AuthorSummary == nil &&
		c.ReadAt == nil && !c.ClearReadAt
}

type field struct {
	bson   string
	column string
	value  any
}

func (c Changes) fields() []field {
	var out []field
	add := func(bsonName, column string, v *string) {
		if v != nil {
			out = append(out, field{bsonName, column, *v})
		}
	}
	add("title", "title", c.Title)
	add("author", "author", c.Author)
	add("genre", "genre", c.Genre)
	add("notes", "notes", c.Notes)
	add("summary", "summary", c.Summary)
	add("summarySource", "summary_source", c.SummarySource)
	add("authorSummary", "author_summary", c.AuthorSummary)
	switch {
	case c.ClearReadAt:
		out = append(out, field{"readAt", "read_at", nil})
	case c.ReadAt != nil:
		out = append(out, field{"readAt", "read_at", c.ReadAt.UTC()})
	}
	return out
}

func (c Changes) applyTo(b *models.BookModel) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&b.Title, c.Title)
	set(&b.Author, c.Author)
	set(&b.Genre, c.Genre)
	set(&b.Notes, c.Notes)
	set(&b.Summary, c.Summary)
	set(&b.SummarySource, c.SummarySource)
	set(&b.AuthorSummary, c.AuthorSummary)
	switch {
	case c.ClearReadAt:
		b.ReadAt = nil
	case c.ReadAt != nil:
		t := c.ReadAt.UTC()
		b.ReadAt = &t
	}
}

type createBookDTO struct {
	Title  string     `json:"title"  binding:"required"`
	Author string     `json:"author"`
	Genre  string     `json:"genre"`
	Notes  string     `json:"notes"`
	ReadAt *time.Time `json:"readAt"`
}

type updateBookDTO struct {
	Title       *string    `json:"title"`
	Author      *string    `json:"author"`
	Genre       *string    `json:"genre"`
	ReadAt      *time.Time `json:"readAt"`
	ClearReadAt bool       `json:"clearReadAt"`
}

type notesDTO struct {
	Notes string `json:"notes"`
}

type summaryDTO struct {
	Summary string `json:"summary"`
	Source  string `json:"source"`
}

type authorSummaryDTO struct {
	AuthorSummary string `json:"authorSummary"`
}
