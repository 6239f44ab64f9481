package models

import "time"

// Summary sources.
const (
	SummaryManual = "manual"
	SummaryAI     = "ai"
)

// BookModel is one entry in a user's reading journal.
type BookModel struct {
	Base          `bson:",inline"`
	UserID        string     `json:"userId"        bson:"userId"        gorm:"type:varchar(191);index;not null"`
	Title         string     `json:"title"         bson:"title"         gorm:"not null"`
	Author        string     `json:"author"        bson:"author"`
	Genre         string     `json:"genre"         bson:"genre"`
	Notes         string     `json:"notes"         bson:"notes"         gorm:"type:longtext"`
	Summary       string     `json:"summary"       bson:"summary"       gorm:"type:longtext"`
	SummarySource string     `json:"summarySource" bson:"summarySource" gorm:"type:varchar(16)"`
	AuthorSummary string     `json:"authorSummary" bson:"authorSummary" gorm:"type:longtext"`
	ReadAt        *time.Time `json:"readAt"        bson:"readAt"`
}

func (BookModel) TableName() string { return "books" }
