package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by library records. IDs are UUID strings in both stores.
type Base struct {
	ID        string    `json:"id"       bson:"_id"       gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `json:"created"  bson:"createdAt"`
	UpdatedAt time.Time `json:"modified" bson:"updatedAt"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	return nil
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.New().String()
}
