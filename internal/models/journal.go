package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Journal entry categories available to every user.
const (
	CategoryFamily       = "FAMILY"
	CategoryRelationship = "RELATIONSHIP"
	CategoryMyself       = "MYSELF"
	CategoryWork         = "WORK"
	CategoryOther        = "OTHER"
)

// DefaultCategories returns the base category enumeration in display order.
func DefaultCategories() []string {
	return []string{CategoryFamily, CategoryRelationship, CategoryMyself, CategoryWork, CategoryOther}
}

// JournalEntry represents a private journaling entry for a user.
// DeletedAt set means the entry is soft deleted.
type JournalEntry struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
	User      primitive.ObjectID  `bson:"user" json:"user"`
	Title     string              `bson:"title" json:"title"`
	Content   string              `bson:"content" json:"content"`
	Category  string              `bson:"category" json:"category"`
	Mood      *primitive.ObjectID `bson:"mood,omitempty" json:"mood,omitempty"`
	DeletedAt *time.Time          `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
}

func (e *JournalEntry) IsDeleted() bool {
	return e.DeletedAt != nil
}

// EntryDetail is a journal entry with its mood and mood type resolved.
type EntryDetail struct {
	JournalEntry
	Mood *MoodDetail `json:"mood"`
}
