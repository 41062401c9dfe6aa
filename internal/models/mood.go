package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinIntensity     = 1
	MaxIntensity     = 5
	DefaultIntensity = 3
)

// MoodType is a catalog entry. Types with an Entitlement are only visible to users holding it.
type MoodType struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Emoji       string             `bson:"emoji" json:"emoji"`
	Color       string             `bson:"color" json:"color"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Entitlement string             `bson:"entitlement,omitempty" json:"-"`
}

type Mood struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
	User         primitive.ObjectID  `bson:"user" json:"user"`
	MoodType     primitive.ObjectID  `bson:"moodType" json:"moodType"`
	Intensity    int                 `bson:"intensity" json:"intensity"`
	Date         time.Time           `bson:"date" json:"date"`
	Time         string              `bson:"time,omitempty" json:"time,omitempty"` // HH:MM
	Notes        string              `bson:"notes,omitempty" json:"notes,omitempty"`
	JournalEntry *primitive.ObjectID `bson:"journalEntry,omitempty" json:"journalEntry,omitempty"`
}

// MoodDetail is a mood with its type resolved. MoodType is nil when the reference dangles.
type MoodDetail struct {
	Mood
	MoodType *MoodType `json:"moodType"`
}

// Entitlement kinds.
const (
	EntitlementCategory = "category"
	EntitlementMoodType = "moodType"
)

// Entitlement unlocks an extra category or mood type for one user.
type Entitlement struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Kind      string             `bson:"kind" json:"kind"`
	Value     string             `bson:"value" json:"value"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
