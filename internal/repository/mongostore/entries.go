package mongostore

import (
	"context"
	"regexp"
	"time"

	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) CreateEntry(ctx context.Context, entry *models.JournalEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	_, err := s.entries.InsertOne(ctx, entry)
	return translate(err)
}

func (s *Store) GetEntry(ctx context.Context, id primitive.ObjectID) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	if err := s.entries.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&entry); err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (s *Store) UpdateEntry(ctx context.Context, entry *models.JournalEntry) error {
	entry.UpdatedAt = time.Now().UTC()

	set := bson.D{
		{Key: "title", Value: entry.Title},
		{Key: "content", Value: entry.Content},
		{Key: "category", Value: entry.Category},
		{Key: "updatedAt", Value: entry.UpdatedAt},
	}
	unset := bson.D{}
	if entry.Mood != nil {
		set = append(set, bson.E{Key: "mood", Value: *entry.Mood})
	} else {
		unset = append(unset, bson.E{Key: "mood", Value: ""})
	}
	if entry.DeletedAt != nil {
		set = append(set, bson.E{Key: "deletedAt", Value: *entry.DeletedAt})
	} else {
		unset = append(unset, bson.E{Key: "deletedAt", Value: ""})
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	res, err := s.entries.UpdateOne(ctx, bson.D{{Key: "_id", Value: entry.ID}}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, q repository.EntryQuery) ([]models.JournalEntry, int64, error) {
	filter := buildEntryFilter(q)

	total, err := s.entries.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := s.entries.Find(ctx, filter, findOptions(buildEntrySort(q), q.Page, q.Limit))
	if err != nil {
		return nil, 0, err
	}
	entries := []models.JournalEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *Store) EntriesCreatedBetween(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]models.JournalEntry, error) {
	q := repository.EntryQuery{
		UserID:    userID,
		From:      &from,
		To:        &to,
		SortField: "createdAt",
	}
	cursor, err := s.entries.Find(ctx, buildEntryFilter(q), options.Find().SetSort(buildEntrySort(q)))
	if err != nil {
		return nil, err
	}
	entries := []models.JournalEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// buildEntryFilter turns a typed query into a filter document. Every key is fixed here; request
// input only ever reaches the values, and free text is escaped before it becomes a regex.
func buildEntryFilter(q repository.EntryQuery) bson.D {
	filter := bson.D{{Key: "user", Value: q.UserID}}

	switch q.Deleted {
	case repository.ExcludeDeleted:
		filter = append(filter, bson.E{Key: "deletedAt", Value: nil})
	case repository.OnlyDeleted:
		filter = append(filter, bson.E{Key: "deletedAt", Value: bson.D{{Key: "$ne", Value: nil}}})
	}

	if q.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: q.Category})
	}
	if r := dateRange(q.From, q.To); r != nil {
		filter = append(filter, bson.E{Key: "createdAt", Value: r})
	}

	switch {
	case q.RestrictMoods:
		ids := q.MoodIDs
		if ids == nil || (q.HasMood != nil && !*q.HasMood) {
			ids = []primitive.ObjectID{}
		}
		filter = append(filter, bson.E{Key: "mood", Value: bson.D{{Key: "$in", Value: ids}}})
	case q.HasMood != nil && *q.HasMood:
		filter = append(filter, bson.E{Key: "mood", Value: bson.D{{Key: "$ne", Value: nil}}})
	case q.HasMood != nil:
		filter = append(filter, bson.E{Key: "mood", Value: nil})
	}

	if q.Text != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Text), Options: "i"}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: pattern}},
			bson.D{{Key: "content", Value: pattern}},
		}})
	}

	return filter
}

func buildEntrySort(q repository.EntryQuery) bson.D {
	field := q.SortField
	if field == "" {
		field = "createdAt"
	}
	dir := 1
	if q.SortDesc {
		dir = -1
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}
