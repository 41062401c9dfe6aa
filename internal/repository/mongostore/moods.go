package mongostore

import (
	"context"
	"time"

	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) ListMoodTypes(ctx context.Context) ([]models.MoodType, error) {
	cursor, err := s.moodTypes.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	types := []models.MoodType{}
	if err := cursor.All(ctx, &types); err != nil {
		return nil, err
	}
	return types, nil
}

func (s *Store) GetMoodTypesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.MoodType, error) {
	types := []models.MoodType{}
	if len(ids) == 0 {
		return types, nil
	}
	cursor, err := s.moodTypes.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, err
	}
	if err := cursor.All(ctx, &types); err != nil {
		return nil, err
	}
	return types, nil
}

func (s *Store) UpsertMoodTypes(ctx context.Context, types []models.MoodType) error {
	writes := make([]mongo.WriteModel, 0, len(types))
	for _, t := range types {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "name", Value: t.Name}}).
			SetUpdate(bson.D{{Key: "$set", Value: bson.D{
				{Key: "emoji", Value: t.Emoji},
				{Key: "color", Value: t.Color},
				{Key: "description", Value: t.Description},
				{Key: "entitlement", Value: t.Entitlement},
			}}}).
			SetUpsert(true))
	}
	if len(writes) == 0 {
		return nil
	}
	// Ordered so _id order follows the seed order on first insert.
	_, err := s.moodTypes.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	return translate(err)
}

func (s *Store) CreateMood(ctx context.Context, mood *models.Mood) error {
	if mood.ID.IsZero() {
		mood.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if mood.CreatedAt.IsZero() {
		mood.CreatedAt = now
	}
	mood.UpdatedAt = now
	_, err := s.moods.InsertOne(ctx, mood)
	return translate(err)
}

func (s *Store) GetMood(ctx context.Context, id primitive.ObjectID) (*models.Mood, error) {
	var mood models.Mood
	if err := s.moods.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&mood); err != nil {
		return nil, translate(err)
	}
	return &mood, nil
}

func (s *Store) GetMoodsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Mood, error) {
	moods := []models.Mood{}
	if len(ids) == 0 {
		return moods, nil
	}
	cursor, err := s.moods.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, err
	}
	if err := cursor.All(ctx, &moods); err != nil {
		return nil, err
	}
	return moods, nil
}

func (s *Store) UpdateMood(ctx context.Context, mood *models.Mood) error {
	mood.UpdatedAt = time.Now().UTC()

	set := bson.D{
		{Key: "moodType", Value: mood.MoodType},
		{Key: "intensity", Value: mood.Intensity},
		{Key: "date", Value: mood.Date},
		{Key: "time", Value: mood.Time},
		{Key: "notes", Value: mood.Notes},
		{Key: "updatedAt", Value: mood.UpdatedAt},
	}
	update := bson.D{}
	if mood.JournalEntry != nil {
		set = append(set, bson.E{Key: "journalEntry", Value: *mood.JournalEntry})
	} else {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "journalEntry", Value: ""}}})
	}
	update = append(update, bson.E{Key: "$set", Value: set})

	res, err := s.moods.UpdateOne(ctx, bson.D{{Key: "_id", Value: mood.ID}}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteMood(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.moods.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) ListMoods(ctx context.Context, q repository.MoodQuery) ([]models.Mood, int64, error) {
	filter := buildMoodFilter(q)

	total, err := s.moods.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	sort := bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}
	cursor, err := s.moods.Find(ctx, filter, findOptions(sort, q.Page, q.Limit))
	if err != nil {
		return nil, 0, err
	}
	moods := []models.Mood{}
	if err := cursor.All(ctx, &moods); err != nil {
		return nil, 0, err
	}
	return moods, total, nil
}

func (s *Store) MoodIDsByType(ctx context.Context, userID, moodTypeID primitive.ObjectID) ([]primitive.ObjectID, error) {
	filter := bson.D{{Key: "user", Value: userID}, {Key: "moodType", Value: moodTypeID}}
	cursor, err := s.moods.Find(ctx, filter, options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func buildMoodFilter(q repository.MoodQuery) bson.D {
	filter := bson.D{{Key: "user", Value: q.UserID}}
	if r := dateRange(q.From, q.To); r != nil {
		filter = append(filter, bson.E{Key: "date", Value: r})
	}
	if q.MoodType != nil {
		filter = append(filter, bson.E{Key: "moodType", Value: *q.MoodType})
	}
	return filter
}

func dateRange(from, to *time.Time) bson.D {
	if from == nil && to == nil {
		return nil
	}
	r := bson.D{}
	if from != nil {
		r = append(r, bson.E{Key: "$gte", Value: *from})
	}
	if to != nil {
		r = append(r, bson.E{Key: "$lte", Value: *to})
	}
	return r
}
