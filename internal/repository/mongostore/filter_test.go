package mongostore

import (
	"testing"
	"time"

	"github.com/bsrBe/Vent/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func keys(d bson.D) []string {
	out := make([]string, 0, len(d))
	for _, e := range d {
		out = append(out, e.Key)
	}
	return out
}

func lookup(d bson.D, key string) (interface{}, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func TestBuildEntryFilter_DefaultExcludesDeleted(t *testing.T) {
	user := primitive.NewObjectID()

	filter := buildEntryFilter(repository.EntryQuery{UserID: user})

	assert.Equal(t, []string{"user", "deletedAt"}, keys(filter))
	v, _ := lookup(filter, "deletedAt")
	assert.Nil(t, v)
}

func TestBuildEntryFilter_DeletedScopes(t *testing.T) {
	user := primitive.NewObjectID()

	include := buildEntryFilter(repository.EntryQuery{UserID: user, Deleted: repository.IncludeDeleted})
	assert.Equal(t, []string{"user"}, keys(include))

	only := buildEntryFilter(repository.EntryQuery{UserID: user, Deleted: repository.OnlyDeleted})
	v, ok := lookup(only, "deletedAt")
	require.True(t, ok)
	assert.Equal(t, bson.D{{Key: "$ne", Value: nil}}, v)
}

func TestBuildEntryFilter_TextIsEscaped(t *testing.T) {
	filter := buildEntryFilter(repository.EntryQuery{
		UserID:  primitive.NewObjectID(),
		Deleted: repository.IncludeDeleted,
		Text:    `a.b$ne{"x"}`,
	})

	v, ok := lookup(filter, "$or")
	require.True(t, ok)
	clauses := v.(bson.A)
	require.Len(t, clauses, 2)

	title := clauses[0].(bson.D)
	re := title[0].Value.(primitive.Regex)
	assert.Equal(t, `a\.b\$ne\{"x"\}`, re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func TestBuildEntryFilter_MoodRestriction(t *testing.T) {
	user := primitive.NewObjectID()
	moodID := primitive.NewObjectID()
	no := false
	yes := true

	restricted := buildEntryFilter(repository.EntryQuery{UserID: user, RestrictMoods: true, MoodIDs: []primitive.ObjectID{moodID}})
	v, _ := lookup(restricted, "mood")
	assert.Equal(t, bson.D{{Key: "$in", Value: []primitive.ObjectID{moodID}}}, v)

	contradiction := buildEntryFilter(repository.EntryQuery{UserID: user, RestrictMoods: true, MoodIDs: []primitive.ObjectID{moodID}, HasMood: &no})
	v, _ = lookup(contradiction, "mood")
	assert.Equal(t, bson.D{{Key: "$in", Value: []primitive.ObjectID{}}}, v)

	withMood := buildEntryFilter(repository.EntryQuery{UserID: user, HasMood: &yes})
	v, _ = lookup(withMood, "mood")
	assert.Equal(t, bson.D{{Key: "$ne", Value: nil}}, v)

	withoutMood := buildEntryFilter(repository.EntryQuery{UserID: user, HasMood: &no})
	v, ok := lookup(withoutMood, "mood")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestBuildEntryFilter_DateRangeAndCategory(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	filter := buildEntryFilter(repository.EntryQuery{
		UserID:   primitive.NewObjectID(),
		Category: "WORK",
		From:     &from,
		To:       &to,
	})

	assert.Equal(t, []string{"user", "deletedAt", "category", "createdAt"}, keys(filter))
	v, _ := lookup(filter, "createdAt")
	assert.Equal(t, bson.D{{Key: "$gte", Value: from}, {Key: "$lte", Value: to}}, v)
}

func TestBuildEntrySort(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}, buildEntrySort(repository.EntryQuery{}))
	assert.Equal(t, bson.D{{Key: "title", Value: -1}, {Key: "_id", Value: -1}},
		buildEntrySort(repository.EntryQuery{SortField: "title", SortDesc: true}))
}
