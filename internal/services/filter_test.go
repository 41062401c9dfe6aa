package services

import (
	"net/url"
	"testing"
	"time"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntryFilterDefaults(t *testing.T) {
	f, err := ParseEntryFilter(url.Values{}, EntryListParams)
	require.NoError(t, err)

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageLimit, f.Limit)
	assert.Equal(t, "createdAt", f.SortField)
	assert.True(t, f.SortDesc)
	assert.Equal(t, repository.ExcludeDeleted, f.Deleted)
	assert.False(t, f.HasCriteria())
}

func TestParseEntryFilterValues(t *testing.T) {
	q, err := url.ParseQuery("category=work&from=2024-06-01&to=2024-06-30&hasMood=true&moodType=507f1f77bcf86cd799439011&q=%20walk%20&sort=-title&page=3&limit=25&withDeleted=true")
	require.NoError(t, err)

	f, err := ParseEntryFilter(q, EntryListParams)
	require.NoError(t, err)

	assert.Equal(t, "WORK", f.Category)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, time.Date(2024, 6, 30, 23, 59, 59, 999999999, time.UTC), *f.To)
	require.NotNil(t, f.HasMood)
	assert.True(t, *f.HasMood)
	assert.Equal(t, "507f1f77bcf86cd799439011", f.MoodType.Hex())
	assert.Equal(t, "walk", f.Text)
	assert.Equal(t, "title", f.SortField)
	assert.True(t, f.SortDesc)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 25, f.Limit)
	assert.Equal(t, repository.IncludeDeleted, f.Deleted)
	assert.True(t, f.HasCriteria())
}

func TestParseEntryFilterOnlyDeletedWins(t *testing.T) {
	f, err := ParseEntryFilter(url.Values{"withDeleted": {"true"}, "onlyDeleted": {"1"}}, EntryListParams)
	require.NoError(t, err)
	assert.Equal(t, repository.OnlyDeleted, f.Deleted)
}

func TestParseEntryFilterRejects(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"operator key", "category[gte]=A", "category[gte]"},
		{"dollar key", "$where=1", "$where"},
		{"dotted key", "mood.name=happy", "mood.name"},
		{"operator value", "category=$ne", "category"},
		{"unknown param", "password=x", "password"},
		{"repeated param", "category=WORK&category=FAMILY", "category"},
		{"bad date", "from=06/01/2024", "from"},
		{"reversed window", "from=2024-06-10&to=2024-06-01", "to"},
		{"bad bool", "hasMood=maybe", "hasMood"},
		{"bad id", "moodType=happy", "moodType"},
		{"bad sort", "sort=password", "sort"},
		{"limit too big", "limit=101", "limit"},
		{"limit zero", "limit=0", "limit"},
		{"page zero", "page=0", "page"},
		{"page too big", "page=1000001", "page"},
		{"page overflows int", "page=9223372036854775807", "page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			_, err = ParseEntryFilter(q, EntryListParams)
			require.Error(t, err)
			appErr := apperrors.From(err)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			assert.Contains(t, appErr.Details, tt.field)
		})
	}
}

func TestParseEntryFilterBareDeletedFlag(t *testing.T) {
	q, err := url.ParseQuery("withDeleted")
	require.NoError(t, err)

	f, err := ParseEntryFilter(q, EntryListParams)
	require.NoError(t, err)
	assert.Equal(t, repository.IncludeDeleted, f.Deleted)

	f, err = ParseEntryFilter(url.Values{"withDeleted": {"false"}}, EntryListParams)
	require.NoError(t, err)
	assert.Equal(t, repository.ExcludeDeleted, f.Deleted)
}

func TestParseMoodFilterRejectsHugePage(t *testing.T) {
	_, err := ParseMoodFilter(url.Values{"page": {"9223372036854775807"}, "limit": {"100"}}, MoodListParams)
	require.Error(t, err)
	assert.Contains(t, apperrors.From(err).Details, "page")
}

func TestSearchParamsExcludeDeletedScopes(t *testing.T) {
	_, err := ParseEntryFilter(url.Values{"withDeleted": {"true"}}, SearchParams)
	assert.Error(t, err)
}

func TestParseWindow(t *testing.T) {
	now := time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)

	w, err := ParseWindow(url.Values{}, now)
	require.NoError(t, err)
	assert.Equal(t, now, w.To)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), w.From) // Feb 31 normalises

	w, err = ParseWindow(url.Values{"from": {"2024-01-01"}, "to": {"2024-01-31"}}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, 31, w.To.Day())

	_, err = ParseWindow(url.Values{"from": {"2024-05-01"}}, now)
	assert.Error(t, err)
}

func TestParseMonth(t *testing.T) {
	now := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	w, err := ParseMonth(url.Values{}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), w.From)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC), w.To)

	_, err = ParseMonth(url.Values{"month": {"13"}}, now)
	assert.Error(t, err)
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, Limit: 10, Total: 0, TotalPages: 0}, NewPagination(1, 10, 0))
	assert.Equal(t, Pagination{Page: 2, Limit: 10, Total: 21, TotalPages: 3}, NewPagination(2, 10, 21))
}
