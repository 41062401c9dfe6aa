package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for raw, want := range map[string]string{"": FormatJSON, "JSON": FormatJSON, "csv": FormatCSV} {
		got, err := ParseFormat(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("pdf")
	assert.Equal(t, apperrors.KindValidation, apperrors.From(err).Kind)
}

func TestExportEntries(t *testing.T) {
	f := newJournalFixture(t)
	ctx := context.Background()
	export := NewExportService(f.entries, f.moods).WithClock(f.clock.Now)

	f.create(t, "With, comma", "happy")
	f.create(t, "Plain", "")
	gone := f.create(t, "Gone", "sad")
	require.NoError(t, f.entries.Delete(ctx, f.user, gone.ID))

	file, err := export.Entries(ctx, f.user, defaultFilter(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "entries-2024-06-15.csv", file.Filename)
	assert.Contains(t, file.ContentType, "text/csv")

	rows, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "title", rows[0][3])

	titles := map[string][]string{}
	for _, r := range rows[1:] {
		titles[r[3]] = r
	}
	require.Contains(t, titles, "With, comma")
	assert.Equal(t, "happy", titles["With, comma"][6])
	assert.Equal(t, "3", titles["With, comma"][8])
	assert.Equal(t, "", titles["Plain"][6])

	file, err = export.Entries(ctx, f.user, defaultFilter(), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "entries-2024-06-15.json", file.Filename)
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(file.Body, &decoded))
	assert.Len(t, decoded, 2)
}

func TestExportMoods(t *testing.T) {
	f := newJournalFixture(t)
	ctx := context.Background()
	export := NewExportService(f.entries, f.moods).WithClock(f.clock.Now)

	entry := f.create(t, "T", "calm")
	_, err := f.moods.Create(ctx, f.user, MoodInput{MoodTypeID: f.types["tired"].ID.Hex(), Notes: "long day"})
	require.NoError(t, err)

	file, err := export.Moods(ctx, f.user, MoodFilter{Page: 1, Limit: 1}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "moods-2024-06-15.csv", file.Filename)

	rows, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "export ignores paging")

	linked := 0
	for _, r := range rows[1:] {
		if r[7] == entry.ID.Hex() {
			linked++
			assert.Equal(t, "calm", r[3])
		}
	}
	assert.Equal(t, 1, linked)
}
