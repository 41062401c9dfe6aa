package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

type ExportService struct {
	entries *EntryService
	moods   *MoodService
	now     func() time.Time
}

func NewExportService(entries *EntryService, moods *MoodService) *ExportService {
	return &ExportService{entries: entries, moods: moods, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *ExportService) WithClock(now func() time.Time) *ExportService {
	s.now = now
	return s
}

// ParseFormat defaults to JSON. Anything other than json or csv is rejected.
func ParseFormat(raw string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(raw)); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", apperrors.Validation("Unsupported export format").WithDetails(map[string]string{
			ParamFormat: "Must be one of: json, csv",
		})
	}
}

func (s *ExportService) filename(kind, format string) string {
	return fmt.Sprintf("%s-%s.%s", kind, s.now().UTC().Format(dateLayout), format)
}

// Entries exports the user's live entries matching f.
func (s *ExportService) Entries(ctx context.Context, userID primitive.ObjectID, f EntryFilter, format string) (*ExportFile, error) {
	f.Deleted = repository.ExcludeDeleted
	entries, err := s.entries.All(ctx, userID, f)
	if err != nil {
		return nil, err
	}

	file := &ExportFile{Filename: s.filename("entries", format)}
	if format == FormatJSON {
		file.ContentType = "application/json"
		file.Body, err = json.MarshalIndent(entries, "", "  ")
		return file, err
	}

	rows := [][]string{{"id", "createdAt", "updatedAt", "title", "content", "category", "mood", "emoji", "intensity", "moodNotes"}}
	for _, e := range entries {
		row := []string{
			e.ID.Hex(),
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.UpdatedAt.UTC().Format(time.RFC3339),
			e.Title,
			e.Content,
			e.Category,
			"", "", "", "",
		}
		if e.Mood != nil {
			if e.Mood.MoodType != nil {
				row[6], row[7] = e.Mood.MoodType.Name, e.Mood.MoodType.Emoji
			}
			row[8] = strconv.Itoa(e.Mood.Intensity)
			row[9] = e.Mood.Notes
		}
		rows = append(rows, row)
	}
	file.ContentType = "text/csv; charset=utf-8"
	file.Body, err = writeCSV(rows)
	return file, err
}

// Moods exports every mood of the user matching f.
func (s *ExportService) Moods(ctx context.Context, userID primitive.ObjectID, f MoodFilter, format string) (*ExportFile, error) {
	f.Page, f.Limit = 0, 0
	moods, _, err := s.moods.List(ctx, userID, f)
	if err != nil {
		return nil, err
	}

	file := &ExportFile{Filename: s.filename("moods", format)}
	if format == FormatJSON {
		file.ContentType = "application/json"
		file.Body, err = json.MarshalIndent(moods, "", "  ")
		return file, err
	}

	rows := [][]string{{"id", "date", "time", "mood", "emoji", "intensity", "notes", "journalEntry", "createdAt"}}
	for _, m := range moods {
		row := []string{
			m.ID.Hex(),
			m.Date.UTC().Format(dateLayout),
			m.Time,
			"", "",
			strconv.Itoa(m.Intensity),
			m.Notes,
			"",
			m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if m.MoodType != nil {
			row[3], row[4] = m.MoodType.Name, m.MoodType.Emoji
		}
		if m.JournalEntry != nil {
			row[7] = m.JournalEntry.Hex()
		}
		rows = append(rows, row)
	}
	file.ContentType = "text/csv; charset=utf-8"
	file.Body, err = writeCSV(rows)
	return file, err
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
