package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mood types

func (s *Store) ListMoodTypes(_ context.Context) ([]models.MoodType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListMoodTypes"); err != nil {
		return nil, err
	}
	return append([]models.MoodType{}, s.moodTypes...), nil
}

func (s *Store) GetMoodTypesByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.MoodType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := idSet(ids)
	out := []models.MoodType{}
	for _, t := range s.moodTypes {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) UpsertMoodTypes(ctx context.Context, types []models.MoodType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log, ok := tracked(ctx); ok {
		prev := append([]models.MoodType(nil), s.moodTypes...)
		log.steps = append(log.steps, func() { s.moodTypes = prev })
	}
	for _, t := range types {
		found := false
		for i := range s.moodTypes {
			if s.moodTypes[i].Name == t.Name {
				t.ID = s.moodTypes[i].ID
				s.moodTypes[i] = t
				found = true
				break
			}
		}
		if !found {
			if t.ID.IsZero() {
				t.ID = primitive.NewObjectID()
			}
			s.moodTypes = append(s.moodTypes, t)
		}
	}
	return nil
}

// Moods

func (s *Store) CreateMood(ctx context.Context, mood *models.Mood) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateMood"); err != nil {
		return err
	}
	if mood.ID.IsZero() {
		mood.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if mood.CreatedAt.IsZero() {
		mood.CreatedAt = now
	}
	mood.UpdatedAt = now
	remember(ctx, s.moods, mood.ID)
	s.moods[mood.ID] = cloneMood(*mood)
	return nil
}

func (s *Store) GetMood(_ context.Context, id primitive.ObjectID) (*models.Mood, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.moods[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m = cloneMood(m)
	return &m, nil
}

func (s *Store) GetMoodsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Mood, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Mood{}
	for _, id := range ids {
		if m, ok := s.moods[id]; ok {
			out = append(out, cloneMood(m))
		}
	}
	return out, nil
}

func (s *Store) UpdateMood(ctx context.Context, mood *models.Mood) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateMood"); err != nil {
		return err
	}
	existing, ok := s.moods[mood.ID]
	if !ok {
		return repository.ErrNotFound
	}
	mood.UpdatedAt = time.Now().UTC()
	mood.CreatedAt = existing.CreatedAt
	mood.User = existing.User
	remember(ctx, s.moods, mood.ID)
	s.moods[mood.ID] = cloneMood(*mood)
	return nil
}

func (s *Store) DeleteMood(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteMood"); err != nil {
		return err
	}
	if _, ok := s.moods[id]; !ok {
		return repository.ErrNotFound
	}
	remember(ctx, s.moods, id)
	delete(s.moods, id)
	return nil
}

func (s *Store) ListMoods(_ context.Context, q repository.MoodQuery) ([]models.Mood, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := []models.Mood{}
	for _, m := range s.moods {
		if m.User != q.UserID || !inRange(m.Date, q.From, q.To) {
			continue
		}
		if q.MoodType != nil && m.MoodType != *q.MoodType {
			continue
		}
		matched = append(matched, cloneMood(m))
	}
	sortByTime(matched, func(m models.Mood) time.Time { return m.Date }, func(m models.Mood) primitive.ObjectID { return m.ID }, true)
	return paginate(matched, q.Page, q.Limit), int64(len(matched)), nil
}

func (s *Store) MoodIDsByType(_ context.Context, userID, moodTypeID primitive.ObjectID) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []primitive.ObjectID{}
	for _, m := range s.moods {
		if m.User == userID && m.MoodType == moodTypeID {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

// MoodCount returns the number of moods owned by userID.
func (s *Store) MoodCount(userID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.moods {
		if m.User == userID {
			n++
		}
	}
	return n
}

// Journal entries

func (s *Store) CreateEntry(ctx context.Context, entry *models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateEntry"); err != nil {
		return err
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	remember(ctx, s.entries, entry.ID)
	s.entries[entry.ID] = cloneEntry(*entry)
	return nil
}

func (s *Store) GetEntry(_ context.Context, id primitive.ObjectID) (*models.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e = cloneEntry(e)
	return &e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, entry *models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateEntry"); err != nil {
		return err
	}
	existing, ok := s.entries[entry.ID]
	if !ok {
		return repository.ErrNotFound
	}
	entry.UpdatedAt = time.Now().UTC()
	entry.CreatedAt = existing.CreatedAt
	entry.User = existing.User
	remember(ctx, s.entries, entry.ID)
	s.entries[entry.ID] = cloneEntry(*entry)
	return nil
}

func (s *Store) ListEntries(_ context.Context, q repository.EntryQuery) ([]models.JournalEntry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListEntries"); err != nil {
		return nil, 0, err
	}

	allowed := idSet(q.MoodIDs)
	text := strings.ToLower(q.Text)

	matched := []models.JournalEntry{}
	for _, e := range s.entries {
		if e.User != q.UserID {
			continue
		}
		switch q.Deleted {
		case repository.ExcludeDeleted:
			if e.DeletedAt != nil {
				continue
			}
		case repository.OnlyDeleted:
			if e.DeletedAt == nil {
				continue
			}
		}
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		if !inRange(e.CreatedAt, q.From, q.To) {
			continue
		}
		if q.HasMood != nil && *q.HasMood != (e.Mood != nil) {
			continue
		}
		if q.RestrictMoods && (e.Mood == nil || !allowed[*e.Mood]) {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(e.Title), text) && !strings.Contains(strings.ToLower(e.Content), text) {
			continue
		}
		matched = append(matched, cloneEntry(e))
	}

	sortEntries(matched, q.SortField, q.SortDesc)
	return paginate(matched, q.Page, q.Limit), int64(len(matched)), nil
}

func (s *Store) EntriesCreatedBetween(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]models.JournalEntry, error) {
	entries, _, err := s.ListEntries(ctx, repository.EntryQuery{
		UserID:    userID,
		From:      &from,
		To:        &to,
		SortField: "createdAt",
	})
	return entries, err
}

func sortEntries(entries []models.JournalEntry, field string, desc bool) {
	switch field {
	case "title":
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Title == entries[j].Title {
				if desc {
					return entries[i].ID.Hex() > entries[j].ID.Hex()
				}
				return entries[i].ID.Hex() < entries[j].ID.Hex()
			}
			if desc {
				return entries[i].Title > entries[j].Title
			}
			return entries[i].Title < entries[j].Title
		})
	case "updatedAt":
		sortByTime(entries, func(e models.JournalEntry) time.Time { return e.UpdatedAt }, func(e models.JournalEntry) primitive.ObjectID { return e.ID }, desc)
	default:
		sortByTime(entries, func(e models.JournalEntry) time.Time { return e.CreatedAt }, func(e models.JournalEntry) primitive.ObjectID { return e.ID }, desc)
	}
}

func idSet(ids []primitive.ObjectID) map[primitive.ObjectID]bool {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func cloneMood(m models.Mood) models.Mood {
	if m.JournalEntry != nil {
		id := *m.JournalEntry
		m.JournalEntry = &id
	}
	return m
}

func cloneEntry(e models.JournalEntry) models.JournalEntry {
	if e.Mood != nil {
		id := *e.Mood
		e.Mood = &id
	}
	if e.DeletedAt != nil {
		t := *e.DeletedAt
		e.DeletedAt = &t
	}
	return e
}
