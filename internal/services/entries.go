package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/metrics"
	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EntryInput struct {
	Title      string `json:"title" validate:"notblank,max=200"`
	Content    string `json:"content" validate:"notblank,max=20000"`
	Category   string `json:"category" validate:"required,max=50"`
	MoodTypeID string `json:"moodTypeId" validate:"omitempty,objectid"`
	Intensity  *int   `json:"intensity" validate:"omitempty,min=1,max=5"`
	MoodNotes  string `json:"moodNotes" validate:"max=500"`
	Time       string `json:"time" validate:"omitempty,datetime=15:04"`
}

// EntryUpdateInput is a partial update. Nil fields are left untouched.
type EntryUpdateInput struct {
	Title      *string `json:"title" validate:"omitempty,max=200"`
	Content    *string `json:"content" validate:"omitempty,max=20000"`
	Category   *string `json:"category" validate:"omitempty,max=50"`
	MoodTypeID *string `json:"moodTypeId" validate:"omitempty,objectid"`
	Intensity  *int    `json:"intensity" validate:"omitempty,min=1,max=5"`
	MoodNotes  *string `json:"moodNotes" validate:"omitempty,max=500"`
	RemoveMood bool    `json:"removeMood"`
}

func (in EntryUpdateInput) touchesMood() bool {
	return in.MoodTypeID != nil || in.Intensity != nil || in.MoodNotes != nil
}

// EntryService owns journal entries and the mood each one may carry. Every write that touches
// both records runs in one transaction.
type EntryService struct {
	store   JournalStore
	catalog *CatalogService
	moods   *MoodService
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewEntryService(store JournalStore, catalog *CatalogService, moods *MoodService, log logrus.FieldLogger) *EntryService {
	return &EntryService{store: store, catalog: catalog, moods: moods, log: log, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *EntryService) WithClock(now func() time.Time) *EntryService {
	s.now = now
	return s
}

func (s *EntryService) Create(ctx context.Context, userID primitive.ObjectID, in EntryInput) (*models.EntryDetail, error) {
	title, content := strings.TrimSpace(in.Title), strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, apperrors.Validation("Title and content are required")
	}
	category := strings.ToUpper(strings.TrimSpace(in.Category))
	if err := s.catalog.CheckCategory(ctx, userID, category); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := &models.JournalEntry{
		ID:        primitive.NewObjectID(),
		CreatedAt: now,
		User:      userID,
		Title:     title,
		Content:   content,
		Category:  category,
	}

	var mood *models.Mood
	if in.MoodTypeID != "" {
		mt, err := s.resolveType(ctx, userID, in.MoodTypeID)
		if err != nil {
			return nil, err
		}
		mood = &models.Mood{
			ID:           primitive.NewObjectID(),
			CreatedAt:    now,
			User:         userID,
			MoodType:     mt.ID,
			Intensity:    intensityOrDefault(in.Intensity),
			Date:         startOfDay(now),
			Time:         in.Time,
			Notes:        strings.TrimSpace(in.MoodNotes),
			JournalEntry: &entry.ID,
		}
		if err := checkIntensity(mood.Intensity); err != nil {
			return nil, err
		}
		entry.Mood = &mood.ID
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if mood != nil {
			if err := s.store.CreateMood(ctx, mood); err != nil {
				return fmt.Errorf("create mood: %w", err)
			}
		}
		if err := s.store.CreateEntry(ctx, entry); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordEntryCreated(mood != nil)
	s.log.WithFields(logrus.Fields{"user_id": userID.Hex(), "entry_id": entry.ID.Hex(), "with_mood": mood != nil}).Debug("journal entry created")
	return s.detail(ctx, entry)
}

func (s *EntryService) resolveType(ctx context.Context, userID primitive.ObjectID, raw string) (*models.MoodType, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperrors.Validation("Invalid mood type")
	}
	return s.catalog.ResolveMoodType(ctx, userID, id)
}

// owned loads an entry owned by userID. Foreign entries look missing.
func (s *EntryService) owned(ctx context.Context, userID, id primitive.ObjectID) (*models.JournalEntry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Journal entry")
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if entry.User != userID {
		return nil, apperrors.NotOwned("Journal entry")
	}
	return entry, nil
}

// live is owned, restricted to entries that are not soft deleted.
func (s *EntryService) live(ctx context.Context, userID, id primitive.ObjectID) (*models.JournalEntry, error) {
	entry, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if entry.IsDeleted() {
		return nil, apperrors.NotFound("Journal entry")
	}
	return entry, nil
}

func (s *EntryService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.EntryDetail, error) {
	entry, err := s.live(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, entry)
}

func (s *EntryService) Update(ctx context.Context, userID, id primitive.ObjectID, in EntryUpdateInput) (*models.EntryDetail, error) {
	entry, err := s.live(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.RemoveMood && in.touchesMood() {
		return nil, apperrors.Validation("removeMood cannot be combined with mood fields")
	}

	if in.Title != nil {
		if entry.Title = strings.TrimSpace(*in.Title); entry.Title == "" {
			return nil, apperrors.Validation("Title cannot be empty")
		}
	}
	if in.Content != nil {
		if entry.Content = strings.TrimSpace(*in.Content); entry.Content == "" {
			return nil, apperrors.Validation("Content cannot be empty")
		}
	}
	if in.Category != nil {
		entry.Category = strings.ToUpper(strings.TrimSpace(*in.Category))
		if err := s.catalog.CheckCategory(ctx, userID, entry.Category); err != nil {
			return nil, err
		}
	}

	var moodType *models.MoodType
	if in.MoodTypeID != nil {
		if moodType, err = s.resolveType(ctx, userID, *in.MoodTypeID); err != nil {
			return nil, err
		}
	}
	if in.Intensity != nil {
		if err := checkIntensity(*in.Intensity); err != nil {
			return nil, err
		}
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		switch {
		case in.RemoveMood:
			if entry.Mood != nil {
				if err := s.deleteMood(ctx, *entry.Mood); err != nil {
					return err
				}
				entry.Mood = nil
			}
		case in.touchesMood():
			if err := s.upsertMood(ctx, entry, moodType, in); err != nil {
				return err
			}
		}
		if err := s.store.UpdateEntry(ctx, entry); err != nil {
			return fmt.Errorf("update entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, entry)
}

// upsertMood updates the entry's mood, or creates and links one when the entry has none.
func (s *EntryService) upsertMood(ctx context.Context, entry *models.JournalEntry, moodType *models.MoodType, in EntryUpdateInput) error {
	if entry.Mood != nil {
		mood, err := s.store.GetMood(ctx, *entry.Mood)
		switch {
		case err == nil:
			if moodType != nil {
				mood.MoodType = moodType.ID
			}
			if in.Intensity != nil {
				mood.Intensity = *in.Intensity
			}
			if in.MoodNotes != nil {
				mood.Notes = strings.TrimSpace(*in.MoodNotes)
			}
			if err := s.store.UpdateMood(ctx, mood); err != nil {
				return fmt.Errorf("update mood: %w", err)
			}
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("get mood: %w", err)
		}
		// dangling reference: replace it below
	}

	if moodType == nil {
		return apperrors.Validation("moodTypeId is required to add a mood to this entry")
	}
	now := s.now().UTC()
	mood := &models.Mood{
		ID:           primitive.NewObjectID(),
		CreatedAt:    now,
		User:         entry.User,
		MoodType:     moodType.ID,
		Intensity:    intensityOrDefault(in.Intensity),
		Date:         startOfDay(now),
		JournalEntry: &entry.ID,
	}
	if in.MoodNotes != nil {
		mood.Notes = strings.TrimSpace(*in.MoodNotes)
	}
	if err := s.store.CreateMood(ctx, mood); err != nil {
		return fmt.Errorf("create mood: %w", err)
	}
	entry.Mood = &mood.ID
	return nil
}

func (s *EntryService) deleteMood(ctx context.Context, id primitive.ObjectID) error {
	if err := s.store.DeleteMood(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete mood: %w", err)
	}
	return nil
}

// Delete soft deletes the entry and removes its mood in one transaction.
func (s *EntryService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	entry, err := s.live(ctx, userID, id)
	if err != nil {
		return err
	}

	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if entry.Mood != nil {
			if err := s.deleteMood(ctx, *entry.Mood); err != nil {
				return err
			}
			entry.Mood = nil
		}
		deletedAt := s.now().UTC()
		entry.DeletedAt = &deletedAt
		if err := s.store.UpdateEntry(ctx, entry); err != nil {
			return fmt.Errorf("soft delete entry: %w", err)
		}
		return nil
	})
}

// Restore clears the soft-delete mark. The mood removed on delete is not brought back.
func (s *EntryService) Restore(ctx context.Context, userID, id primitive.ObjectID) (*models.EntryDetail, error) {
	entry, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !entry.IsDeleted() {
		return nil, apperrors.Validation("Journal entry is not deleted")
	}

	entry.DeletedAt = nil
	if err := s.store.UpdateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("restore entry: %w", err)
	}
	return s.detail(ctx, entry)
}

// List returns one page of entries matching f, with moods attached.
func (s *EntryService) List(ctx context.Context, userID primitive.ObjectID, f EntryFilter) ([]models.EntryDetail, Pagination, error) {
	q, empty, err := s.query(ctx, userID, f)
	if err != nil {
		return nil, Pagination{}, err
	}
	if empty {
		return []models.EntryDetail{}, NewPagination(f.Page, f.Limit, 0), nil
	}

	entries, total, err := s.store.ListEntries(ctx, q)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list entries: %w", err)
	}
	details, err := s.Details(ctx, entries)
	if err != nil {
		return nil, Pagination{}, err
	}
	return details, NewPagination(f.Page, f.Limit, total), nil
}

// All returns every entry matching f, ignoring pagination.
func (s *EntryService) All(ctx context.Context, userID primitive.ObjectID, f EntryFilter) ([]models.EntryDetail, error) {
	f.Page, f.Limit = 0, 0
	details, _, err := s.List(ctx, userID, f)
	return details, err
}

// query converts a filter into a store query. empty reports that nothing can match.
func (s *EntryService) query(ctx context.Context, userID primitive.ObjectID, f EntryFilter) (repository.EntryQuery, bool, error) {
	q := repository.EntryQuery{
		UserID:    userID,
		Category:  f.Category,
		From:      f.From,
		To:        f.To,
		HasMood:   f.HasMood,
		Text:      f.Text,
		Deleted:   f.Deleted,
		SortField: f.SortField,
		SortDesc:  f.SortDesc,
		Page:      f.Page,
		Limit:     f.Limit,
	}
	if f.Category != "" {
		if err := s.catalog.CheckCategory(ctx, userID, f.Category); err != nil {
			return q, false, err
		}
	}
	if f.MoodType != nil {
		ids, err := s.store.MoodIDsByType(ctx, userID, *f.MoodType)
		if err != nil {
			return q, false, fmt.Errorf("find moods by type: %w", err)
		}
		if len(ids) == 0 {
			return q, true, nil
		}
		q.RestrictMoods = true
		q.MoodIDs = ids
	}
	return q, false, nil
}

func (s *EntryService) detail(ctx context.Context, entry *models.JournalEntry) (*models.EntryDetail, error) {
	details, err := s.Details(ctx, []models.JournalEntry{*entry})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Details fetches the moods and mood types referenced by entries. Dangling references leave Mood nil.
func (s *EntryService) Details(ctx context.Context, entries []models.JournalEntry) ([]models.EntryDetail, error) {
	ids := make([]primitive.ObjectID, 0, len(entries))
	for _, e := range entries {
		if e.Mood != nil {
			ids = append(ids, *e.Mood)
		}
	}

	byID := map[primitive.ObjectID]models.MoodDetail{}
	if len(ids) > 0 {
		moods, err := s.store.GetMoodsByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("get moods: %w", err)
		}
		withTypes, err := s.moods.Details(ctx, moods)
		if err != nil {
			return nil, err
		}
		for _, m := range withTypes {
			byID[m.ID] = m
		}
	}

	out := make([]models.EntryDetail, len(entries))
	for i, e := range entries {
		out[i] = models.EntryDetail{JournalEntry: e}
		if e.Mood == nil {
			continue
		}
		if m, ok := byID[*e.Mood]; ok {
			out[i].Mood = &m
		}
	}
	return out, nil
}
