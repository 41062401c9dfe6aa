package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JournalStore is the persistence behind entries and moods.
type JournalStore interface {
	repository.MoodStore
	repository.EntryStore
	repository.TxRunner
}

type MoodInput struct {
	MoodTypeID string `json:"moodTypeId" validate:"required,objectid"`
	Intensity  *int   `json:"intensity" validate:"omitempty,min=1,max=5"`
	Date       string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time       string `json:"time" validate:"omitempty,datetime=15:04"`
	Notes      string `json:"notes" validate:"max=500"`
}

type MoodUpdateInput struct {
	MoodTypeID *string `json:"moodTypeId" validate:"omitempty,objectid"`
	Intensity  *int    `json:"intensity" validate:"omitempty,min=1,max=5"`
	Date       *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time       *string `json:"time" validate:"omitempty,datetime=15:04"`
	Notes      *string `json:"notes" validate:"omitempty,max=500"`
}

type MoodService struct {
	store   JournalStore
	catalog *CatalogService
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewMoodService(store JournalStore, catalog *CatalogService, log logrus.FieldLogger) *MoodService {
	return &MoodService{store: store, catalog: catalog, log: log, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *MoodService) WithClock(now func() time.Time) *MoodService {
	s.now = now
	return s
}

func (s *MoodService) Create(ctx context.Context, userID primitive.ObjectID, in MoodInput) (*models.MoodDetail, error) {
	typeID, err := primitive.ObjectIDFromHex(in.MoodTypeID)
	if err != nil {
		return nil, apperrors.Validation("Invalid mood type")
	}
	mt, err := s.catalog.ResolveMoodType(ctx, userID, typeID)
	if err != nil {
		return nil, err
	}

	mood := &models.Mood{
		User:      userID,
		MoodType:  mt.ID,
		Intensity: intensityOrDefault(in.Intensity),
		Date:      startOfDay(s.now().UTC()),
		Time:      in.Time,
		Notes:     strings.TrimSpace(in.Notes),
	}
	if in.Date != "" {
		if mood.Date, err = time.ParseInLocation(dateLayout, in.Date, time.UTC); err != nil {
			return nil, apperrors.Validation("Invalid date")
		}
	}
	if err := checkIntensity(mood.Intensity); err != nil {
		return nil, err
	}

	if err := s.store.CreateMood(ctx, mood); err != nil {
		return nil, fmt.Errorf("create mood: %w", err)
	}
	return &models.MoodDetail{Mood: *mood, MoodType: mt}, nil
}

// owned loads a mood and checks that userID owns it. Foreign moods look missing.
func (s *MoodService) owned(ctx context.Context, userID, id primitive.ObjectID) (*models.Mood, error) {
	mood, err := s.store.GetMood(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Mood")
	}
	if err != nil {
		return nil, fmt.Errorf("get mood: %w", err)
	}
	if mood.User != userID {
		return nil, apperrors.NotOwned("Mood")
	}
	return mood, nil
}

func (s *MoodService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.MoodDetail, error) {
	mood, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	details, err := s.Details(ctx, []models.Mood{*mood})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *MoodService) Update(ctx context.Context, userID, id primitive.ObjectID, in MoodUpdateInput) (*models.MoodDetail, error) {
	mood, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.MoodTypeID != nil {
		typeID, err := primitive.ObjectIDFromHex(*in.MoodTypeID)
		if err != nil {
			return nil, apperrors.Validation("Invalid mood type")
		}
		mt, err := s.catalog.ResolveMoodType(ctx, userID, typeID)
		if err != nil {
			return nil, err
		}
		mood.MoodType = mt.ID
	}
	if in.Intensity != nil {
		mood.Intensity = *in.Intensity
	}
	if in.Date != nil {
		if mood.Date, err = time.ParseInLocation(dateLayout, *in.Date, time.UTC); err != nil {
			return nil, apperrors.Validation("Invalid date")
		}
	}
	if in.Time != nil {
		mood.Time = *in.Time
	}
	if in.Notes != nil {
		mood.Notes = strings.TrimSpace(*in.Notes)
	}
	if err := checkIntensity(mood.Intensity); err != nil {
		return nil, err
	}

	if err := s.store.UpdateMood(ctx, mood); err != nil {
		return nil, fmt.Errorf("update mood: %w", err)
	}
	details, err := s.Details(ctx, []models.Mood{*mood})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Delete removes the mood and, in the same transaction, the reference held by its entry.
func (s *MoodService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	mood, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	return s.store.WithTransaction(ctx, func(ctx context.Context) error {
		if mood.JournalEntry != nil {
			entry, err := s.store.GetEntry(ctx, *mood.JournalEntry)
			switch {
			case errors.Is(err, repository.ErrNotFound):
			case err != nil:
				return fmt.Errorf("get linked entry: %w", err)
			case entry.Mood != nil && *entry.Mood == mood.ID:
				entry.Mood = nil
				if err := s.store.UpdateEntry(ctx, entry); err != nil {
					return fmt.Errorf("unlink entry: %w", err)
				}
			}
		}
		if err := s.store.DeleteMood(ctx, mood.ID); err != nil {
			return fmt.Errorf("delete mood: %w", err)
		}
		return nil
	})
}

func (s *MoodService) List(ctx context.Context, userID primitive.ObjectID, f MoodFilter) ([]models.MoodDetail, Pagination, error) {
	moods, total, err := s.store.ListMoods(ctx, repository.MoodQuery{
		UserID:   userID,
		From:     f.From,
		To:       f.To,
		MoodType: f.MoodType,
		Page:     f.Page,
		Limit:    f.Limit,
	})
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list moods: %w", err)
	}
	details, err := s.Details(ctx, moods)
	if err != nil {
		return nil, Pagination{}, err
	}
	return details, NewPagination(f.Page, f.Limit, total), nil
}

// Details attaches mood types. A dangling type leaves MoodType nil.
func (s *MoodService) Details(ctx context.Context, moods []models.Mood) ([]models.MoodDetail, error) {
	ids := make([]primitive.ObjectID, 0, len(moods))
	for _, m := range moods {
		ids = append(ids, m.MoodType)
	}
	types, err := s.catalog.MoodTypesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.MoodDetail, len(moods))
	for i, m := range moods {
		out[i] = models.MoodDetail{Mood: m}
		if mt, ok := types[m.MoodType]; ok {
			out[i].MoodType = &mt
		}
	}
	return out, nil
}

func intensityOrDefault(v *int) int {
	if v == nil {
		return models.DefaultIntensity
	}
	return *v
}

func checkIntensity(v int) error {
	if v < models.MinIntensity || v > models.MaxIntensity {
		return apperrors.Validation("Invalid input data").WithDetails(map[string]string{
			"intensity": fmt.Sprintf("Must be between %d and %d", models.MinIntensity, models.MaxIntensity),
		})
	}
	return nil
}
