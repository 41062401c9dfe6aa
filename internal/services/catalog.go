package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/models"
	"github.com/bsrBe/Vent/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var moodTypesCacheKey = CacheKey("mood_types", "all")

// ExtraMoodsEntitlement unlocks the restricted mood types of the default catalog.
const ExtraMoodsEntitlement = "extra-moods"

// DefaultMoodTypes is the catalog seeded on startup.
func DefaultMoodTypes() []models.MoodType {
	return []models.MoodType{
		{Name: "happy", Emoji: "😊", Color: "#FFD93D", Description: "Feeling good and content"},
		{Name: "sad", Emoji: "😢", Color: "#6C9BCF", Description: "Feeling down or low"},
		{Name: "angry", Emoji: "😠", Color: "#E63946", Description: "Feeling frustrated or irritated"},
		{Name: "anxious", Emoji: "😰", Color: "#B388EB", Description: "Feeling worried or on edge"},
		{Name: "calm", Emoji: "😌", Color: "#8AC926", Description: "Feeling relaxed and at peace"},
		{Name: "excited", Emoji: "🤩", Color: "#FF924C", Description: "Feeling energetic and eager"},
		{Name: "tired", Emoji: "😴", Color: "#A5A5A5", Description: "Feeling drained or sleepy"},
		{Name: "grateful", Emoji: "🙏", Color: "#52B788", Description: "Feeling thankful"},
		{Name: "inspired", Emoji: "✨", Color: "#FFB703", Description: "Feeling creative and motivated", Entitlement: ExtraMoodsEntitlement},
	}
}

// CatalogStore is the persistence behind mood types, categories and entitlements.
type CatalogStore interface {
	repository.MoodTypeStore
	repository.EntitlementStore
}

// CatalogService resolves what a given user may pick: mood types and entry categories.
// Extra options are unlocked per user through entitlements.
type CatalogService struct {
	store CatalogStore
	cache Cache
	log   logrus.FieldLogger
}

func NewCatalogService(store CatalogStore, cache Cache, log logrus.FieldLogger) *CatalogService {
	if cache == nil {
		cache = NopCache{}
	}
	return &CatalogService{store: store, cache: cache, log: log}
}

// Seed upserts the default mood types plus any extra ones and drops the cached catalog.
func (s *CatalogService) Seed(ctx context.Context, extra ...models.MoodType) error {
	types := append(DefaultMoodTypes(), extra...)
	if err := s.store.UpsertMoodTypes(ctx, types); err != nil {
		return fmt.Errorf("seed mood types: %w", err)
	}
	if err := s.cache.Delete(ctx, moodTypesCacheKey); err != nil {
		s.log.WithError(err).Warn("failed to invalidate mood type cache")
	}
	s.log.WithField("count", len(types)).Info("mood types seeded")
	return nil
}

// cachedMoodType keeps the entitlement, which is hidden from API responses, in the cache payload.
type cachedMoodType struct {
	models.MoodType
	Entitlement string `json:"entitlement,omitempty"`
}

func (s *CatalogService) allMoodTypes(ctx context.Context) ([]models.MoodType, error) {
	var cached []cachedMoodType
	hit, err := s.cache.Get(ctx, moodTypesCacheKey, &cached)
	if err != nil {
		s.log.WithError(err).Warn("mood type cache read failed")
	}
	if hit {
		types := make([]models.MoodType, len(cached))
		for i, c := range cached {
			types[i] = c.MoodType
			types[i].Entitlement = c.Entitlement
		}
		return types, nil
	}

	types, err := s.store.ListMoodTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mood types: %w", err)
	}

	payload := make([]cachedMoodType, len(types))
	for i, t := range types {
		payload[i] = cachedMoodType{MoodType: t, Entitlement: t.Entitlement}
	}
	if err := s.cache.Set(ctx, moodTypesCacheKey, payload, 0); err != nil {
		s.log.WithError(err).Warn("mood type cache write failed")
	}
	return types, nil
}

func (s *CatalogService) entitlements(ctx context.Context, userID primitive.ObjectID, kind string) (map[string]bool, error) {
	grants, err := s.store.ListEntitlements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}
	held := make(map[string]bool, len(grants))
	for _, g := range grants {
		if g.Kind == kind {
			held[g.Value] = true
		}
	}
	return held, nil
}

// MoodTypesFor lists the catalog entries visible to userID.
func (s *CatalogService) MoodTypesFor(ctx context.Context, userID primitive.ObjectID) ([]models.MoodType, error) {
	types, err := s.allMoodTypes(ctx)
	if err != nil {
		return nil, err
	}
	held, err := s.entitlements(ctx, userID, models.EntitlementMoodType)
	if err != nil {
		return nil, err
	}

	visible := make([]models.MoodType, 0, len(types))
	for _, t := range types {
		if t.Entitlement == "" || held[t.Entitlement] {
			visible = append(visible, t)
		}
	}
	return visible, nil
}

// ResolveMoodType returns the mood type with the given id if userID may use it.
func (s *CatalogService) ResolveMoodType(ctx context.Context, userID, id primitive.ObjectID) (*models.MoodType, error) {
	types, err := s.MoodTypesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range types {
		if types[i].ID == id {
			return &types[i], nil
		}
	}
	return nil, apperrors.Validation("Invalid mood type").WithDetails(map[string]string{"moodTypeId": "Unknown mood type"})
}

// MoodTypesByID fetches the given types keyed by id. Unknown ids are absent from the map.
func (s *CatalogService) MoodTypesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.MoodType, error) {
	out := make(map[primitive.ObjectID]models.MoodType, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	types, err := s.store.GetMoodTypesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get mood types: %w", err)
	}
	for _, t := range types {
		out[t.ID] = t
	}
	return out, nil
}

// CategoriesFor returns the base categories followed by any the user is entitled to.
func (s *CatalogService) CategoriesFor(ctx context.Context, userID primitive.ObjectID) ([]string, error) {
	categories := models.DefaultCategories()
	grants, err := s.store.ListEntitlements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		seen[c] = true
	}
	for _, g := range grants {
		if g.Kind != models.EntitlementCategory || seen[g.Value] {
			continue
		}
		seen[g.Value] = true
		categories = append(categories, g.Value)
	}
	return categories, nil
}

// CheckCategory fails with a ValidationError unless category is usable by userID.
func (s *CatalogService) CheckCategory(ctx context.Context, userID primitive.ObjectID, category string) error {
	allowed, err := s.CategoriesFor(ctx, userID)
	if err != nil {
		return err
	}
	for _, c := range allowed {
		if c == category {
			return nil
		}
	}
	return apperrors.Validation("Invalid category").WithDetails(map[string]string{
		"category": "Must be one of: " + strings.Join(allowed, ", "),
	})
}

// Grant unlocks a category or mood type for a user. Granting twice is a no-op.
func (s *CatalogService) Grant(ctx context.Context, userID primitive.ObjectID, kind, value string) error {
	if kind != models.EntitlementCategory && kind != models.EntitlementMoodType {
		return apperrors.Validation("Unknown entitlement kind")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return apperrors.Validation("Entitlement value is required")
	}
	switch kind {
	case models.EntitlementCategory:
		value = strings.ToUpper(value)
	case models.EntitlementMoodType:
		if err := s.checkMoodTypeEntitlement(ctx, value); err != nil {
			return err
		}
	}
	err := s.store.GrantEntitlement(ctx, &models.Entitlement{User: userID, Kind: kind, Value: value})
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("grant entitlement: %w", err)
	}
	return nil
}

// checkMoodTypeEntitlement rejects values that no catalog entry is gated on.
func (s *CatalogService) checkMoodTypeEntitlement(ctx context.Context, value string) error {
	types, err := s.allMoodTypes(ctx)
	if err != nil {
		return err
	}
	var known []string
	for _, t := range types {
		if t.Entitlement == value {
			return nil
		}
		if t.Entitlement != "" {
			known = append(known, t.Entitlement)
		}
	}
	return apperrors.Validation("Unknown mood type entitlement").WithDetails(map[string]string{
		"value": "Must be one of: " + strings.Join(known, ", "),
	})
}
