package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bsrBe/Vent/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatsService computes the mood read models. Stats, calendar and insights share one aggregation.
type StatsService struct {
	store   JournalStore
	catalog *CatalogService
	now     func() time.Time
}

func NewStatsService(store JournalStore, catalog *CatalogService) *StatsService {
	return &StatsService{store: store, catalog: catalog, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// Now is the service clock, used by callers that need a default window.
func (s *StatsService) Now() time.Time {
	return s.now()
}

// compute fetches the user's live entries created in w, their moods and mood types, and aggregates them.
func (s *StatsService) compute(ctx context.Context, userID primitive.ObjectID, w Window) (Aggregation, []models.JournalEntry, error) {
	entries, err := s.store.EntriesCreatedBetween(ctx, userID, w.From, w.To)
	if err != nil {
		return Aggregation{}, nil, fmt.Errorf("load entries: %w", err)
	}

	moodIDs := make([]primitive.ObjectID, 0, len(entries))
	for _, e := range entries {
		if e.Mood != nil {
			moodIDs = append(moodIDs, *e.Mood)
		}
	}

	moods := map[primitive.ObjectID]models.Mood{}
	if len(moodIDs) > 0 {
		list, err := s.store.GetMoodsByIDs(ctx, moodIDs)
		if err != nil {
			return Aggregation{}, nil, fmt.Errorf("load moods: %w", err)
		}
		for _, m := range list {
			// a mood pointing at another user's entry is not trusted
			if m.User == userID {
				moods[m.ID] = m
			}
		}
	}

	typeIDs := make([]primitive.ObjectID, 0, len(moods))
	for _, m := range moods {
		typeIDs = append(typeIDs, m.MoodType)
	}
	types, err := s.catalog.MoodTypesByID(ctx, typeIDs)
	if err != nil {
		return Aggregation{}, nil, err
	}

	return Aggregate(entries, moods, types), entries, nil
}

type MoodStats struct {
	Window       Window      `json:"window"`
	MoodCounts   []MoodCount `json:"moodCounts"`
	MostFrequent []MoodCount `json:"mostFrequent"`
	TotalMoods   int         `json:"totalMoods"`
}

func (s *StatsService) Stats(ctx context.Context, userID primitive.ObjectID, w Window) (*MoodStats, error) {
	agg, _, err := s.compute(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	return &MoodStats{Window: w, MoodCounts: agg.Counts, MostFrequent: agg.MostFrequent, TotalMoods: agg.Total}, nil
}

type MoodCalendar struct {
	Year     int                       `json:"year"`
	Month    int                       `json:"month"`
	Calendar map[string][]CalendarMood `json:"calendar"`
}

// Calendar groups the moods of the month starting at w.From by entry creation day.
func (s *StatsService) Calendar(ctx context.Context, userID primitive.ObjectID, w Window) (*MoodCalendar, error) {
	agg, _, err := s.compute(ctx, userID, w)
	if err != nil {
		return nil, err
	}
	return &MoodCalendar{Year: w.From.Year(), Month: int(w.From.Month()), Calendar: agg.Calendar}, nil
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type Insights struct {
	Window            Window          `json:"window"`
	TotalEntries      int             `json:"totalEntries"`
	EntriesWithMood   int             `json:"entriesWithMood"`
	AverageIntensity  float64         `json:"averageIntensity"`
	DominantMood      string          `json:"dominantMood"`
	MostFrequent      []MoodCount     `json:"mostFrequent"`
	MoodCounts        []MoodCount     `json:"moodCounts"`
	CategoryBreakdown []CategoryCount `json:"categoryBreakdown"`
	LongestStreak     int             `json:"longestStreak"`
}

func (s *StatsService) Insights(ctx context.Context, userID primitive.ObjectID, w Window) (*Insights, error) {
	agg, entries, err := s.compute(ctx, userID, w)
	if err != nil {
		return nil, err
	}

	out := &Insights{
		Window:            w,
		TotalEntries:      len(entries),
		EntriesWithMood:   agg.Total,
		DominantMood:      DominantMoodText(agg.MostFrequent),
		MostFrequent:      agg.MostFrequent,
		MoodCounts:        agg.Counts,
		CategoryBreakdown: categoryBreakdown(entries),
		LongestStreak:     LongestStreak(entries),
	}
	if agg.Total > 0 {
		out.AverageIntensity = math.Round(float64(agg.IntensitySum)/float64(agg.Total)*10) / 10
	}
	return out, nil
}

// DominantMoodText renders the most frequent mood(s) as a sentence.
func DominantMoodText(top []MoodCount) string {
	if len(top) == 0 {
		return "No moods recorded in this period"
	}
	times := "times"
	if top[0].Count == 1 {
		times = "time"
	}
	if len(top) == 1 {
		return fmt.Sprintf("Your most frequent mood was %s (%d %s)", top[0].MoodType.Name, top[0].Count, times)
	}

	names := make([]string, len(top))
	for i, c := range top {
		names[i] = c.MoodType.Name
	}
	joined := strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	return fmt.Sprintf("Your most frequent moods were %s (%d %s each)", joined, top[0].Count, times)
}

func categoryBreakdown(entries []models.JournalEntry) []CategoryCount {
	counts := map[string]int{}
	for _, e := range entries {
		counts[e.Category]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
