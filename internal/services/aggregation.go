package services

import (
	"sort"
	"time"

	"github.com/bsrBe/Vent/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CalendarDayLayout keys the mood calendar.
const CalendarDayLayout = "2006-01-02"

type MoodCount struct {
	MoodType models.MoodType `json:"moodType"`
	Count    int             `json:"count"`
}

// CalendarMood is one mood shown on a calendar day, with the entry it was recorded on.
type CalendarMood struct {
	EntryID    primitive.ObjectID `json:"entryId"`
	EntryTitle string             `json:"entryTitle"`
	MoodID     primitive.ObjectID `json:"moodId"`
	MoodType   models.MoodType    `json:"moodType"`
	Intensity  int                `json:"intensity"`
	Time       string             `json:"time,omitempty"`
	Notes      string             `json:"notes,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// Aggregation is the shared read model behind stats, calendar and insights.
type Aggregation struct {
	Counts       []MoodCount               `json:"moodCounts"`
	MostFrequent []MoodCount               `json:"mostFrequent"`
	Total        int                       `json:"totalMoods"`
	Calendar     map[string][]CalendarMood `json:"calendar"`
	// IntensitySum feeds the insights average.
	IntensitySum int `json:"-"`
}

// Aggregate joins entries to their moods and mood types. Entries without a mood, or whose mood or
// mood type does not resolve, are skipped. Calendar days come from the entry's creation time in UTC.
func Aggregate(entries []models.JournalEntry, moods map[primitive.ObjectID]models.Mood, types map[primitive.ObjectID]models.MoodType) Aggregation {
	agg := Aggregation{
		Counts:       []MoodCount{},
		MostFrequent: []MoodCount{},
		Calendar:     map[string][]CalendarMood{},
	}

	counts := map[primitive.ObjectID]int{}
	for _, e := range entries {
		if e.Mood == nil {
			continue
		}
		mood, ok := moods[*e.Mood]
		if !ok {
			continue
		}
		mt, ok := types[mood.MoodType]
		if !ok {
			continue
		}

		counts[mt.ID]++
		agg.Total++
		agg.IntensitySum += mood.Intensity

		day := e.CreatedAt.UTC().Format(CalendarDayLayout)
		agg.Calendar[day] = append(agg.Calendar[day], CalendarMood{
			EntryID:    e.ID,
			EntryTitle: e.Title,
			MoodID:     mood.ID,
			MoodType:   mt,
			Intensity:  mood.Intensity,
			Time:       mood.Time,
			Notes:      mood.Notes,
			CreatedAt:  e.CreatedAt,
		})
	}

	for id, n := range counts {
		agg.Counts = append(agg.Counts, MoodCount{MoodType: types[id], Count: n})
	}
	sort.Slice(agg.Counts, func(i, j int) bool {
		if agg.Counts[i].Count != agg.Counts[j].Count {
			return agg.Counts[i].Count > agg.Counts[j].Count
		}
		return agg.Counts[i].MoodType.Name < agg.Counts[j].MoodType.Name
	})

	for _, c := range agg.Counts {
		if c.Count != agg.Counts[0].Count {
			break
		}
		agg.MostFrequent = append(agg.MostFrequent, c)
	}

	for day := range agg.Calendar {
		list := agg.Calendar[day]
		sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	}
	return agg
}

// LongestStreak returns the longest run of consecutive UTC days with at least one entry.
func LongestStreak(entries []models.JournalEntry) int {
	days := map[time.Time]bool{}
	for _, e := range entries {
		days[startOfDay(e.CreatedAt.UTC())] = true
	}

	best := 0
	for day := range days {
		if days[day.AddDate(0, 0, -1)] {
			continue
		}
		run := 1
		for next := day.AddDate(0, 0, 1); days[next]; next = next.AddDate(0, 0, 1) {
			run++
		}
		if run > best {
			best = run
		}
	}
	return best
}
