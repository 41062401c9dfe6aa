package services

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bsrBe/Vent/internal/apperrors"
	"github.com/bsrBe/Vent/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	MaxPage          = 1_000_000
	dateLayout       = "2006-01-02"
	maxSearchLength  = 200
)

// Query parameter names understood by the entry filter.
const (
	ParamCategory    = "category"
	ParamFrom        = "from"
	ParamTo          = "to"
	ParamHasMood     = "hasMood"
	ParamMoodType    = "moodType"
	ParamQuery       = "q"
	ParamSort        = "sort"
	ParamPage        = "page"
	ParamLimit       = "limit"
	ParamWithDeleted = "withDeleted"
	ParamOnlyDeleted = "onlyDeleted"
	ParamFormat      = "format"
)

// Parameter sets accepted by each listing endpoint.
var (
	EntryListParams   = []string{ParamCategory, ParamFrom, ParamTo, ParamHasMood, ParamMoodType, ParamQuery, ParamSort, ParamPage, ParamLimit, ParamWithDeleted, ParamOnlyDeleted}
	SearchParams      = []string{ParamCategory, ParamFrom, ParamTo, ParamHasMood, ParamMoodType, ParamQuery, ParamSort, ParamPage, ParamLimit}
	EntryExportParams = []string{ParamFormat, ParamCategory, ParamFrom, ParamTo, ParamHasMood, ParamMoodType, ParamQuery, ParamSort}
	MoodListParams    = []string{ParamFrom, ParamTo, ParamMoodType, ParamPage, ParamLimit}
	MoodExportParams  = []string{ParamFormat, ParamFrom, ParamTo, ParamMoodType}
)

var sortFields = map[string]bool{"createdAt": true, "updatedAt": true, "title": true}

// EntryFilter is the parsed, whitelisted form of an entry listing request.
type EntryFilter struct {
	Category  string
	From      *time.Time
	To        *time.Time
	HasMood   *bool
	MoodType  *primitive.ObjectID
	Text      string
	Deleted   repository.DeletedScope
	SortField string
	SortDesc  bool
	Page      int
	Limit     int
}

// HasCriteria reports whether anything narrows the result set.
func (f EntryFilter) HasCriteria() bool {
	return f.Text != "" || f.Category != "" || f.From != nil || f.To != nil || f.HasMood != nil || f.MoodType != nil
}

// Pagination is the pagination block of a list response.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return p
}

// queryReader reads whitelisted single-valued parameters and collects field errors.
type queryReader struct {
	values  url.Values
	details map[string]string
}

func newQueryReader(values url.Values, allowed []string) *queryReader {
	r := &queryReader{values: values, details: map[string]string{}}

	known := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		known[k] = true
	}
	for key, vals := range values {
		switch {
		case strings.HasPrefix(key, "$") || strings.ContainsAny(key, "[]."):
			r.details[key] = "Query operators are not supported"
		case !known[key]:
			r.details[key] = "Unknown query parameter"
		case len(vals) > 1:
			r.details[key] = "Must be given at most once"
		default:
			for _, v := range vals {
				if strings.HasPrefix(strings.TrimSpace(v), "$") {
					r.details[key] = "Query operators are not supported"
				}
			}
		}
	}
	return r
}

func (r *queryReader) get(key string) string {
	if _, bad := r.details[key]; bad {
		return ""
	}
	return strings.TrimSpace(r.values.Get(key))
}

func (r *queryReader) date(key string, endOfDay bool) *time.Time {
	raw := r.get(key)
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		r.details[key] = "Must be a date in yyyy-MM-dd format"
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}

func (r *queryReader) boolean(key string) *bool {
	raw := r.get(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		r.details[key] = "Must be true or false"
		return nil
	}
	return &b
}

// flag is boolean, except that a bare ?key with no value means true.
func (r *queryReader) flag(key string) *bool {
	if _, present := r.values[key]; present && r.get(key) == "" {
		if _, bad := r.details[key]; !bad {
			on := true
			return &on
		}
	}
	return r.boolean(key)
}

func (r *queryReader) integer(key string, def, min, max int) int {
	raw := r.get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || (max > 0 && n > max) {
		if max > 0 {
			r.details[key] = "Must be a number between " + strconv.Itoa(min) + " and " + strconv.Itoa(max)
		} else {
			r.details[key] = "Must be a number of at least " + strconv.Itoa(min)
		}
		return def
	}
	return n
}

func (r *queryReader) objectID(key string) *primitive.ObjectID {
	raw := r.get(key)
	if raw == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		r.details[key] = "Must be a valid id"
		return nil
	}
	return &id
}

func (r *queryReader) err() error {
	if len(r.details) == 0 {
		return nil
	}
	return apperrors.Validation("Invalid query parameters").WithDetails(r.details)
}

// window reads from/to and checks their order.
func (r *queryReader) window() (*time.Time, *time.Time) {
	from := r.date(ParamFrom, false)
	to := r.date(ParamTo, true)
	if from != nil && to != nil && from.After(*to) {
		r.details[ParamTo] = "Must not be before from"
	}
	return from, to
}

// ParseEntryFilter turns query parameters into an EntryFilter. Parameters outside allowed,
// operator syntax and malformed values fail with a ValidationError.
func ParseEntryFilter(values url.Values, allowed []string) (EntryFilter, error) {
	r := newQueryReader(values, allowed)

	f := EntryFilter{
		Category:  strings.ToUpper(r.get(ParamCategory)),
		HasMood:   r.boolean(ParamHasMood),
		MoodType:  r.objectID(ParamMoodType),
		Text:      r.get(ParamQuery),
		SortField: "createdAt",
		SortDesc:  true,
		Page:      r.integer(ParamPage, 1, 1, MaxPage),
		Limit:     r.integer(ParamLimit, DefaultPageLimit, 1, MaxPageLimit),
	}
	f.From, f.To = r.window()

	if len(f.Text) > maxSearchLength {
		r.details[ParamQuery] = "Must be at most " + strconv.Itoa(maxSearchLength) + " characters long"
	}

	if raw := r.get(ParamSort); raw != "" {
		field := strings.TrimPrefix(raw, "-")
		if !sortFields[field] {
			r.details[ParamSort] = "Must be one of: createdAt, updatedAt, title (prefix - for descending)"
		} else {
			f.SortField = field
			f.SortDesc = strings.HasPrefix(raw, "-")
		}
	}

	withDeleted := r.flag(ParamWithDeleted)
	onlyDeleted := r.flag(ParamOnlyDeleted)
	switch {
	case onlyDeleted != nil && *onlyDeleted:
		f.Deleted = repository.OnlyDeleted
	case withDeleted != nil && *withDeleted:
		f.Deleted = repository.IncludeDeleted
	}

	return f, r.err()
}

// MoodFilter is the parsed form of a mood listing request.
type MoodFilter struct {
	From     *time.Time
	To       *time.Time
	MoodType *primitive.ObjectID
	Page     int
	Limit    int
}

func ParseMoodFilter(values url.Values, allowed []string) (MoodFilter, error) {
	r := newQueryReader(values, allowed)
	f := MoodFilter{
		MoodType: r.objectID(ParamMoodType),
		Page:     r.integer(ParamPage, 1, 1, MaxPage),
		Limit:    r.integer(ParamLimit, DefaultPageLimit, 1, MaxPageLimit),
	}
	f.From, f.To = r.window()
	return f, r.err()
}

// Window is an inclusive time range.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ParseWindow reads from/to, defaulting to the trailing month ending now.
func ParseWindow(values url.Values, now time.Time) (Window, error) {
	r := newQueryReader(values, []string{ParamFrom, ParamTo})
	from, to := r.window()
	if err := r.err(); err != nil {
		return Window{}, err
	}

	now = now.UTC()
	w := Window{To: now}
	if to != nil {
		w.To = *to
	}
	if from != nil {
		w.From = *from
	} else {
		w.From = startOfDay(w.To).AddDate(0, -1, 0)
	}
	if w.From.After(w.To) {
		return Window{}, apperrors.Validation("Invalid query parameters").WithDetails(map[string]string{ParamFrom: "Must not be after to"})
	}
	return w, nil
}

// ParseMonth reads year/month, defaulting to the month containing now, and returns that month's window.
func ParseMonth(values url.Values, now time.Time) (Window, error) {
	r := newQueryReader(values, []string{"year", "month"})
	now = now.UTC()
	year := r.integer("year", now.Year(), 1970, 9999)
	month := r.integer("month", int(now.Month()), 1, 12)
	if err := r.err(); err != nil {
		return Window{}, err
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Window{From: start, To: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
