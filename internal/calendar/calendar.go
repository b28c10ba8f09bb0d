// Package calendar buckets activities into calendar days and lays out the
// fixed six-week month grid used by the portal's calendar view.
//
// Weeks start on Sunday: weekday numbering follows time.Weekday, so Sunday
// is 0 and Saturday is 6.
package calendar

import (
	"sort"
	"time"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

// GridCells is the number of cells in a month grid: six rows of seven days.
const GridCells = 42

// DateLayout is the canonical date-only key format.
const DateLayout = "2006-01-02"

// Cell is one day of a month grid.
type Cell struct {
	Date           time.Time        `json:"date"`
	Key            string           `json:"key"`
	Day            int              `json:"day"`
	IsCurrentMonth bool             `json:"is_current_month"`
	Activities     []model.Activity `json:"activities"`
}

// DateKey returns the date-only key of t as seen in loc. A nil loc keeps t's
// own location.
func DateKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DateLayout)
}

// ParseDateKey parses a "YYYY-MM-DD" key as midnight in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, key, loc)
}

// DaysIn returns the number of days in month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month normalises to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// leadingDays is how many days of the previous month open the grid. A month
// that starts on Sunday gets a full leading week, so its 1st always sits at
// index 7 and the first row always shows the previous month.
func leadingDays(first time.Time) int {
	wd := int(first.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Index answers "which activities fall on date D". Dates are compared by
// calendar day only; time of day is ignored.
type Index struct {
	loc   *time.Location
	byKey map[string][]model.Activity
}

// NewIndex buckets activities by the date key of their start time.
func NewIndex(activities []model.Activity, loc *time.Location) *Index {
	if loc == nil {
		loc = time.UTC
	}
	ix := &Index{loc: loc, byKey: make(map[string][]model.Activity)}
	for _, a := range activities {
		k := DateKey(a.StartsAt, loc)
		ix.byKey[k] = append(ix.byKey[k], a)
	}
	for _, bucket := range ix.byKey {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].StartsAt.Before(bucket[j].StartsAt)
		})
	}
	return ix
}

// On returns the activities whose start falls on the same calendar day as t.
func (ix *Index) On(t time.Time) []model.Activity {
	return ix.OnKey(DateKey(t, ix.loc))
}

// OnKey returns the activities bucketed under key.
func (ix *Index) OnKey(key string) []model.Activity {
	bucket := ix.byKey[key]
	out := make([]model.Activity, len(bucket))
	copy(out, bucket)
	return out
}

// Keys returns the populated date keys in ascending order.
func (ix *Index) Keys() []string {
	keys := make([]string, 0, len(ix.byKey))
	for k := range ix.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildMonthGrid lays out month as exactly GridCells cells: trailing days of
// the previous month, the days of month, then leading days of the next month.
func BuildMonthGrid(year int, month time.Month, loc *time.Location, activities []model.Activity) []Cell {
	if loc == nil {
		loc = time.UTC
	}
	ix := NewIndex(activities, loc)

	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	start := first.AddDate(0, 0, -leadingDays(first))

	cells := make([]Cell, GridCells)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		key := DateKey(d, loc)
		cells[i] = Cell{
			Date:           d,
			Key:            key,
			Day:            d.Day(),
			IsCurrentMonth: d.Year() == year && d.Month() == month,
			Activities:     ix.OnKey(key),
		}
	}
	return cells
}
