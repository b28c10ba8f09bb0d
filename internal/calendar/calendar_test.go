package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
)

var jakarta = time.FixedZone("WIB", 7*60*60)

func TestBuildMonthGridAlwaysHas42Cells(t *testing.T) {
	for year := 2024; year <= 2026; year++ {
		for m := time.January; m <= time.December; m++ {
			cells := BuildMonthGrid(year, m, jakarta, nil)
			require.Len(t, cells, GridCells, "%d-%02d", year, m)

			var current int
			for _, c := range cells {
				if c.IsCurrentMonth {
					current++
				}
			}
			assert.Equal(t, DaysIn(year, m), current, "%d-%02d", year, m)
		}
	}
}

func TestBuildMonthGridJuly2025(t *testing.T) {
	// 1 July 2025 is a Tuesday.
	cells := BuildMonthGrid(2025, time.July, jakarta, nil)

	assert.Equal(t, "2025-06-29", cells[0].Key)
	assert.Equal(t, "2025-06-30", cells[1].Key)
	assert.False(t, cells[0].IsCurrentMonth)
	assert.False(t, cells[1].IsCurrentMonth)

	assert.Equal(t, "2025-07-01", cells[2].Key)
	assert.True(t, cells[2].IsCurrentMonth)
	assert.Equal(t, 1, cells[2].Day)

	last := cells[GridCells-1]
	assert.Equal(t, "2025-08-09", last.Key)
	assert.False(t, last.IsCurrentMonth)
}

func TestBuildMonthGridSundayStart(t *testing.T) {
	// 1 June 2025 is a Sunday.
	cells := BuildMonthGrid(2025, time.June, jakarta, nil)

	assert.Equal(t, "2025-06-01", cells[7].Key)
	assert.True(t, cells[7].IsCurrentMonth)
	for i := 0; i < 7; i++ {
		assert.False(t, cells[i].IsCurrentMonth)
	}
	assert.Equal(t, "2025-05-25", cells[0].Key)
}

func TestBuildMonthGridBucketsByDateOnly(t *testing.T) {
	morning := model.Activity{ID: "a", StartsAt: time.Date(2025, 7, 15, 5, 0, 0, 0, jakarta)}
	evening := model.Activity{ID: "b", StartsAt: time.Date(2025, 7, 15, 19, 30, 0, 0, jakarta)}
	// 23:00 UTC on the 15th is already the 16th in WIB.
	late := model.Activity{ID: "c", StartsAt: time.Date(2025, 7, 15, 23, 0, 0, 0, time.UTC)}

	cells := BuildMonthGrid(2025, time.July, jakarta, []model.Activity{evening, late, morning})

	var on15, on16 []model.Activity
	for _, c := range cells {
		switch c.Key {
		case "2025-07-15":
			on15 = c.Activities
		case "2025-07-16":
			on16 = c.Activities
		}
	}
	require.Len(t, on15, 2)
	assert.Equal(t, "a", on15[0].ID)
	assert.Equal(t, "b", on15[1].ID)
	require.Len(t, on16, 1)
	assert.Equal(t, "c", on16[0].ID)
}

func TestIndexOn(t *testing.T) {
	acts := []model.Activity{
		{ID: "x", StartsAt: time.Date(2025, 3, 2, 9, 0, 0, 0, jakarta)},
		{ID: "y", StartsAt: time.Date(2025, 3, 3, 9, 0, 0, 0, jakarta)},
	}
	ix := NewIndex(acts, jakarta)

	got := ix.On(time.Date(2025, 3, 2, 23, 59, 0, 0, jakarta))
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].ID)
	assert.Empty(t, ix.On(time.Date(2025, 3, 4, 0, 0, 0, 0, jakarta)))
	assert.Equal(t, []string{"2025-03-02", "2025-03-03"}, ix.Keys())
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2025, time.February))
	assert.Equal(t, 31, DaysIn(2025, time.December))
}

func TestParseDateKey(t *testing.T) {
	d, err := ParseDateKey("2025-07-01", jakarta)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-01", DateKey(d, jakarta))

	_, err = ParseDateKey("01/07/2025", jakarta)
	assert.Error(t, err)
}
