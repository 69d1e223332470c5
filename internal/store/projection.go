package store

import (
	"iter"
	"slices"
	"time"

	"github.com/Jamen1147/socialApp/internal/domain"
)

// DayGroup is one calendar-day bucket of the date projection.
type DayGroup struct {
	Day        time.Time
	Activities []domain.Activity
}

// GroupByDate derives the date-bucketed listing from a sequence of activities.
// Entries are stable-sorted ascending by date, then consecutive entries that
// share a calendar day (in the activity's own location) form one bucket.
// The derivation is pure: identical input always yields identical output.
func GroupByDate(activities iter.Seq[domain.Activity]) []DayGroup {
	sorted := slices.Collect(activities)
	slices.SortStableFunc(sorted, func(a, b domain.Activity) int {
		return a.Date.Compare(b.Date)
	})

	var groups []DayGroup
	for _, activity := range sorted {
		day := truncateToDay(activity.Date)
		if n := len(groups); n > 0 && groups[n-1].Day.Equal(day) {
			groups[n-1].Activities = append(groups[n-1].Activities, activity)
			continue
		}
		groups = append(groups, DayGroup{Day: day, Activities: []domain.Activity{activity}})
	}
	return groups
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
