package timesheet

import (
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const dateKeyLayout = "2006-01-02"

// DateKey is the map key of a day.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Days returns midnight of every calendar day from start to end inclusive, in
// loc. The result is empty when end falls on a day before start.
func Days(start, end time.Time, loc *time.Location) []time.Time {
	first := startOfDay(start, loc)
	last := startOfDay(end, loc)
	if last.Before(first) {
		return nil
	}

	var days []time.Time
	y, m, d := first.Date()
	for i := 0; ; i++ {
		day := time.Date(y, m, d+i, 0, 0, 0, 0, loc)
		if day.After(last) {
			break
		}
		days = append(days, day)
	}
	return days
}

// SortedDays returns the day logs ordered by date.
func SortedDays(days map[string]*DayLog) []*DayLog {
	keys := maps.Keys(days)
	slices.Sort(keys)

	out := make([]*DayLog, 0, len(keys))
	for _, k := range keys {
		out = append(out, days[k])
	}
	return out
}
