package timesheet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BalanceBalls/timesheet-tracker/internal/frappe"
	"github.com/BalanceBalls/timesheet-tracker/internal/frappe/frappetest"
)

func TestFetchDays_RunningTaskWithClosedSlice(t *testing.T) {
	f := newFixture(t, "2024-01-10 10:15:00")
	f.project("P1", "Website")
	f.task("T1", "Landing page", "P1")
	f.timesheet("TS1", "2024-01-10", StatusDraft)
	f.detail("A", "TS1", "T1", "2024-01-10 09:00:00", "2024-01-10 09:30:00", 0.5)
	f.detail("B", "TS1", "T1", "2024-01-10 10:00:00", "", 0)

	day := f.fetchDay(t, "2024-01-10")

	assert.Equal(t, "TS1", day.ID)
	assert.False(t, day.Locked)
	require.Len(t, day.TaskLogs, 1)

	tl := day.TaskLogs[0]
	assert.Equal(t, "T1", tl.TaskID)
	assert.Equal(t, "Landing page", tl.Title)
	assert.Equal(t, "Website", tl.Task.Project.Title)
	assert.Equal(t, 30*time.Minute, tl.Accumulated)
	assert.Equal(t, 30.0, tl.Accumulated.Minutes())
	assert.True(t, tl.IsActive)
	assert.Equal(t, mustTime(t, "2024-01-10 10:00:00"), tl.StartTime)
	assert.Equal(t, "B", tl.DetailID)
	assert.Zero(t, tl.Duplicates)

	// 30 closed minutes plus 15 live ones.
	assert.Equal(t, 45*time.Minute, tl.Duration(f.clock.Now()))

	running, ok := f.engine.Timer()
	require.True(t, ok)
	assert.Equal(t, "B", running.DetailID)
}

func TestFoldTaskLog_ClosedDetails(t *testing.T) {
	tests := []struct {
		name  string
		hours []float64
		want  time.Duration
	}{
		{"single", []float64{0.5}, 30 * time.Minute},
		{"several", []float64{0.25, 1, 2.5}, 225 * time.Minute},
		{"fractional", []float64{0.1, 0.2}, 18 * time.Minute},
		{"zero hours", []float64{0, 0}, 0},
	}

	task := &Task{ID: "T1", Title: "T1", Project: UnknownProject}
	base := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var details []TimesheetDetail
			for i, h := range tt.hours {
				from := base.Add(time.Duration(i) * time.Hour)
				details = append(details, TimesheetDetail{
					ID: "D", Parent: "TS1", Task: "T1",
					From: from, To: from.Add(hoursToDuration(h)), Hours: h,
				})
			}

			tl := foldTaskLog(task, "TS1", details)
			assert.Equal(t, tt.want, tl.Accumulated)
			assert.False(t, tl.IsActive)
			assert.True(t, tl.StartTime.IsZero())
		})
	}
}

func TestFoldTaskLog_OpenDetailExcludedFromAccumulated(t *testing.T) {
	from := time.Date(2024, 1, 10, 11, 0, 0, 0, time.UTC)
	details := []TimesheetDetail{
		{ID: "D1", Task: "T1", From: from.Add(-2 * time.Hour), To: from.Add(-time.Hour), Hours: 1},
		{ID: "D2", Task: "T1", From: from},
	}

	tl := foldTaskLog(&Task{ID: "T1", Project: UnknownProject}, "TS1", details)
	assert.True(t, tl.IsActive)
	assert.Equal(t, from, tl.StartTime)
	assert.Equal(t, time.Hour, tl.Accumulated)
}

// More than one open detail should have been removed by the repair; folding
// still has to cope and keeps the first one seen.
func TestFoldTaskLog_FirstOpenDetailWins(t *testing.T) {
	first := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	details := []TimesheetDetail{
		{ID: "D1", Task: "T1", From: first},
		{ID: "D2", Task: "T1", From: first.Add(time.Hour)},
		{ID: "D3", Task: "T1", From: first.Add(2 * time.Hour)},
	}

	tl := foldTaskLog(&Task{ID: "T1", Project: UnknownProject}, "TS1", details)
	assert.True(t, tl.IsActive)
	assert.Equal(t, "D1", tl.DetailID)
	assert.Equal(t, first, tl.StartTime)
	assert.Equal(t, 2, tl.Duplicates)
}

func TestFetchDays_OneEntryPerDay(t *testing.T) {
	f := newFixture(t, "2024-01-14 18:00:00")
	f.task("T1", "Docs", "")
	f.timesheet("TS1", "2024-01-09", StatusDraft)
	f.detail("", "TS1", "T1", "2024-01-09 09:00:00", "2024-01-09 10:00:00", 1)

	start := mustTime(t, "2024-01-08 13:45:00")
	end := mustTime(t, "2024-01-14 00:00:00")
	days, err := f.engine.FetchDays(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, days, 7)

	for _, key := range []string{"2024-01-08", "2024-01-10", "2024-01-11", "2024-01-12", "2024-01-13", "2024-01-14"} {
		d, ok := days[key]
		require.True(t, ok, key)
		assert.Empty(t, d.ID, key)
		assert.False(t, d.Locked, key)
		assert.Empty(t, d.TaskLogs, key)
		assert.Equal(t, key, DateKey(d.Date))
	}

	require.Len(t, days["2024-01-09"].TaskLogs, 1)
	assert.Equal(t, time.Hour, days["2024-01-09"].TaskLogs[0].Accumulated)

	sorted := SortedDays(days)
	assert.Equal(t, "2024-01-08", DateKey(sorted[0].Date))
	assert.Equal(t, "2024-01-14", DateKey(sorted[6].Date))
}

func TestFetchDays_SubmittedTimesheetIsLocked(t *testing.T) {
	f := newFixture(t, "2024-01-10 12:00:00")
	f.task("T1", "Docs", "")
	f.timesheet("TS1", "2024-01-10", StatusSubmitted)
	f.detail("", "TS1", "T1", "2024-01-10 09:00:00", "2024-01-10 10:00:00", 1)

	day := f.fetchDay(t, "2024-01-10")
	assert.True(t, day.Locked)
	assert.Len(t, day.TaskLogs, 1)
}

func TestFetchDays_DetailsOfOtherTimesheetsIgnored(t *testing.T) {
	f := newFixture(t, "2024-01-10 12:00:00")
	f.task("T1", "Docs", "")
	f.timesheet("TS1", "2024-01-10", StatusDraft)
	f.detail("", "TS1", "T1", "2024-01-10 09:00:00", "2024-01-10 10:00:00", 1)
	// Another employee's sheet for the same day.
	f.backend.Insert(frappe.DoctypeTimesheet, frappe.Record{
		"name": "TS-OTHER", "employee": "E2", "start_date": "2024-01-10", "status": StatusDraft,
	})
	f.detail("", "TS-OTHER", "T1", "2024-01-10 09:00:00", "2024-01-10 12:00:00", 3)

	day := f.fetchDay(t, "2024-01-10")
	require.Len(t, day.TaskLogs, 1)
	assert.Equal(t, time.Hour, day.TaskLogs[0].Accumulated)
}

func TestFetchDays_UnknownTaskGetsPlaceholder(t *testing.T) {
	f := newFixture(t, "2024-01-10 12:00:00")
	f.timesheet("TS1", "2024-01-10", StatusDraft)
	f.detail("", "TS1", "T-GONE", "2024-01-10 09:00:00", "2024-01-10 10:00:00", 1)

	day := f.fetchDay(t, "2024-01-10")
	require.Len(t, day.TaskLogs, 1)
	assert.Equal(t, "T-GONE", day.TaskLogs[0].Title)
	assert.Same(t, UnknownProject, day.TaskLogs[0].Task.Project)
}

func TestFetchDays_ReadFailureAbortsEverything(t *testing.T) {
	for _, doctype := range []string{
		frappe.DoctypeProject, frappe.DoctypeTask, frappe.DoctypeTimesheet, frappe.DoctypeTimesheetDetail,
	} {
		t.Run(doctype, func(t *testing.T) {
			f := newFixture(t, "2024-01-10 12:00:00")
			f.timesheet("TS1", "2024-01-10", StatusDraft)
			f.backend.FailOn(frappetest.OpRead, doctype, "", &frappe.Error{Kind: frappe.ErrRead, Doctype: doctype, Status: 500})

			day := mustTime(t, "2024-01-10")
			days, err := f.engine.FetchDays(context.Background(), day, day.AddDate(0, 0, 2))
			require.Error(t, err)
			assert.True(t, errors.Is(err, frappe.ErrRead))
			assert.Nil(t, days)
		})
	}
}

func TestFetchDays_RejectsReversedRange(t *testing.T) {
	f := newFixture(t, "2024-01-10 12:00:00")
	start := mustTime(t, "2024-01-10")

	_, err := f.engine.FetchDays(context.Background(), start, start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestFetchDays_RequiresLogin(t *testing.T) {
	f := newFixture(t, "2024-01-10 12:00:00")
	f.engine.session.Employee = ""

	now := f.clock.Now()
	_, err := f.engine.FetchDays(context.Background(), now, now)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestSortTaskLogs(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 1, 10, h, 0, 0, 0, time.UTC) }

	logs := []*TaskLog{
		{TaskID: "idle-late", firstFrom: at(15)},
		{TaskID: "active-late", StartTime: at(14), IsActive: true},
		{TaskID: "idle-b", firstFrom: at(8)},
		{TaskID: "active-early", StartTime: at(9), IsActive: true},
		{TaskID: "idle-a", firstFrom: at(8)},
	}
	sortTaskLogs(logs)

	var got []string
	for _, tl := range logs {
		got = append(got, tl.TaskID)
	}
	assert.Equal(t, []string{"active-early", "active-late", "idle-a", "idle-b", "idle-late"}, got)
}

func TestDays(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	start := time.Date(2024, 2, 27, 23, 30, 0, 0, loc)
	end := time.Date(2024, 3, 2, 0, 1, 0, 0, loc)

	days := Days(start, end, loc)

	var keys []string
	for _, d := range days {
		keys = append(keys, DateKey(d))
		assert.Zero(t, d.Hour())
	}
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}, keys)

	assert.Len(t, Days(end, end, loc), 1)
	assert.Empty(t, Days(end, start, loc))
}

func TestDays_AcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("no tzdata available")
	}

	start := time.Date(2024, 3, 30, 12, 0, 0, 0, loc)
	end := time.Date(2024, 4, 1, 12, 0, 0, 0, loc)

	days := Days(start, end, loc)
	require.Len(t, days, 3)
	assert.Equal(t, "2024-03-31", DateKey(days[1]))
	assert.Equal(t, "2024-04-01", DateKey(days[2]))
}

func TestFetchDays_IncludesLastFractionOfTheDay(t *testing.T) {
	f := newFixture(t, "2024-01-11 09:00:00")
	f.task("T1", "Docs", "")
	f.timesheet("TS1", "2024-01-10", StatusDraft)
	f.detail("", "TS1", "T1", "2024-01-10 23:59:59.500000", "2024-01-11 00:14:59.500000", 0.25)

	day := f.fetchDay(t, "2024-01-10")
	tl := day.TaskLog("T1")
	require.NotNil(t, tl)
	assert.Equal(t, 15*time.Minute, tl.Accumulated)
}
