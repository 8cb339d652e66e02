package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BalanceBalls/timesheet-tracker/internal/report"
	"github.com/BalanceBalls/timesheet-tracker/internal/storage"
)

func newStorage(t *testing.T) *SqliteStorage {
	t.Helper()

	s, err := New(context.Background(), filepath.Join(t.TempDir(), "reports.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Up(context.Background()))
	return s
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestSaveAndLoadReports(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	_, err := s.SaveReport(ctx, report.Report{
		Employee: "E1", Date: day(10), TimesheetID: "TS1", Locked: true,
		Rows: []report.ReportRow{
			{TaskID: "T2", Project: "Website", Title: "Footer", TimeSpent: 0.75},
			{TaskID: "T1", Project: "Website", Title: "Landing", Active: true, TimeSpent: 1.5},
		},
	})
	require.NoError(t, err)

	_, err = s.SaveReport(ctx, report.Report{Employee: "E1", Date: day(11)})
	require.NoError(t, err)

	_, err = s.SaveReport(ctx, report.Report{
		Employee: "E2", Date: day(10),
		Rows:     []report.ReportRow{{TaskID: "T1", TimeSpent: 8}},
	})
	require.NoError(t, err)

	reports, err := s.Reports(ctx, "E1", day(9), day(12))
	require.NoError(t, err)
	require.Len(t, reports, 2)

	first := reports[0]
	assert.Equal(t, day(10), first.Date)
	assert.Equal(t, "TS1", first.TimesheetID)
	assert.True(t, first.Locked)
	require.Len(t, first.Rows, 2)
	assert.Equal(t, "T2", first.Rows[0].TaskID, "rows keep their order")
	assert.True(t, first.Rows[1].Active)
	assert.Equal(t, 1.5, first.Rows[1].TimeSpent)

	assert.Equal(t, day(11), reports[1].Date)
	assert.Empty(t, reports[1].Rows)
}

func TestSaveReport_ReplacesSameDay(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	_, err := s.SaveReport(ctx, report.Report{
		Employee: "E1", Date: day(10),
		Rows:     []report.ReportRow{{TaskID: "T1", TimeSpent: 1}},
	})
	require.NoError(t, err)

	id, err := s.SaveReport(ctx, report.Report{
		Employee: "E1", Date: day(10),
		Rows:     []report.ReportRow{{TaskID: "T1", TimeSpent: 2}, {TaskID: "T3", TimeSpent: 0.5}},
	})
	require.NoError(t, err)

	r, err := s.Report(ctx, "E1", day(10))
	require.NoError(t, err)
	assert.Equal(t, id, r.Id)
	require.Len(t, r.Rows, 2)
	assert.Equal(t, 2.0, r.Rows[0].TimeSpent)
	assert.Equal(t, 2.5, r.Total())
}

func TestReport_NotFound(t *testing.T) {
	s := newStorage(t)

	_, err := s.Report(context.Background(), "E1", day(10))
	assert.ErrorIs(t, err, storage.ErrReportNotFound)
}
