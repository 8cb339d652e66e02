package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BalanceBalls/timesheet-tracker/internal/report"
	"github.com/BalanceBalls/timesheet-tracker/internal/storage"
)

// Runs against a real server only: TEST_POSTGRES_DSN=postgres://... go test ./...
func newStorage(t *testing.T) *PostgresStorage {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN is not set")
	}

	s, err := New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Up(context.Background()))
	return s
}

func TestSaveReport_ReplacesSameDay(t *testing.T) {
	ctx := context.Background()
	s := newStorage(t)

	employee := "E-" + uuid.NewString()
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	_, err := s.SaveReport(ctx, report.Report{
		Employee: employee, Date: date,
		Rows:     []report.ReportRow{{TaskID: "T1", TimeSpent: 1}},
	})
	require.NoError(t, err)

	id, err := s.SaveReport(ctx, report.Report{
		Employee: employee, Date: date, TimesheetID: "TS1", Locked: true,
		Rows: []report.ReportRow{
			{TaskID: "T1", Title: "Landing", TimeSpent: 2},
			{TaskID: "T2", Title: "Docs", Active: true, TimeSpent: 0.25},
		},
	})
	require.NoError(t, err)

	r, err := s.Report(ctx, employee, date)
	require.NoError(t, err)
	assert.Equal(t, id, r.Id)
	assert.True(t, r.Locked)
	require.Len(t, r.Rows, 2)
	assert.Equal(t, "Landing", r.Rows[0].Title)
	assert.True(t, r.Rows[1].Active)

	_, err = s.Report(ctx, employee, date.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, storage.ErrReportNotFound)
}
