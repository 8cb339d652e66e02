package timesheet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BalanceBalls/timesheet-tracker/internal/frappe"
	"github.com/BalanceBalls/timesheet-tracker/internal/frappe/frappetest"
)

const employeeID = "E1"

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeAuth struct {
	session frappe.Session
	err     error
	calls   int
}

func (a *fakeAuth) Login(_ context.Context, _ frappe.Credentials) (frappe.Session, error) {
	a.calls++
	return a.session, a.err
}

type fixture struct {
	backend *frappetest.Backend
	clock   *fakeClock
	auth    *fakeAuth
	engine  *Engine
}

func newFixture(t *testing.T, now string) *fixture {
	t.Helper()

	b := frappetest.NewBackend()
	clock := &fakeClock{t: mustTime(t, now)}
	auth := &fakeAuth{session: frappe.Session{User: "e1@example.com", Employee: employeeID}}

	res := Resources{
		Projects:   b.Resource(frappe.DoctypeProject),
		Tasks:      b.Resource(frappe.DoctypeTask),
		Timesheets: b.Resource(frappe.DoctypeTimesheet),
		Details:    b.Resource(frappe.DoctypeTimesheetDetail),
	}

	e := New(res, auth,
		WithClock(clock.Now),
		WithLocation(time.UTC),
		WithEmployee(employeeID),
		WithRepairConcurrency(2),
	)

	return &fixture{backend: b, clock: clock, auth: auth, engine: e}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := frappe.ParseDatetime(s, time.UTC)
	require.NoError(t, err)
	return tm
}

func (f *fixture) project(id, title string) {
	f.backend.Insert(frappe.DoctypeProject, frappe.Record{
		"name":         id,
		"project_name": title,
		"status":       "Open",
	})
}

func (f *fixture) task(id, title, project string) {
	f.backend.Insert(frappe.DoctypeTask, frappe.Record{
		"name":    id,
		"subject": title,
		"status":  "Open",
		"project": project,
	})
}

func (f *fixture) timesheet(id, date, status string) {
	f.backend.Insert(frappe.DoctypeTimesheet, frappe.Record{
		"name":       id,
		"employee":   employeeID,
		"start_date": date,
		"status":     status,
	})
}

// detail stores a timesheet detail; an empty to leaves it open.
func (f *fixture) detail(id, parent, task, from, to string, hours float64) {
	rec := frappe.Record{
		"parent":    parent,
		"task":      task,
		"from_time": from,
		"to_time":   nil,
		"hours":     hours,
	}
	if id != "" {
		rec["name"] = id
	}
	if to != "" {
		rec["to_time"] = to
	}
	f.backend.Insert(frappe.DoctypeTimesheetDetail, rec)
}

func (f *fixture) openDetailsOf(parent, task string) []frappe.Record {
	var out []frappe.Record
	for _, r := range f.backend.Records(frappe.DoctypeTimesheetDetail) {
		if r.String("parent") == parent && r.String("task") == task && r.String("to_time") == "" {
			out = append(out, r)
		}
	}
	return out
}

func (f *fixture) fetchDay(t *testing.T, date string) *DayLog {
	t.Helper()
	day := mustTime(t, date)
	days, err := f.engine.FetchDays(context.Background(), day, day)
	require.NoError(t, err)
	require.Len(t, days, 1)
	return days[date]
}
