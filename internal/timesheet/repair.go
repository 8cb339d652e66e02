package timesheet

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/BalanceBalls/timesheet-tracker/internal/frappe"
	"github.com/BalanceBalls/timesheet-tracker/internal/logger"
)

// RepairResult lists what a consistency repair removed and what it could not.
type RepairResult struct {
	Checked int
	Deleted []string
	Failed  map[string]error
}

// ValidateTimesheet scans every draft timesheet of the employee for tasks
// with more than one open detail and deletes all but the oldest of them.
//
// Deletions are best effort: a failed deletion is logged and reported in the
// result, the others still go through. Read failures abort the repair.
func (e *Engine) ValidateTimesheet(ctx context.Context) (RepairResult, error) {
	ctx, log := logger.WithOperation(ctx, "validate_timesheet")

	employee, err := e.employee()
	if err != nil {
		return RepairResult{}, err
	}

	recs, err := e.res.Timesheets.Read(ctx, frappe.Query{
		Fields: timesheetFields,
		Filters: []frappe.Filter{
			{Field: "employee", Op: frappe.OpEq, Value: employee},
			{Field: "status", Op: frappe.OpEq, Value: StatusDraft},
		},
		OrderBy: "start_date asc",
	})
	if err != nil {
		return RepairResult{}, err
	}

	timesheets, err := decodeTimesheets(recs, e.loc)
	if err != nil {
		return RepairResult{}, fmt.Errorf("%w: %w", frappe.ErrRead, err)
	}

	perSheet := make([][]TimesheetDetail, len(timesheets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.repairConcurrency)
	for i, ts := range timesheets {
		i, ts := i, ts
		g.Go(func() error {
			recs, err := e.res.Details.Read(gctx, frappe.Query{
				Fields:  detailFields,
				Filters: []frappe.Filter{{Field: "parent", Op: frappe.OpEq, Value: ts.ID}},
				OrderBy: "from_time asc",
			})
			if err != nil {
				return err
			}
			details, err := decodeDetails(recs, e.loc)
			if err != nil {
				return fmt.Errorf("%w: %w", frappe.ErrRead, err)
			}
			perSheet[i] = details
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RepairResult{}, err
	}

	var extras []TimesheetDetail
	for _, details := range perSheet {
		extras = append(extras, duplicateOpenDetails(details)...)
	}

	result := RepairResult{
		Checked: len(timesheets),
		Failed:  map[string]error{},
	}
	if len(extras) == 0 {
		return result, nil
	}

	var (
		mu sync.Mutex
		dg errgroup.Group
	)
	dg.SetLimit(e.repairConcurrency)
	for _, d := range extras {
		d := d
		dg.Go(func() error {
			err := e.res.Details.Delete(ctx, d.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.WarnContext(ctx, "could not delete duplicate open detail",
					append(logAttrsForDetail(d), "error", err)...)
				result.Failed[d.ID] = err
				return nil
			}
			result.Deleted = append(result.Deleted, d.ID)
			return nil
		})
	}
	_ = dg.Wait()

	slices.Sort(result.Deleted)
	if slices.Contains(result.Deleted, e.timerDetail) {
		e.clearTimer()
	}

	log.InfoContext(ctx, "duplicate open details removed",
		"deleted", len(result.Deleted), "failed", len(result.Failed))
	return result, nil
}

// duplicateOpenDetails returns, per task, every open detail after the first
// one in the given order.
func duplicateOpenDetails(details []TimesheetDetail) []TimesheetDetail {
	seen := map[string]bool{}
	var extras []TimesheetDetail
	for _, d := range details {
		if !d.Open() {
			continue
		}
		if seen[d.Task] {
			extras = append(extras, d)
			continue
		}
		seen[d.Task] = true
	}
	return extras
}
