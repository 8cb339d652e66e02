package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BalanceBalls/timesheet-tracker/internal/generator"
	"github.com/BalanceBalls/timesheet-tracker/internal/report"
	"github.com/BalanceBalls/timesheet-tracker/internal/timesheet"
)

type reportView struct {
	File    string          `json:"file"`
	Reports []report.Report `json:"reports"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	r := &rangeOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Archive daily reports and render them to HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				return runReport(ctx, app, r, formatter(cmd, rootOpts))
			})
		},
	}
	r.register(cmd)

	return cmd
}

func runReport(ctx context.Context, app *App, r *rangeOptions, out *OutputFormatter) error {
	now := app.Engine.Now()
	from, to, err := r.resolve(now)
	if err != nil {
		return err
	}

	days, err := app.Engine.FetchDays(ctx, from, to)
	if err != nil {
		return err
	}

	store, err := app.Storage(ctx)
	if err != nil {
		return err
	}

	employee := app.Engine.Session().Employee
	for _, day := range timesheet.SortedDays(days) {
		if _, err := store.SaveReport(ctx, report.FromDayLog(employee, day, now)); err != nil {
			return fmt.Errorf("could not save report of %s: %w", timesheet.DateKey(day.Date), err)
		}
	}

	reports, err := store.Reports(ctx, employee, from, to)
	if err != nil {
		return err
	}

	res, err := app.Generator.Generate(generator.Period{Employee: employee, From: from, To: to}, reports)
	if err != nil {
		return err
	}

	file := filepath.Join(app.Config.ReportFileDir, res.Name)
	return out.Success(reportView{File: file, Reports: reports},
		fmt.Sprintf("%d daily reports written to %s\n", len(reports), file))
}
