package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/BalanceBalls/timesheet-tracker/internal/frappe"
	"github.com/BalanceBalls/timesheet-tracker/internal/timesheet"
)

// rangeOptions are the --from/--to flags; empty means today.
type rangeOptions struct {
	From string
	To   string
}

func (r *rangeOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.From, "from", "", "first day, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&r.To, "to", "", "last day, YYYY-MM-DD (default today)")
}

func (r *rangeOptions) resolve(now time.Time) (time.Time, time.Time, error) {
	parse := func(name, value string) (time.Time, error) {
		if value == "" {
			return now, nil
		}
		t, err := frappe.ParseDatetime(value, now.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --%s %q: %w", name, value, err)
		}
		return t, nil
	}

	from, err := parse("from", r.From)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parse("to", r.To)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// NewDaysCommand creates the days command.
func NewDaysCommand(rootOpts *RootOptions) *cobra.Command {
	r := &rangeOptions{}

	cmd := &cobra.Command{
		Use:   "days",
		Short: "Show the time logged per day and task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				return runDays(ctx, app, r, formatter(cmd, rootOpts))
			})
		},
	}
	r.register(cmd)

	return cmd
}

func runDays(ctx context.Context, app *App, r *rangeOptions, out *OutputFormatter) error {
	now := app.Engine.Now()
	from, to, err := r.resolve(now)
	if err != nil {
		return err
	}

	days, err := app.Engine.FetchDays(ctx, from, to)
	if err != nil {
		return err
	}

	views := make([]dayView, 0, len(days))
	var sb strings.Builder
	for _, day := range timesheet.SortedDays(days) {
		v := newDayView(day, now)
		views = append(views, v)
		sb.WriteString(v.text())
	}

	return out.Success(views, sb.String())
}

type taskView struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Status  string   `json:"status"`
	Project string   `json:"project"`
	Tags    []string `json:"tags,omitempty"`
}

// NewTasksCommand creates the tasks command.
func NewTasksCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List open tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				tasks, err := app.Engine.FetchTasks(ctx)
				if err != nil {
					return err
				}

				ids := maps.Keys(tasks)
				slices.Sort(ids)

				views := make([]taskView, 0, len(ids))
				var sb strings.Builder
				for _, id := range ids {
					t := tasks[id]
					views = append(views, taskView{
						ID: t.ID, Title: t.Title, Status: t.Status, Project: t.Project.Title, Tags: t.Tags,
					})
					fmt.Fprintf(&sb, "%-12s %s [%s]\n", t.ID, t.Title, t.Project.Title)
				}

				return formatter(cmd, rootOpts).Success(views, sb.String())
			})
		},
	}
}
