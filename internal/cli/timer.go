package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start <task-id>",
		Short: "Start the timer of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				tl, err := app.Engine.StartTask(ctx, args[0])
				if err != nil {
					return err
				}

				v := newTaskLogView(tl, app.Engine.Now())
				return formatter(cmd, rootOpts).Success(v,
					fmt.Sprintf("started %s %s at %s\n", tl.TaskID, tl.Title, tl.StartTime.Format("15:04:05")))
			})
		},
	}
}

// NewStopCommand creates the stop command.
func NewStopCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				tl, err := app.Engine.StopRunning(ctx)
				if err != nil {
					return err
				}

				v := newTaskLogView(tl, app.Engine.Now())
				return formatter(cmd, rootOpts).Success(v,
					fmt.Sprintf("stopped %s %s, %s today\n", tl.TaskID, tl.Title, formatMinutes(v.Minutes)))
			})
		},
	}
}

type repairView struct {
	Checked int               `json:"checked"`
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// NewRepairCommand creates the repair command. The repair itself runs as
// part of the login every command does; this one only reports it.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Remove duplicate running timers and report what was removed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				res := app.Engine.Session().Repair

				v := repairView{Checked: res.Checked, Deleted: res.Deleted}
				if v.Deleted == nil {
					v.Deleted = []string{}
				}
				var sb strings.Builder
				fmt.Fprintf(&sb, "checked %d draft timesheets, removed %d duplicate open details\n",
					res.Checked, len(res.Deleted))
				for _, id := range res.Deleted {
					fmt.Fprintf(&sb, "  removed %s\n", id)
				}
				for id, err := range res.Failed {
					if v.Failed == nil {
						v.Failed = map[string]string{}
					}
					v.Failed[id] = err.Error()
					fmt.Fprintf(&sb, "  could not remove %s: %v\n", id, err)
				}

				return formatter(cmd, rootOpts).Success(v, sb.String())
			})
		},
	}
}
