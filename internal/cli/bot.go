package cli

import (
	"context"
	"errors"
	"fmt"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/BalanceBalls/timesheet-tracker/internal/bot"
)

// NewBotCommand creates the bot command.
func NewBotCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Serve the timesheet through a Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.Config.ValidateBot(); err != nil {
					return err
				}

				api, err := tg.NewBotAPI(app.Config.BotToken)
				if err != nil {
					return fmt.Errorf("could not connect to telegram: %w", err)
				}
				app.Logger.InfoContext(ctx, "authorized on account", "account", api.Self.UserName)

				store, err := app.Storage(ctx)
				if err != nil {
					return err
				}

				b := bot.New(api, app.Config.BotChatID, app.Config.CommandTimeout(), app.Engine, store, app.Generator)
				if err := b.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		},
	}
}
