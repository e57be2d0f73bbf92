package cli

import (
	"context"
	"fmt"
	"time"

	"order-sync/internal/broker"
	"order-sync/internal/models"
	"order-sync/internal/store"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the order table schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := store.Migrate(opts.cfg.Database.URL, args[0] == "up")
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"direction": args[0], "version": version})
			}
			writeLine(cmd.OutOrStdout(), "migrate %s: schema at version %d", args[0], version)
			return nil
		},
	}
}

// NewPromoteCommand creates the promote command.
func NewPromoteCommand(opts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Copy the orders due on a day into table_urgent",
		Long: `Promote every order whose deadline is the given day (default: today in
TIMEZONE) into table_urgent. Running it twice on the same day is harmless.

Examples:
  ordersync promote
  ordersync promote --date 2024-06-03 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, closeFn, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			day := engine.Today()
			if date != "" {
				if day, err = time.Parse(models.DateLayout, date); err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
			}

			result, err := engine.PromoteDueToday(context.Background(), day)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			writeLine(cmd.OutOrStdout(), "promoted %d order(s) due %s", result.PromotedCount, result.Date)
			if opts.Verbose {
				for _, id := range result.IDs {
					writeLine(cmd.OutOrStdout(), "  %s", id)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "deadline day to promote (YYYY-MM-DD)")
	return cmd
}

// NewResyncCommand creates the resync command.
func NewResyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Re-run fan-out and propagation for every order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, closeFn, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := engine.ResyncAll(context.Background())
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			writeLine(cmd.OutOrStdout(), "resynced %d order(s), %d failed", result.SuccessCount, result.ErrorCount)
			if len(result.Failures) > 0 {
				return writeFailures(cmd.OutOrStdout(), result.Failures)
			}
			return nil
		},
	}
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	var async bool

	cmd := &cobra.Command{
		Use:   "sync <id_input>",
		Short: "Resynchronize one order",
		Long: `Re-run fan-out and propagation for one order. With --async the request is
published to the sync-requests topic and handled by the server's sync worker.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idInput := args[0]
			ctx := context.Background()

			if async {
				producer := broker.NewProducer(opts.cfg.Kafka.Brokers, opts.cfg.Kafka.TopicSyncRequests)
				defer producer.Close()
				if err := broker.NewSyncRequester(producer).RequestSync(ctx, idInput, "cli"); err != nil {
					return err
				}
				writeLine(cmd.OutOrStdout(), "sync requested for %s", idInput)
				return nil
			}

			engine, closeFn, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := engine.RequestSync(ctx, idInput, "cli"); err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "synced %s", idInput)
			return nil
		},
	}

	cmd.Flags().BoolVar(&async, "async", false, "publish a sync request instead of syncing in-process")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id_input>",
		Short: "Delete an order from every table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, closeFn, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := engine.DeleteOrder(context.Background(), args[0]); err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), "deleted %s", args[0])
			return nil
		},
	}
}
