package cli

import (
	"fmt"
	"io"

	"order-sync/config"
	"order-sync/internal/broker"
	"order-sync/internal/service"
	"order-sync/internal/store"
	"order-sync/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Publish bool

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ordersync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ordersync",
		Short: "ordersync - operate the garment order sync engine",
		Long:  "Maintenance commands for the order tables: schema migrations, urgent promotion, resynchronization and deletes.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.cfg = config.Load()
			level := opts.cfg.Observ.LogLevel
			if opts.Verbose {
				level = "debug"
			}
			_, err := util.InitLogger(opts.cfg.Server.Env, level)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			util.SyncLogger()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.Publish, "publish", false, "publish sync events to Kafka")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPromoteCommand(opts))
	cmd.AddCommand(NewResyncCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openEngine connects to Postgres and, with --publish, Kafka. The returned
// func releases both.
func openEngine(opts *RootOptions) (*service.Engine, func(), error) {
	cfg := opts.cfg
	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}

	var (
		notifier service.Notifier
		producer *broker.Producer
	)
	if opts.Publish {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSyncEvents)
		notifier = broker.NewEventPublisher(producer)
	}

	engine := service.NewEngine(db, notifier, util.GetLogger(), service.Options{
		Timeout:          cfg.Database.OperationTimeout,
		Location:         cfg.Sync.Location,
		PruneStaleUrgent: cfg.Sync.PruneStaleUrgent,
	})

	closeFn := func() {
		if producer != nil {
			if err := producer.Close(); err != nil {
				util.GetLogger().Warn("Failed to close producer", zap.Error(err))
			}
		}
		db.Close()
	}
	return engine, closeFn, nil
}

func writeLine(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
