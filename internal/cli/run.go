package cli

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/stockd/internal/engine"
	"github.com/roach88/stockd/internal/syncer"
)

// NewRunCommand creates the long-running service mode: a startup full sync,
// interval-driven incremental syncs, and event logging until interrupted.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the core with the sync scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := openCore(ctx, opts)
			if err != nil {
				return err
			}
			defer c.close()

			source, err := catalogSource(c.cfg, demo)
			if err != nil {
				return err
			}

			sched := syncer.New(c.eng, source,
				syncer.WithStaleness(c.cfg.Staleness),
				syncer.WithInterval(c.cfg.SyncInterval),
				syncer.WithItemTimeout(c.cfg.RemoteTimeout),
			)

			sub := c.eng.Events().Subscribe(0)
			go func() {
				for ev := range sub.C() {
					switch ev.Kind {
					case engine.EventOrderProcessed:
						slog.Info("event", "kind", ev.Kind, "order_id", ev.Order.ID, "status", ev.Order.Status)
					case engine.EventSyncCompleted:
						slog.Info("event", "kind", ev.Kind, "job_id", ev.Sync.ID, "mode", ev.Sync.Mode, "seen", ev.Sync.Seen)
					case engine.EventAlertRaised:
						slog.Info("event", "kind", ev.Kind, "severity", ev.Alert.Severity, "message", ev.Alert.Message)
					}
				}
			}()

			if err := sched.Start(ctx); err != nil {
				return WrapExitError(ExitCommandError, "start scheduler", err)
			}
			defer sched.Stop()

			slog.Info("stockd running", "database", c.cfg.DatabasePath, "interval", c.cfg.SyncInterval)
			<-ctx.Done()
			slog.Info("stockd stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "use the seeded in-memory catalog source")
	return cmd
}
