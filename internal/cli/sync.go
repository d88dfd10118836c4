package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stockd/internal/ledger"
	"github.com/roach88/stockd/internal/syncer"
)

// NewSyncCommand creates the one-shot sync command.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	var mode string
	var demo bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one catalog sync against the remote source",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != string(ledger.SyncFull) && mode != string(ledger.SyncIncremental) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid mode %q (full|incremental)", mode))
			}

			c, err := openCore(cmd.Context(), opts)
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

			var job ledger.SyncJob
			if mode == string(ledger.SyncFull) {
				job, err = sched.RunFull(cmd.Context())
			} else {
				job, err = sched.RunIncremental(cmd.Context())
			}
			if err != nil {
				return WrapExitError(ExitFailure, "sync", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if out.IsJSON() {
				return out.PrintJSON(job)
			}
			out.Printf("%s sync %s: %d seen, %d created, %d updated, %d errored\n",
				job.Mode, job.Status, job.Seen, job.Created, job.Updated, job.Errored)
			if job.Errored > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d items failed", job.Errored))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(ledger.SyncFull), "sync mode (full|incremental)")
	cmd.Flags().BoolVar(&demo, "demo", false, "use the seeded in-memory catalog source")
	return cmd
}
