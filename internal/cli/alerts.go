package cli

import (
	"github.com/spf13/cobra"
)

// NewAlertsCommand creates the alerts command group. Alerts live in process
// memory, so this surfaces whatever the current invocation raised (orders,
// sync, rules) before exiting.
func NewAlertsCommand(opts *RootOptions) *cobra.Command {
	var unread bool
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List alerts raised during this invocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.close()

			alerts := c.eng.Alerts().List(unread)
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if out.IsJSON() {
				return out.PrintJSON(alerts)
			}
			for _, a := range alerts {
				marker := " "
				if !a.Read {
					marker = "*"
				}
				out.Printf("%s %-8s %-8s %s\n", marker, a.Severity, a.Category, a.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread alerts")
	return cmd
}
