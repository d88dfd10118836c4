package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/stockd/internal/insights"
)

// NewInsightsCommand creates the insights report command.
func NewInsightsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Derive inventory analytics from the current snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.close()

			gen := insights.New(c.store, insights.WithNow(c.eng.Now))
			report, err := gen.Generate(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "generate insights", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if out.IsJSON() {
				return out.PrintJSON(report)
			}

			out.Printf("inventory value: %s across %d products\n",
				money(report.TotalValue), report.ProductCount)
			if len(report.LowStock) > 0 {
				out.Printf("\nlow stock:\n")
				for _, p := range report.LowStock {
					out.Printf("  %-12s %4d on hand (reorder point %d)\n", p.SKU, p.Quantity, p.ReorderPoint)
				}
			}
			if len(report.TopSellers) > 0 {
				out.Printf("\ntop sellers (trailing window):\n")
				for _, s := range report.TopSellers {
					out.Printf("  %-12s %4d units\n", s.SKU, s.UnitsSold)
				}
			}
			if len(report.Recommendations) > 0 {
				out.Printf("\nrecommendations:\n")
				for _, r := range report.Recommendations {
					out.Printf("  [%s] %s\n", r.Priority, r.Message)
				}
			}
			return nil
		},
	}
}
