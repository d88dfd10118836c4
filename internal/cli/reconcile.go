package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewReconcileCommand creates the reconcile command: replay every SKU's
// movement history and compare against the stored quantity.
func NewReconcileCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [SKU...]",
		Short: "Verify the ledger replay law for one or all SKUs",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.close()

			skus := args
			if len(skus) == 0 {
				products, err := c.eng.ListProducts(cmd.Context())
				if err != nil {
					return WrapExitError(ExitCommandError, "list products", err)
				}
				for _, p := range products {
					skus = append(skus, p.SKU)
				}
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			mismatches := 0
			for _, sku := range skus {
				ok, err := c.eng.Reconcile(cmd.Context(), sku)
				if err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("reconcile %s", sku), err)
				}
				status := "ok"
				if !ok {
					status = "MISMATCH"
					mismatches++
				}
				out.Printf("%-12s %s\n", sku, status)
			}

			if mismatches > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d SKUs failed reconciliation", mismatches))
			}
			return nil
		},
	}
}
