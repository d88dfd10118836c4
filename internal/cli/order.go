package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stockd/internal/engine"
)

// NewOrderCommand creates the order submission command.
func NewOrderCommand(opts *RootOptions) *cobra.Command {
	var customer string
	cmd := &cobra.Command{
		Use:   "order SKU=QTY [SKU=QTY...]",
		Short: "Submit a multi-item order (all-or-nothing)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseOrderItems(args)
			if err != nil {
				return WrapExitError(ExitCommandError, "parse order", err)
			}

			c, err := openCore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.close()

			order, err := c.eng.SubmitOrder(cmd.Context(), engine.OrderRequest{
				Customer: customer,
				Items:    items,
			})
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if err != nil {
				if order.ID != "" {
					// Committed as rejected; report the stored reason.
					if out.IsJSON() {
						_ = out.PrintJSON(order)
					} else {
						out.Printf("order %s rejected: %s\n", order.ID, order.Reason)
					}
					return NewExitError(ExitFailure, "order rejected")
				}
				return WrapExitError(ExitFailure, "submit order", err)
			}

			if out.IsJSON() {
				return out.PrintJSON(order)
			}
			out.Printf("order %s fulfilled: %d items, total %s\n",
				order.ID, len(order.Items), money(order.Total))
			return nil
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "customer reference")
	return cmd
}

func parseOrderItems(args []string) ([]engine.OrderItem, error) {
	items := make([]engine.OrderItem, 0, len(args))
	for _, arg := range args {
		sku, qtyStr, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("line item %q: want SKU=QTY", arg)
		}
		qty, err := strconv.Atoi(qtyStr)
		if err != nil {
			return nil, fmt.Errorf("line item %q: %w", arg, err)
		}
		items = append(items, engine.OrderItem{SKU: sku, Quantity: qty})
	}
	return items, nil
}
