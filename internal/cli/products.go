package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/stockd/internal/engine"
)

// NewProductsCommand creates the products command group.
func NewProductsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Inspect and mutate the product catalog",
	}
	cmd.AddCommand(newProductsListCommand(opts))
	cmd.AddCommand(newProductsCreateCommand(opts))
	cmd.AddCommand(newProductsUpdateCommand(opts))
	cmd.AddCommand(newProductsMovementsCommand(opts))
	return cmd
}

func productFlags(cmd *cobra.Command, in *engine.ProductInput) {
	cmd.Flags().StringVar(&in.Name, "name", "", "product name")
	cmd.Flags().StringVar(&in.Category, "category", "", "product category")
	cmd.Flags().Float64Var(&in.Price, "price", 0, "unit price")
	cmd.Flags().IntVar(&in.Quantity, "quantity", 0, "on-hand quantity")
	cmd.Flags().IntVar(&in.ReorderPoint, "reorder-point", 0, "reorder point")
	cmd.Flags().StringVar(&in.Vendor, "vendor", "", "vendor")
}

func newProductsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the catalog snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.close()

			products, err := c.eng.ListProducts(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "list products", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if out.IsJSON() {
				return out.PrintJSON(products)
			}
			out.Printf("%-12s %-20s %8s %6s %8s  %s\n", "SKU", "NAME", "PRICE", "QTY", "REORDER", "VENDOR")
			for _, p := range products {
				out.Printf("%-12s %-20s %8s %6d %8d  %s\n",
					p.SKU, p.Name, money(p.Price), p.Quantity, p.ReorderPoint, p.Vendor)
			}
			return nil
		},
	}
}

func newProductsCreateCommand(opts *RootOptions) *cobra.Command {
	var in engine.ProductInput
	cmd := &cobra.Command{
		Use:   "create SKU",
		Short: "Add a product to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.SKU = args[0]
			c, err := openCore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.close()

			p, err := c.eng.CreateProduct(cmd.Context(), in)
			if err != nil {
				return WrapExitError(ExitFailure, "create product", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if out.IsJSON() {
				return out.PrintJSON(p)
			}
			out.Printf("created %s (%d on hand)\n", p.SKU, p.Quantity)
			return nil
		},
	}
	productFlags(cmd, &in)
	return cmd
}

func newProductsUpdateCommand(opts *RootOptions) *cobra.Command {
	var in engine.ProductInput
	cmd := &cobra.Command{
		Use:   "update SKU",
		Short: "Update fields of an existing product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.close()

			cur, err := c.eng.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "update product", err)
			}

			// Flags the caller did not set keep the stored value.
			merged := engine.ProductInput{
				SKU:          cur.SKU,
				Name:         cur.Name,
				Category:     cur.Category,
				Price:        cur.Price,
				Quantity:     cur.Quantity,
				ReorderPoint: cur.ReorderPoint,
				Vendor:       cur.Vendor,
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				merged.Name = in.Name
			}
			if flags.Changed("category") {
				merged.Category = in.Category
			}
			if flags.Changed("price") {
				merged.Price = in.Price
			}
			if flags.Changed("quantity") {
				merged.Quantity = in.Quantity
			}
			if flags.Changed("reorder-point") {
				merged.ReorderPoint = in.ReorderPoint
			}
			if flags.Changed("vendor") {
				merged.Vendor = in.Vendor
			}

			p, err := c.eng.UpdateProduct(cmd.Context(), merged)
			if err != nil {
				return WrapExitError(ExitFailure, "update product", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if out.IsJSON() {
				return out.PrintJSON(p)
			}
			out.Printf("updated %s (%d on hand)\n", p.SKU, p.Quantity)
			return nil
		},
	}
	productFlags(cmd, &in)
	return cmd
}

func newProductsMovementsCommand(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "movements SKU",
		Short: "Show the movement log for a SKU, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer c.close()

			movements, err := c.store.ListMovements(cmd.Context(), args[0], limit)
			if err != nil {
				return WrapExitError(ExitCommandError, "list movements", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if out.IsJSON() {
				return out.PrintJSON(movements)
			}
			for _, m := range movements {
				out.Printf("%s  %-16s %+5d -> %4d  %s\n",
					m.Timestamp.Format("2006-01-02 15:04:05"), m.Type, m.Delta, m.Resulting, m.Reason)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries (0 for all)")
	return cmd
}
