package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stockd/internal/ledger"
)

func runProducts(t *testing.T, opts *RootOptions, args ...string) string {
	t.Helper()
	cmd := NewProductsCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestProductsUpdate_UnsetFlagsKeepStoredValues(t *testing.T) {
	t.Setenv("STOCKD_DATABASE", filepath.Join(t.TempDir(), "test.db"))
	opts := &RootOptions{Format: "text"}

	runProducts(t, opts, "create", "SKU-1",
		"--name", "Widget", "--category", "hardware",
		"--price", "50", "--quantity", "20", "--reorder-point", "5",
		"--vendor", "Acme")

	runProducts(t, opts, "update", "SKU-1", "--price", "60")

	ctx := context.Background()
	c, err := openCore(ctx, opts)
	require.NoError(t, err)
	defer c.close()

	p, err := c.eng.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 60.0, p.Price)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, "hardware", p.Category)
	assert.Equal(t, 20, p.Quantity)
	assert.Equal(t, 5, p.ReorderPoint)
	assert.Equal(t, "Acme", p.Vendor)

	// A price-only update leaves the quantity alone, so the ledger still
	// holds just the initial stock entry.
	movements, err := c.store.ListMovements(ctx, "SKU-1", 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, ledger.MovementAdjustment, movements[0].Type)
	assert.Equal(t, "initial stock", movements[0].Reason)
}

func TestProductsUpdate_ChangedQuantityStillAdjusts(t *testing.T) {
	t.Setenv("STOCKD_DATABASE", filepath.Join(t.TempDir(), "test.db"))
	opts := &RootOptions{Format: "text"}

	runProducts(t, opts, "create", "SKU-1",
		"--name", "Widget", "--price", "50", "--quantity", "20", "--reorder-point", "5")
	runProducts(t, opts, "update", "SKU-1", "--quantity", "12")

	ctx := context.Background()
	c, err := openCore(ctx, opts)
	require.NoError(t, err)
	defer c.close()

	p, err := c.eng.GetProduct(ctx, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, 12, p.Quantity)
	assert.Equal(t, "Widget", p.Name)

	movements, err := c.store.ListMovements(ctx, "SKU-1", 0)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, "manual adjustment", movements[0].Reason)
	assert.Equal(t, -8, movements[0].Delta)
}
