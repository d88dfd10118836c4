package cli

import (
	"context"

	"github.com/roach88/stockd/internal/catalog"
	"github.com/roach88/stockd/internal/config"
	"github.com/roach88/stockd/internal/engine"
	"github.com/roach88/stockd/internal/store"
)

// core bundles everything a command needs after startup.
type core struct {
	cfg   *config.Config
	store *store.Store
	eng   *engine.Engine
}

func (c *core) close() {
	c.eng.Close()
	c.store.Close()
}

// openCore loads config, opens the database, and constructs the engine with
// the configured rule settings.
func openCore(ctx context.Context, opts *RootOptions) (*core, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	settings, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "load rule settings", err)
	}

	eng, err := engine.New(ctx, st,
		engine.WithRules(engine.BuiltinRules(settings)),
		engine.WithAlertCapacity(cfg.AlertCapacity),
	)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "start engine", err)
	}

	return &core{cfg: cfg, store: st, eng: eng}, nil
}

// catalogSource returns the remote source: the configured HTTP catalog, or
// a seeded in-memory one in demo mode.
func catalogSource(cfg *config.Config, demo bool) (catalog.Source, error) {
	if demo {
		return catalog.NewFakeSource(
			catalog.Record{SKU: "SKU-1", Name: "Widget", Category: "hardware", Price: 50, Quantity: 20, ReorderPoint: 10, Vendor: "Acme"},
			catalog.Record{SKU: "SKU-2", Name: "Gadget", Category: "hardware", Price: 120, Quantity: 8, ReorderPoint: 5, Vendor: "Acme"},
			catalog.Record{SKU: "SKU-3", Name: "Gizmo", Category: "electronics", Price: 14.5, Quantity: 2, ReorderPoint: 6, Vendor: "Bolt"},
		), nil
	}
	if cfg.RemoteBaseURL == "" {
		return nil, NewExitError(ExitCommandError, "no remote catalog configured (set remote.base_url or use --demo)")
	}
	return catalog.NewHTTPSource(catalog.HTTPConfig{
		BaseURL: cfg.RemoteBaseURL,
		Token:   cfg.RemoteToken,
		Timeout: cfg.RemoteTimeout,
	}), nil
}
