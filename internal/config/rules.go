package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stockd/internal/engine"
)

// ruleFile is the YAML shape of the rule settings file. Pointer fields
// distinguish "unset" from explicit false/zero so partial files only
// override what they mention.
type ruleFile struct {
	AutoReorder struct {
		Enabled              *bool `yaml:"enabled"`
		Multiplier           int   `yaml:"multiplier"`
		FallbackReorderPoint int   `yaml:"fallback_reorder_point"`
	} `yaml:"auto_reorder"`
	CriticalStock struct {
		Enabled   *bool `yaml:"enabled"`
		Threshold int   `yaml:"threshold"`
	} `yaml:"critical_stock"`
	PriceChange struct {
		Enabled  *bool   `yaml:"enabled"`
		MinDelta float64 `yaml:"min_delta"`
	} `yaml:"price_change"`
}

// LoadRules reads the rule settings file. An empty path returns the
// defaults unchanged.
func LoadRules(path string) (engine.RuleSettings, error) {
	settings := engine.DefaultRuleSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("read rules file %s: %w", path, err)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return settings, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	if f.AutoReorder.Enabled != nil {
		settings.AutoReorder.Enabled = *f.AutoReorder.Enabled
	}
	if f.AutoReorder.Multiplier > 0 {
		settings.AutoReorder.Multiplier = f.AutoReorder.Multiplier
	}
	if f.AutoReorder.FallbackReorderPoint > 0 {
		settings.AutoReorder.FallbackReorderPoint = f.AutoReorder.FallbackReorderPoint
	}
	if f.CriticalStock.Enabled != nil {
		settings.CriticalStock.Enabled = *f.CriticalStock.Enabled
	}
	if f.CriticalStock.Threshold > 0 {
		settings.CriticalStock.Threshold = f.CriticalStock.Threshold
	}
	if f.PriceChange.Enabled != nil {
		settings.PriceChange.Enabled = *f.PriceChange.Enabled
	}
	if f.PriceChange.MinDelta > 0 {
		settings.PriceChange.MinDelta = f.PriceChange.MinDelta
	}

	return settings, nil
}
