// Package config materializes the core's configuration: an optional CUE
// config file validated against an embedded schema, overridden by
// environment variables (optionally from a .env file), plus a YAML settings
// file for the built-in rules.
package config

import (
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
)

// schemaCUE constrains and defaults every configuration field. A config
// file that doesn't unify with this schema is rejected with a position.
const schemaCUE = `
#Config: {
	database_path:       string | *"stockd.db"
	alert_capacity:      int & >0 | *100
	staleness_threshold: string | *"1h"
	sync_interval:       string | *"5m"
	rules_file:          string | *""
	remote: {
		base_url: string | *""
		token:    string | *""
		timeout:  string | *"15s"
	}
}
`

// Config is the resolved configuration surface.
type Config struct {
	DatabasePath  string
	AlertCapacity int
	Staleness     time.Duration
	SyncInterval  time.Duration
	RulesFile     string

	RemoteBaseURL string
	RemoteToken   string
	RemoteTimeout time.Duration
}

// raw mirrors the CUE shape for decoding.
type raw struct {
	DatabasePath  string `json:"database_path"`
	AlertCapacity int    `json:"alert_capacity"`
	Staleness     string `json:"staleness_threshold"`
	SyncInterval  string `json:"sync_interval"`
	RulesFile     string `json:"rules_file"`
	Remote        struct {
		BaseURL string `json:"base_url"`
		Token   string `json:"token"`
		Timeout string `json:"timeout"`
	} `json:"remote"`
}

// Load resolves configuration from an optional CUE file at path (empty path
// means defaults only), then applies environment overrides. A .env file in
// the working directory is honored when present.
func Load(path string) (*Config, error) {
	// Missing .env files are acceptable; configuration may come from the
	// environment directly.
	_ = godotenv.Load()

	cctx := cuecontext.New()
	schema := cctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}

	value := schema
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		file := cctx.CompileBytes(data)
		if err := file.Err(); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		value = schema.Unify(file)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	var r raw
	if err := value.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg := &Config{
		DatabasePath:  r.DatabasePath,
		AlertCapacity: r.AlertCapacity,
		RulesFile:     r.RulesFile,
		RemoteBaseURL: r.Remote.BaseURL,
		RemoteToken:   r.Remote.Token,
	}

	var err error
	if cfg.Staleness, err = time.ParseDuration(r.Staleness); err != nil {
		return nil, fmt.Errorf("staleness_threshold: %w", err)
	}
	if cfg.SyncInterval, err = time.ParseDuration(r.SyncInterval); err != nil {
		return nil, fmt.Errorf("sync_interval: %w", err)
	}
	if cfg.RemoteTimeout, err = time.ParseDuration(r.Remote.Timeout); err != nil {
		return nil, fmt.Errorf("remote.timeout: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv lets the environment win over file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("STOCKD_DATABASE"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("STOCKD_REMOTE_URL"); v != "" {
		cfg.RemoteBaseURL = v
	}
	if v := os.Getenv("STOCKD_REMOTE_TOKEN"); v != "" {
		cfg.RemoteToken = v
	}
	if v := os.Getenv("STOCKD_RULES_FILE"); v != "" {
		cfg.RulesFile = v
	}
	if v := os.Getenv("STOCKD_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SyncInterval = d
		}
	}
	if v := os.Getenv("STOCKD_STALENESS"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Staleness = d
		}
	}
}
