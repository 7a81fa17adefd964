package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/calloutsim/core/dispatch"
	"github.com/kilianp07/calloutsim/core/generator"
	"github.com/kilianp07/calloutsim/core/metrics"
	"github.com/kilianp07/calloutsim/core/roster"
	"github.com/kilianp07/calloutsim/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: CALLOUT_SIMULATION__TICK_MS=100.
const EnvPrefix = "CALLOUT_"

type Config struct {
	Simulation SimulationConfig `json:"simulation"`
	Dispatch   dispatch.Config  `json:"dispatch"`
	Generator  generator.Config `json:"generator"`
	Roster     roster.Config    `json:"roster"`
	Metrics    metrics.Config   `json:"metrics"`
	MQTT       mqtt.Config      `json:"mqtt"`
	Catalog    CatalogConfig    `json:"catalog"`
	Logging    LoggingConfig    `json:"logging"`
	Sentry     SentryConfig     `json:"sentry"`
}

// CatalogConfig locates the zone and agency catalog. An empty path selects
// the built-in sample city.
type CatalogConfig struct {
	Path string `json:"path"`
}

// Default returns the configuration used when a key is absent.
func Default() *Config {
	cfg := &Config{}
	cfg.Roster.TrafficUnits = true
	cfg.Simulation.StartHour = 8
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Generator.SetDefaults()
	c.Roster.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"simulation", c.Simulation.Validate},
		{"dispatch", c.Dispatch.Validate},
		{"generator", c.Generator.Validate},
		{"roster", c.Roster.Validate},
		{"metrics", c.Metrics.Validate},
		{"mqtt", c.MQTT.Validate},
		{"logging", c.Logging.Validate},
		{"sentry", c.Sentry.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}

// Load reads the configuration file at path, applies CALLOUT_ environment
// overrides and validates the result. An empty path loads defaults and the
// environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	prefix := strings.ToLower(EnvPrefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), prefix)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
