package config

import (
	"errors"
	"fmt"
	"github.com/shimmeringbee/powermeter/rules"
	"gopkg.in/yaml.v3"
	"io"
	"time"
)

const DefaultMinimumReportInterval = 15 * time.Minute

type Subscription struct {
	MinimumInterval time.Duration `yaml:"minimumInterval"`
	MaximumInterval time.Duration `yaml:"maximumInterval"`
}

type Power struct {
	MinimumWatts float64 `yaml:"minimumWatts"`
	MaximumWatts float64 `yaml:"maximumWatts"`
}

type Energy struct {
	MaximumWattHours float64 `yaml:"maximumWattHours"`
}

type Config struct {
	// MinimumReportInterval is the shortest interval at which power consumption reports are emitted.
	MinimumReportInterval time.Duration   `yaml:"minimumReportInterval"`
	Subscription          Subscription    `yaml:"subscription"`
	Power                 Power           `yaml:"power"`
	Energy                Energy          `yaml:"energy"`
	Overrides             []rules.RuleSet `yaml:"overrides"`
}

func Default() Config {
	return Config{
		MinimumReportInterval: DefaultMinimumReportInterval,
		Subscription: Subscription{
			MinimumInterval: 0,
			MaximumInterval: DefaultMinimumReportInterval,
		},
		Power: Power{
			MinimumWatts: 0,
			MaximumWatts: 100_000,
		},
		Energy: Energy{
			MaximumWattHours: 1_000_000_000,
		},
	}
}

// Load reads YAML configuration, any field not present keeps its default.
func Load(r io.Reader) (Config, error) {
	cfg := Default()

	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.MinimumReportInterval < time.Second {
		return fmt.Errorf("minimumReportInterval must be at least 1s: %s", c.MinimumReportInterval)
	}

	if c.Subscription.MaximumInterval < c.Subscription.MinimumInterval {
		return fmt.Errorf("subscription maximumInterval %s is below minimumInterval %s", c.Subscription.MaximumInterval, c.Subscription.MinimumInterval)
	}

	if c.Power.MaximumWatts < c.Power.MinimumWatts {
		return fmt.Errorf("power maximumWatts %v is below minimumWatts %v", c.Power.MaximumWatts, c.Power.MinimumWatts)
	}

	if c.Energy.MaximumWattHours <= 0 {
		return fmt.Errorf("energy maximumWattHours must be positive: %v", c.Energy.MaximumWattHours)
	}

	return nil
}

// RulesEngine compiles the override rule sets.
func (c Config) RulesEngine() (*rules.Engine, error) {
	e := &rules.Engine{RuleSets: map[string]rules.RuleSet{}}

	for _, rs := range c.Overrides {
		if _, found := e.RuleSets[rs.Name]; found {
			return nil, fmt.Errorf("duplicate override ruleset: %s", rs.Name)
		}

		e.RuleSets[rs.Name] = rs
	}

	if err := e.CompileRules(); err != nil {
		return nil, fmt.Errorf("compiling overrides: %w", err)
	}

	return e, nil
}
