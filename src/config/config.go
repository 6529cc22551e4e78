// Package config loads buffer pool / page file tuning from a YAML file: a
// fresh viper instance pointed at a config file and unmarshalled into a
// mapstructure-tagged struct.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// PoolConfig is the subset of configuration the buffer pool cares about.
// PageSize is not configurable - the specification fixes it at compile time
// - but which data file backs the pool, how many frames it has, and which
// replacement strategy it runs are.
type PoolConfig struct {
	DataFile     string `mapstructure:"data_file"`
	Capacity     int    `mapstructure:"capacity"`
	Strategy     string `mapstructure:"strategy"` // "fifo" | "lru"
	StrategyData string `mapstructure:"strategy_data"`
}

// Config is the top-level document shape.
type Config struct {
	Pool PoolConfig `mapstructure:"pool"`
}

// Load reads and unmarshals the YAML file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
