// Package config loads the settings the store and its cache sets are built
// from. Sources, highest precedence first:
//  1. Command-line flags
//  2. Environment variables (KVSTORE_*)
//  3. A YAML file named by -config
//  4. Defaults
//
// Example:
//
//	cfg, err := config.Load(flag.CommandLine, os.Args[1:], os.Getenv)
//	if err != nil {
//		log.Fatal(err)
//	}
//	store, err := kvcache.New(cfg.StoreOptions())
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/IvanBrykalov/kvstore/kvcache"
)

// Defaults mirror the constants the original server was compiled with.
const (
	DefaultElemPerSet  = 2
	DefaultMaxKeyLen   = 256
	DefaultMaxValueLen = 256 << 10
	DefaultLogLevel    = "info"
	DefaultMetricsAddr = ":8080"
)

// Config holds the store shape, the length limits handed to every cache
// set, and process-level settings for the command.
type Config struct {
	Sets        int    `yaml:"sets"`          // number of cache sets (0 = auto)
	ElemPerSet  int    `yaml:"elem_per_set"`  // capacity of each set (>= 2)
	MaxKeyLen   int    `yaml:"max_key_len"`   // bytes
	MaxValueLen int    `yaml:"max_value_len"` // bytes
	LogLevel    string `yaml:"log_level"`     // debug, info, warn, error
	MetricsAddr string `yaml:"metrics_addr"`  // listen address for /metrics; empty disables
}

// Default returns a Config with every field at its default.
func Default() *Config {
	return &Config{
		ElemPerSet:  DefaultElemPerSet,
		MaxKeyLen:   DefaultMaxKeyLen,
		MaxValueLen: DefaultMaxValueLen,
		LogLevel:    DefaultLogLevel,
		MetricsAddr: DefaultMetricsAddr,
	}
}

// Load registers the config flags on fs, parses args, and merges the file,
// environment and flag layers over the defaults. getenv is usually os.Getenv.
// The result is validated.
func Load(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	var (
		path  string
		flags Config
	)
	fs.StringVar(&path, "config", "", "path to a YAML config file")
	fs.IntVar(&flags.Sets, "sets", cfg.Sets, "number of cache sets (0 = auto)")
	fs.IntVar(&flags.ElemPerSet, "elem-per-set", cfg.ElemPerSet, "entries per cache set (>= 2)")
	fs.IntVar(&flags.MaxKeyLen, "max-key-len", cfg.MaxKeyLen, "maximum key length in bytes")
	fs.IntVar(&flags.MaxValueLen, "max-value-len", cfg.MaxValueLen, "maximum value length in bytes")
	fs.StringVar(&flags.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&flags.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics at addr; empty = disabled")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(getenv); err != nil {
		return nil, err
	}

	// Only flags given explicitly override the lower layers.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sets":
			cfg.Sets = flags.Sets
		case "elem-per-set":
			cfg.ElemPerSet = flags.ElemPerSet
		case "max-key-len":
			cfg.MaxKeyLen = flags.MaxKeyLen
		case "max-value-len":
			cfg.MaxValueLen = flags.MaxValueLen
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "metrics-addr":
			cfg.MetricsAddr = flags.MetricsAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Sets < 0:
		return fmt.Errorf("config: sets must be >= 0, got %d", c.Sets)
	case c.ElemPerSet < 2:
		return fmt.Errorf("config: elem_per_set must be >= 2, got %d", c.ElemPerSet)
	case c.MaxKeyLen <= 0:
		return fmt.Errorf("config: max_key_len must be > 0, got %d", c.MaxKeyLen)
	case c.MaxValueLen <= 0:
		return fmt.Errorf("config: max_value_len must be > 0, got %d", c.MaxValueLen)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	return nil
}

// Level returns the parsed log level. Call after Validate.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// StoreOptions maps the config onto kvcache.Options. Metrics, Logger and
// Loader are left for the caller.
func (c *Config) StoreOptions() kvcache.Options {
	return kvcache.Options{
		Sets:        c.Sets,
		ElemPerSet:  c.ElemPerSet,
		MaxKeyLen:   c.MaxKeyLen,
		MaxValueLen: c.MaxValueLen,
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv(getenv func(string) string) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"KVSTORE_SETS", &c.Sets},
		{"KVSTORE_ELEM_PER_SET", &c.ElemPerSet},
		{"KVSTORE_MAX_KEY_LEN", &c.MaxKeyLen},
		{"KVSTORE_MAX_VALUE_LEN", &c.MaxValueLen},
	}
	var errs []error
	for _, v := range ints {
		raw := getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", v.name, err))
			continue
		}
		*v.dst = n
	}
	if lvl := getenv("KVSTORE_LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
	if addr, ok := lookup(getenv, "KVSTORE_METRICS_ADDR"); ok {
		c.MetricsAddr = addr
	}
	return errors.Join(errs...)
}

// lookup treats a single "-" as an explicit empty value, so the metrics
// listener can be disabled from the environment.
func lookup(getenv func(string) string, name string) (string, bool) {
	switch v := getenv(name); v {
	case "":
		return "", false
	case "-":
		return "", true
	default:
		return v, true
	}
}
