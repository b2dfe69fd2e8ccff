// Package config loads alphacore settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"alphacore/internal/env"
	"alphacore/internal/expr"
	"alphacore/internal/token"
)

// ErrInvalidConfig wraps every Validate failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Config is the root configuration.
type Config struct {
	Env       EnvConfig       `yaml:"env"`
	Grammar   GrammarConfig   `yaml:"grammar"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Pool      PoolConfig      `yaml:"pool"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

type EnvConfig struct {
	MaxExprLength int  `yaml:"max_expr_length"` // tokens including BEG
	PrintExpr     bool `yaml:"print_expr"`
}

type GrammarConfig struct {
	MaxDepth int `yaml:"max_depth"` // 0 = unbounded
}

// CatalogConfig lists operator names by category plus the operand sets.
type CatalogConfig struct {
	Unary       []string  `yaml:"unary"`
	Binary      []string  `yaml:"binary"`
	Rolling     []string  `yaml:"rolling"`
	PairRolling []string  `yaml:"pair_rolling"`
	Features    []string  `yaml:"features"`
	Constants   []float64 `yaml:"constants"`
	DeltaTimes  []int     `yaml:"delta_times"`
}

type PoolConfig struct {
	Capacity       int  `yaml:"capacity"`
	MaxPerSkeleton int  `yaml:"max_per_skeleton"`
	RankIC         bool `yaml:"rank_ic"`
}

type StoreConfig struct {
	Path       string `yaml:"path"`       // sqlite file, empty disables
	Checkpoint string `yaml:"checkpoint"` // pool checkpoint json, empty disables
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

type DashboardConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the stock settings.
func DefaultConfig() *Config {
	cat := token.DefaultCatalog()
	cc := CatalogConfig{
		Features:   cat.Features,
		Constants:  cat.Constants,
		DeltaTimes: cat.DeltaTimes,
	}
	for _, op := range cat.Operators {
		switch op.Category {
		case token.Unary:
			cc.Unary = append(cc.Unary, op.Name)
		case token.Binary:
			cc.Binary = append(cc.Binary, op.Name)
		case token.Rolling:
			cc.Rolling = append(cc.Rolling, op.Name)
		case token.PairRolling:
			cc.PairRolling = append(cc.PairRolling, op.Name)
		}
	}

	return &Config{
		Env:     EnvConfig{MaxExprLength: env.DefaultMaxExprLength},
		Catalog: cc,
		Pool: PoolConfig{
			Capacity:       10,
			MaxPerSkeleton: 3,
		},
		Store: StoreConfig{
			Path:       filepath.Join(".alphacore", "alphas.db"),
			Checkpoint: filepath.Join(".alphacore", "pool.json"),
		},
		Logging:   LoggingConfig{Level: "info"},
		Dashboard: DashboardConfig{Addr: "127.0.0.1:8787"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes c as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ALPHACORE_MAX_EXPR_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Env.MaxExprLength = n
		}
	}
	if v := os.Getenv("ALPHACORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ALPHACORE_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
}

// Validate checks ranges and the catalog.
func (c *Config) Validate() error {
	if c.Env.MaxExprLength < 2 {
		return fmt.Errorf("%w: env.max_expr_length must be at least 2, got %d", ErrInvalidConfig, c.Env.MaxExprLength)
	}
	if c.Grammar.MaxDepth < 0 {
		return fmt.Errorf("%w: grammar.max_depth must not be negative", ErrInvalidConfig)
	}
	if c.Pool.Capacity < 0 || c.Pool.MaxPerSkeleton < 0 {
		return fmt.Errorf("%w: pool sizes must not be negative", ErrInvalidConfig)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	if len(c.Catalog.Features) == 0 {
		return fmt.Errorf("%w: catalog needs at least one feature", ErrInvalidConfig)
	}
	for _, d := range c.Catalog.DeltaTimes {
		if d <= 0 {
			return fmt.Errorf("%w: catalog delta time %d must be positive", ErrInvalidConfig, d)
		}
	}

	seen := make(map[string]bool)
	for _, names := range [][]string{c.Catalog.Unary, c.Catalog.Binary, c.Catalog.Rolling, c.Catalog.PairRolling} {
		for _, n := range names {
			if n == "" {
				return fmt.Errorf("%w: empty operator name", ErrInvalidConfig)
			}
			if seen[n] {
				return fmt.Errorf("%w: operator %s listed twice", ErrInvalidConfig, n)
			}
			seen[n] = true
		}
	}
	if len(c.Catalog.Rolling)+len(c.Catalog.PairRolling) > 0 && len(c.Catalog.DeltaTimes) == 0 {
		return fmt.Errorf("%w: rolling operators need delta times", ErrInvalidConfig)
	}
	return nil
}

// TokenCatalog builds the token catalog.
func (c *Config) TokenCatalog() token.Catalog {
	var ops []token.Operator
	add := func(cat token.Category, names []string) {
		for _, n := range names {
			ops = append(ops, token.Operator{Name: n, Category: cat})
		}
	}
	add(token.Unary, c.Catalog.Unary)
	add(token.Binary, c.Catalog.Binary)
	add(token.Rolling, c.Catalog.Rolling)
	add(token.PairRolling, c.Catalog.PairRolling)

	return token.Catalog{
		Operators:  ops,
		Features:   append([]string(nil), c.Catalog.Features...),
		Constants:  append([]float64(nil), c.Catalog.Constants...),
		DeltaTimes: append([]int(nil), c.Catalog.DeltaTimes...),
	}
}

// ExprGrammar returns the builder budgets. The token budget leaves room for
// BEG within env.max_expr_length.
func (c *Config) ExprGrammar() expr.Grammar {
	return expr.Grammar{MaxTokens: c.Env.MaxExprLength - 1, MaxDepth: c.Grammar.MaxDepth}
}
