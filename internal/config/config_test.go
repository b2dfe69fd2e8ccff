package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphacore/internal/token"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15, cfg.Env.MaxExprLength)
	assert.Equal(t, 14, cfg.ExprGrammar().MaxTokens)

	if diff := cmp.Diff(token.DefaultCatalog(), cfg.TokenCatalog()); diff != "" {
		t.Errorf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alphacore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env:
  max_expr_length: 20
grammar:
  max_depth: 4
catalog:
  unary: [Abs]
  binary: []
  rolling: [Mean]
  pair_rolling: []
  features: [close]
  constants: [1]
  delta_times: [5]
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20, cfg.Env.MaxExprLength)
	assert.Equal(t, 4, cfg.ExprGrammar().MaxDepth)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Pool.Capacity, "unset keys keep defaults")

	cat := cfg.TokenCatalog()
	require.Len(t, cat.Operators, 2)
	assert.Equal(t, token.Rolling, cat.Operators[1].Category)
	assert.Len(t, cat.Actions(), 2+1+1+1+1)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "alphacore.yaml")
	cfg := DefaultConfig()
	cfg.Pool.RankIC = true
	cfg.Dashboard.Addr = ":9999"
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ALPHACORE_MAX_EXPR_LENGTH", "9")
	t.Setenv("ALPHACORE_LOG_LEVEL", "warn")
	t.Setenv("ALPHACORE_STORE_PATH", "/tmp/x.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Env.MaxExprLength)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/x.db", cfg.Store.Path)

	t.Run("non-numeric length is ignored", func(t *testing.T) {
		t.Setenv("ALPHACORE_MAX_EXPR_LENGTH", "lots")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, 15, cfg.Env.MaxExprLength)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short length", func(c *Config) { c.Env.MaxExprLength = 1 }},
		{"negative depth", func(c *Config) { c.Grammar.MaxDepth = -1 }},
		{"negative capacity", func(c *Config) { c.Pool.Capacity = -1 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"no features", func(c *Config) { c.Catalog.Features = nil }},
		{"zero delta time", func(c *Config) { c.Catalog.DeltaTimes = []int{0} }},
		{"duplicate operator", func(c *Config) { c.Catalog.Binary = append(c.Catalog.Binary, "Abs") }},
		{"empty operator", func(c *Config) { c.Catalog.Unary = []string{""} }},
		{"rolling without windows", func(c *Config) { c.Catalog.DeltaTimes = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
