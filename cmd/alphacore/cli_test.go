package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alphacore/internal/config"
	"alphacore/internal/logx"
	"alphacore/internal/pool"
	"alphacore/internal/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ALPHACORE_MAX_EXPR_LENGTH", "")
	t.Setenv("ALPHACORE_LOG_LEVEL", "")
	t.Setenv("ALPHACORE_STORE_PATH", "")
	logx.SetColor(false)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig stores a config whose store and checkpoint live in a temp dir.
func writeConfig(t *testing.T) (path string, cfg *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg = config.DefaultConfig()
	cfg.Store.Path = filepath.Join(dir, "alphas.db")
	cfg.Store.Checkpoint = filepath.Join(dir, "pool.json")
	cfg.Logging.Level = "error"
	path = filepath.Join(dir, "alphacore.yaml")
	require.NoError(t, cfg.Save(path))
	return path, cfg
}

func storedFingerprints(t *testing.T, path string) []string {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	recs, err := st.Top(context.Background(), 1<<20)
	require.NoError(t, err)
	fps := make([]string, 0, len(recs))
	for _, r := range recs {
		fps = append(fps, r.Fingerprint)
	}
	sort.Strings(fps)
	return fps
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alphacore.yaml")

	out, err := run(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(config.DefaultConfig(), cfg); diff != "" {
		t.Errorf("written config differs (-want +got):\n%s", diff)
	}

	_, err = run(t, "config", "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "config", "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestSampleRecordsAndCheckpoints(t *testing.T) {
	path, cfg := writeConfig(t)

	out, err := run(t, "sample", "--config", path, "-n", "40", "-w", "2", "--seed", "7", "--progress", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "sample summary")
	assert.Contains(t, out, "episodes   40")
	assert.Contains(t, out, "checkpoint saved")
	assert.Contains(t, out, "stored     ")

	fps := storedFingerprints(t, cfg.Store.Path)
	assert.NotEmpty(t, fps)

	cp, err := pool.LoadCheckpoint(cfg.Store.Checkpoint)
	require.NoError(t, err)
	assert.Len(t, cp.Seen, len(fps))

	out, err = run(t, "sample", "--config", path, "-n", "5", "-w", "1", "--seed", "7", "--progress", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "checkpoint loaded")
	// Same seed, same first episodes: nothing new reaches the store.
	assert.Equal(t, fps, storedFingerprints(t, cfg.Store.Path))
}

func TestSampleIsReproducibleAcrossWorkerCounts(t *testing.T) {
	pathA, cfgA := writeConfig(t)
	pathB, cfgB := writeConfig(t)

	_, err := run(t, "sample", "--config", pathA, "-n", "60", "-w", "1", "--seed", "3", "--progress", "1h")
	require.NoError(t, err)
	_, err = run(t, "sample", "--config", pathB, "-n", "60", "-w", "4", "--seed", "3", "--progress", "1h")
	require.NoError(t, err)

	assert.Equal(t, storedFingerprints(t, cfgA.Store.Path), storedFingerprints(t, cfgB.Store.Path))
}

func TestSampleRejectsBadFlags(t *testing.T) {
	path, _ := writeConfig(t)
	_, err := run(t, "sample", "--config", path, "-n", "0")
	assert.ErrorContains(t, err, "--episodes")
}

func TestTop(t *testing.T) {
	path, _ := writeConfig(t)
	_, err := run(t, "sample", "--config", path, "-n", "20", "-w", "1", "--progress", "1h")
	require.NoError(t, err)

	out, err := run(t, "top", "--config", path, "-k", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "rank_ic")
	assert.Contains(t, out, "undefined")
}

func TestTopWithoutStore(t *testing.T) {
	path, _ := writeConfig(t)
	_, err := run(t, "top", "--config", path)
	assert.ErrorContains(t, err, "open store")
}

func TestICCommand(t *testing.T) {
	dir := t.TempDir()
	values := filepath.Join(dir, "values.csv")
	target := filepath.Join(dir, "target.csv")
	require.NoError(t, os.WriteFile(values, []byte("date,a,b,c\nd1,1,2,3\nd2,3,2,1\n"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("date,a,b,c\nd1,1,2,3\nd2,1,2,3\n"), 0o644))

	out, err := run(t, "ic", values, target, "--header", "--index")
	require.NoError(t, err)
	assert.Contains(t, out, "1.0000")
	assert.Contains(t, out, "-1.0000")
	assert.Contains(t, out, "mean")
}

func TestICShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	values := filepath.Join(dir, "values.csv")
	target := filepath.Join(dir, "target.csv")
	require.NoError(t, os.WriteFile(values, []byte("1,2,3\n"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("1,2\n"), 0o644))

	_, err := run(t, "ic", values, target)
	assert.Error(t, err)
}
