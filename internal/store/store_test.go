package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "alphas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndTop(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	recs := []Record{
		{EpisodeID: "a", Expr: "Abs($close)", Fingerprint: "Abs($close)", IC: 0.02, RankIC: 0.01, Outcome: "scored"},
		{EpisodeID: "b", Expr: "Mean($close,20d)", Fingerprint: "Mean($close,20d)", IC: 0.07, RankIC: 0.05, Outcome: "scored"},
		{EpisodeID: "c", Expr: "Sign($open)", Fingerprint: "Sign($open)", IC: math.NaN(), RankIC: math.NaN(), Outcome: "undefined"},
		{EpisodeID: "d", Expr: "Log($volume)", Fingerprint: "Log($volume)", IC: -0.03, RankIC: -0.02, Outcome: "scored"},
	}
	for _, r := range recs {
		require.NoError(t, s.Save(ctx, r))
	}

	top, err := s.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 4)

	var order []string
	for _, r := range top {
		order = append(order, r.EpisodeID)
	}
	assert.Equal(t, []string{"b", "a", "d", "c"}, order)
	assert.Equal(t, 0.07, top[0].IC)
	assert.Equal(t, "Mean($close,20d)", top[0].Expr)
	assert.True(t, math.IsNaN(top[3].IC), "NULL reads back as NaN")
	assert.False(t, top[0].CreatedAt.IsZero())

	top, err = s.Top(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestSaveIgnoresDuplicateFingerprint(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.Save(ctx, Record{Expr: "Abs($close)", Fingerprint: "Abs($close)", IC: 0.1}))
	require.NoError(t, s.Save(ctx, Record{Expr: "Abs($close)", Fingerprint: "Abs($close)", IC: 0.9}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	top, err := s.Top(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 0.1, top[0].IC)
}

func TestReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "alphas.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, Record{Expr: "x", Fingerprint: "x", IC: 0.5}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, path, s.Path())
}
