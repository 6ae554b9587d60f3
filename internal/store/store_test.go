package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/leetboard/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "leetboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestTrackedPlayers(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.TrackPlayer(ctx, model.TrackedPlayer{Identity: 30, Label: "julian"}))
	require.NoError(t, st.TrackPlayer(ctx, model.TrackedPlayer{Identity: 10, Label: "narf"}))
	require.NoError(t, st.TrackPlayer(ctx, model.TrackedPlayer{Identity: 30, Label: "Julian"}))

	players, err := st.ListTracked(ctx)
	require.NoError(t, err)
	require.Len(t, players, 2)
	require.Equal(t, int64(10), players[0].Identity)
	require.Equal(t, int64(30), players[1].Identity)
	require.Equal(t, "Julian", players[1].Label)
	require.False(t, players[0].AddedAt.IsZero())

	removed, err := st.UntrackPlayer(ctx, 10)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = st.UntrackPlayer(ctx, 10)
	require.NoError(t, err)
	require.False(t, removed)

	players, err = st.ListTracked(ctx)
	require.NoError(t, err)
	require.Len(t, players, 1)
}

func TestRefreshAttempts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	attempts := []model.RefreshAttempt{
		{Identity: 1, DisplayName: "Narf", AttemptedAt: base, OK: true},
		{Identity: 2, AttemptedAt: base.Add(time.Second), Error: "status 404"},
		{Identity: 1, DisplayName: "Narf", AttemptedAt: base.Add(time.Hour), Error: "request timed out"},
	}
	for _, a := range attempts {
		require.NoError(t, st.RecordAttempt(ctx, a))
	}

	all, err := st.ListAttempts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "request timed out", all[0].Error)
	require.True(t, all[0].AttemptedAt.Equal(base.Add(time.Hour)))

	limited, err := st.ListAttempts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)

	latest, err := st.LatestAttempts(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	require.Equal(t, int64(1), latest[0].Identity)
	require.False(t, latest[0].OK)
	require.Equal(t, int64(2), latest[1].Identity)
	require.Equal(t, "status 404", latest[1].Error)
}
