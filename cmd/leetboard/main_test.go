package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/leetboard/internal/config"
	"github.com/verte-zerg/leetboard/internal/model"
	"github.com/verte-zerg/leetboard/internal/refresh"
)

func TestParseIdentity(t *testing.T) {
	const want = int64(76561197960287930)
	for _, input := range []string{"76561197960287930", "[U:1:22202]", "STEAM_0:0:11101", " 76561197960287930 "} {
		got, err := parseIdentity(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := parseIdentity("not-a-steam-id")
	require.Error(t, err)
}

func TestParseIdentitiesDedupes(t *testing.T) {
	ids, err := parseIdentities([]string{"76561197960287930", "[U:1:22202]"})
	require.NoError(t, err)
	require.Equal(t, []int64{76561197960287930}, ids)
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	require.Nil(t, cfg.API.BaseURL)
	require.Empty(t, cfg.Players.IDs)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	err := writeSummary(&buf, refresh.Summary{Results: []refresh.Result{
		{Identity: 1, DisplayName: "narf", Outcome: refresh.Succeeded},
		{Identity: 2, Outcome: refresh.FetchFailure, Err: errors.New("status 404")},
	}})
	require.NoError(t, err)
	require.Equal(t, "ok      1  narf\nfailed  2  fetch failed: status 404\n1 of 2 players refreshed\n", buf.String())
}

func TestWriteAttempts(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2026, 10, 1, 12, 30, 0, 0, time.Local)
	require.NoError(t, writeAttempts(&buf, []model.RefreshAttempt{
		{Identity: 1, DisplayName: "narf", AttemptedAt: at, OK: true},
		{Identity: 2, AttemptedAt: at, Error: "request timed out"},
	}))
	require.Equal(t,
		"2026-10-01 12:30  1  narf  ok\n2026-10-01 12:30  2  -  error: request timed out\n",
		buf.String())
}
