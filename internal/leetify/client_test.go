package leetify

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/leetboard/internal/logging"
)

const profileBody = `{
	"name": "Narf",
	"steam64_id": "76561197983756284",
	"privacy_mode": "public",
	"rating": {"aim": 71.5, "utility": 48.2, "opening": 0.042, "clutch": 0.13, "positioning": 55.0, "ct_leetify": 0.6, "t_leetify": 0.8},
	"stats": {"accuracy_head": 0.21, "reaction_time_ms": 612, "preaim": 9.1, "notes": "n/a", "missing": null}
}`

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL: srv.URL + "/",
		APIKey:  "secret-key",
		Timeout: 2 * time.Second,
		Now:     func() time.Time { return fixedNow },
	})
}

func TestFetchProfileSuccess(t *testing.T) {
	var gotPath, gotID, gotKey, gotAccept string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotID = r.URL.Query().Get("id")
		gotKey = r.Header.Get(KeyHeader)
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(profileBody))
	})

	rec, err := client.FetchProfile(context.Background(), 76561197983756284)
	require.NoError(t, err)

	require.Equal(t, "/v3/profile", gotPath)
	require.Equal(t, "76561197983756284", gotID)
	require.Equal(t, "secret-key", gotKey)
	require.Equal(t, "application/json", gotAccept)

	require.Equal(t, int64(76561197983756284), rec.Identity)
	require.Equal(t, "Narf", rec.DisplayName)
	require.Equal(t, 0.042, rec.Rating["opening"])
	require.Equal(t, 612.0, rec.Stats["reaction_time_ms"])
	_, hasNotes := rec.Stats["notes"]
	require.False(t, hasNotes)
	_, hasMissing := rec.Stats["missing"]
	require.False(t, hasMissing)
	require.JSONEq(t, profileBody, string(rec.Payload))
	require.Equal(t, fixedNow, rec.FetchedAt)
}

func TestFetchProfileNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "profile not found", http.StatusNotFound)
	})

	_, err := client.FetchProfile(context.Background(), 42)
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, int64(42), fetchErr.Identity)
	require.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	require.Contains(t, fetchErr.Message, "profile not found")
	require.Contains(t, err.Error(), "42")
}

func TestFetchProfileUndecodableBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name": "broken"`))
	})

	_, err := client.FetchProfile(context.Background(), 7)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, "failed to decode response", fetchErr.Message)
	require.Error(t, fetchErr.Unwrap())
}

func TestFetchProfileTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := New(Config{BaseURL: baseURL, APIKey: "k", Timeout: time.Second})
	_, err := client.FetchProfile(context.Background(), 9)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, int64(9), fetchErr.Identity)
	require.Zero(t, fetchErr.StatusCode)
	require.NotNil(t, fetchErr.Err)
}

func TestFetchProfileTimeout(t *testing.T) {
	release := make(chan struct{})
	client := New(Config{BaseURL: "", APIKey: "k", Timeout: 50 * time.Millisecond})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	client.baseURL = srv.URL

	_, err := client.FetchProfile(context.Background(), 11)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, "request timed out", fetchErr.Message)
}

func TestRequestLogMasksCredential(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(profileBody))
	})
	_, err := client.FetchProfile(context.Background(), 1)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "http request")
	require.Contains(t, out, "request-id")
	require.Contains(t, out, maskedValue)
	require.NotContains(t, out, "secret-key")
}
