package refresh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/leetboard/internal/leetify"
	"github.com/verte-zerg/leetboard/internal/model"
	"github.com/verte-zerg/leetboard/internal/snapshot"
)

type fakeFetcher struct {
	records map[int64]model.PlayerRecord
	calls   []int64
}

func (f *fakeFetcher) FetchProfile(_ context.Context, identity int64) (model.PlayerRecord, error) {
	f.calls = append(f.calls, identity)
	rec, ok := f.records[identity]
	if !ok {
		return model.PlayerRecord{}, &leetify.FetchError{Identity: identity, StatusCode: http.StatusNotFound, Message: "not found"}
	}
	return rec, nil
}

type failingSaver struct {
	fail  int64
	saved []int64
}

func (s *failingSaver) Save(rec model.PlayerRecord) error {
	if rec.Identity == s.fail {
		return &snapshot.SaveError{Identity: rec.Identity, Err: errors.New("disk full")}
	}
	s.saved = append(s.saved, rec.Identity)
	return nil
}

type memoryHistory struct {
	attempts []model.RefreshAttempt
	err      error
}

func (h *memoryHistory) RecordAttempt(_ context.Context, a model.RefreshAttempt) error {
	h.attempts = append(h.attempts, a)
	return h.err
}

func record(id int64, name string) model.PlayerRecord {
	return model.PlayerRecord{
		Identity:    id,
		DisplayName: name,
		Rating:      model.Metrics{"aim": 80},
		Stats:       model.Metrics{"accuracy_head": 0.2},
		FetchedAt:   time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	fetcher := &fakeFetcher{records: map[int64]model.PlayerRecord{
		1: record(1, "narf"),
		3: record(3, "julian"),
		4: record(4, "meow"),
	}}
	saver := &failingSaver{fail: 3}
	history := &memoryHistory{}
	fixed := time.Date(2026, 10, 2, 12, 0, 0, 0, time.UTC)

	r := New(fetcher, saver, Options{History: history, Now: func() time.Time { return fixed }})
	summary := r.Run(context.Background(), []int64{1, 2, 3, 4})

	require.Equal(t, []int64{1, 2, 3, 4}, fetcher.calls)
	require.Equal(t, []int64{1, 4}, saver.saved)
	require.Equal(t, 2, summary.Succeeded())

	failed := summary.Failed()
	require.Len(t, failed, 2)
	require.Equal(t, FetchFailure, failed[0].Outcome)
	var fetchErr *leetify.FetchError
	require.ErrorAs(t, failed[0].Err, &fetchErr)
	require.Equal(t, int64(2), fetchErr.Identity)
	require.Equal(t, StoreFailure, failed[1].Outcome)
	require.Equal(t, "julian", failed[1].DisplayName)

	require.Len(t, history.attempts, 4)
	require.True(t, history.attempts[0].OK)
	require.False(t, history.attempts[1].OK)
	require.NotEmpty(t, history.attempts[1].Error)
	require.Equal(t, fixed, history.attempts[2].AttemptedAt)
}

func TestRunHistoryErrorIsNotFatal(t *testing.T) {
	fetcher := &fakeFetcher{records: map[int64]model.PlayerRecord{1: record(1, "narf")}}
	saver := &failingSaver{}
	history := &memoryHistory{err: errors.New("database is locked")}

	summary := New(fetcher, saver, Options{History: history}).Run(context.Background(), []int64{1})
	require.Equal(t, 1, summary.Succeeded())
	require.Empty(t, summary.Failed())
}

func TestRunNotFoundLeavesStoreUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "profile not found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	store := snapshot.Open(dir)
	client := leetify.New(leetify.Config{BaseURL: server.URL, APIKey: "key", Timeout: time.Second})

	summary := New(client, store, Options{}).Run(context.Background(), []int64{76561198000000001})
	require.Equal(t, 0, summary.Succeeded())
	require.Len(t, summary.Failed(), 1)

	var fetchErr *leetify.FetchError
	require.ErrorAs(t, summary.Failed()[0].Err, &fetchErr)
	require.Equal(t, http.StatusNotFound, fetchErr.StatusCode)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRunCanceledContext(t *testing.T) {
	fetcher := &fakeFetcher{records: map[int64]model.PlayerRecord{1: record(1, "narf")}}
	saver := &failingSaver{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := New(fetcher, saver, Options{Rate: 1}).Run(ctx, []int64{1, 2})
	require.Len(t, summary.Results, 2)
	require.Empty(t, fetcher.calls)
	require.Equal(t, 0, summary.Succeeded())
}
