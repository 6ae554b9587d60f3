// Package refresh fetches profiles for tracked identities and stores them.
package refresh

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/verte-zerg/leetboard/internal/logging"
	"github.com/verte-zerg/leetboard/internal/model"
)

// Fetcher retrieves one profile.
type Fetcher interface {
	FetchProfile(ctx context.Context, identity int64) (model.PlayerRecord, error)
}

// Saver persists one record.
type Saver interface {
	Save(rec model.PlayerRecord) error
}

// History records refresh attempts.
type History interface {
	RecordAttempt(ctx context.Context, a model.RefreshAttempt) error
}

// Outcome classifies a per-identity result.
type Outcome int

// Outcomes of refreshing one identity.
const (
	Succeeded Outcome = iota
	FetchFailure
	StoreFailure
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "ok"
	case FetchFailure:
		return "fetch failed"
	case StoreFailure:
		return "store failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of refreshing one identity.
type Result struct {
	Identity    int64
	DisplayName string
	Outcome     Outcome
	Err         error
}

// Summary holds the results of a refresh run in input order.
type Summary struct {
	Results []Result
}

// Succeeded returns the number of identities refreshed and stored.
func (s Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Outcome == Succeeded {
			n++
		}
	}
	return n
}

// Failed returns the results that did not succeed.
func (s Summary) Failed() []Result {
	var failed []Result
	for _, r := range s.Results {
		if r.Outcome != Succeeded {
			failed = append(failed, r)
		}
	}
	return failed
}

// Options configures a Refresher.
type Options struct {
	// Rate is the maximum number of requests per second. Zero disables pacing.
	Rate    float64
	History History
	Now     func() time.Time
}

// Refresher runs sequential refreshes.
type Refresher struct {
	fetcher Fetcher
	saver   Saver
	history History
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a Refresher.
func New(fetcher Fetcher, saver Saver, opts Options) *Refresher {
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Refresher{
		fetcher: fetcher,
		saver:   saver,
		history: opts.History,
		limiter: rate.NewLimiter(limit, 1),
		now:     now,
	}
}

// Run refreshes each identity in order. A failure for one identity never
// stops the others. Run returns early only when ctx is done; identities not
// yet attempted are reported as fetch failures.
func (r *Refresher) Run(ctx context.Context, ids []int64) Summary {
	summary := Summary{Results: make([]Result, 0, len(ids))}
	for _, id := range ids {
		if err := r.limiter.Wait(ctx); err != nil {
			summary.Results = append(summary.Results, Result{
				Identity: id,
				Outcome:  FetchFailure,
				Err:      fmt.Errorf("failed to wait for rate limiter: %w", err),
			})
			continue
		}
		res := r.refreshOne(ctx, id)
		summary.Results = append(summary.Results, res)
		r.recordAttempt(ctx, res)
	}
	return summary
}

func (r *Refresher) refreshOne(ctx context.Context, id int64) Result {
	rec, err := r.fetcher.FetchProfile(ctx, id)
	if err != nil {
		logging.Warn().Err(err).Int64("identity", id).Msg("fetch failed")
		return Result{Identity: id, Outcome: FetchFailure, Err: err}
	}
	if err := r.saver.Save(rec); err != nil {
		logging.Warn().Err(err).Int64("identity", id).Msg("store failed")
		return Result{Identity: id, DisplayName: rec.DisplayName, Outcome: StoreFailure, Err: err}
	}
	logging.Info().Int64("identity", id).Str("name", rec.DisplayName).Msg("refreshed")
	return Result{Identity: id, DisplayName: rec.DisplayName, Outcome: Succeeded}
}

func (r *Refresher) recordAttempt(ctx context.Context, res Result) {
	if r.history == nil {
		return
	}
	attempt := model.RefreshAttempt{
		Identity:    res.Identity,
		DisplayName: res.DisplayName,
		AttemptedAt: r.now(),
		OK:          res.Outcome == Succeeded,
	}
	if res.Err != nil {
		attempt.Error = res.Err.Error()
	}
	if err := r.history.RecordAttempt(ctx, attempt); err != nil {
		logging.Warn().Err(err).Int64("identity", res.Identity).Msg("failed to record refresh attempt")
	}
}
