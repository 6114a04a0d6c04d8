// Package availability narrows generated candidate slots to those with at
// least one team member free, according to each member's external calendar.
package availability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/meeting-scheduler/internal/calendar"
	"github.com/example/meeting-scheduler/internal/slot"
)

// DefaultConcurrency bounds parallel candidate evaluations against the
// external provider.
const DefaultConcurrency = 10

// DefaultQueryTimeout bounds a single free/busy query.
const DefaultQueryTimeout = 5 * time.Second

// Member pairs a team member identity with its calendar credential.
type Member struct {
	ID         string
	Email      string
	Credential calendar.Credential
}

// Filter evaluates candidate slots against member calendars.
type Filter struct {
	provider     calendar.Provider
	concurrency  int
	queryTimeout time.Duration
	logger       *slog.Logger
}

// Option customises a Filter.
type Option func(*Filter)

// WithConcurrency caps the number of candidates evaluated in parallel.
func WithConcurrency(n int) Option {
	return func(f *Filter) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithQueryTimeout bounds each free/busy call.
func WithQueryTimeout(d time.Duration) Option {
	return func(f *Filter) {
		if d > 0 {
			f.queryTimeout = d
		}
	}
}

// WithLogger attaches a logger for per-member query failures.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filter) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFilter constructs a Filter over the provided calendar capability.
func NewFilter(provider calendar.Provider, opts ...Option) *Filter {
	f := &Filter{
		provider:     provider,
		concurrency:  DefaultConcurrency,
		queryTimeout: DefaultQueryTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Filter returns the subsequence of candidates that remain bookable at now.
//
// Candidates whose start is not strictly after now are always dropped. When
// members is empty the time-filtered candidates are returned unchanged:
// calendar checking is an enhancement, not a gate. Otherwise each remaining
// candidate is kept iff at least one member's calendar reports free over the
// candidate interval. A member whose query fails counts as busy for that
// candidate only; other members are still consulted.
//
// Candidates are evaluated in parallel, bounded by the configured
// concurrency, and output order always matches input order. The only error
// returned is context cancellation; callers fall back to the time-filtered
// list when filtering as a whole is unavailable.
func (f *Filter) Filter(ctx context.Context, now time.Time, candidates []slot.Candidate, members []Member) ([]slot.Candidate, error) {
	upcoming := make([]slot.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Start.After(now) {
			upcoming = append(upcoming, c)
		}
	}

	if len(members) == 0 || f.provider == nil || len(upcoming) == 0 {
		return upcoming, nil
	}

	keep := make([]bool, len(upcoming))
	sem := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup

	for i, c := range upcoming {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, c slot.Candidate) {
			defer wg.Done()
			defer func() { <-sem }()
			keep[i] = f.anyMemberFree(ctx, c, members)
		}(i, c)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filtered := make([]slot.Candidate, 0, len(upcoming))
	for i, c := range upcoming {
		if keep[i] {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// anyMemberFree queries every member concurrently and reports whether at
// least one is free over the candidate interval. Query failures are
// fail-closed for the failing member.
func (f *Filter) anyMemberFree(ctx context.Context, c slot.Candidate, members []Member) bool {
	results := make(chan bool, len(members))
	var wg sync.WaitGroup

	for _, member := range members {
		wg.Add(1)
		go func(member Member) {
			defer wg.Done()

			queryCtx, cancel := context.WithTimeout(ctx, f.queryTimeout)
			defer cancel()

			free, err := f.provider.IsFree(queryCtx, member.Credential, c.Start, c.End)
			if err != nil {
				f.logger.DebugContext(ctx, "free/busy query failed, treating member as busy",
					"member_id", member.ID,
					"slot_start", c.Start,
					"error", err,
				)
				results <- false
				return
			}
			results <- free
		}(member)
	}

	wg.Wait()
	close(results)

	for free := range results {
		if free {
			return true
		}
	}
	return false
}
