package labels

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Reconciler drives an Applier across many repositories. A failure in one
// repository never stops the others; failures are only counted.
type Reconciler struct {
	store       LabelStore
	strategy    Strategy
	sink        EventSink
	concurrency int
	logger      *slog.Logger
}

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

// WithStrategy sets the execution strategy (default StrategyLive)
func WithStrategy(strategy Strategy) ReconcilerOption {
	return func(r *Reconciler) {
		r.strategy = strategy
	}
}

// WithSink sets where events are forwarded
func WithSink(sink EventSink) ReconcilerOption {
	return func(r *Reconciler) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// WithConcurrency sets how many repositories are processed at once.
// Values below 2 keep the default sequential processing.
func WithConcurrency(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReconciler creates a batch reconciler over the given store
func NewReconciler(store LabelStore, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:       store,
		strategy:    StrategyLive,
		sink:        discardSink{},
		concurrency: 1,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles every repository against desired and reports the totals.
// The exit status is ExitError when any event failed.
func (r *Reconciler) Run(ctx context.Context, repos []string, desired LabelSet, mode Mode) (RunSummary, ExitStatus) {
	counter := &countingSink{next: r.sink}
	applier := NewApplier(r.store, r.strategy)

	r.logger.Info("reconciling labels",
		"repositories", len(repos),
		"labels", len(desired),
		"mode", string(mode),
		"strategy", r.strategy.String(),
		"concurrency", r.concurrency,
	)

	if r.concurrency <= 1 {
		for _, repo := range repos {
			r.reconcileRepo(ctx, applier, repo, desired, mode, counter)
		}
	} else {
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(r.concurrency)
		for _, repo := range repos {
			group.Go(func() error {
				// Buffer per repository so its lines stay contiguous.
				buffer := &EventLog{}
				r.reconcileRepo(groupCtx, applier, repo, desired, mode, buffer)
				counter.flush(buffer.Events())
				return nil
			})
		}
		_ = group.Wait()
	}

	summary := RunSummary{
		Repos:  len(uniqueRepos(repos)),
		Errors: counter.errorCount(),
	}

	status := ExitSuccess
	if summary.Errors > 0 {
		status = ExitError
	}

	r.logger.Info("reconciliation finished",
		"repositories", summary.Repos,
		"errors", summary.Errors,
	)
	return summary, status
}

// reconcileRepo lists, diffs and applies one repository
func (r *Reconciler) reconcileRepo(ctx context.Context, applier *Applier, repo string, desired LabelSet, mode Mode, sink EventSink) {
	current, err := r.store.ListLabels(ctx, repo)
	if err != nil {
		r.logger.Debug("listing labels failed", "repo", repo, "error", err)
		sink.Record(Event{
			Operation: OpListLabels,
			Outcome:   OutcomeError,
			Repo:      repo,
			Err:       err,
		})
		return
	}

	changes := mode.Diff(current, desired)
	r.logger.Debug("computed label changes",
		"repo", repo,
		"create", len(changes.Create),
		"update", len(changes.Update),
		"delete", len(changes.Delete),
	)

	applier.Apply(ctx, repo, changes, sink)
}

// uniqueRepos returns the distinct repositories in input order
func uniqueRepos(repos []string) []string {
	seen := make(map[string]bool, len(repos))
	out := make([]string, 0, len(repos))
	for _, repo := range repos {
		if seen[repo] {
			continue
		}
		seen[repo] = true
		out = append(out, repo)
	}
	return out
}

// countingSink counts failed events on their way to the next sink
type countingSink struct {
	mu     sync.Mutex
	next   EventSink
	errors int
}

func (c *countingSink) Record(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(event)
}

// flush forwards a block of events without interleaving other repositories
func (c *countingSink) flush(events []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, event := range events {
		c.record(event)
	}
}

func (c *countingSink) record(event Event) {
	if event.Outcome == OutcomeError {
		c.errors++
	}
	c.next.Record(event)
}

func (c *countingSink) errorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}
