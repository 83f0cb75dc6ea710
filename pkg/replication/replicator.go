package replication

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"labelord/pkg/labels"
)

// Action is the label webhook action
type Action string

const (
	ActionCreated Action = "created"
	ActionEdited  Action = "edited"
	ActionDeleted Action = "deleted"
)

// Change is a single label mutation in the form used for echo matching
type Change struct {
	Action  Action
	Name    string
	Color   string
	OldName string
}

// LabelEvent is a label webhook reduced to the fields replication needs
type LabelEvent struct {
	Action       Action
	Repo         string
	Name         string
	Color        string
	PreviousName string
}

// Result describes how an inbound event was handled
type Result struct {
	Suppressed bool
	Peers      int
	Failed     int
}

var (
	ErrUnwatchedRepository = errors.New("repository is not allowed in application")
	ErrUnsupportedAction   = errors.New("unsupported label action")
)

// ValidationError rejects an inbound event without any propagation
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

const (
	defaultPeerTimeout     = 30 * time.Second
	defaultPeerConcurrency = 4
)

// Replicator propagates label mutations from one watched repository to all
// the others.
type Replicator struct {
	store           labels.LabelStore
	repos           map[string]bool
	guard           *EchoGuard
	logger          *slog.Logger
	metrics         *Metrics
	peerTimeout     time.Duration
	peerConcurrency int
}

// Option configures a Replicator
type Option func(*Replicator)

// WithEchoGuard sets the echo guard, typically to share one across handlers
func WithEchoGuard(guard *EchoGuard) Option {
	return func(r *Replicator) {
		if guard != nil {
			r.guard = guard
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Replicator) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metric collectors
func WithMetrics(metrics *Metrics) Option {
	return func(r *Replicator) {
		r.metrics = metrics
	}
}

// WithPeerTimeout bounds every call made against a peer repository
func WithPeerTimeout(timeout time.Duration) Option {
	return func(r *Replicator) {
		if timeout > 0 {
			r.peerTimeout = timeout
		}
	}
}

// WithPeerConcurrency sets how many peers are updated at once
func WithPeerConcurrency(n int) Option {
	return func(r *Replicator) {
		if n > 0 {
			r.peerConcurrency = n
		}
	}
}

// NewReplicator creates a replicator watching repos
func NewReplicator(store labels.LabelStore, repos []string, opts ...Option) *Replicator {
	r := &Replicator{
		store:           store,
		repos:           make(map[string]bool, len(repos)),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:         NewMetrics(nil),
		peerTimeout:     defaultPeerTimeout,
		peerConcurrency: defaultPeerConcurrency,
	}
	for _, repo := range repos {
		r.repos[repo] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.guard == nil {
		r.guard = NewEchoGuard(DefaultEchoWindow)
	}
	return r
}

// Repositories returns the watched repositories in sorted order
func (r *Replicator) Repositories() []string {
	out := make([]string, 0, len(r.repos))
	for repo := range r.repos {
		out = append(out, repo)
	}
	sort.Strings(out)
	return out
}

// Watches reports whether repo is in the watched set
func (r *Replicator) Watches(repo string) bool {
	return r.repos[repo]
}

// EchoGuard returns the guard used by the replicator
func (r *Replicator) EchoGuard() *EchoGuard {
	return r.guard
}

// Handle validates an inbound label event and propagates it to every other
// watched repository. Peer failures are logged and counted in the result;
// the returned error is always a *ValidationError.
func (r *Replicator) Handle(ctx context.Context, event LabelEvent) (Result, error) {
	r.guard.Sweep()

	if !r.repos[event.Repo] {
		return Result{}, &ValidationError{Reason: event.Repo, Err: ErrUnwatchedRepository}
	}

	change, err := Normalize(event)
	if err != nil {
		return Result{}, err
	}

	if r.guard.ShouldSuppress(event.Repo, change) {
		r.metrics.EventsSuppressed.Inc()
		r.updatePending()
		r.logger.Debug("suppressed echo of own mutation",
			"repo", event.Repo,
			"action", string(change.Action),
			"label", change.Name,
		)
		return Result{Suppressed: true}, nil
	}

	peers := r.peersOf(event.Repo)
	r.logger.Info("propagating label change",
		"source", event.Repo,
		"action", string(change.Action),
		"label", change.Name,
		"peers", len(peers),
	)

	// Register every echo before the first outbound call.
	for _, peer := range peers {
		r.guard.Record(peer, change)
	}
	r.updatePending()

	failed := make([]bool, len(peers))
	group := new(errgroup.Group)
	group.SetLimit(r.peerConcurrency)
	for i, peer := range peers {
		group.Go(func() error {
			if err := r.apply(ctx, peer, change); err != nil {
				failed[i] = true
				r.metrics.Propagations.WithLabelValues(string(change.Action), "error").Inc()
				r.logger.Warn("propagation to peer failed",
					"peer", peer,
					"action", string(change.Action),
					"label", change.Name,
					"error", err,
				)
				return nil
			}
			r.metrics.Propagations.WithLabelValues(string(change.Action), "success").Inc()
			return nil
		})
	}
	_ = group.Wait()

	result := Result{Peers: len(peers)}
	for _, f := range failed {
		if f {
			result.Failed++
		}
	}
	return result, nil
}

// Normalize turns an inbound event into the change it describes. A deleted
// label carries no colour; an edit carries the pre-edit name only when the
// label was renamed.
func Normalize(event LabelEvent) (Change, error) {
	change := Change{
		Action: event.Action,
		Name:   event.Name,
		Color:  event.Color,
	}

	switch event.Action {
	case ActionCreated:
	case ActionEdited:
		if event.PreviousName != "" && event.PreviousName != event.Name {
			change.OldName = event.PreviousName
		}
	case ActionDeleted:
		change.Color = ""
	default:
		return Change{}, &ValidationError{Reason: string(event.Action), Err: ErrUnsupportedAction}
	}
	return change, nil
}

func (r *Replicator) apply(ctx context.Context, peer string, change Change) error {
	ctx, cancel := context.WithTimeout(ctx, r.peerTimeout)
	defer cancel()

	switch change.Action {
	case ActionCreated:
		return r.store.CreateLabel(ctx, peer, change.Name, change.Color)
	case ActionEdited:
		oldName := change.OldName
		if oldName == "" {
			oldName = change.Name
		}
		return r.store.UpdateLabel(ctx, peer, oldName, change.Name, change.Color)
	case ActionDeleted:
		return r.store.DeleteLabel(ctx, peer, change.Name)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAction, change.Action)
	}
}

func (r *Replicator) peersOf(source string) []string {
	var peers []string
	for _, repo := range r.Repositories() {
		if repo != source {
			peers = append(peers, repo)
		}
	}
	return peers
}

func (r *Replicator) updatePending() {
	r.metrics.PendingEchoes.Set(float64(r.guard.Len()))
}
