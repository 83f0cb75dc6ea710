package labels

import (
	"context"
	"fmt"
)

// Strategy selects whether changes are executed or only reported
type Strategy int

const (
	// StrategyLive executes every change against the label store
	StrategyLive Strategy = iota
	// StrategyDryRun reports every change without calling the store
	StrategyDryRun
)

// String returns the strategy name
func (s Strategy) String() string {
	if s == StrategyDryRun {
		return "dry-run"
	}
	return "live"
}

// Applier executes a ChangeSet against one repository
type Applier struct {
	store    LabelStore
	strategy Strategy
}

// NewApplier creates an applier for the given strategy
func NewApplier(store LabelStore, strategy Strategy) *Applier {
	return &Applier{
		store:    store,
		strategy: strategy,
	}
}

// Strategy returns the execution strategy of the applier
func (a *Applier) Strategy() Strategy {
	return a.strategy
}

// Apply runs creates, then updates, then deletes, emitting exactly one event
// per change. A failed change is reported and the remaining changes still
// run.
func (a *Applier) Apply(ctx context.Context, repo string, cs ChangeSet, sink EventSink) {
	if sink == nil {
		sink = discardSink{}
	}

	for _, change := range cs.Create {
		sink.Record(a.apply(ctx, repo, change))
	}
	for _, change := range cs.Update {
		sink.Record(a.apply(ctx, repo, change))
	}
	for _, change := range cs.Delete {
		sink.Record(a.apply(ctx, repo, change))
	}
}

func (a *Applier) apply(ctx context.Context, repo string, change LabelChange) Event {
	event := Event{
		Operation: operationFor(change.Type),
		Repo:      repo,
		Name:      change.Name,
		Color:     change.Color,
	}

	if a.strategy == StrategyDryRun {
		event.Outcome = OutcomeDryRun
		return event
	}

	if err := a.execute(ctx, repo, change); err != nil {
		event.Outcome = OutcomeError
		event.Err = err
		return event
	}

	event.Outcome = OutcomeSuccess
	return event
}

func (a *Applier) execute(ctx context.Context, repo string, change LabelChange) error {
	switch change.Type {
	case ChangeTypeCreate:
		return a.store.CreateLabel(ctx, repo, change.Name, change.Color)
	case ChangeTypeUpdate:
		oldName := change.OldName
		if oldName == "" {
			oldName = change.Name
		}
		return a.store.UpdateLabel(ctx, repo, oldName, change.Name, change.Color)
	case ChangeTypeDelete:
		name := change.OldName
		if name == "" {
			name = change.Name
		}
		return a.store.DeleteLabel(ctx, repo, name)
	default:
		return fmt.Errorf("unsupported label change type: %s", change.Type)
	}
}

func operationFor(changeType ChangeType) Operation {
	switch changeType {
	case ChangeTypeUpdate:
		return OpUpdate
	case ChangeTypeDelete:
		return OpDelete
	default:
		return OpCreate
	}
}
