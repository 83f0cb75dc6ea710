package replication

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"labelord/pkg/labels"
)

// memoryStore is an in-memory LabelStore recording every mutation
type memoryStore struct {
	mu     sync.Mutex
	labels map[string]labels.LabelSet
	fail   map[string]error
	calls  []string
}

func newMemoryStore(repos ...string) *memoryStore {
	s := &memoryStore{
		labels: make(map[string]labels.LabelSet),
		fail:   make(map[string]error),
	}
	for _, repo := range repos {
		s.labels[repo] = labels.LabelSet{}
	}
	return s
}

func (s *memoryStore) failFor(repo string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[repo] = err
}

func (s *memoryStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.calls...)
	sort.Strings(out)
	return out
}

func (s *memoryStore) record(call string, repo string) error {
	s.calls = append(s.calls, call)
	return s.fail[repo]
}

func (s *memoryStore) ListRepositories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var repos []string
	for repo := range s.labels {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos, nil
}

func (s *memoryStore) ListLabels(ctx context.Context, repo string) (labels.LabelSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := labels.LabelSet{}
	for name, color := range s.labels[repo] {
		out[name] = color
	}
	return out, nil
}

func (s *memoryStore) CreateLabel(ctx context.Context, repo, name, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(fmt.Sprintf("create %s %s %s", repo, name, color), repo); err != nil {
		return err
	}
	s.labels[repo][name] = color
	return nil
}

func (s *memoryStore) UpdateLabel(ctx context.Context, repo, oldName, name, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(fmt.Sprintf("update %s %s->%s %s", repo, oldName, name, color), repo); err != nil {
		return err
	}
	delete(s.labels[repo], oldName)
	s.labels[repo][name] = color
	return nil
}

func (s *memoryStore) DeleteLabel(ctx context.Context, repo, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(fmt.Sprintf("delete %s %s", repo, name), repo); err != nil {
		return err
	}
	delete(s.labels[repo], name)
	return nil
}

// slowStore delays label creation and gives up when ctx is done
type slowStore struct {
	*memoryStore
	delay time.Duration
}

func (s *slowStore) CreateLabel(ctx context.Context, repo, name, color string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
	}
	return s.memoryStore.CreateLabel(ctx, repo, name, color)
}
