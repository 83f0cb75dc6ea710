package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelord/pkg/config"
	"labelord/pkg/fuzzy"
	"labelord/pkg/github"
	"labelord/pkg/labels"
)

// fakeStore is an in-memory LabelStore recording every mutation
type fakeStore struct {
	mu       sync.Mutex
	repos    []string
	labels   map[string]labels.LabelSet
	listErr  error
	repoErrs map[string]error
	calls    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		labels:   map[string]labels.LabelSet{},
		repoErrs: map[string]error{},
	}
}

func (s *fakeStore) ListRepositories(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]string(nil), s.repos...), nil
}

func (s *fakeStore) ListLabels(_ context.Context, repo string) (labels.LabelSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repoErrs[repo]; err != nil {
		return nil, err
	}
	out := labels.LabelSet{}
	for name, color := range s.labels[repo] {
		out[name] = color
	}
	return out, nil
}

func (s *fakeStore) CreateLabel(_ context.Context, repo, name, color string) error {
	return s.mutate(repo, fmt.Sprintf("create %s %s %s", repo, name, color), func(set labels.LabelSet) {
		set[name] = color
	})
}

func (s *fakeStore) UpdateLabel(_ context.Context, repo, oldName, name, color string) error {
	return s.mutate(repo, fmt.Sprintf("update %s %s->%s %s", repo, oldName, name, color), func(set labels.LabelSet) {
		delete(set, oldName)
		set[name] = color
	})
}

func (s *fakeStore) DeleteLabel(_ context.Context, repo, name string) error {
	return s.mutate(repo, fmt.Sprintf("delete %s %s", repo, name), func(set labels.LabelSet) {
		delete(set, name)
	})
}

func (s *fakeStore) mutate(repo, call string, apply func(labels.LabelSet)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	if s.labels[repo] == nil {
		s.labels[repo] = labels.LabelSet{}
	}
	apply(s.labels[repo])
	return nil
}

func (s *fakeStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.calls...)
	sort.Strings(out)
	return out
}

// stubPicker always selects a fixed value
type stubPicker struct {
	choice  string
	offered []fuzzy.Option
}

func (p *stubPicker) SetOptions(options []fuzzy.Option) error {
	p.offered = options
	return nil
}

func (p *stubPicker) SetPrompt(string) {}

func (p *stubPicker) Select() (string, error) {
	return p.choice, nil
}

type cliResult struct {
	stdout string
	stderr string
	code   int
	token  string
}

// runCLI executes the command tree against store with isolated environment
func runCLI(t *testing.T, store labels.LabelStore, picker fuzzy.Selector, args ...string) cliResult {
	t.Helper()
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "absent.cfg"))
	color.NoColor = true

	var result cliResult
	o := &rootOptions{
		newStore: func(token, _ string, _ time.Duration) (labels.LabelStore, error) {
			result.token = token
			return store, nil
		},
		newPicker: func(string) fuzzy.Selector {
			return picker
		},
		interactive: func() bool { return picker != nil },
	}

	var stdout, stderr bytes.Buffer
	result.code = execute(context.Background(), newRootCmd(o), args, &stdout, &stderr)
	result.stdout = stdout.String()
	result.stderr = stderr.String()
	return result
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cfg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func notFound() error {
	return &github.Error{Type: github.ErrorTypeNotFound, StatusCode: 404, Reason: "Not Found", Message: "Repository not found"}
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()

	assert.Equal(t, "labelord", root.Use)
	assert.Equal(t, Version, root.Version)

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"list-repos", "list-labels", "run", "run-server"})

	for _, flag := range []string{"config", "token", "api-url", "loglevel", "logformat"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCommandHelp(t *testing.T) {
	result := runCLI(t, newFakeStore(), nil, "--help")

	assert.Equal(t, ExitOK, result.code)
	assert.Contains(t, result.stdout, "labelord")
	assert.Contains(t, result.stdout, "list-repos")
	assert.Contains(t, result.stdout, "run-server")
}

func TestVersion(t *testing.T) {
	result := runCLI(t, newFakeStore(), nil, "--version")

	assert.Equal(t, ExitOK, result.code)
	assert.Equal(t, "labelord, version 0.2\n", result.stdout)
}

func TestConfigFlagMustExist(t *testing.T) {
	result := runCLI(t, newFakeStore(), nil, "-c", filepath.Join(t.TempDir(), "missing.cfg"), "list-repos")

	assert.Equal(t, ExitFailure, result.code)
	assert.Contains(t, result.stderr, "--config")
}

func TestTokenResolution(t *testing.T) {
	path := writeConfig(t, "[github]\ntoken = from-file\n")

	t.Run("config file", func(t *testing.T) {
		result := runCLI(t, newFakeStore(), nil, "-c", path, "list-repos")
		require.Equal(t, ExitOK, result.code, result.stderr)
		assert.Equal(t, "from-file", result.token)
	})

	t.Run("flag wins", func(t *testing.T) {
		result := runCLI(t, newFakeStore(), nil, "-c", path, "--token", "from-flag", "list-repos")
		require.Equal(t, ExitOK, result.code, result.stderr)
		assert.Equal(t, "from-flag", result.token)
	})
}

func TestInvalidConfig(t *testing.T) {
	path := writeConfig(t, "[labels]\nbug = red\n")

	result := runCLI(t, newFakeStore(), nil, "-c", path, "list-repos")

	assert.Equal(t, ExitFailure, result.code)
	assert.Contains(t, result.stderr, "invalid label colours")
}
