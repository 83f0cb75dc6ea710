package labels

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/mock"
)

// MockLabelStore is a mock implementation of LabelStore for testing
type MockLabelStore struct {
	mock.Mock
}

func (m *MockLabelStore) ListRepositories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLabelStore) ListLabels(ctx context.Context, repo string) (LabelSet, error) {
	args := m.Called(ctx, repo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(LabelSet), args.Error(1)
}

func (m *MockLabelStore) CreateLabel(ctx context.Context, repo, name, color string) error {
	args := m.Called(ctx, repo, name, color)
	return args.Error(0)
}

func (m *MockLabelStore) UpdateLabel(ctx context.Context, repo, oldName, name, color string) error {
	args := m.Called(ctx, repo, oldName, name, color)
	return args.Error(0)
}

func (m *MockLabelStore) DeleteLabel(ctx context.Context, repo, name string) error {
	args := m.Called(ctx, repo, name)
	return args.Error(0)
}

// codedError mimics a remote error exposing a status line
type codedError struct {
	status  int
	message string
}

func (e *codedError) Error() string {
	return e.message
}

func (e *codedError) CodeMessage() string {
	return fmt.Sprintf("%d - %s", e.status, e.message)
}
