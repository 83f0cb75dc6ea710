package labels

import "context"

// LabelStore is the remote label service the engine reconciles against.
// Repositories are addressed by "owner/name" slugs.
type LabelStore interface {
	ListRepositories(ctx context.Context) ([]string, error)
	ListLabels(ctx context.Context, repo string) (LabelSet, error)
	CreateLabel(ctx context.Context, repo, name, color string) error
	UpdateLabel(ctx context.Context, repo, oldName, name, color string) error
	DeleteLabel(ctx context.Context, repo, name string) error
}
