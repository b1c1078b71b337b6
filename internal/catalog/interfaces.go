package catalog

import "context"

// Service is the set of category operations the tree view depends on.
// Client and CachedService implement it.
type Service interface {
	Hierarchy(ctx context.Context) ([]Category, error)
	MainCategories(ctx context.Context) ([]Category, error)
	Create(ctx context.Context, input CategoryInput) (Category, error)
	Update(ctx context.Context, id string, input CategoryInput) (Category, error)
	Delete(ctx context.Context, id string) (string, error)
}

var (
	_ Service = (*Client)(nil)
	_ Service = (*CachedService)(nil)
)
