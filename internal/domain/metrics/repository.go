package metrics

import "context"

// Repository is the precompute serving cache. Replace swaps the full row set
// for a scope atomically; List never computes, it only reads what the last
// precompute run left behind.
type Repository interface {
	Replace(ctx context.Context, scope Scope, rows []Row) error
	List(ctx context.Context, scope Scope, limit int) ([]Row, error)
	ListSeriesKeys(ctx context.Context, scope Scope) ([]string, error)
}
