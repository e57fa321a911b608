package activity

import "context"

// Repository provides persistence operations for activity entries.
type Repository interface {
	Append(ctx context.Context, entry *ActivityEntry) error
	List(ctx context.Context, opts ListActivityOptions) ([]ActivityEntry, error)
}
