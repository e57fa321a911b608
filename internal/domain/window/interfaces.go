package window

import "context"

// Repository persists the week meta document.
type Repository interface {
	Load(ctx context.Context) (*Meta, error)
	Save(ctx context.Context, meta *Meta) error
}
