package roster

import (
	"context"
)

// Repository defines the persistence contract for the roster.
// The implementation lives in infrastructure/persistence and stores the whole
// roster as a single document; groups are few and small, so partial updates
// are not worth the complexity.
type Repository interface {
	// Load returns all persisted groups.
	// Returns an empty slice when nothing has been stored yet.
	Load(ctx context.Context) ([]*Group, error)

	// Save replaces the persisted roster with the given groups.
	Save(ctx context.Context, groups []*Group) error
}
