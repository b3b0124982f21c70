package nfeimport

import (
	"context"
	"time"

	"github.com/petshopone/fiscal-service/internal/types"
)

// Repository defines the interface for NF-e import data access
type Repository interface {
	// Create creates a new import row. An import is unique per
	// tenant and access key.
	Create(ctx context.Context, imp *Import) error

	// Update persists changes to an existing import
	Update(ctx context.Context, imp *Import) error

	// Get retrieves an import by ID
	Get(ctx context.Context, id string) (*Import, error)

	// GetByAccessKey retrieves the tenant's import for an access key
	GetByAccessKey(ctx context.Context, accessKey string) (*Import, error)

	// List retrieves imports based on filter criteria
	List(ctx context.Context, filter *types.ImportFilter) ([]*Import, error)

	// Count counts imports based on filter criteria
	Count(ctx context.Context, filter *types.ImportFilter) (int, error)

	// CountImportedSince counts imports completed at or after the
	// given time, used to enforce the per-run sync cap
	CountImportedSince(ctx context.Context, since time.Time) (int, error)

	// ReplaceItems atomically swaps the item set of an import
	ReplaceItems(ctx context.Context, importID string, items []*Item) error

	// GetItems retrieves the items of an import ordered by item number
	GetItems(ctx context.Context, importID string) ([]*Item, error)
}
