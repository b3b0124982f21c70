package credential

import (
	"context"
)

// Repository defines the interface for fiscal credential data access.
// Each tenant has at most one credential.
type Repository interface {
	// Create creates a new credential for the tenant in context
	Create(ctx context.Context, cred *Credential) error

	// Update persists changes to an existing credential
	Update(ctx context.Context, cred *Credential) error

	// GetByTenant retrieves the credential of the tenant in context
	GetByTenant(ctx context.Context) (*Credential, error)

	// UpdateLastNSU advances the sync checkpoint for a credential
	UpdateLastNSU(ctx context.Context, id string, lastNSU string) error

	// ListActive retrieves all usable credentials across tenants,
	// used by the sync fan-out
	ListActive(ctx context.Context) ([]*Credential, error)

	// Delete removes a credential by ID
	Delete(ctx context.Context, id string) error
}
