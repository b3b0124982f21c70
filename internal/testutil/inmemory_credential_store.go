package testutil

import (
	"context"

	"github.com/petshopone/fiscal-service/internal/domain/credential"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/types"
)

// InMemoryCredentialStore implements credential.Repository
type InMemoryCredentialStore struct {
	*InMemoryStore[*credential.Credential]
}

func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{
		InMemoryStore: NewInMemoryStore[*credential.Credential](),
	}
}

func (s *InMemoryCredentialStore) Create(ctx context.Context, cred *credential.Credential) error {
	if existing, _ := s.GetByTenant(ctx); existing != nil {
		return ierr.NewError("credential already exists for tenant").
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, cred.ID, cred)
}

func (s *InMemoryCredentialStore) Update(ctx context.Context, cred *credential.Credential) error {
	if err := s.InMemoryStore.Update(ctx, cred.ID, cred); err != nil {
		return ierr.NewError("credential not found").Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryCredentialStore) GetByTenant(ctx context.Context) (*credential.Credential, error) {
	tenantID := types.GetTenantID(ctx)
	creds, _ := s.List(ctx, nil, func(_ context.Context, c *credential.Credential, _ interface{}) bool {
		return c.TenantID == tenantID && c.Status == types.StatusPublished
	}, nil)
	if len(creds) == 0 {
		return nil, ierr.NewError("credential not found").Mark(ierr.ErrNotFound)
	}
	return creds[0], nil
}

func (s *InMemoryCredentialStore) UpdateLastNSU(ctx context.Context, id string, lastNSU string) error {
	cred, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return ierr.NewError("credential not found").Mark(ierr.ErrNotFound)
	}
	cred.LastNSU = lastNSU
	return s.InMemoryStore.Update(ctx, id, cred)
}

func (s *InMemoryCredentialStore) ListActive(ctx context.Context) ([]*credential.Credential, error) {
	return s.List(ctx, nil, func(_ context.Context, c *credential.Credential, _ interface{}) bool {
		return c.IsUsable() && c.Status == types.StatusPublished
	}, func(i, j *credential.Credential) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
}

func (s *InMemoryCredentialStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return ierr.NewError("credential not found").Mark(ierr.ErrNotFound)
	}
	return nil
}
