package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/petshopone/fiscal-service/internal/domain/nfeimport"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/types"
)

// InMemoryNFeImportStore implements nfeimport.Repository
type InMemoryNFeImportStore struct {
	*InMemoryStore[*nfeimport.Import]

	mu    sync.RWMutex
	items map[string][]*nfeimport.Item
}

func NewInMemoryNFeImportStore() *InMemoryNFeImportStore {
	return &InMemoryNFeImportStore{
		InMemoryStore: NewInMemoryStore[*nfeimport.Import](),
		items:         make(map[string][]*nfeimport.Item),
	}
}

func (s *InMemoryNFeImportStore) Create(ctx context.Context, imp *nfeimport.Import) error {
	if existing, _ := s.GetByAccessKey(ctx, imp.AccessKey); existing != nil {
		return ierr.NewError("import already exists for access key").
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, imp.ID, imp)
}

func (s *InMemoryNFeImportStore) Update(ctx context.Context, imp *nfeimport.Import) error {
	if err := s.InMemoryStore.Update(ctx, imp.ID, imp); err != nil {
		return ierr.NewError("nfe import not found").Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryNFeImportStore) Get(ctx context.Context, id string) (*nfeimport.Import, error) {
	imp, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || imp.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewError("nfe import not found").Mark(ierr.ErrNotFound)
	}
	return imp, nil
}

func (s *InMemoryNFeImportStore) GetByAccessKey(ctx context.Context, accessKey string) (*nfeimport.Import, error) {
	tenantID := types.GetTenantID(ctx)
	matches, _ := s.InMemoryStore.List(ctx, nil, func(_ context.Context, i *nfeimport.Import, _ interface{}) bool {
		return i.TenantID == tenantID && i.AccessKey == accessKey
	}, nil)
	if len(matches) == 0 {
		return nil, ierr.NewError("nfe import not found").Mark(ierr.ErrNotFound)
	}
	return matches[0], nil
}

func (s *InMemoryNFeImportStore) List(ctx context.Context, filter *types.ImportFilter) ([]*nfeimport.Import, error) {
	tenantID := types.GetTenantID(ctx)
	return s.InMemoryStore.List(ctx, filter, func(_ context.Context, i *nfeimport.Import, f interface{}) bool {
		if i.TenantID != tenantID {
			return false
		}
		fl, _ := f.(*types.ImportFilter)
		if fl == nil {
			return true
		}
		if fl.ImportStatus != nil && i.ImportStatus != *fl.ImportStatus {
			return false
		}
		if fl.AccessKey != nil && i.AccessKey != *fl.AccessKey {
			return false
		}
		return true
	}, func(a, b *nfeimport.Import) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func (s *InMemoryNFeImportStore) Count(ctx context.Context, filter *types.ImportFilter) (int, error) {
	imports, err := s.List(ctx, filter)
	return len(imports), err
}

func (s *InMemoryNFeImportStore) CountImportedSince(ctx context.Context, since time.Time) (int, error) {
	imports, err := s.List(ctx, nil)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, imp := range imports {
		if imp.ImportStatus == types.ImportStatusImported &&
			imp.ImportedAt != nil && !imp.ImportedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryNFeImportStore) ReplaceItems(ctx context.Context, importID string, items []*nfeimport.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]*nfeimport.Item, len(items))
	copy(copied, items)
	sort.Slice(copied, func(i, j int) bool {
		return copied[i].ItemNumber < copied[j].ItemNumber
	})
	s.items[importID] = copied
	return nil
}

func (s *InMemoryNFeImportStore) GetItems(ctx context.Context, importID string) ([]*nfeimport.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[importID], nil
}
