package testutil

import (
	"context"
	"sync"

	"github.com/petshopone/fiscal-service/internal/sefaz"
)

// FakeDistribuicao is a scripted sefaz.Querier for service tests.
// Responses are consumed in order; the last one repeats.
type FakeDistribuicao struct {
	mu sync.Mutex

	KeyResponses []*sefaz.QueryResult
	KeyErrors    []error
	NSUResponses []*sefaz.QueryResult
	NSUErrors    []error

	KeyCalls []string
	NSUCalls []string
}

func NewFakeDistribuicao() *FakeDistribuicao {
	return &FakeDistribuicao{}
}

func (f *FakeDistribuicao) QueryByAccessKey(ctx context.Context, accessKey string) (*sefaz.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.KeyCalls = append(f.KeyCalls, accessKey)
	idx := len(f.KeyCalls) - 1
	if idx < len(f.KeyErrors) && f.KeyErrors[idx] != nil {
		return nil, f.KeyErrors[idx]
	}
	return pick(f.KeyResponses, idx), nil
}

func (f *FakeDistribuicao) QueryByLastNSU(ctx context.Context, lastNSU string) (*sefaz.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.NSUCalls = append(f.NSUCalls, lastNSU)
	idx := len(f.NSUCalls) - 1
	if idx < len(f.NSUErrors) && f.NSUErrors[idx] != nil {
		return nil, f.NSUErrors[idx]
	}
	return pick(f.NSUResponses, idx), nil
}

func pick[T any](items []T, idx int) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	if idx >= len(items) {
		return items[len(items)-1]
	}
	return items[idx]
}
