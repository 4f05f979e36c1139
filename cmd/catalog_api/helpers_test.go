package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jonathan/entity-catalog/internal/catalog"
	"github.com/jonathan/entity-catalog/internal/tree"
	"github.com/jonathan/entity-catalog/internal/types"
)

// fakeStore serves in-memory catalog rows and records how many reads overlap.
type fakeStore struct {
	pairs   []types.DomainPair
	records map[string][]types.PathRecord
	// err, when set, fails every read.
	err error

	mu        sync.Mutex
	inFlight  int
	maxFlight int
	calls     atomic.Int64
}

func newFakeStore() *fakeStore {
	wireless := types.StringPtr("无线通信")
	optical := types.StringPtr("光通信")
	return &fakeStore{
		pairs: []types.DomainPair{
			{Domain: "通信", SubDomain: wireless},
			{Domain: "通信", SubDomain: optical},
			{Domain: "数据科学"},
		},
		records: map[string][]types.PathRecord{
			tree.ScopeKey("通信", "无线通信"): {
				{Path: "通信/无线通信/5G", Domain: "通信", SubDomain: wireless, EntityID: types.Int64Ptr(8)},
				{Path: "通信/无线通信/5G/毫米波", Domain: "通信", SubDomain: wireless, EntityID: types.Int64Ptr(10)},
			},
			tree.ScopeKey("通信", "光通信"): {
				{Path: "通信/光通信/光纤", Domain: "通信", SubDomain: optical, EntityID: types.Int64Ptr(20)},
			},
		},
	}
}

func (f *fakeStore) DomainPairs(_ context.Context) ([]types.DomainPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pairs, nil
}

func (f *fakeStore) CatalogRecords(_ context.Context, domain, subDomain string) ([]types.PathRecord, error) {
	f.calls.Add(1)

	f.mu.Lock()
	f.inFlight++
	f.maxFlight = max(f.maxFlight, f.inFlight)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.err != nil {
		return nil, f.err
	}
	return f.records[tree.ScopeKey(domain, subDomain)], nil
}

// fakeTrees builds trees from a fakeStore without caching.
type fakeTrees struct {
	store *fakeStore
	// forced records the force flag of the last GetEntityTree call.
	forced bool
}

func newFakeTrees() *fakeTrees {
	return &fakeTrees{store: newFakeStore()}
}

func (f *fakeTrees) GetDomainTree(ctx context.Context, _ bool) []types.DomainNode {
	pairs, _ := f.store.DomainPairs(ctx)
	return tree.BuildDomainTree(pairs)
}

func (f *fakeTrees) GetEntityTree(ctx context.Context, domain, subDomain string, force bool) ([]*types.TreeNode, error) {
	f.forced = force
	if domain == "" || subDomain == "" {
		return nil, &catalog.MissingParameterError{Params: []string{"domain", "sub_domain"}}
	}
	records, _ := f.store.CatalogRecords(ctx, domain, subDomain)
	return tree.BuildEntityTree(domain, subDomain, records), nil
}

// getBinaryPath returns the path to the catalog_api binary for testing
func getBinaryPath(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", "catalog_api")
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'make build'", binaryPath)
	}

	return binaryPath
}
