// Package catalog serves the domain tree and the per-scope entity trees through
// their time-expiring caches.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/entity-catalog/internal/cache"
	"github.com/jonathan/entity-catalog/internal/tree"
	"github.com/jonathan/entity-catalog/internal/types"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Store is the data-access collaborator the trees are built from.
type Store interface {
	DomainPairs(ctx context.Context) ([]types.DomainPair, error)
	CatalogRecords(ctx context.Context, domain, subDomain string) ([]types.PathRecord, error)
}

// Options configures a Service.
type Options struct {
	TTL            time.Duration
	Clock          clockwork.Clock
	Logger         logrus.FieldLogger
	OnRefreshError func(key string, err error)
}

// Service builds catalog trees on demand and caches them.
type Service struct {
	store    Store
	domains  *cache.Single[[]types.DomainNode]
	entities *cache.Keyed[[]*types.TreeNode]
}

// NewService creates a Service reading from store.
func NewService(store Store, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	cacheOpts := func(name string) cache.Options {
		return cache.Options{
			Name:           name,
			TTL:            opts.TTL,
			Clock:          opts.Clock,
			Logger:         opts.Logger.WithField("component", "catalog"),
			OnRefreshError: opts.OnRefreshError,
		}
	}

	return &Service{
		store:    store,
		domains:  cache.NewSingle[[]types.DomainNode](cacheOpts("domain_tree")),
		entities: cache.NewKeyed[[]*types.TreeNode](cacheOpts("entity_tree")),
	}
}

// GetDomainTree returns the domain → sub-domain forest, rebuilding it when
// force is set or the cached copy is missing or expired. It never fails; when
// the store is unavailable the last good tree (or an empty one) is returned.
func (s *Service) GetDomainTree(ctx context.Context, force bool) []types.DomainNode {
	nodes := s.domains.GetOrRefresh(ctx, force, s.buildDomainTree)
	if nodes == nil {
		return []types.DomainNode{}
	}
	return nodes
}

// GetEntityTree returns the entity forest below domain/subDomain. Blank
// parameters are rejected with *MissingParameterError; fetch failures are
// absorbed like in GetDomainTree.
func (s *Service) GetEntityTree(ctx context.Context, domain, subDomain string, force bool) ([]*types.TreeNode, error) {
	var missing []string
	if strings.TrimSpace(domain) == "" {
		missing = append(missing, "domain")
	}
	if strings.TrimSpace(subDomain) == "" {
		missing = append(missing, "sub_domain")
	}
	if len(missing) > 0 {
		return nil, &MissingParameterError{Params: missing}
	}

	key := tree.ScopeKey(domain, subDomain)
	nodes := s.entities.GetOrRefresh(ctx, key, force, func(ctx context.Context) ([]*types.TreeNode, error) {
		return s.buildEntityTree(ctx, domain, subDomain)
	})
	if nodes == nil {
		return []*types.TreeNode{}, nil
	}
	return nodes, nil
}

// DomainTreeValid reports whether the cached domain tree is still fresh.
func (s *Service) DomainTreeValid() bool {
	return s.domains.Valid()
}

// EntityTreeValid reports whether the cached tree for domain/subDomain is still fresh.
func (s *Service) EntityTreeValid(domain, subDomain string) bool {
	return s.entities.Valid(tree.ScopeKey(domain, subDomain))
}

func (s *Service) buildDomainTree(ctx context.Context) ([]types.DomainNode, error) {
	pairs, err := s.store.DomainPairs(ctx)
	if err != nil {
		return nil, &FetchError{Op: "domain pairs", Err: err}
	}
	return tree.BuildDomainTree(pairs), nil
}

func (s *Service) buildEntityTree(ctx context.Context, domain, subDomain string) ([]*types.TreeNode, error) {
	records, err := s.store.CatalogRecords(ctx, domain, subDomain)
	if err != nil {
		return nil, &FetchError{Op: "catalog records", Scope: tree.ScopeKey(domain, subDomain), Err: err}
	}
	return tree.BuildEntityTree(domain, subDomain, records), nil
}
