package tree

import (
	"strings"

	"github.com/jonathan/entity-catalog/internal/types"
)

// ScopeKey joins a domain and sub-domain into the "domain:subdomain" key used
// by domain tree children and the per-scope entity tree cache.
func ScopeKey(domain, subDomain string) string {
	return domain + ":" + subDomain
}

// BuildDomainTree groups distinct (domain, sub_domain) pairs into a two-level forest.
// Blank sub-domains are skipped and duplicates are merged by exact title match;
// a domain with no usable sub-domain still appears, with no children.
func BuildDomainTree(pairs []types.DomainPair) []types.DomainNode {
	nodes := make([]types.DomainNode, 0)
	position := make(map[string]int)

	for _, pair := range pairs {
		i, seen := position[pair.Domain]
		if !seen {
			i = len(nodes)
			position[pair.Domain] = i
			nodes = append(nodes, types.DomainNode{
				Key:      pair.Domain,
				Title:    pair.Domain,
				Children: []types.DomainChild{},
			})
		}

		if pair.SubDomain == nil || strings.TrimSpace(*pair.SubDomain) == "" {
			continue
		}
		sub := *pair.SubDomain
		if hasChild(nodes[i].Children, sub) {
			continue
		}
		nodes[i].Children = append(nodes[i].Children, types.DomainChild{
			Key:   ScopeKey(pair.Domain, sub),
			Title: sub,
		})
	}

	return nodes
}

func hasChild(children []types.DomainChild, title string) bool {
	for _, c := range children {
		if c.Title == title {
			return true
		}
	}
	return false
}
