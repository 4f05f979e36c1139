package tree

import (
	"strings"

	"github.com/jonathan/entity-catalog/internal/types"
)

// rootDepth is the segment count of a root key: domain/sub_domain/first-level.
const rootDepth = scopeDepth + 1

// pathNode is the intermediate state of a node while records are merged.
type pathNode struct {
	title    string
	isLeaf   bool
	entityID *int64
}

// pathIndex is a map of full keys to nodes that remembers insertion order.
type pathIndex struct {
	keys  []string
	nodes map[string]*pathNode
}

func newPathIndex() *pathIndex {
	return &pathIndex{nodes: make(map[string]*pathNode)}
}

// getOrCreate returns the node for key, creating a non-leaf node on first sight.
func (idx *pathIndex) getOrCreate(key, title string) *pathNode {
	if n, ok := idx.nodes[key]; ok {
		return n
	}
	n := &pathNode{title: title}
	idx.nodes[key] = n
	idx.keys = append(idx.keys, key)
	return n
}

// BuildEntityTree builds the forest of catalog nodes below one domain/sub-domain.
//
// Every prefix of a record's relative path becomes a node keyed by
// "domain/sub_domain/prefix". The node where a record ends is marked as a leaf
// when the record carries an entity id; a later record ending at the same key
// overwrites the entity id, so the order of records decides which entity wins.
// The catalog store returns them sorted by entity_id, so the highest id wins.
// Roots and children keep first-discovery order.
func BuildEntityTree(domain, subDomain string, records []types.PathRecord) []*types.TreeNode {
	idx := newPathIndex()
	scope := domain + Delimiter + subDomain

	for _, record := range records {
		segments := ParsePath(record.Path)
		if len(segments) == 0 {
			continue
		}

		var relative strings.Builder
		for i, segment := range segments {
			if i > 0 {
				relative.WriteString(Delimiter)
			}
			relative.WriteString(segment)

			node := idx.getOrCreate(scope+Delimiter+relative.String(), segment)
			if i == len(segments)-1 && record.EntityID != nil {
				node.isLeaf = true
				id := *record.EntityID
				node.entityID = &id
			}
		}
	}

	return idx.materialize()
}

// materialize links the indexed nodes into a forest. A node whose parent key is
// not indexed is dropped.
func (idx *pathIndex) materialize() []*types.TreeNode {
	built := make(map[string]*types.TreeNode, len(idx.keys))
	roots := make([]*types.TreeNode, 0)

	for _, key := range idx.keys {
		n := idx.nodes[key]
		node := &types.TreeNode{
			Title:    n.title,
			Key:      key,
			IsLeaf:   n.isLeaf,
			Children: []*types.TreeNode{},
			EntityID: n.entityID,
		}
		built[key] = node

		if len(strings.Split(key, Delimiter)) == rootDepth {
			roots = append(roots, node)
		}
	}

	for _, key := range idx.keys {
		if len(strings.Split(key, Delimiter)) <= rootDepth {
			continue
		}
		if parent, ok := built[parentKey(key)]; ok {
			parent.Children = append(parent.Children, built[key])
		}
	}

	return roots
}
