// Package types provides type definitions for structured data used throughout the entity catalog.
package types

import "time"

// PathRecord is one catalog placement of an entity.
// An entity may be placed under several paths.
type PathRecord struct {
	Path      string  `json:"path"`
	Domain    string  `json:"domain"`
	SubDomain *string `json:"sub_domain,omitempty"`
	EntityID  *int64  `json:"entity_id,omitempty"`
}

// DomainPair is a distinct (domain, sub_domain) combination found in the catalog.
type DomainPair struct {
	Domain    string  `json:"domain"`
	SubDomain *string `json:"sub_domain,omitempty"`
}

// TreeNode is a node of the entity tree rendered by the UI tree component.
// A node may be a leaf and still have children when a record ends at its
// depth while deeper paths share the same prefix.
type TreeNode struct {
	Title    string      `json:"title"`
	Key      string      `json:"key"`
	IsLeaf   bool        `json:"isLeaf"`
	Children []*TreeNode `json:"children"`
	EntityID *int64      `json:"entity_id"`
}

// DomainNode is a top-level node of the domain tree.
type DomainNode struct {
	Key      string        `json:"key"`
	Title    string        `json:"title"`
	Children []DomainChild `json:"children"`
}

// DomainChild is a sub-domain entry below a DomainNode. Key is "domain:subdomain".
type DomainChild struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// Entity is the API view of an entities row.
type Entity struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description"`
	ValidityResult *bool      `json:"validity_result"`
	ValidityMethod *string    `json:"validity_method"`
	CreatedAt      *time.Time `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

// EntitySource is a data source linked to an entity through entities_source_map.
type EntitySource struct {
	ID         int64      `json:"id"`
	EntityID   int64      `json:"entity_id"`
	SourceType string     `json:"source_type"`
	SourceRef  *string    `json:"source_ref"`
	CreatedAt  *time.Time `json:"created_at"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
