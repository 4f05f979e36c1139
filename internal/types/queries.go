package types

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ListQuery holds the common listing parameters accepted by every /api/entities route.
type ListQuery struct {
	Page    int    `json:"page" validate:"gte=1"`
	PerPage int    `json:"per_page" validate:"gte=1,lte=1000"`
	SortBy  string `json:"sort_by,omitempty"`
	Order   string `json:"order" validate:"oneof=asc desc"`
}

// DefaultListQuery returns the listing parameters used when none are supplied.
func DefaultListQuery() ListQuery {
	return ListQuery{Page: 1, PerPage: 10, Order: "asc"}
}

// Validate validates the ListQuery using the validator.
func (q *ListQuery) Validate() error {
	return validate.Struct(q)
}

// EntityIDQuery is the query of the entity detail routes.
type EntityIDQuery struct {
	EntityID int64 `json:"entity_id" validate:"required,gte=1"`
}

// Validate validates the EntityIDQuery using the validator.
func (q *EntityIDQuery) Validate() error {
	return validate.Struct(q)
}

// EntityTreeQuery is the query of the entities-tree route.
type EntityTreeQuery struct {
	Domain    string `json:"domain" validate:"required"`
	SubDomain string `json:"sub_domain" validate:"required"`
	// Refresh rebuilds the tree instead of serving the cached copy.
	Refresh bool `json:"refresh"`
}

// Validate validates the EntityTreeQuery using the validator.
func (q *EntityTreeQuery) Validate() error {
	return validate.Struct(q)
}
