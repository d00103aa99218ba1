// Package refresolver replaces catalog-assigned numeric ids with portable
// identities so an exported bundle can be imported into another catalog.
package refresolver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolved is returned for a foreign key with no portable identity.
var ErrUnresolved = errors.New("unresolved reference")

const (
	// PublicGroupName is the catalog's default visibility group.
	PublicGroupName = "Sitewide Group"
	// PublicGroupID is the identity every catalog instance knows the public
	// group by.
	PublicGroupID = "public_group_id"
)

// Identity derives a portable identity from a human readable name.
func Identity(name string) string {
	return strings.TrimSpace(name)
}

// Ref marks identity as "resolve by identity" for the importer.
func Ref(identity string) string {
	return "=" + identity
}

// PublicGroupRef is the placeholder the coarse flows put in every group
// list.
func PublicGroupRef() string {
	return Ref(PublicGroupID)
}

// Dedup keeps the first occurrence of every id.
func Dedup[T any](items []T, id func(T) int) []T {
	seen := make(map[int]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := id(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Table maps the numeric ids of one entity kind to identities.
type Table struct {
	kind string
	ids  map[int]string
}

func NewTable(kind string) *Table {
	return &Table{kind: kind, ids: make(map[int]string)}
}

func (t *Table) Kind() string {
	return t.kind
}

// Set records identity for id. A later Set for the same id wins.
func (t *Table) Set(id int, identity string) {
	t.ids[id] = identity
}

func (t *Table) Identity(id int) (string, bool) {
	identity, ok := t.ids[id]
	return identity, ok
}

// Ref resolves id to a symbolic reference.
func (t *Table) Ref(id int) (string, error) {
	identity, ok := t.ids[id]
	if !ok {
		return "", &UnresolvedError{Kind: t.kind, ID: id}
	}
	return Ref(identity), nil
}

// Refs resolves every id, failing on the first one that is missing.
func (t *Table) Refs(ids []int) ([]string, error) {
	refs := make([]string, 0, len(ids))
	for _, id := range ids {
		ref, err := t.Ref(id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (t *Table) Len() int {
	return len(t.ids)
}

// UnresolvedError names the reference that could not be resolved. It
// matches ErrUnresolved with errors.Is.
type UnresolvedError struct {
	Kind string
	ID   int
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Kind, e.ID, ErrUnresolved)
}

func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolved
}
