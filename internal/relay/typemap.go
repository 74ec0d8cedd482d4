package relay

import (
	"fmt"

	"github.com/slate-ml/slate/internal/types"
)

// TypeMap is the checked-type side-table produced by one inference pass.
// Keeping inferred types out of the AST keeps shared expression nodes
// immutable: a node checked in two passes gets two independent entries.
//
// Entries are write-once per pass; reading a type that inference never
// assigned is a programming error and panics.
type TypeMap struct {
	entries map[Expr]types.Type
}

// NewTypeMap creates an empty side-table.
func NewTypeMap() *TypeMap {
	return &TypeMap{entries: make(map[Expr]types.Type)}
}

// Set records the checked type for a node, replacing any previous entry
// from the same pass (resolution rewrites entries in place).
func (m *TypeMap) Set(e Expr, t types.Type) {
	m.entries[e] = t
}

// Get returns the checked type for a node and whether one was recorded.
func (m *TypeMap) Get(e Expr) (types.Type, bool) {
	t, ok := m.entries[e]
	return t, ok
}

// CheckedType returns the checked type for a node, panicking if inference
// never visited it.
func (m *TypeMap) CheckedType(e Expr) types.Type {
	t, ok := m.entries[e]
	if !ok {
		panic(fmt.Sprintf("relay: node %T has no checked type; inference has not run on it", e))
	}
	return t
}

// Len returns the number of annotated nodes.
func (m *TypeMap) Len() int {
	return len(m.entries)
}

// Each calls f for every annotated node.
func (m *TypeMap) Each(f func(e Expr, t types.Type)) {
	for e, t := range m.entries {
		f(e, t)
	}
}
