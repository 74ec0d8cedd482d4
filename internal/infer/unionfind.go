package infer

import (
	"github.com/pkg/errors"

	"github.com/slate-ml/slate/internal/types"
)

// UnionFind tracks equivalence classes of incomplete types. Variables are
// registered explicitly and represented by small integer handles into an
// arena, so chains never form pointer cycles. Each class optionally carries
// a binding: the type its members have been solved to.
type UnionFind struct {
	handles map[*types.IncompleteType]int
	vars    []*types.IncompleteType
	parent  []int
	// binding is indexed by handle but only meaningful at class roots.
	binding []types.Type
}

// NewUnionFind creates an empty union-find.
func NewUnionFind() *UnionFind {
	return &UnionFind{handles: make(map[*types.IncompleteType]int)}
}

// Insert registers a type variable. Inserting the same variable twice is a
// no-op.
func (uf *UnionFind) Insert(v *types.IncompleteType) {
	if _, ok := uf.handles[v]; ok {
		return
	}
	h := len(uf.vars)
	uf.handles[v] = h
	uf.vars = append(uf.vars, v)
	uf.parent = append(uf.parent, h)
	uf.binding = append(uf.binding, nil)
}

// Contains reports whether v has been inserted.
func (uf *UnionFind) Contains(v *types.IncompleteType) bool {
	_, ok := uf.handles[v]
	return ok
}

// Find returns the representative variable of v's equivalence class.
// Looking up a variable that was never inserted is an error.
func (uf *UnionFind) Find(v *types.IncompleteType) (*types.IncompleteType, error) {
	h, ok := uf.handles[v]
	if !ok {
		return nil, errors.Errorf("union-find: variable %s was never inserted", types.String(v))
	}
	return uf.vars[uf.root(h)], nil
}

// Union merges the classes of a and b. Bindings are not reconciled here;
// the unifier is responsible for unifying bound classes before merging.
func (uf *UnionFind) Union(a, b *types.IncompleteType) error {
	ha, ok := uf.handles[a]
	if !ok {
		return errors.Errorf("union-find: variable %s was never inserted", types.String(a))
	}
	hb, ok := uf.handles[b]
	if !ok {
		return errors.Errorf("union-find: variable %s was never inserted", types.String(b))
	}
	ra, rb := uf.root(ha), uf.root(hb)
	if ra == rb {
		return nil
	}
	// carry a binding over to the surviving root
	if uf.binding[rb] == nil {
		uf.binding[rb] = uf.binding[ra]
	}
	uf.binding[ra] = nil
	uf.parent[ra] = rb
	return nil
}

// Binding returns the type the class of v has been solved to, or nil when
// the class is still unbound.
func (uf *UnionFind) Binding(v *types.IncompleteType) (types.Type, error) {
	h, ok := uf.handles[v]
	if !ok {
		return nil, errors.Errorf("union-find: variable %s was never inserted", types.String(v))
	}
	return uf.binding[uf.root(h)], nil
}

// Bind solves the class of v to t.
func (uf *UnionFind) Bind(v *types.IncompleteType, t types.Type) error {
	h, ok := uf.handles[v]
	if !ok {
		return errors.Errorf("union-find: variable %s was never inserted", types.String(v))
	}
	uf.binding[uf.root(h)] = t
	return nil
}

// root follows parent links with path compression.
func (uf *UnionFind) root(h int) int {
	for uf.parent[h] != h {
		uf.parent[h] = uf.parent[uf.parent[h]]
		h = uf.parent[h]
	}
	return h
}
