package infer

import (
	"github.com/slate-ml/slate/internal/expr"
	"github.com/slate-ml/slate/internal/types"
)

// Unifier solves equations between types, binding incomplete types in its
// union-find as it learns about them. A Unifier is scoped to a single
// inference pass and must not be reused across independent passes.
type Unifier struct {
	uf *UnionFind
}

// NewUnifier creates a unifier with an empty union-find.
func NewUnifier() *Unifier {
	return &Unifier{uf: NewUnionFind()}
}

// Insert registers a type variable ahead of unification. Variables reached
// during Unify are registered automatically.
func (u *Unifier) Insert(v *types.IncompleteType) {
	u.uf.Insert(v)
}

// Subst resolves t through the union-find at the top level only: a solved
// variable becomes its binding, an unsolved one its class representative,
// and anything else is returned unchanged. Deep resolution is Resolve's job.
func (u *Unifier) Subst(t types.Type) types.Type {
	v, ok := t.(*types.IncompleteType)
	if !ok {
		return t
	}
	if !u.uf.Contains(v) {
		return t
	}
	binding, err := u.uf.Binding(v)
	if err != nil {
		return t
	}
	if binding == nil {
		rep, err := u.uf.Find(v)
		if err != nil {
			return t
		}
		return rep
	}
	// The binding itself may be another variable solved later.
	if bv, ok := binding.(*types.IncompleteType); ok && bv != v {
		return u.Subst(bv)
	}
	return binding
}

// Unify makes t1 and t2 equal, returning the unified type. Incompatible
// head constructors or mismatched fixed fields yield a *UnificationError.
func (u *Unifier) Unify(t1, t2 types.Type) (types.Type, error) {
	if v1, ok := t1.(*types.IncompleteType); ok {
		return u.unifyVar(v1, t2)
	}
	if v2, ok := t2.(*types.IncompleteType); ok {
		return u.unifyVar(v2, t1)
	}

	switch x := t1.(type) {
	case *types.TensorType:
		y, ok := t2.(*types.TensorType)
		if !ok {
			return nil, unificationErr(t1, t2, "tensor type against %T", t2)
		}
		return u.unifyTensor(x, y)
	case *types.FuncType:
		y, ok := t2.(*types.FuncType)
		if !ok {
			return nil, unificationErr(t1, t2, "function type against %T", t2)
		}
		return u.unifyFunc(x, y)
	case *types.TypeParam:
		if y, ok := t2.(*types.TypeParam); ok && x == y {
			return x, nil
		}
		return nil, unificationErr(t1, t2, "distinct type parameters")
	case *types.TypeFunction:
		if y, ok := t2.(*types.TypeFunction); ok && x.Name == y.Name && x.NumArgs == y.NumArgs {
			return x, nil
		}
		return nil, unificationErr(t1, t2, "distinct type functions")
	default:
		return nil, unificationErr(t1, t2, "unhandled type kind %T", t1)
	}
}

// unifyVar binds v to t, or unifies t with v's existing binding.
func (u *Unifier) unifyVar(v *types.IncompleteType, t types.Type) (types.Type, error) {
	u.uf.Insert(v)

	if tv, ok := t.(*types.IncompleteType); ok {
		u.uf.Insert(tv)
		if rep1, _ := u.uf.Find(v); rep1 != nil {
			if rep2, _ := u.uf.Find(tv); rep1 == rep2 {
				return rep1, nil
			}
		}

		b1, err := u.uf.Binding(v)
		if err != nil {
			return nil, err
		}
		b2, err := u.uf.Binding(tv)
		if err != nil {
			return nil, err
		}
		if b1 != nil && b2 != nil {
			unified, err := u.Unify(b1, b2)
			if err != nil {
				return nil, err
			}
			if err := u.uf.Union(v, tv); err != nil {
				return nil, err
			}
			if err := u.uf.Bind(v, unified); err != nil {
				return nil, err
			}
			return unified, nil
		}
		if err := u.uf.Union(v, tv); err != nil {
			return nil, err
		}
		return u.Subst(v), nil
	}

	binding, err := u.uf.Binding(v)
	if err != nil {
		return nil, err
	}
	if binding != nil {
		unified, err := u.Unify(binding, t)
		if err != nil {
			return nil, err
		}
		if err := u.uf.Bind(v, unified); err != nil {
			return nil, err
		}
		return unified, nil
	}
	if err := u.uf.Bind(v, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (u *Unifier) unifyTensor(x, y *types.TensorType) (types.Type, error) {
	if x.DType != y.DType {
		return nil, unificationErr(x, y, "dtype %s vs %s", x.DType, y.DType)
	}
	if len(x.Shape) != len(y.Shape) {
		return nil, unificationErr(x, y, "rank %d vs %d", len(x.Shape), len(y.Shape))
	}
	for i := range x.Shape {
		if !expr.Equal(x.Shape[i], y.Shape[i]) {
			return nil, unificationErr(x, y, "dimension %d: %s vs %s",
				i, expr.String(x.Shape[i]), expr.String(y.Shape[i]))
		}
	}
	return x, nil
}

func (u *Unifier) unifyFunc(x, y *types.FuncType) (types.Type, error) {
	if len(x.ArgTypes) != len(y.ArgTypes) {
		return nil, unificationErr(x, y, "arity %d vs %d", len(x.ArgTypes), len(y.ArgTypes))
	}
	if len(x.TypeParams) != len(y.TypeParams) {
		return nil, unificationErr(x, y, "type parameter count %d vs %d",
			len(x.TypeParams), len(y.TypeParams))
	}
	if len(x.TypeConstraints) != len(y.TypeConstraints) {
		return nil, unificationErr(x, y, "constraint count %d vs %d",
			len(x.TypeConstraints), len(y.TypeConstraints))
	}
	args := make([]types.Type, len(x.ArgTypes))
	for i := range x.ArgTypes {
		unified, err := u.Unify(x.ArgTypes[i], y.ArgTypes[i])
		if err != nil {
			return nil, err
		}
		args[i] = unified
	}
	ret, err := u.Unify(x.RetType, y.RetType)
	if err != nil {
		return nil, err
	}
	return &types.FuncType{
		ArgTypes:        args,
		RetType:         ret,
		TypeParams:      x.TypeParams,
		TypeConstraints: x.TypeConstraints,
	}, nil
}
