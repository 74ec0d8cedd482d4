package infer

import (
	"github.com/slate-ml/slate/internal/relay"
	"github.com/slate-ml/slate/internal/types"
)

// Resolve deeply replaces every solved type variable in t with its resolved
// form. The input is never mutated; when nothing changes the input is
// returned as-is.
func Resolve(u *Unifier, t types.Type) types.Type {
	if t == nil {
		return nil
	}
	resolved := u.Subst(t)
	switch x := resolved.(type) {
	case *types.IncompleteType, *types.TypeParam, *types.TypeFunction:
		return resolved
	case *types.TensorType:
		// dimensions are value expressions, not types; nothing to resolve
		return resolved
	case *types.FuncType:
		changed := false
		args := make([]types.Type, len(x.ArgTypes))
		for i, a := range x.ArgTypes {
			args[i] = Resolve(u, a)
			if args[i] != a {
				changed = true
			}
		}
		ret := Resolve(u, x.RetType)
		if ret != x.RetType {
			changed = true
		}
		if !changed && resolved == t {
			return t
		}
		return &types.FuncType{
			ArgTypes:        args,
			RetType:         ret,
			TypeParams:      x.TypeParams,
			TypeConstraints: x.TypeConstraints,
		}
	default:
		panic("infer.Resolve: unhandled type kind")
	}
}

// ResolveExpr rewrites the checked-type annotation of every node reachable
// from e to its resolved form. The AST itself is structurally unchanged;
// only the side-table entries are rewritten.
func ResolveExpr(u *Unifier, e relay.Expr, tm *relay.TypeMap) relay.Expr {
	stack := []relay.Expr{e}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		if t, ok := tm.Get(n); ok {
			tm.Set(n, Resolve(u, t))
		}
		switch node := n.(type) {
		case *relay.Constant, *relay.LocalVar, *relay.GlobalVar:
		case *relay.Tuple:
			stack = append(stack, node.Fields...)
		case *relay.Param:
			stack = append(stack, node.Var)
		case *relay.Function:
			for _, p := range node.Params {
				stack = append(stack, p)
			}
			stack = append(stack, node.Body)
		case *relay.Call:
			stack = append(stack, node.Op)
			stack = append(stack, node.Args...)
		case *relay.Let:
			stack = append(stack, node.Var, node.Value, node.Body)
		case *relay.If:
			stack = append(stack, node.Cond, node.TrueBranch, node.FalseBranch)
		default:
			panic("infer.ResolveExpr: unhandled node kind")
		}
	}
	return e
}
