package infer

import (
	"github.com/slate-ml/slate/internal/relay"
	"github.com/slate-ml/slate/internal/types"
)

// typeContext is the scoped symbol table for local variables: a stack of
// binding frames where the innermost frame shadows the outer ones.
type typeContext struct {
	stack []map[*relay.LocalVar]types.Type
}

func newTypeContext() *typeContext {
	return &typeContext{stack: []map[*relay.LocalVar]types.Type{{}}}
}

// insert binds v in the innermost frame.
func (tc *typeContext) insert(v *relay.LocalVar, t types.Type) {
	tc.stack[len(tc.stack)-1][v] = t
}

// lookup searches frames innermost-first. An unbound local is always an
// internal error: every binding must be introduced before it is referenced.
func (tc *typeContext) lookup(v *relay.LocalVar) (types.Type, error) {
	for i := len(tc.stack) - 1; i >= 0; i-- {
		if t, ok := tc.stack[i][v]; ok {
			return t, nil
		}
	}
	return nil, fatalErr("could not resolve local variable %q", v.NameHint)
}

// withFrame runs f inside a fresh frame. The frame is popped when f
// returns, including on error paths.
func (tc *typeContext) withFrame(f func() error) error {
	tc.stack = append(tc.stack, map[*relay.LocalVar]types.Type{})
	defer func() {
		tc.stack = tc.stack[:len(tc.stack)-1]
	}()
	return f()
}
