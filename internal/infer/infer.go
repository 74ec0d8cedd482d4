// Package infer implements unification-based type inference over the relay
// AST. Given an expression it assigns a type to every subexpression,
// reconciling constraints through a union-find of incomplete types, and
// publishes the result as a checked-type side-table.
package infer

import (
	"github.com/davecgh/go-spew/spew"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/slate-ml/slate/internal/expr"
	"github.com/slate-ml/slate/internal/relay"
	"github.com/slate-ml/slate/internal/types"
)

// Environment holds the global definitions an inference pass may consult.
// Global lookup is not implemented yet; the field exists so the entry-point
// signature is stable.
type Environment struct {
	Globals map[*relay.GlobalVar]types.Type
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{Globals: make(map[*relay.GlobalVar]types.Type)}
}

// Inferencer drives one type inference pass. Its unifier and symbol table
// are scoped to that single pass: build a fresh Inferencer per Infer call.
type Inferencer struct {
	env     *Environment
	unifier *Unifier
	ctx     *typeContext
	typeMap *relay.TypeMap

	// nonFatal accumulates recoverable diagnostics so a single pass can
	// surface more than one problem.
	nonFatal *multierror.Error

	Debug bool
	Logf  func(format string, v ...interface{})
}

// NewInferencer creates an inferencer with a fresh unifier and symbol table.
func NewInferencer(env *Environment) *Inferencer {
	if env == nil {
		env = NewEnvironment()
	}
	return &Inferencer{
		env:     env,
		unifier: NewUnifier(),
		ctx:     newTypeContext(),
		typeMap: relay.NewTypeMap(),
	}
}

// Infer type-checks e with a fresh Inferencer and returns the expression
// together with the checked-type side-table. On failure no side-table is
// returned: annotations are all-or-nothing.
func Infer(env *Environment, e relay.Expr) (relay.Expr, *relay.TypeMap, error) {
	ti := NewInferencer(env)
	_, err := ti.Infer(e)
	if err != nil {
		return nil, nil, err
	}
	return e, ti.typeMap, nil
}

// Unifier exposes the pass's unifier, mainly for tests.
func (ti *Inferencer) Unifier() *Unifier {
	return ti.unifier
}

// TypeMap exposes the checked-type side-table being built.
func (ti *Inferencer) TypeMap() *relay.TypeMap {
	return ti.typeMap
}

// Infer runs the visitor on e, resolves the resulting type through the
// unifier, stamps it, and deeply resolves every annotation produced along
// the way.
func (ti *Inferencer) Infer(e relay.Expr) (types.Type, error) {
	ti.debugf("infer expr=%s", spew.Sdump(e))
	t, err := ti.visit(e)
	if err != nil {
		return nil, err
	}
	final := Resolve(ti.unifier, t)
	ti.debugf("infer type=%s", types.String(final))
	ti.typeMap.Set(e, final)
	ResolveExpr(ti.unifier, e, ti.typeMap)

	if err := ti.nonFatal.ErrorOrNil(); err != nil {
		return nil, err
	}
	return final, nil
}

// visit computes a type for one node, stamps the node, and registers any
// unification constraints the node induces. Dispatch is exhaustive: an
// unknown node kind is an internal error, never silently ignored.
func (ti *Inferencer) visit(e relay.Expr) (types.Type, error) {
	var (
		t   types.Type
		err error
	)
	switch n := e.(type) {
	case *relay.LocalVar:
		t, err = ti.ctx.lookup(n)
	case *relay.Constant:
		t = ti.visitConstant(n)
	case *relay.Let:
		t, err = ti.visitLet(n)
	case *relay.Function:
		t, err = ti.VisitFunction(n, false)
	case *relay.GlobalVar:
		err = fatalErr("global variable resolution is not yet implemented (%q)", n.NameHint)
	case *relay.Tuple:
		err = fatalErr("tuple typing is not yet implemented")
	case *relay.Param:
		err = fatalErr("param nodes are checked through their enclosing function")
	case *relay.Call:
		err = fatalErr("call typing is not yet implemented")
	case *relay.If:
		err = fatalErr("conditional typing is not yet implemented")
	default:
		err = fatalErr("no type rule for node kind %T", e)
	}
	if err != nil {
		return nil, err
	}
	ti.typeMap.Set(e, ti.unifier.Subst(t))
	return t, nil
}

func (ti *Inferencer) visitConstant(c *relay.Constant) types.Type {
	shape := make([]expr.Expr, len(c.Shape))
	for i, d := range c.Shape {
		shape[i] = expr.Int(d)
	}
	return types.NewTensorType(shape, c.DType)
}

func (ti *Inferencer) visitLet(let *relay.Let) (types.Type, error) {
	checked, err := ti.visit(let.Value)
	if err != nil {
		return nil, err
	}

	// Reconcile the checked value type with the annotation, if any.
	unified := checked
	if let.ValueType != nil {
		annotated := Resolve(ti.unifier, let.ValueType)
		unified, err = ti.unify(checked, annotated)
		if err != nil {
			return nil, err
		}
	}

	var bodyType types.Type
	err = ti.ctx.withFrame(func() error {
		ti.ctx.insert(let.Var, unified)
		var visitErr error
		bodyType, visitErr = ti.visit(let.Body)
		return visitErr
	})
	if err != nil {
		return nil, err
	}
	return bodyType, nil
}

// VisitFunction checks a function literal. The generalize flag is the hook
// for promoting free type variables to quantified parameters; it is
// currently a no-op and inference behaves identically for both values.
func (ti *Inferencer) VisitFunction(fn *relay.Function, generalize bool) (types.Type, error) {
	_ = generalize // generalization is not implemented

	var fnType types.Type
	err := ti.ctx.withFrame(func() error {
		argTypes := make([]types.Type, len(fn.Params))
		for i, p := range fn.Params {
			argType := Resolve(ti.unifier, p.Type)
			if argType == nil {
				// Recoverable: record the hole and keep checking with a
				// fresh variable so more diagnostics can surface.
				ti.reportError(fatalErr("parameter %q has no type annotation", p.Var.NameHint))
				fresh := types.Incomplete(types.KindType)
				ti.unifier.Insert(fresh)
				argType = fresh
			}
			argTypes[i] = argType
			ti.ctx.insert(p.Var, argType)
			ti.typeMap.Set(p, argType)
		}

		bodyType, err := ti.visit(fn.Body)
		if err != nil {
			return err
		}
		ret := bodyType
		if fn.RetType != nil {
			declared := Resolve(ti.unifier, fn.RetType)
			ret, err = ti.unify(bodyType, declared)
			if err != nil {
				return err
			}
		}
		fnType = &types.FuncType{ArgTypes: argTypes, RetType: ret, TypeParams: fn.TypeParams}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fnType, nil
}

// unify wraps the unifier, promoting a recoverable UnificationError into a
// pass-fatal error carrying both type representations.
func (ti *Inferencer) unify(t1, t2 types.Type) (types.Type, error) {
	unified, err := ti.unifier.Unify(t1, t2)
	if err != nil {
		return nil, fatalErr("error unifying `%s` and `%s`: %v",
			types.String(t1), types.String(t2), err)
	}
	return unified, nil
}

// reportError records a recoverable diagnostic without aborting the pass.
func (ti *Inferencer) reportError(err error) {
	ti.nonFatal = multierror.Append(ti.nonFatal, err)
}

func (ti *Inferencer) debugf(format string, v ...interface{}) {
	if ti.Debug && ti.Logf != nil {
		ti.Logf(format, v...)
	}
}
