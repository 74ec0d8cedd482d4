package autodiff

import (
	set "github.com/hashicorp/go-set/v3"

	"github.com/slate-ml/slate/internal/dtypes"
	"github.com/slate-ml/slate/internal/expr"
	"github.com/slate-ml/slate/internal/tensor"
)

// OptimizeAndLiftNonzeronessConditions normalizes a compute tensor so that
// the regions where its value is zero are expressed as explicit conditions
// near the root of the body. Boolean masks multiplied into a value become
// Select nodes, nested zero-selects merge their conditions, and a zero-select
// feeding a summation moves into the reduction condition. The rewrite is
// semantically neutral; tensors it cannot improve pass through unchanged.
func OptimizeAndLiftNonzeronessConditions(t *tensor.Tensor) *tensor.Tensor {
	op, ok := t.Op.(*tensor.ComputeOp)
	if !ok {
		return t
	}
	changed := false
	bodies := make([]expr.Expr, len(op.Bodies))
	for i, body := range op.Bodies {
		nb := expr.Mutate(body, liftNonzeroness)
		if red, ok := nb.(*expr.Reduce); ok {
			nb = liftIntoReduceCondition(red)
		}
		nb = expr.Simplify(nb)
		bodies[i] = nb
		if nb != body {
			changed = true
		}
	}
	if !changed {
		return t
	}
	return tensor.NewComputeOp(op.Name, op.Axes, bodies).Output(t.ValueIndex)
}

func liftNonzeroness(e expr.Expr) expr.Expr {
	switch n := e.(type) {
	case *expr.Mul:
		if cond, ok := boolMask(n.A); ok {
			return zeroSelectOf(cond, n.B)
		}
		if cond, ok := boolMask(n.B); ok {
			return zeroSelectOf(cond, n.A)
		}
		sa, aok := zeroSelect(n.A)
		sb, bok := zeroSelect(n.B)
		switch {
		case aok && bok:
			return zeroSelectOf(&expr.And{A: sa.Cond, B: sb.Cond},
				&expr.Mul{A: sa.TrueValue, B: sb.TrueValue})
		case aok:
			return zeroSelectOf(sa.Cond, &expr.Mul{A: sa.TrueValue, B: n.B})
		case bok:
			return zeroSelectOf(sb.Cond, &expr.Mul{A: n.A, B: sb.TrueValue})
		}
	case *expr.Select:
		if expr.IsZero(n.FalseValue) {
			if inner, ok := zeroSelect(n.TrueValue); ok {
				return zeroSelectOf(&expr.And{A: n.Cond, B: inner.Cond}, inner.TrueValue)
			}
		}
	}
	return e
}

// boolMask matches cast(cond) used as a multiplicative 0/1 mask.
func boolMask(e expr.Expr) (expr.Expr, bool) {
	c, ok := e.(*expr.Cast)
	if !ok || c.Value.DType() != dtypes.Bool {
		return nil, false
	}
	return c.Value, true
}

func zeroSelect(e expr.Expr) (*expr.Select, bool) {
	s, ok := e.(*expr.Select)
	if ok && expr.IsZero(s.FalseValue) {
		return s, true
	}
	return nil, false
}

func zeroSelectOf(cond, value expr.Expr) expr.Expr {
	return &expr.Select{Cond: cond, TrueValue: value, FalseValue: expr.Zero(value.DType())}
}

// liftIntoReduceCondition moves a zero-select source of a plain summation
// into the reduction condition. Skipping an iteration contributes the
// identity, which for summation is exactly the zero the select produced.
func liftIntoReduceCondition(red *expr.Reduce) expr.Expr {
	comb := red.Comb
	if len(comb.Result) != 1 || !expr.IsZero(comb.Identity[0]) {
		return red
	}
	add, ok := comb.Result[0].(*expr.Add)
	if !ok {
		return red
	}
	plain := (add.A == comb.Lhs[0] && add.B == comb.Rhs[0]) ||
		(add.A == comb.Rhs[0] && add.B == comb.Lhs[0])
	if !plain {
		return red
	}
	sel, ok := zeroSelect(red.Source[0])
	if !ok {
		return red
	}
	cond := sel.Cond
	if red.Condition != nil && !isTrue(red.Condition) {
		cond = &expr.And{A: red.Condition, B: cond}
	}
	return &expr.Reduce{
		Comb:       comb,
		Source:     []expr.Expr{sel.TrueValue},
		Axis:       red.Axis,
		Condition:  cond,
		ValueIndex: 0,
	}
}

func isTrue(e expr.Expr) bool {
	imm, ok := e.(*expr.UintImm)
	return ok && imm.T == dtypes.Bool && imm.Value != 0
}

// InlineNonReductions rewrites t's bodies, replacing reads of the given
// tensors with their defining expressions. Reductions are left in place:
// inlining one would duplicate its iteration domain at every read site.
func InlineNonReductions(t *tensor.Tensor, targets []*tensor.Tensor) *tensor.Tensor {
	op, ok := t.Op.(*tensor.ComputeOp)
	if !ok {
		return t
	}
	want := set.New[*tensor.Tensor](len(targets))
	want.InsertSlice(targets)

	inline := func(e expr.Expr) expr.Expr {
		call, ok := e.(*expr.Call)
		if !ok || call.Kind != expr.CallTensor {
			return e
		}
		callee, ok := call.Func.(*tensor.ComputeOp)
		if !ok || !want.Contains(callee.Output(call.ValueIndex)) {
			return e
		}
		body := callee.Bodies[call.ValueIndex]
		if _, isReduce := body.(*expr.Reduce); isReduce {
			return e
		}
		vmap := make(map[*expr.Var]expr.Expr, len(call.Args))
		for i, v := range callee.AxisVars() {
			vmap[v] = call.Args[i]
		}
		return expr.Substitute(body, vmap)
	}

	changed := false
	bodies := make([]expr.Expr, len(op.Bodies))
	for i, body := range op.Bodies {
		bodies[i] = expr.Mutate(body, inline)
		if bodies[i] != body {
			changed = true
		}
	}
	if !changed {
		return t
	}
	return tensor.NewComputeOp(op.Name, op.Axes, bodies).Output(t.ValueIndex)
}

// InlineTailCall collapses a compute tensor whose body is exactly a read of
// another tensor at the tensor's own axes, returning the tensor it forwards
// to. Anything else passes through unchanged.
func InlineTailCall(t *tensor.Tensor) *tensor.Tensor {
	op, ok := t.Op.(*tensor.ComputeOp)
	if !ok || len(op.Bodies) != 1 {
		return t
	}
	call, ok := op.Bodies[0].(*expr.Call)
	if !ok || call.Kind != expr.CallTensor {
		return t
	}
	callee, ok := call.Func.(tensor.Operation)
	if !ok || len(call.Args) != len(op.Axes) {
		return t
	}
	for i, arg := range call.Args {
		if arg != expr.Expr(op.Axes[i].V) {
			return t
		}
	}
	return callee.Output(call.ValueIndex)
}
