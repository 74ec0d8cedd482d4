// Package autodiff implements reverse-mode automatic differentiation over
// the symbolic tensor graph. Derivatives are built in three layers: scalar
// expression rules (DerivativeExpr, JacobianExpr), the per-tensor Jacobian
// builder (Jacobian), and the reverse accumulator (Differentiate) that walks
// the graph from an output back to its inputs.
package autodiff

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/slate-ml/slate/internal/dtypes"
	"github.com/slate-ml/slate/internal/expr"
	"github.com/slate-ml/slate/internal/tensor"
)

// mutator differentiates a scalar expression with respect to a single
// target. Exactly one target kind is set: input/indices differentiate with
// respect to one element of a tensor, wrt with respect to a scalar variable.
type mutator struct {
	input   *tensor.Tensor
	indices []expr.Expr
	wrt     *expr.Var
}

// DerivativeExpr differentiates e with respect to the scalar variable wrt.
func DerivativeExpr(e expr.Expr, wrt *expr.Var) (expr.Expr, error) {
	return (&mutator{wrt: wrt}).mutate(e)
}

// JacobianExpr differentiates e with respect to the element of input at the
// given indices.
func JacobianExpr(e expr.Expr, input *tensor.Tensor, indices []expr.Expr) (expr.Expr, error) {
	if len(indices) != input.Rank() {
		return nil, errors.Errorf("autodiff: %d jacobian indices for input of rank %d",
			len(indices), input.Rank())
	}
	return (&mutator{input: input, indices: indices}).mutate(e)
}

func (m *mutator) mutate(e expr.Expr) (expr.Expr, error) {
	switch n := e.(type) {
	case *expr.Var:
		if m.wrt != nil && n == m.wrt {
			return expr.One(n.T), nil
		}
		return expr.Zero(n.T), nil
	case *expr.IntImm:
		return expr.Zero(n.T), nil
	case *expr.UintImm:
		return expr.Zero(n.T), nil
	case *expr.FloatImm:
		return expr.Zero(n.T), nil
	case *expr.Cast:
		// Derivatives chain through float casts only; casting to an
		// integral type has derivative zero almost everywhere.
		if !n.T.IsFloat() {
			return expr.Zero(n.T), nil
		}
		d, err := m.mutate(n.Value)
		if err != nil {
			return nil, err
		}
		return &expr.Cast{T: n.T, Value: d}, nil
	case *expr.Add:
		da, db, err := m.mutate2(n.A, n.B)
		if err != nil {
			return nil, err
		}
		return &expr.Add{A: da, B: db}, nil
	case *expr.Sub:
		da, db, err := m.mutate2(n.A, n.B)
		if err != nil {
			return nil, err
		}
		return &expr.Sub{A: da, B: db}, nil
	case *expr.Mul:
		da, db, err := m.mutate2(n.A, n.B)
		if err != nil {
			return nil, err
		}
		return &expr.Add{
			A: &expr.Mul{A: n.A, B: db},
			B: &expr.Mul{A: da, B: n.B},
		}, nil
	case *expr.Div:
		da, db, err := m.mutate2(n.A, n.B)
		if err != nil {
			return nil, err
		}
		return &expr.Div{
			A: &expr.Sub{A: &expr.Mul{A: da, B: n.B}, B: &expr.Mul{A: n.A, B: db}},
			B: &expr.Mul{A: n.B, B: n.B},
		}, nil
	case *expr.Min:
		da, db, err := m.mutate2(n.A, n.B)
		if err != nil {
			return nil, err
		}
		return &expr.Select{Cond: &expr.LE{A: n.A, B: n.B}, TrueValue: da, FalseValue: db}, nil
	case *expr.Max:
		da, db, err := m.mutate2(n.A, n.B)
		if err != nil {
			return nil, err
		}
		return &expr.Select{Cond: &expr.GE{A: n.A, B: n.B}, TrueValue: da, FalseValue: db}, nil
	case *expr.Select:
		dt, df, err := m.mutate2(n.TrueValue, n.FalseValue)
		if err != nil {
			return nil, err
		}
		return &expr.Select{Cond: n.Cond, TrueValue: dt, FalseValue: df}, nil
	case *expr.Call:
		return m.mutateCall(n)
	case *expr.Reduce:
		return m.mutateReduce(n)
	default:
		// Mod, comparisons, And/Or/Not, Ramp, Broadcast, Shuffle, Load,
		// Let, StringImm.
		return nil, unsupported(e)
	}
}

func (m *mutator) mutate2(a, b expr.Expr) (expr.Expr, expr.Expr, error) {
	da, err := m.mutate(a)
	if err != nil {
		return nil, nil, err
	}
	db, err := m.mutate(b)
	if err != nil {
		return nil, nil, err
	}
	return da, db, nil
}

func (m *mutator) mutateCall(n *expr.Call) (expr.Expr, error) {
	if n.Kind == expr.CallTensor {
		if m.input != nil && n.Func == m.input.Op && n.ValueIndex == m.input.ValueIndex {
			// Reading the differentiation target. The derivative is one
			// exactly when every read index matches the jacobian index.
			var cond expr.Expr
			for i, arg := range n.Args {
				eq := &expr.EQ{A: arg, B: m.indices[i]}
				if cond == nil {
					cond = eq
				} else {
					cond = &expr.And{A: cond, B: eq}
				}
			}
			if cond == nil {
				return expr.One(n.T), nil
			}
			return &expr.Cast{T: n.T, Value: cond}, nil
		}
		// Reads of other tensors are treated as constants here; the
		// reverse accumulator chains through them tensor by tensor.
		return expr.Zero(n.T), nil
	}
	if n.Kind == expr.CallPureIntrinsic && len(n.Args) == 1 {
		x := n.Args[0]
		d, err := m.mutate(x)
		if err != nil {
			return nil, err
		}
		switch n.Name {
		case "exp":
			return &expr.Mul{A: d, B: n}, nil
		case "log":
			return &expr.Div{A: d, B: x}, nil
		case "sigmoid":
			return &expr.Mul{
				A: d,
				B: &expr.Mul{A: n, B: &expr.Sub{A: expr.One(n.T), B: n}},
			}, nil
		case "tanh":
			return &expr.Mul{
				A: d,
				B: &expr.Sub{A: expr.One(n.T), B: &expr.Mul{A: n, B: n}},
			}, nil
		case "fabs":
			return &expr.Mul{
				A: d,
				B: &expr.Select{
					Cond:       &expr.GE{A: x, B: expr.Zero(x.DType())},
					TrueValue:  expr.One(n.T),
					FalseValue: negOne(n.T),
				},
			}, nil
		}
	}
	return nil, unsupported(n)
}

// mutateReduce differentiates a reduction by doubling its combiner: the new
// combiner carries a derivative component for every original component,
// derivative components first so the result keeps the same value index. Each
// derivative component applies the chain rule through the original result
// expression; sources and identities are doubled the same way. Components
// the selected output never reaches are removed afterwards.
func (m *mutator) mutateReduce(e *expr.Reduce) (expr.Expr, error) {
	red := expr.CloneReduction(e).(*expr.Reduce)
	comb := red.Comb
	n := len(comb.Result)

	newLhs := make([]*expr.Var, 0, 2*n)
	newRhs := make([]*expr.Var, 0, 2*n)
	for _, v := range comb.Lhs {
		newLhs = append(newLhs, v.CopyWithSuffix(".der"))
	}
	newLhs = append(newLhs, comb.Lhs...)
	for _, v := range comb.Rhs {
		newRhs = append(newRhs, v.CopyWithSuffix(".der"))
	}
	newRhs = append(newRhs, comb.Rhs...)

	newResult := make([]expr.Expr, 0, 2*n)
	for _, res := range comb.Result {
		var dres expr.Expr
		for i := 0; i < n; i++ {
			dl, err := DerivativeExpr(res, comb.Lhs[i])
			if err != nil {
				return nil, err
			}
			dr, err := DerivativeExpr(res, comb.Rhs[i])
			if err != nil {
				return nil, err
			}
			term := &expr.Add{
				A: &expr.Mul{A: newLhs[i], B: dl},
				B: &expr.Mul{A: newRhs[i], B: dr},
			}
			if dres == nil {
				dres = term
			} else {
				dres = &expr.Add{A: dres, B: term}
			}
		}
		newResult = append(newResult, dres)
	}
	newResult = append(newResult, comb.Result...)

	newIdentity := make([]expr.Expr, 0, 2*n)
	for _, id := range comb.Identity {
		did, err := m.mutate(id)
		if err != nil {
			return nil, err
		}
		newIdentity = append(newIdentity, did)
	}
	newIdentity = append(newIdentity, comb.Identity...)

	newSource := make([]expr.Expr, 0, 2*len(red.Source))
	for _, src := range red.Source {
		dsrc, err := m.mutate(src)
		if err != nil {
			return nil, err
		}
		newSource = append(newSource, dsrc)
	}
	newSource = append(newSource, red.Source...)

	doubled := &expr.Reduce{
		Comb: &expr.Combiner{
			Lhs:      newLhs,
			Rhs:      newRhs,
			Result:   newResult,
			Identity: newIdentity,
		},
		Source:     newSource,
		Axis:       red.Axis,
		Condition:  red.Condition,
		ValueIndex: red.ValueIndex,
	}
	return expr.SimplifyCombiner(doubled), nil
}

func negOne(t dtypes.DataType) expr.Expr {
	if t.IsFloat() {
		return &expr.FloatImm{T: t, Value: -1}
	}
	return &expr.IntImm{T: t, Value: -1}
}

// Jacobian builds the tensor of partial derivatives of output with respect
// to every element of input. The result has shape output ++ input: element
// (i..., j...) is d output[i...] / d input[j...].
func Jacobian(output, input *tensor.Tensor, optimize bool) (*tensor.Tensor, error) {
	op, ok := output.Op.(*tensor.ComputeOp)
	if !ok {
		return nil, errors.Errorf("autodiff: jacobian of non-compute tensor %s", output)
	}

	vmap := make(map[*expr.Var]expr.Expr, len(op.Axes))
	newAxes := make([]*expr.IterVar, 0, len(op.Axes)+input.Rank())
	for _, iv := range op.Axes {
		fresh := &expr.IterVar{V: iv.V.CopyWithSuffix(""), Extent: iv.Extent}
		newAxes = append(newAxes, fresh)
		vmap[iv.V] = fresh.V
	}
	inputIndices := make([]expr.Expr, 0, input.Rank())
	for i, extent := range input.Shape() {
		iv := expr.NewIterVar(fmt.Sprintf("jac_i%d", i), extent)
		newAxes = append(newAxes, iv)
		inputIndices = append(inputIndices, iv.V)
	}

	body := expr.Substitute(op.Bodies[output.ValueIndex], vmap)
	dbody, err := JacobianExpr(body, input, inputIndices)
	if err != nil {
		return nil, err
	}
	dbody = expr.Simplify(dbody)

	// A differentiated reduction is tuple-valued: emit one body per
	// combiner component so sibling slots stay addressable, and keep the
	// value index of the derivative component.
	valueIndex := 0
	var bodies []expr.Expr
	if red, ok := dbody.(*expr.Reduce); ok {
		valueIndex = red.ValueIndex
		for idx := range red.Source {
			bodies = append(bodies, &expr.Reduce{
				Comb:       red.Comb,
				Source:     red.Source,
				Axis:       red.Axis,
				Condition:  red.Condition,
				ValueIndex: idx,
			})
		}
	} else {
		bodies = []expr.Expr{dbody}
	}

	jac := tensor.NewComputeOp(op.Name+".jacobian", newAxes, bodies).Output(valueIndex)
	if optimize {
		jac = OptimizeAndLiftNonzeronessConditions(jac)
	}
	return jac, nil
}
