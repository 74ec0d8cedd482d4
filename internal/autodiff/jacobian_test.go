package autodiff_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/slate-ml/slate/internal/autodiff"
	"github.com/slate-ml/slate/internal/dtypes"
	"github.com/slate-ml/slate/internal/expr"
	"github.com/slate-ml/slate/internal/tensor"
)

// tensorData binds placeholder tensors to row-major float values.
type tensorData map[*tensor.Tensor][]float64

func staticDims(t *testing.T, tn *tensor.Tensor) []int64 {
	t.Helper()
	out := make([]int64, tn.Rank())
	for i, d := range tn.Shape() {
		imm, ok := d.(*expr.IntImm)
		if !ok {
			t.Fatalf("non-constant dimension %s", expr.String(d))
		}
		out[i] = imm.Value
	}
	return out
}

func flatten(dims, idx []int64) int64 {
	var off int64
	for i, d := range dims {
		off = off*d + idx[i]
	}
	return off
}

// evalAt numerically evaluates one element of a tensor, resolving
// placeholder reads from data and compute reads recursively.
func evalAt(t *testing.T, tn *tensor.Tensor, data tensorData, idx ...int64) float64 {
	t.Helper()
	var read func(fn expr.FuncRef, vi int, indices []int64) (float64, error)
	read = func(fn expr.FuncRef, vi int, indices []int64) (float64, error) {
		op, ok := fn.(tensor.Operation)
		if !ok {
			return 0, fmt.Errorf("read of unknown producer %q", fn.FuncName())
		}
		target := op.Output(vi)
		if vals, ok := data[target]; ok {
			return vals[flatten(staticDims(t, target), indices)], nil
		}
		cop, ok := op.(*tensor.ComputeOp)
		if !ok {
			return 0, fmt.Errorf("no data bound for placeholder %q", fn.FuncName())
		}
		env := &expr.EvalEnv{Vars: make(map[*expr.Var]float64, len(cop.Axes)), Read: read}
		for i, iv := range cop.Axes {
			env.Vars[iv.V] = float64(indices[i])
		}
		return expr.Eval(cop.Bodies[vi], env)
	}
	v, err := read(tn.Op, tn.ValueIndex, idx)
	if err != nil {
		t.Fatalf("evaluating %s at %v: %v", tn, idx, err)
	}
	return v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestJacobianShapeLaw(t *testing.T) {
	x := tensor.Placeholder("x", tensor.StaticShape(3), dtypes.Float32)
	y := tensor.Compute("y", tensor.StaticShape(4), func(axes []*expr.Var) expr.Expr {
		return &expr.Add{A: x.Read(axes[0]), B: x.Read(axes[0])}
	})

	jac, err := autodiff.Jacobian(y, x, false)
	if err != nil {
		t.Fatal(err)
	}
	want := y.Shape().Concat(x.Shape())
	if !jac.Shape().Equal(want) {
		t.Fatalf("jacobian shape %v, want output ++ input", jac.Shape())
	}
}

func TestJacobianOfLinearMap(t *testing.T) {
	// y[i] = 3*x[i]: the jacobian is 3 on the diagonal, 0 off it.
	x := tensor.Placeholder("x", tensor.StaticShape(3), dtypes.Float32)
	y := tensor.Compute("y", x.Shape(), func(axes []*expr.Var) expr.Expr {
		return &expr.Mul{A: expr.Float(3), B: x.Read(axes[0])}
	})

	jac, err := autodiff.Jacobian(y, x, true)
	if err != nil {
		t.Fatal(err)
	}
	data := tensorData{x: {1, 2, 5}}
	for i := int64(0); i < 3; i++ {
		for j := int64(0); j < 3; j++ {
			want := 0.0
			if i == j {
				want = 3
			}
			if got := evalAt(t, jac, data, i, j); !almostEqual(got, want) {
				t.Errorf("jac[%d,%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestJacobianOfSquare(t *testing.T) {
	// y[i] = x[i]*x[i]: the jacobian is 2*x[i] on the diagonal.
	x := tensor.Placeholder("x", tensor.StaticShape(3), dtypes.Float32)
	y := tensor.Compute("y", x.Shape(), func(axes []*expr.Var) expr.Expr {
		return &expr.Mul{A: x.Read(axes[0]), B: x.Read(axes[0])}
	})

	jac, err := autodiff.Jacobian(y, x, true)
	if err != nil {
		t.Fatal(err)
	}
	data := tensorData{x: {1, 2, 5}}
	for i := int64(0); i < 3; i++ {
		for j := int64(0); j < 3; j++ {
			want := 0.0
			if i == j {
				want = 2 * data[x][i]
			}
			if got := evalAt(t, jac, data, i, j); !almostEqual(got, want) {
				t.Errorf("jac[%d,%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestJacobianOfExp(t *testing.T) {
	// y[i] = exp(x[i]) over a 3-vector: a 3x3 matrix with exp(x[i]) on the
	// diagonal.
	x := tensor.Placeholder("x", tensor.StaticShape(3), dtypes.Float32)
	y := tensor.Compute("y", x.Shape(), func(axes []*expr.Var) expr.Expr {
		return &expr.Call{
			T:    dtypes.Float32,
			Name: "exp",
			Args: []expr.Expr{x.Read(axes[0])},
			Kind: expr.CallPureIntrinsic,
		}
	})

	jac, err := autodiff.Jacobian(y, x, true)
	if err != nil {
		t.Fatal(err)
	}
	data := tensorData{x: {0, 1, -2}}
	for i := int64(0); i < 3; i++ {
		for j := int64(0); j < 3; j++ {
			want := 0.0
			if i == j {
				want = math.Exp(data[x][i])
			}
			if got := evalAt(t, jac, data, i, j); !almostEqual(got, want) {
				t.Errorf("jac[%d,%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestJacobianThroughReduction(t *testing.T) {
	// y[i] = sum_k A[i,k]*x[k]: the jacobian with respect to x is A.
	a := tensor.Placeholder("A", tensor.StaticShape(2, 3), dtypes.Float32)
	x := tensor.Placeholder("x", tensor.StaticShape(3), dtypes.Float32)
	y := tensor.Compute("y", tensor.StaticShape(2), func(axes []*expr.Var) expr.Expr {
		k := expr.NewIterVar("k", expr.Int(3))
		return expr.Sum(&expr.Mul{A: a.Read(axes[0], k.V), B: x.Read(k.V)}, []*expr.IterVar{k})
	})

	jac, err := autodiff.Jacobian(y, x, true)
	if err != nil {
		t.Fatal(err)
	}
	data := tensorData{
		a: {1, 2, 3, 4, 5, 6},
		x: {7, 8, 9},
	}
	for i := int64(0); i < 2; i++ {
		for j := int64(0); j < 3; j++ {
			want := data[a][i*3+j]
			if got := evalAt(t, jac, data, i, j); !almostEqual(got, want) {
				t.Errorf("jac[%d,%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestJacobianOfNonCompute(t *testing.T) {
	x := tensor.Placeholder("x", tensor.StaticShape(3), dtypes.Float32)
	if _, err := autodiff.Jacobian(x, x, false); err == nil {
		t.Fatal("jacobian of a placeholder did not fail")
	}
}

func TestDerivativeExprBasics(t *testing.T) {
	x := expr.NewVar("x", dtypes.Float32)
	y := expr.NewVar("y", dtypes.Float32)
	env := &expr.EvalEnv{Vars: map[*expr.Var]float64{x: 3, y: 4}}

	// d(x*y)/dx == y
	d, err := autodiff.DerivativeExpr(&expr.Mul{A: x, B: y}, x)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := expr.Eval(expr.Simplify(d), env); got != 4 {
		t.Errorf("d(x*y)/dx = %v, want 4", got)
	}

	// d(x/y)/dy == -x/y^2
	d, err = autodiff.DerivativeExpr(&expr.Div{A: x, B: y}, y)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := expr.Eval(d, env); !almostEqual(got, -3.0/16) {
		t.Errorf("d(x/y)/dy = %v, want %v", got, -3.0/16)
	}

	// d min(x,y)/dx is 1 where x <= y, 0 elsewhere.
	d, err = autodiff.DerivativeExpr(&expr.Min{A: x, B: y}, x)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := expr.Eval(d, env); got != 1 {
		t.Errorf("d min(x,y)/dx at x<y = %v, want 1", got)
	}
	env.Vars[x] = 9
	if got, _ := expr.Eval(d, env); got != 0 {
		t.Errorf("d min(x,y)/dx at x>y = %v, want 0", got)
	}
}

func TestDerivativeUnsupported(t *testing.T) {
	x := expr.NewVar("x", dtypes.Float32)
	y := expr.NewVar("y", dtypes.Float32)

	cases := []expr.Expr{
		&expr.And{A: &expr.GT{A: x, B: y}, B: &expr.LT{A: x, B: y}},
		&expr.Mod{A: x, B: y},
		&expr.Let{V: y, Value: x, Body: y},
		&expr.Broadcast{Value: x, Lanes: 4},
	}
	for _, c := range cases {
		_, err := autodiff.DerivativeExpr(c, x)
		var uerr *autodiff.UnsupportedOperationError
		if !errors.As(err, &uerr) {
			t.Errorf("differentiating %s: got %v, want UnsupportedOperationError", expr.String(c), err)
		}
	}
}

func TestJacobianExprIndexMismatch(t *testing.T) {
	x := tensor.Placeholder("x", tensor.StaticShape(3), dtypes.Float32)
	if _, err := autodiff.JacobianExpr(expr.Float(1), x, nil); err == nil {
		t.Fatal("index count mismatch not rejected")
	}
}
