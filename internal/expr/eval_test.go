package expr_test

import (
	"math"
	"testing"

	"github.com/slate-ml/slate/internal/dtypes"
	"github.com/slate-ml/slate/internal/expr"
)

func evalOrFail(t *testing.T, e expr.Expr, env *expr.EvalEnv) float64 {
	t.Helper()
	v, err := expr.Eval(e, env)
	if err != nil {
		t.Fatalf("Eval(%s): %v", expr.String(e), err)
	}
	return v
}

func TestEvalArithmetic(t *testing.T) {
	x := expr.NewVar("x", dtypes.Float32)
	y := expr.NewVar("y", dtypes.Float32)
	env := &expr.EvalEnv{Vars: map[*expr.Var]float64{x: 3, y: 4}}

	e := &expr.Add{A: &expr.Mul{A: x, B: x}, B: y}
	if got := evalOrFail(t, e, env); got != 13 {
		t.Errorf("x*x+y = %v, want 13", got)
	}

	sel := &expr.Select{Cond: &expr.LT{A: x, B: y}, TrueValue: x, FalseValue: y}
	if got := evalOrFail(t, sel, env); got != 3 {
		t.Errorf("select(x<y, x, y) = %v, want 3", got)
	}

	let := &expr.Let{V: x, Value: &expr.Add{A: y, B: y}, Body: &expr.Mul{A: x, B: x}}
	if got := evalOrFail(t, let, env); got != 64 {
		t.Errorf("let x = y+y in x*x = %v, want 64", got)
	}
}

func TestEvalIntrinsics(t *testing.T) {
	x := expr.NewVar("x", dtypes.Float32)
	env := &expr.EvalEnv{Vars: map[*expr.Var]float64{x: 0.5}}

	call := func(name string) expr.Expr {
		return &expr.Call{T: dtypes.Float32, Name: name, Args: []expr.Expr{x}, Kind: expr.CallPureIntrinsic}
	}

	if got := evalOrFail(t, call("exp"), env); math.Abs(got-math.Exp(0.5)) > 1e-12 {
		t.Errorf("exp(0.5) = %v", got)
	}
	if got := evalOrFail(t, call("tanh"), env); math.Abs(got-math.Tanh(0.5)) > 1e-12 {
		t.Errorf("tanh(0.5) = %v", got)
	}
	if got := evalOrFail(t, call("sigmoid"), env); math.Abs(got-1/(1+math.Exp(-0.5))) > 1e-12 {
		t.Errorf("sigmoid(0.5) = %v", got)
	}
}

func TestEvalReduce(t *testing.T) {
	iv := expr.NewIterVar("k", expr.Int(5))
	sum := expr.Sum(iv.V, []*expr.IterVar{iv})
	if got := evalOrFail(t, sum, &expr.EvalEnv{}); got != 10 {
		t.Errorf("sum k over [0,5) = %v, want 10", got)
	}

	// Condition filters iterations.
	red := sum.(*expr.Reduce)
	odd := &expr.Reduce{
		Comb:       red.Comb,
		Source:     red.Source,
		Axis:       red.Axis,
		Condition:  &expr.EQ{A: &expr.Mod{A: iv.V, B: expr.Int(2)}, B: expr.Int(1)},
		ValueIndex: 0,
	}
	if got := evalOrFail(t, odd, &expr.EvalEnv{}); got != 4 {
		t.Errorf("sum of odd k over [0,5) = %v, want 4", got)
	}

	// Empty domain yields the identity.
	empty := expr.Sum(iv.V, []*expr.IterVar{{V: iv.V, Extent: expr.Int(0)}})
	if got := evalOrFail(t, empty, &expr.EvalEnv{}); got != 0 {
		t.Errorf("empty sum = %v, want 0", got)
	}
}

func TestEvalTensorRead(t *testing.T) {
	read := func(fn expr.FuncRef, valueIndex int, indices []int64) (float64, error) {
		return float64(indices[0]) * 10, nil
	}
	call := &expr.Call{
		T:    dtypes.Float32,
		Name: "data",
		Args: []expr.Expr{expr.Int(3)},
		Kind: expr.CallTensor,
	}
	got := evalOrFail(t, call, &expr.EvalEnv{Read: read})
	if got != 30 {
		t.Errorf("read = %v, want 30", got)
	}

	if _, err := expr.Eval(call, &expr.EvalEnv{}); err == nil {
		t.Error("tensor read without a Read callback did not fail")
	}
}

func TestEvalUnboundVar(t *testing.T) {
	x := expr.NewVar("x", dtypes.Float32)
	if _, err := expr.Eval(x, &expr.EvalEnv{}); err == nil {
		t.Fatal("unbound variable evaluated without error")
	}
}
