package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slate-ml/slate/internal/dtypes"
	"github.com/slate-ml/slate/internal/expr"
)

func TestSimplifyArithmeticIdentities(t *testing.T) {
	x := expr.NewVar("x", dtypes.Float32)
	zero := expr.Zero(dtypes.Float32)
	one := expr.One(dtypes.Float32)

	tests := []struct {
		name string
		in   expr.Expr
		want expr.Expr
	}{
		{"add zero right", &expr.Add{A: x, B: zero}, x},
		{"add zero left", &expr.Add{A: zero, B: x}, x},
		{"sub zero", &expr.Sub{A: x, B: zero}, x},
		{"sub self", &expr.Sub{A: x, B: x}, zero},
		{"mul one right", &expr.Mul{A: x, B: one}, x},
		{"mul one left", &expr.Mul{A: one, B: x}, x},
		{"mul zero", &expr.Mul{A: x, B: zero}, zero},
		{"div by one", &expr.Div{A: x, B: one}, x},
		{"zero dividend", &expr.Div{A: zero, B: x}, zero},
		{"min of self", &expr.Min{A: x, B: x}, x},
		{"max of self", &expr.Max{A: x, B: x}, x},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expr.Simplify(tt.in)
			assert.True(t, expr.Equal(got, tt.want),
				"Simplify(%s) = %s, want %s", expr.String(tt.in), expr.String(got), expr.String(tt.want))
		})
	}
}

func TestSimplifyConstantFolding(t *testing.T) {
	two := &expr.FloatImm{T: dtypes.Float32, Value: 2}
	three := &expr.FloatImm{T: dtypes.Float32, Value: 3}

	got := expr.Simplify(&expr.Add{A: two, B: three})
	imm, ok := got.(*expr.FloatImm)
	if !ok || imm.Value != 5 {
		t.Fatalf("2+3 folded to %s, want 5f", expr.String(got))
	}

	got = expr.Simplify(&expr.Mul{A: two, B: three})
	imm, ok = got.(*expr.FloatImm)
	if !ok || imm.Value != 6 {
		t.Fatalf("2*3 folded to %s, want 6f", expr.String(got))
	}
}

func TestSimplifyBooleans(t *testing.T) {
	x := expr.NewVar("x", dtypes.Float32)
	cond := &expr.GT{A: x, B: expr.Zero(dtypes.Float32)}

	got := expr.Simplify(&expr.And{A: expr.Bool(true), B: cond})
	assert.True(t, expr.Equal(got, cond))

	got = expr.Simplify(&expr.And{A: cond, B: expr.Bool(false)})
	assert.True(t, expr.Equal(got, expr.Bool(false)))

	got = expr.Simplify(&expr.Or{A: expr.Bool(false), B: cond})
	assert.True(t, expr.Equal(got, cond))

	got = expr.Simplify(&expr.Select{Cond: expr.Bool(true), TrueValue: x, FalseValue: expr.Zero(dtypes.Float32)})
	assert.Equal(t, expr.Expr(x), got)

	got = expr.Simplify(&expr.Select{Cond: cond, TrueValue: x, FalseValue: x})
	assert.Equal(t, expr.Expr(x), got)
}

func TestSimplifyCastCollapse(t *testing.T) {
	x := expr.NewVar("x", dtypes.Float32)

	// Casting to the same dtype disappears.
	got := expr.Simplify(&expr.Cast{T: dtypes.Float32, Value: x})
	assert.Equal(t, expr.Expr(x), got)

	// Casting an immediate folds into an immediate of the target type.
	got = expr.Simplify(&expr.Cast{T: dtypes.Float64, Value: expr.Int(3)})
	imm, ok := got.(*expr.FloatImm)
	if !ok || imm.T != dtypes.Float64 || imm.Value != 3 {
		t.Fatalf("cast fold = %s, want 3 as float64", expr.String(got))
	}
}

func TestSimplifyNested(t *testing.T) {
	// (x*1) + (y*0) simplifies clean through to x.
	x := expr.NewVar("x", dtypes.Float32)
	y := expr.NewVar("y", dtypes.Float32)
	e := &expr.Add{
		A: &expr.Mul{A: x, B: expr.One(dtypes.Float32)},
		B: &expr.Mul{A: y, B: expr.Zero(dtypes.Float32)},
	}
	got := expr.Simplify(e)
	assert.Equal(t, expr.Expr(x), got)
}
