package expr_test

import (
	"testing"

	"github.com/slate-ml/slate/internal/dtypes"
	"github.com/slate-ml/slate/internal/expr"
)

func TestVarIdentity(t *testing.T) {
	a := expr.NewVar("x", dtypes.Float32)
	b := expr.NewVar("x", dtypes.Float32)
	if expr.Equal(a, b) {
		t.Fatal("two fresh variables with the same name compare equal")
	}
	if !expr.Equal(a, a) {
		t.Fatal("variable not equal to itself")
	}
}

func TestEqualStructural(t *testing.T) {
	x := expr.NewVar("x", dtypes.Float32)
	y := expr.NewVar("y", dtypes.Float32)

	a := &expr.Add{A: &expr.Mul{A: x, B: y}, B: expr.Float(1)}
	b := &expr.Add{A: &expr.Mul{A: x, B: y}, B: expr.Float(1)}
	c := &expr.Add{A: &expr.Mul{A: y, B: x}, B: expr.Float(1)}

	if !expr.Equal(a, b) {
		t.Errorf("structurally identical trees compare unequal")
	}
	if expr.Equal(a, c) {
		t.Errorf("x*y compares equal to y*x")
	}
	if expr.Hash(a) != expr.Hash(b) {
		t.Errorf("equal expressions hash differently")
	}
}

func TestSubstitute(t *testing.T) {
	x := expr.NewVar("x", dtypes.Float32)
	y := expr.NewVar("y", dtypes.Float32)

	e := &expr.Add{A: x, B: &expr.Mul{A: x, B: y}}
	got := expr.Substitute(e, map[*expr.Var]expr.Expr{x: expr.Float(2)})
	want := &expr.Add{A: expr.Float(2), B: &expr.Mul{A: expr.Float(2), B: y}}
	if !expr.Equal(got, want) {
		t.Fatalf("Substitute = %s, want %s", expr.String(got), expr.String(want))
	}

	// No hit in the map leaves the tree untouched, by identity.
	same := expr.Substitute(e, map[*expr.Var]expr.Expr{expr.NewVar("z", dtypes.Float32): expr.Float(0)})
	if same != expr.Expr(e) {
		t.Fatal("substitution with no matching variable rebuilt the tree")
	}
}

func TestSubstituteLetShadowing(t *testing.T) {
	x := expr.NewVar("x", dtypes.Float32)

	// let x = x + 1 in x: the binding value sees the outer x, the body the
	// bound one.
	let := &expr.Let{V: x, Value: &expr.Add{A: x, B: expr.Float(1)}, Body: x}
	got := expr.Substitute(let, map[*expr.Var]expr.Expr{x: expr.Float(5)})

	res, ok := got.(*expr.Let)
	if !ok {
		t.Fatalf("substitution changed node kind to %T", got)
	}
	if !expr.Equal(res.Value, &expr.Add{A: expr.Float(5), B: expr.Float(1)}) {
		t.Errorf("outer occurrence not substituted in let value: %s", expr.String(res.Value))
	}
	if res.Body != expr.Expr(x) {
		t.Errorf("shadowed occurrence substituted in let body: %s", expr.String(res.Body))
	}
}

func TestWalkVisitsCombiner(t *testing.T) {
	// Reads inside the combiner's result and identity must be reachable.
	x := expr.NewVar("x", dtypes.Float32)
	iv := expr.NewIterVar("k", expr.Int(4))
	lhs := expr.NewVar("a", dtypes.Float32)
	rhs := expr.NewVar("b", dtypes.Float32)
	red := &expr.Reduce{
		Comb: &expr.Combiner{
			Lhs:      []*expr.Var{lhs},
			Rhs:      []*expr.Var{rhs},
			Result:   []expr.Expr{&expr.Max{A: lhs, B: rhs}},
			Identity: []expr.Expr{x},
		},
		Source:     []expr.Expr{iv.V},
		Axis:       []*expr.IterVar{iv},
		Condition:  expr.Bool(true),
		ValueIndex: 0,
	}

	sawIdentity := false
	sawResult := false
	expr.Walk(red, func(n expr.Expr) bool {
		if n == expr.Expr(x) {
			sawIdentity = true
		}
		if _, ok := n.(*expr.Max); ok {
			sawResult = true
		}
		return true
	})
	if !sawIdentity || !sawResult {
		t.Fatalf("Walk skipped combiner internals: identity=%v result=%v", sawIdentity, sawResult)
	}
}

func TestCloneReductionFreshAxes(t *testing.T) {
	iv := expr.NewIterVar("k", expr.Int(8))
	red := expr.Sum(iv.V, []*expr.IterVar{iv}).(*expr.Reduce)

	clone := expr.CloneReduction(red).(*expr.Reduce)
	if clone.Axis[0] == red.Axis[0] || clone.Axis[0].V == red.Axis[0].V {
		t.Fatal("cloned reduction shares iteration variables with the original")
	}
	if clone.Source[0] != expr.Expr(clone.Axis[0].V) {
		t.Fatal("cloned source does not reference the fresh axis")
	}
}

func TestSimplifyCombinerDropsUnusedComponents(t *testing.T) {
	// A two-component combiner where component 0 never references
	// component 1: selecting value 0 should shrink it to one component.
	l0 := expr.NewVar("l0", dtypes.Float32)
	r0 := expr.NewVar("r0", dtypes.Float32)
	l1 := expr.NewVar("l1", dtypes.Float32)
	r1 := expr.NewVar("r1", dtypes.Float32)
	iv := expr.NewIterVar("k", expr.Int(4))

	red := &expr.Reduce{
		Comb: &expr.Combiner{
			Lhs:      []*expr.Var{l0, l1},
			Rhs:      []*expr.Var{r0, r1},
			Result:   []expr.Expr{&expr.Add{A: l0, B: r0}, &expr.Mul{A: l1, B: r1}},
			Identity: []expr.Expr{expr.Float(0), expr.Float(1)},
		},
		Source:     []expr.Expr{iv.V, iv.V},
		Axis:       []*expr.IterVar{iv},
		Condition:  expr.Bool(true),
		ValueIndex: 0,
	}

	got := expr.SimplifyCombiner(red).(*expr.Reduce)
	if len(got.Comb.Result) != 1 {
		t.Fatalf("combiner kept %d components, want 1", len(got.Comb.Result))
	}
	if got.ValueIndex != 0 {
		t.Fatalf("value index remapped to %d, want 0", got.ValueIndex)
	}

	// Cross-referencing components must survive: value 0 reads l1.
	crossed := &expr.Reduce{
		Comb: &expr.Combiner{
			Lhs:      []*expr.Var{l0, l1},
			Rhs:      []*expr.Var{r0, r1},
			Result:   []expr.Expr{&expr.Add{A: l0, B: &expr.Mul{A: r0, B: l1}}, &expr.Mul{A: l1, B: r1}},
			Identity: []expr.Expr{expr.Float(0), expr.Float(1)},
		},
		Source:     []expr.Expr{iv.V, iv.V},
		Axis:       []*expr.IterVar{iv},
		Condition:  expr.Bool(true),
		ValueIndex: 0,
	}
	kept := expr.SimplifyCombiner(crossed).(*expr.Reduce)
	if len(kept.Comb.Result) != 2 {
		t.Fatalf("transitively used component dropped: kept %d components", len(kept.Comb.Result))
	}
}
