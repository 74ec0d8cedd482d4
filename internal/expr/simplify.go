package expr

import "github.com/slate-ml/slate/internal/dtypes"

// Simplify applies best-effort local algebraic simplification. The result is
// semantically equivalent to the input and never a larger tree. Callers may
// skip it entirely: it only reduces the size of generated code.
func Simplify(e Expr) Expr {
	return Mutate(e, simplifyNode)
}

func simplifyNode(e Expr) Expr {
	switch n := e.(type) {
	case *Cast:
		if n.Value.DType() == n.T {
			return n.Value
		}
		switch imm := n.Value.(type) {
		case *IntImm:
			return castedImm(n.T, float64(imm.Value))
		case *FloatImm:
			return castedImm(n.T, imm.Value)
		case *UintImm:
			return castedImm(n.T, float64(imm.Value))
		}
		return e
	case *Add:
		if IsZero(n.A) {
			return n.B
		}
		if IsZero(n.B) {
			return n.A
		}
		if folded, ok := foldBinary(n.A, n.B, func(a, b float64) float64 { return a + b }); ok {
			return folded
		}
		return e
	case *Sub:
		if IsZero(n.B) {
			return n.A
		}
		if folded, ok := foldBinary(n.A, n.B, func(a, b float64) float64 { return a - b }); ok {
			return folded
		}
		if Equal(n.A, n.B) {
			return Zero(n.A.DType())
		}
		return e
	case *Mul:
		if IsZero(n.A) || IsZero(n.B) {
			return Zero(n.DType())
		}
		if IsOne(n.A) {
			return n.B
		}
		if IsOne(n.B) {
			return n.A
		}
		if folded, ok := foldBinary(n.A, n.B, func(a, b float64) float64 { return a * b }); ok {
			return folded
		}
		return e
	case *Div:
		if IsOne(n.B) {
			return n.A
		}
		if IsZero(n.A) && !IsZero(n.B) {
			return Zero(n.DType())
		}
		if !IsZero(n.B) {
			if folded, ok := foldBinary(n.A, n.B, func(a, b float64) float64 { return a / b }); ok {
				return folded
			}
		}
		return e
	case *Min:
		if Equal(n.A, n.B) {
			return n.A
		}
		return e
	case *Max:
		if Equal(n.A, n.B) {
			return n.A
		}
		return e
	case *EQ:
		if Equal(n.A, n.B) {
			return Bool(true)
		}
		if a, aok := constValue(n.A); aok {
			if b, bok := constValue(n.B); bok {
				return Bool(a == b)
			}
		}
		return e
	case *NE:
		if Equal(n.A, n.B) {
			return Bool(false)
		}
		if a, aok := constValue(n.A); aok {
			if b, bok := constValue(n.B); bok {
				return Bool(a != b)
			}
		}
		return e
	case *And:
		if isBool(n.A, true) {
			return n.B
		}
		if isBool(n.B, true) {
			return n.A
		}
		if isBool(n.A, false) || isBool(n.B, false) {
			return Bool(false)
		}
		return e
	case *Or:
		if isBool(n.A, false) {
			return n.B
		}
		if isBool(n.B, false) {
			return n.A
		}
		if isBool(n.A, true) || isBool(n.B, true) {
			return Bool(true)
		}
		return e
	case *Not:
		if isBool(n.A, true) {
			return Bool(false)
		}
		if isBool(n.A, false) {
			return Bool(true)
		}
		return e
	case *Select:
		if isBool(n.Cond, true) {
			return n.TrueValue
		}
		if isBool(n.Cond, false) {
			return n.FalseValue
		}
		if Equal(n.TrueValue, n.FalseValue) {
			return n.TrueValue
		}
		return e
	default:
		return e
	}
}

func isBool(e Expr, v bool) bool {
	imm, ok := e.(*UintImm)
	if !ok || imm.T != dtypes.Bool {
		return false
	}
	return (imm.Value != 0) == v
}

func constValue(e Expr) (float64, bool) {
	switch imm := e.(type) {
	case *IntImm:
		return float64(imm.Value), true
	case *UintImm:
		return float64(imm.Value), true
	case *FloatImm:
		return imm.Value, true
	}
	return 0, false
}

// foldBinary folds a binary arithmetic node when both operands are
// immediates of the same data type.
func foldBinary(a, b Expr, f func(a, b float64) float64) (Expr, bool) {
	av, aok := constValue(a)
	bv, bok := constValue(b)
	if !aok || !bok || a.DType() != b.DType() {
		return nil, false
	}
	return castedImm(a.DType(), f(av, bv)), true
}

func castedImm(t dtypes.DataType, v float64) Expr {
	switch {
	case t.IsFloat():
		return &FloatImm{T: t, Value: v}
	case t == dtypes.Bool || t == dtypes.Uint8:
		return &UintImm{T: t, Value: uint64(v)}
	default:
		return &IntImm{T: t, Value: int64(v)}
	}
}
