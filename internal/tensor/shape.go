package tensor

import "github.com/slate-ml/slate/internal/expr"

// Shape represents the dimensions of a tensor as symbolic integer
// expressions. Constant dimensions are IntImm nodes; symbolic dimensions
// may be any integer-valued expression.
type Shape []expr.Expr

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Equal checks if two shapes are structurally equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !expr.Equal(s[i], other[i]) {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Concat returns s followed by other as a new shape.
func (s Shape) Concat(other Shape) Shape {
	out := make(Shape, 0, len(s)+len(other))
	out = append(out, s...)
	out = append(out, other...)
	return out
}

// StaticShape builds a shape from constant dimensions.
func StaticShape(dims ...int64) Shape {
	s := make(Shape, len(dims))
	for i, d := range dims {
		s[i] = expr.Int(d)
	}
	return s
}
