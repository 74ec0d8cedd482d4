// Package types defines the type language of the expression IR: concrete
// tensor types, function types, and the incomplete types the unifier solves
// for. Types are immutable once constructed; resolving a type always builds
// a new one.
package types

import (
	"fmt"
	"strings"

	"github.com/slate-ml/slate/internal/dtypes"
	"github.com/slate-ml/slate/internal/expr"
)

// Type is a node in the type language.
type Type interface {
	isType()
}

// Kind classifies what a type variable or parameter may stand for.
type Kind int

const (
	// KindType is a general type variable.
	KindType Kind = iota
	// KindBaseType ranges over element types only.
	KindBaseType
	// KindShapeVar ranges over shape dimensions.
	KindShapeVar
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "Type"
	case KindBaseType:
		return "BaseType"
	case KindShapeVar:
		return "ShapeVar"
	default:
		return "unknown"
	}
}

// IncompleteType is a fresh unification variable. Identity is pointer
// identity; the unifier's union-find owns its binding until solved.
type IncompleteType struct {
	Kind Kind
}

// Incomplete creates a fresh unification variable of the given kind.
func Incomplete(kind Kind) *IncompleteType {
	return &IncompleteType{Kind: kind}
}

func (t *IncompleteType) isType() {}

// TensorType is the workhorse type: a fixed-rank tensor with symbolic
// dimension expressions and an element type. A rank-0 TensorType doubles as
// a plain scalar type.
type TensorType struct {
	Shape []expr.Expr
	DType dtypes.DataType
}

// NewTensorType builds a tensor type from symbolic dimensions.
func NewTensorType(shape []expr.Expr, dtype dtypes.DataType) *TensorType {
	return &TensorType{Shape: shape, DType: dtype}
}

// Scalar returns the rank-0 tensor type for an element type.
func Scalar(dtype dtypes.DataType) *TensorType {
	return &TensorType{DType: dtype}
}

func (t *TensorType) isType() {}

// TypeParam is a named, universally quantified parameter of a function type.
// Identity is pointer identity.
type TypeParam struct {
	Name string
	Kind Kind
}

func (t *TypeParam) isType() {}

// TypeConstraint is an opaque constraint attached to a function type.
// Reserved for future use; the unifier only requires matching counts.
type TypeConstraint interface {
	isTypeConstraint()
}

// FuncType is the type of a function expression.
type FuncType struct {
	ArgTypes        []Type
	RetType         Type
	TypeParams      []*TypeParam
	TypeConstraints []TypeConstraint
}

func (t *FuncType) isType() {}

// TypeFunction is an opaque type-level function identified by name. It is
// not serializable; the surrounding environment supplies Fn.
type TypeFunction struct {
	Name string
	// NumArgs is the arity; -1 means variadic.
	NumArgs int
	Fn      func(args []Type) Type
}

func (t *TypeFunction) isType() {}

// Equal reports structural equality. IncompleteType and TypeParam compare by
// identity; tensor dimensions compare with expr.Equal.
func Equal(a, b Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch x := a.(type) {
	case *IncompleteType, *TypeParam:
		return false // identity already checked
	case *TensorType:
		y, ok := b.(*TensorType)
		if !ok || x.DType != y.DType || len(x.Shape) != len(y.Shape) {
			return false
		}
		for i := range x.Shape {
			if !expr.Equal(x.Shape[i], y.Shape[i]) {
				return false
			}
		}
		return true
	case *FuncType:
		y, ok := b.(*FuncType)
		if !ok || len(x.ArgTypes) != len(y.ArgTypes) ||
			len(x.TypeParams) != len(y.TypeParams) ||
			len(x.TypeConstraints) != len(y.TypeConstraints) {
			return false
		}
		for i := range x.ArgTypes {
			if !Equal(x.ArgTypes[i], y.ArgTypes[i]) {
				return false
			}
		}
		for i := range x.TypeParams {
			if x.TypeParams[i] != y.TypeParams[i] {
				return false
			}
		}
		return Equal(x.RetType, y.RetType)
	case *TypeFunction:
		y, ok := b.(*TypeFunction)
		return ok && x.Name == y.Name && x.NumArgs == y.NumArgs
	default:
		panic("types.Equal: unhandled type kind")
	}
}

// String renders a type for diagnostics.
func String(t Type) string {
	switch x := t.(type) {
	case nil:
		return "<nil>"
	case *IncompleteType:
		return fmt.Sprintf("?%s@%p", x.Kind, x)
	case *TensorType:
		if len(x.Shape) == 0 {
			return x.DType.String()
		}
		dims := make([]string, len(x.Shape))
		for i, d := range x.Shape {
			dims[i] = expr.String(d)
		}
		return fmt.Sprintf("Tensor[(%s), %s]", strings.Join(dims, ", "), x.DType)
	case *TypeParam:
		return fmt.Sprintf("%s:%s", x.Name, x.Kind)
	case *FuncType:
		args := make([]string, len(x.ArgTypes))
		for i, a := range x.ArgTypes {
			args[i] = String(a)
		}
		return fmt.Sprintf("fn(%s) -> %s", strings.Join(args, ", "), String(x.RetType))
	case *TypeFunction:
		return fmt.Sprintf("typefn %s/%d", x.Name, x.NumArgs)
	default:
		return fmt.Sprintf("<unknown %T>", t)
	}
}
