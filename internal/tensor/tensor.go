// Package tensor defines the symbolic tensor computation graph: immutable
// tensors identified by (operation, output slot), where an operation is
// either an opaque placeholder or a compute operation with iteration axes
// and per-slot body expressions.
package tensor

import (
	"fmt"

	"github.com/slate-ml/slate/internal/dtypes"
	"github.com/slate-ml/slate/internal/expr"
)

// Operation produces one or more output tensors. Operations are compared by
// identity; Output returns stable pointers so tensors reached through the
// graph can be memoized by pointer.
type Operation interface {
	expr.FuncRef
	NumOutputs() int
	Output(i int) *Tensor
}

// Tensor is one output slot of an operation. Tensors are immutable, shared
// values: passes never modify one, only build new ones.
type Tensor struct {
	Op         Operation
	ValueIndex int

	shape Shape
	dtype dtypes.DataType
}

// Shape returns the tensor's symbolic shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// DType returns the element type.
func (t *Tensor) DType() dtypes.DataType {
	return t.dtype
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// SameAs reports whether two tensors denote the same output slot.
func (t *Tensor) SameAs(other *Tensor) bool {
	return t != nil && other != nil && t.Op == other.Op && t.ValueIndex == other.ValueIndex
}

// Read builds the scalar expression reading this tensor at the given
// element indices.
func (t *Tensor) Read(indices ...expr.Expr) expr.Expr {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: read of %q with %d indices, rank is %d",
			t.Op.FuncName(), len(indices), len(t.shape)))
	}
	return &expr.Call{
		T:          t.dtype,
		Name:       t.Op.FuncName(),
		Args:       indices,
		Kind:       expr.CallTensor,
		Func:       t.Op,
		ValueIndex: t.ValueIndex,
	}
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%s, %d)", t.Op.FuncName(), t.ValueIndex)
}

// PlaceholderOp is an opaque graph input with a declared shape and type.
type PlaceholderOp struct {
	Name   string
	Shape  Shape
	DType  dtypes.DataType
	output *Tensor
}

func (op *PlaceholderOp) FuncName() string { return op.Name }
func (op *PlaceholderOp) NumOutputs() int  { return 1 }

func (op *PlaceholderOp) Output(i int) *Tensor {
	if i != 0 {
		panic(fmt.Sprintf("tensor: placeholder %q has a single output, requested %d", op.Name, i))
	}
	return op.output
}

// Placeholder creates an input tensor with the given shape and type.
func Placeholder(name string, shape Shape, dtype dtypes.DataType) *Tensor {
	op := &PlaceholderOp{Name: name, Shape: shape.Clone(), DType: dtype}
	op.output = &Tensor{Op: op, ValueIndex: 0, shape: op.Shape, dtype: dtype}
	return op.output
}

// ComputeOp computes its outputs elementwise: one body expression per
// output slot, evaluated over the iteration axes. All slots share the same
// axes, so all outputs have the same shape; slots differ only when the
// shared body is a tuple-valued reduction.
type ComputeOp struct {
	Name    string
	Axes    []*expr.IterVar
	Bodies  []expr.Expr
	outputs []*Tensor
}

func (op *ComputeOp) FuncName() string { return op.Name }
func (op *ComputeOp) NumOutputs() int  { return len(op.outputs) }

func (op *ComputeOp) Output(i int) *Tensor {
	if i < 0 || i >= len(op.outputs) {
		panic(fmt.Sprintf("tensor: compute op %q has %d outputs, requested %d",
			op.Name, len(op.outputs), i))
	}
	return op.outputs[i]
}

// AxisVars returns the iteration variables of the op's axes in order.
func (op *ComputeOp) AxisVars() []*expr.Var {
	vars := make([]*expr.Var, len(op.Axes))
	for i, iv := range op.Axes {
		vars[i] = iv.V
	}
	return vars
}

// NewComputeOp builds a compute operation with explicit axes and bodies.
// The output shape is the list of axis extents.
func NewComputeOp(name string, axes []*expr.IterVar, bodies []expr.Expr) *ComputeOp {
	if len(bodies) == 0 {
		panic("tensor: compute op needs at least one body")
	}
	op := &ComputeOp{Name: name, Axes: axes, Bodies: bodies}
	shape := make(Shape, len(axes))
	for i, iv := range axes {
		shape[i] = iv.Extent
	}
	op.outputs = make([]*Tensor, len(bodies))
	for i, body := range bodies {
		op.outputs[i] = &Tensor{Op: op, ValueIndex: i, shape: shape, dtype: body.DType()}
	}
	return op
}

// Compute creates a tensor whose element at index (i0, .., in) is given by
// the expression f builds from the axis variables.
func Compute(name string, shape Shape, f func(axes []*expr.Var) expr.Expr) *Tensor {
	axes := make([]*expr.IterVar, len(shape))
	vars := make([]*expr.Var, len(shape))
	for i, extent := range shape {
		axes[i] = expr.NewIterVar(fmt.Sprintf("i%d", i), extent)
		vars[i] = axes[i].V
	}
	body := f(vars)
	return NewComputeOp(name, axes, []expr.Expr{body}).Output(0)
}
