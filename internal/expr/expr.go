// Package expr implements the scalar intermediate representation used by the
// tensor graph and the differentiation engine.
//
// Expressions form a closed tagged union: every node type embeds the package
// by implementing the unexported isExpr method, and consumers dispatch with
// exhaustive type switches. Nodes are immutable once constructed; every
// rewrite (substitution, simplification, differentiation) builds new nodes.
package expr

import (
	"fmt"

	"github.com/slate-ml/slate/internal/dtypes"
)

// Expr is a scalar IR expression node.
type Expr interface {
	// DType returns the element type of the value this expression computes.
	DType() dtypes.DataType
	isExpr()
}

// FuncRef identifies the producer of a tensor read. It is implemented by
// tensor operations and compared by identity, never structurally.
type FuncRef interface {
	FuncName() string
}

// Var is a scalar variable. Identity is pointer identity: two Vars with the
// same name hint are distinct variables.
type Var struct {
	Name string
	T    dtypes.DataType
}

// NewVar creates a fresh variable with the given name hint and type.
func NewVar(name string, t dtypes.DataType) *Var {
	return &Var{Name: name, T: t}
}

// CopyWithSuffix creates a fresh variable named after v with a suffix added.
func (v *Var) CopyWithSuffix(suffix string) *Var {
	return &Var{Name: v.Name + suffix, T: v.T}
}

func (v *Var) DType() dtypes.DataType { return v.T }
func (v *Var) isExpr()                {}

// IntImm is an integer immediate.
type IntImm struct {
	T     dtypes.DataType
	Value int64
}

func (e *IntImm) DType() dtypes.DataType { return e.T }
func (e *IntImm) isExpr()                {}

// UintImm is an unsigned immediate; with T == dtypes.Bool it doubles as the
// boolean literal.
type UintImm struct {
	T     dtypes.DataType
	Value uint64
}

func (e *UintImm) DType() dtypes.DataType { return e.T }
func (e *UintImm) isExpr()                {}

// FloatImm is a floating-point immediate.
type FloatImm struct {
	T     dtypes.DataType
	Value float64
}

func (e *FloatImm) DType() dtypes.DataType { return e.T }
func (e *FloatImm) isExpr()                {}

// StringImm is a string immediate. It never participates in arithmetic.
type StringImm struct {
	Value string
}

func (e *StringImm) DType() dtypes.DataType { return dtypes.Uint8 }
func (e *StringImm) isExpr()                {}

// Cast converts a value to another data type.
type Cast struct {
	T     dtypes.DataType
	Value Expr
}

func (e *Cast) DType() dtypes.DataType { return e.T }
func (e *Cast) isExpr()                {}

// Binary arithmetic nodes. The result type is the type of the left operand.

type Add struct{ A, B Expr }
type Sub struct{ A, B Expr }
type Mul struct{ A, B Expr }
type Div struct{ A, B Expr }
type Mod struct{ A, B Expr }
type Min struct{ A, B Expr }
type Max struct{ A, B Expr }

func (e *Add) DType() dtypes.DataType { return e.A.DType() }
func (e *Sub) DType() dtypes.DataType { return e.A.DType() }
func (e *Mul) DType() dtypes.DataType { return e.A.DType() }
func (e *Div) DType() dtypes.DataType { return e.A.DType() }
func (e *Mod) DType() dtypes.DataType { return e.A.DType() }
func (e *Min) DType() dtypes.DataType { return e.A.DType() }
func (e *Max) DType() dtypes.DataType { return e.A.DType() }

func (e *Add) isExpr() {}
func (e *Sub) isExpr() {}
func (e *Mul) isExpr() {}
func (e *Div) isExpr() {}
func (e *Mod) isExpr() {}
func (e *Min) isExpr() {}
func (e *Max) isExpr() {}

// Comparison nodes. The result type is always Bool.

type EQ struct{ A, B Expr }
type NE struct{ A, B Expr }
type LT struct{ A, B Expr }
type LE struct{ A, B Expr }
type GT struct{ A, B Expr }
type GE struct{ A, B Expr }

func (e *EQ) DType() dtypes.DataType { return dtypes.Bool }
func (e *NE) DType() dtypes.DataType { return dtypes.Bool }
func (e *LT) DType() dtypes.DataType { return dtypes.Bool }
func (e *LE) DType() dtypes.DataType { return dtypes.Bool }
func (e *GT) DType() dtypes.DataType { return dtypes.Bool }
func (e *GE) DType() dtypes.DataType { return dtypes.Bool }

func (e *EQ) isExpr() {}
func (e *NE) isExpr() {}
func (e *LT) isExpr() {}
func (e *LE) isExpr() {}
func (e *GT) isExpr() {}
func (e *GE) isExpr() {}

// Logical nodes.

type And struct{ A, B Expr }
type Or struct{ A, B Expr }
type Not struct{ A Expr }

func (e *And) DType() dtypes.DataType { return dtypes.Bool }
func (e *Or) DType() dtypes.DataType  { return dtypes.Bool }
func (e *Not) DType() dtypes.DataType { return dtypes.Bool }

func (e *And) isExpr() {}
func (e *Or) isExpr()  {}
func (e *Not) isExpr() {}

// Select evaluates to TrueValue when Cond holds, FalseValue otherwise.
// Unlike an if statement both branches are well-defined expressions.
type Select struct {
	Cond       Expr
	TrueValue  Expr
	FalseValue Expr
}

func (e *Select) DType() dtypes.DataType { return e.TrueValue.DType() }
func (e *Select) isExpr()                {}

// Ramp is a vector of Lanes values starting at Base with stride Stride.
type Ramp struct {
	Base   Expr
	Stride Expr
	Lanes  int
}

func (e *Ramp) DType() dtypes.DataType { return e.Base.DType() }
func (e *Ramp) isExpr()                {}

// Broadcast replicates Value across Lanes vector lanes.
type Broadcast struct {
	Value Expr
	Lanes int
}

func (e *Broadcast) DType() dtypes.DataType { return e.Value.DType() }
func (e *Broadcast) isExpr()                {}

// Shuffle selects lanes out of a list of vectors.
type Shuffle struct {
	Vectors []Expr
	Indices []Expr
}

func (e *Shuffle) DType() dtypes.DataType { return e.Vectors[0].DType() }
func (e *Shuffle) isExpr()                {}

// Load reads one element from a buffer variable.
type Load struct {
	T         dtypes.DataType
	BufferVar *Var
	Index     Expr
}

func (e *Load) DType() dtypes.DataType { return e.T }
func (e *Load) isExpr()                {}

// Let binds Value to V inside Body.
type Let struct {
	V     *Var
	Value Expr
	Body  Expr
}

func (e *Let) DType() dtypes.DataType { return e.Body.DType() }
func (e *Let) isExpr()                {}

// CallKind distinguishes the two call forms the IR supports.
type CallKind int

const (
	// CallTensor reads one element of a produced tensor at given indices.
	CallTensor CallKind = iota
	// CallPureIntrinsic invokes a named side-effect-free intrinsic.
	CallPureIntrinsic
)

// Call is either a tensor element read or a pure intrinsic invocation.
//
// For tensor reads, Func identifies the producing operation and ValueIndex
// selects the output slot; Args are the element indices. For intrinsics,
// Name identifies the function and Args are its operands.
type Call struct {
	T          dtypes.DataType
	Name       string
	Args       []Expr
	Kind       CallKind
	Func       FuncRef
	ValueIndex int
}

func (e *Call) DType() dtypes.DataType { return e.T }
func (e *Call) isExpr()                {}

// IterVar is an iteration variable ranging over [0, Extent).
type IterVar struct {
	V      *Var
	Extent Expr
}

// NewIterVar creates an iteration axis over [0, extent).
func NewIterVar(name string, extent Expr) *IterVar {
	return &IterVar{V: NewVar(name, dtypes.Int64), Extent: extent}
}

// Combiner is a commutative reduction operator with explicit left/right
// state variables. Multi-component combiners produce tuple-valued
// reductions: Result[i] combines Lhs and Rhs into the i-th output slot and
// Identity[i] is the i-th slot of the neutral element.
type Combiner struct {
	Lhs      []*Var
	Rhs      []*Var
	Result   []Expr
	Identity []Expr
}

// Reduce combines Source over the iteration domain Axis using Combiner.
// ValueIndex selects which combiner component this expression evaluates to.
type Reduce struct {
	Comb       *Combiner
	Source     []Expr
	Axis       []*IterVar
	Condition  Expr
	ValueIndex int
}

func (e *Reduce) DType() dtypes.DataType { return e.Source[e.ValueIndex].DType() }
func (e *Reduce) isExpr()                {}

// Zero returns the zero immediate of the given type.
func Zero(t dtypes.DataType) Expr {
	switch {
	case t.IsFloat():
		return &FloatImm{T: t, Value: 0}
	case t == dtypes.Bool || t == dtypes.Uint8:
		return &UintImm{T: t, Value: 0}
	default:
		return &IntImm{T: t, Value: 0}
	}
}

// One returns the unit immediate of the given type.
func One(t dtypes.DataType) Expr {
	switch {
	case t.IsFloat():
		return &FloatImm{T: t, Value: 1}
	case t == dtypes.Bool || t == dtypes.Uint8:
		return &UintImm{T: t, Value: 1}
	default:
		return &IntImm{T: t, Value: 1}
	}
}

// Bool returns the boolean immediate for v.
func Bool(v bool) Expr {
	if v {
		return &UintImm{T: dtypes.Bool, Value: 1}
	}
	return &UintImm{T: dtypes.Bool, Value: 0}
}

// Int returns an int64 immediate, the default type for shape arithmetic.
func Int(v int64) Expr {
	return &IntImm{T: dtypes.Int64, Value: v}
}

// Float returns a float32 immediate.
func Float(v float64) Expr {
	return &FloatImm{T: dtypes.Float32, Value: v}
}

// IsZero reports whether e is a zero immediate.
func IsZero(e Expr) bool {
	switch imm := e.(type) {
	case *IntImm:
		return imm.Value == 0
	case *UintImm:
		return imm.Value == 0
	case *FloatImm:
		return imm.Value == 0
	}
	return false
}

// IsOne reports whether e is a unit immediate.
func IsOne(e Expr) bool {
	switch imm := e.(type) {
	case *IntImm:
		return imm.Value == 1
	case *UintImm:
		return imm.Value == 1
	case *FloatImm:
		return imm.Value == 1
	}
	return false
}

// String renders an expression for diagnostics. It is not a parseable
// syntax, only a debugging aid.
func String(e Expr) string {
	switch n := e.(type) {
	case *Var:
		return n.Name
	case *IntImm:
		return fmt.Sprintf("%d", n.Value)
	case *UintImm:
		if n.T == dtypes.Bool {
			if n.Value != 0 {
				return "true"
			}
			return "false"
		}
		return fmt.Sprintf("%du", n.Value)
	case *FloatImm:
		return fmt.Sprintf("%gf", n.Value)
	case *StringImm:
		return fmt.Sprintf("%q", n.Value)
	case *Cast:
		return fmt.Sprintf("%s(%s)", n.T, String(n.Value))
	case *Add:
		return fmt.Sprintf("(%s + %s)", String(n.A), String(n.B))
	case *Sub:
		return fmt.Sprintf("(%s - %s)", String(n.A), String(n.B))
	case *Mul:
		return fmt.Sprintf("(%s*%s)", String(n.A), String(n.B))
	case *Div:
		return fmt.Sprintf("(%s/%s)", String(n.A), String(n.B))
	case *Mod:
		return fmt.Sprintf("(%s %% %s)", String(n.A), String(n.B))
	case *Min:
		return fmt.Sprintf("min(%s, %s)", String(n.A), String(n.B))
	case *Max:
		return fmt.Sprintf("max(%s, %s)", String(n.A), String(n.B))
	case *EQ:
		return fmt.Sprintf("(%s == %s)", String(n.A), String(n.B))
	case *NE:
		return fmt.Sprintf("(%s != %s)", String(n.A), String(n.B))
	case *LT:
		return fmt.Sprintf("(%s < %s)", String(n.A), String(n.B))
	case *LE:
		return fmt.Sprintf("(%s <= %s)", String(n.A), String(n.B))
	case *GT:
		return fmt.Sprintf("(%s > %s)", String(n.A), String(n.B))
	case *GE:
		return fmt.Sprintf("(%s >= %s)", String(n.A), String(n.B))
	case *And:
		return fmt.Sprintf("(%s && %s)", String(n.A), String(n.B))
	case *Or:
		return fmt.Sprintf("(%s || %s)", String(n.A), String(n.B))
	case *Not:
		return fmt.Sprintf("!%s", String(n.A))
	case *Select:
		return fmt.Sprintf("select(%s, %s, %s)", String(n.Cond), String(n.TrueValue), String(n.FalseValue))
	case *Ramp:
		return fmt.Sprintf("ramp(%s, %s, %d)", String(n.Base), String(n.Stride), n.Lanes)
	case *Broadcast:
		return fmt.Sprintf("broadcast(%s, %d)", String(n.Value), n.Lanes)
	case *Shuffle:
		return "shuffle(...)"
	case *Load:
		return fmt.Sprintf("%s[%s]", n.BufferVar.Name, String(n.Index))
	case *Let:
		return fmt.Sprintf("(let %s = %s in %s)", n.V.Name, String(n.Value), String(n.Body))
	case *Call:
		s := n.Name
		if n.Kind == CallTensor && n.Func != nil {
			s = n.Func.FuncName()
		}
		s += "("
		for i, a := range n.Args {
			if i > 0 {
				s += ", "
			}
			s += String(a)
		}
		return s + ")"
	case *Reduce:
		s := "reduce(["
		for i, src := range n.Source {
			if i > 0 {
				s += ", "
			}
			s += String(src)
		}
		return fmt.Sprintf("%s], axes=%d, value_index=%d)", s, len(n.Axis), n.ValueIndex)
	default:
		return fmt.Sprintf("<unknown %T>", e)
	}
}
