// Package relay defines the high-level expression AST the type inferencer
// operates on. Nodes form a closed tagged union and are immutable; inferred
// types live in a TypeMap side-table rather than being written into shared
// nodes.
package relay

import (
	"github.com/slate-ml/slate/internal/dtypes"
	"github.com/slate-ml/slate/internal/types"
)

// Expr is a node of the high-level AST.
type Expr interface {
	isRelayExpr()
}

// Constant is a literal tensor value. Only the rank and the element type
// matter to type inference; the payload is opaque to this core.
type Constant struct {
	Shape []int64
	DType dtypes.DataType
}

func (e *Constant) isRelayExpr() {}

// LocalVar is a locally bound variable. Identity is pointer identity: the
// name is only a hint for diagnostics.
type LocalVar struct {
	NameHint string
}

// NewLocalVar creates a fresh local variable with a name hint.
func NewLocalVar(name string) *LocalVar {
	return &LocalVar{NameHint: name}
}

func (e *LocalVar) isRelayExpr() {}

// GlobalVar references a definition in the surrounding environment.
type GlobalVar struct {
	NameHint string
}

func (e *GlobalVar) isRelayExpr() {}

// Tuple groups several expressions into one value.
type Tuple struct {
	Fields []Expr
}

func (e *Tuple) isRelayExpr() {}

// Param declares a function parameter together with its annotated type.
type Param struct {
	Var  *LocalVar
	Type types.Type
}

func (e *Param) isRelayExpr() {}

// Function is a (possibly polymorphic) function literal.
type Function struct {
	Params     []*Param
	RetType    types.Type
	Body       Expr
	TypeParams []*types.TypeParam
}

func (e *Function) isRelayExpr() {}

// Call applies Op to Args. TypeArgs records the instantiation the checker
// solved for, once call checking is implemented.
type Call struct {
	Op       Expr
	Args     []Expr
	Attrs    map[string]interface{}
	TypeArgs []types.Type
}

func (e *Call) isRelayExpr() {}

// Let binds Value to Var inside Body. ValueType is an optional annotation;
// nil means unannotated.
type Let struct {
	Var       *LocalVar
	Value     Expr
	Body      Expr
	ValueType types.Type
}

func (e *Let) isRelayExpr() {}

// If selects between two branches on a rank-0 boolean condition.
type If struct {
	Cond        Expr
	TrueBranch  Expr
	FalseBranch Expr
}

func (e *If) isRelayExpr() {}
