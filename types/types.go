// Copyright 2026 Slate ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package types exposes the type system and the unification-based type
// checker for relay expressions.
//
// Example:
//
//	import (
//	    "github.com/slate-ml/slate/internal/relay"
//	    "github.com/slate-ml/slate/types"
//	)
//
//	v := relay.NewLocalVar("x")
//	e := &relay.Let{Var: v, Value: c, Body: v}
//	_, checked, err := types.Infer(nil, e)
//	// checked.CheckedType(v) is the inferred type of x.
package types

import (
	"github.com/slate-ml/slate/internal/infer"
	"github.com/slate-ml/slate/internal/relay"
	itypes "github.com/slate-ml/slate/internal/types"
)

// Type is a relay type.
type Type = itypes.Type

// TensorType is the type of a tensor value with a symbolic shape.
type TensorType = itypes.TensorType

// FuncType is the type of a function value.
type FuncType = itypes.FuncType

// IncompleteType is a type variable to be solved during inference.
type IncompleteType = itypes.IncompleteType

// TypeParam is a quantified type parameter of a function type.
type TypeParam = itypes.TypeParam

// TypeFunction is a named shape-level type operator.
type TypeFunction = itypes.TypeFunction

// Environment holds global definitions consulted during inference.
type Environment = infer.Environment

// Inferencer drives one type inference pass.
type Inferencer = infer.Inferencer

// Unifier solves equations between types.
type Unifier = infer.Unifier

// UnificationError reports two types that could not be made equal.
type UnificationError = infer.UnificationError

// FatalTypeError aborts an inference pass.
type FatalTypeError = infer.FatalTypeError

// Equal reports structural equality of two types.
func Equal(a, b Type) bool {
	return itypes.Equal(a, b)
}

// String renders a type for diagnostics.
func String(t Type) string {
	return itypes.String(t)
}

// Infer type-checks e and returns it with the checked-type side-table.
func Infer(env *Environment, e relay.Expr) (relay.Expr, *relay.TypeMap, error) {
	return infer.Infer(env, e)
}

// NewInferencer creates an inference pass over env.
func NewInferencer(env *Environment) *Inferencer {
	return infer.NewInferencer(env)
}

// NewUnifier creates a unifier with no solved variables.
func NewUnifier() *Unifier {
	return infer.NewUnifier()
}
