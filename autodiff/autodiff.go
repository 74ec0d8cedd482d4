// Copyright 2026 Slate ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation over
// symbolic tensor expressions.
//
// Gradients are built at compile time: differentiating a tensor yields new
// tensor expressions for the adjoints, with no tape and no runtime overhead.
//
// Example:
//
//	import (
//	    "github.com/slate-ml/slate/autodiff"
//	    "github.com/slate-ml/slate/internal/tensor"
//	)
//
//	x := tensor.Placeholder("x", tensor.StaticShape(3), dtypes.Float32)
//	y := tensor.Compute("y", x.Shape(), func(axes []*expr.Var) expr.Expr {
//	    r := x.Read(axes[0])
//	    return &expr.Mul{A: r, B: r}
//	})
//
//	res, err := autodiff.Differentiate(y, []*tensor.Tensor{x}, nil, nil)
//	// res.Result[0] is the symbolic gradient of y with respect to x.
package autodiff

import (
	"github.com/slate-ml/slate/internal/autodiff"
	"github.com/slate-ml/slate/internal/tensor"
)

// Differentiator configures a reverse-mode pass.
type Differentiator = autodiff.Differentiator

// DifferentiationResult holds the adjoints produced by one pass.
type DifferentiationResult = autodiff.DifferentiationResult

// BuildingBlockFn computes the adjoint contribution along one graph edge.
type BuildingBlockFn = autodiff.BuildingBlockFn

// UnsupportedOperationError reports a construct the derivative rules do not
// cover.
type UnsupportedOperationError = autodiff.UnsupportedOperationError

// Differentiate computes the adjoints of inputs with respect to output.
func Differentiate(output *tensor.Tensor, inputs []*tensor.Tensor, head *tensor.Tensor, fdiff BuildingBlockFn) (*DifferentiationResult, error) {
	return autodiff.Differentiate(output, inputs, head, fdiff)
}

// Jacobian builds the tensor of partial derivatives of output with respect
// to every element of input.
func Jacobian(output, input *tensor.Tensor, optimize bool) (*tensor.Tensor, error) {
	return autodiff.Jacobian(output, input, optimize)
}

// DiffBuildingBlock is the default per-edge adjoint computation.
func DiffBuildingBlock(output, input, head *tensor.Tensor) (*tensor.Tensor, error) {
	return autodiff.DiffBuildingBlock(output, input, head)
}
