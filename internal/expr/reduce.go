package expr

import (
	"fmt"

	"github.com/slate-ml/slate/internal/dtypes"
)

// SumCombiner returns the standard summation combiner for the given type.
func SumCombiner(t dtypes.DataType) *Combiner {
	lhs := NewVar("x", t)
	rhs := NewVar("y", t)
	return &Combiner{
		Lhs:      []*Var{lhs},
		Rhs:      []*Var{rhs},
		Result:   []Expr{&Add{A: lhs, B: rhs}},
		Identity: []Expr{Zero(t)},
	}
}

// Sum reduces source over the given axes with the summation combiner.
func Sum(source Expr, axes []*IterVar) Expr {
	return &Reduce{
		Comb:       SumCombiner(source.DType()),
		Source:     []Expr{source},
		Axis:       axes,
		Condition:  Bool(true),
		ValueIndex: 0,
	}
}

// CloneReduction returns a copy of a reduction with freshly named iteration
// axes. Reusing the original axes in a second expression breaks lowering, so
// every derived reduction must iterate over its own variables.
func CloneReduction(e Expr) Expr {
	red, ok := e.(*Reduce)
	if !ok {
		return e
	}
	vmap := make(map[*Var]Expr, len(red.Axis))
	newAxis := make([]*IterVar, len(red.Axis))
	for i, iv := range red.Axis {
		fresh := &IterVar{V: iv.V.CopyWithSuffix(""), Extent: iv.Extent}
		newAxis[i] = fresh
		vmap[iv.V] = fresh.V
	}
	newSource := make([]Expr, len(red.Source))
	for i, src := range red.Source {
		newSource[i] = Substitute(src, vmap)
	}
	var newCond Expr
	if red.Condition != nil {
		newCond = Substitute(red.Condition, vmap)
	}
	return &Reduce{
		Comb:       red.Comb,
		Source:     newSource,
		Axis:       newAxis,
		Condition:  newCond,
		ValueIndex: red.ValueIndex,
	}
}

// SimplifyCombiner removes combiner components that the selected value index
// does not depend on, directly or through other components. Doubling a
// combiner during differentiation typically leaves half of the slots unused
// for any given output, and keeping them would double the generated code.
func SimplifyCombiner(e Expr) Expr {
	red, ok := e.(*Reduce)
	if !ok {
		return e
	}
	comb := red.Comb
	n := len(comb.Result)

	// componentDeps[i] holds the set of components referenced by result i
	// through its lhs/rhs variables.
	componentDeps := make([][]int, n)
	for i, res := range comb.Result {
		seen := make(map[int]bool)
		Walk(res, func(node Expr) bool {
			v, ok := node.(*Var)
			if !ok {
				return true
			}
			for j := 0; j < n; j++ {
				if comb.Lhs[j] == v || comb.Rhs[j] == v {
					seen[j] = true
				}
			}
			return true
		})
		for j := range seen {
			componentDeps[i] = append(componentDeps[i], j)
		}
	}

	used := make([]bool, n)
	stack := []int{red.ValueIndex}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if used[i] {
			continue
		}
		used[i] = true
		stack = append(stack, componentDeps[i]...)
	}

	keep := 0
	for _, u := range used {
		if u {
			keep++
		}
	}
	if keep == n {
		return red
	}

	remap := make([]int, n)
	newComb := &Combiner{}
	newSource := make([]Expr, 0, keep)
	for i := 0; i < n; i++ {
		if !used[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(newComb.Result)
		newComb.Lhs = append(newComb.Lhs, comb.Lhs[i])
		newComb.Rhs = append(newComb.Rhs, comb.Rhs[i])
		newComb.Result = append(newComb.Result, comb.Result[i])
		newComb.Identity = append(newComb.Identity, comb.Identity[i])
		newSource = append(newSource, red.Source[i])
	}

	newIndex := remap[red.ValueIndex]
	if newIndex < 0 {
		panic(fmt.Sprintf("expr.SimplifyCombiner: value index %d eliminated", red.ValueIndex))
	}
	return &Reduce{
		Comb:       newComb,
		Source:     newSource,
		Axis:       red.Axis,
		Condition:  red.Condition,
		ValueIndex: newIndex,
	}
}
