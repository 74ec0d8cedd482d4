package tensor

import (
	set "github.com/hashicorp/go-set/v3"

	"github.com/slate-ml/slate/internal/expr"
)

// Subtensors collects every tensor read inside an expression, in first-seen
// order with duplicates removed. Reads hidden inside reduction combiners
// are included.
func Subtensors(e expr.Expr) []*Tensor {
	seen := set.New[*Tensor](0)
	var out []*Tensor
	expr.Walk(e, func(n expr.Expr) bool {
		call, ok := n.(*expr.Call)
		if !ok || call.Kind != expr.CallTensor {
			return true
		}
		op, ok := call.Func.(Operation)
		if !ok {
			return true
		}
		t := op.Output(call.ValueIndex)
		if seen.Insert(t) {
			out = append(out, t)
		}
		return true
	})
	return out
}
