package autodiff

import (
	"fmt"

	set "github.com/hashicorp/go-set/v3"

	"github.com/slate-ml/slate/internal/expr"
	"github.com/slate-ml/slate/internal/tensor"
)

// BuildingBlockFn computes the adjoint contribution flowing along one edge
// of the graph: given a tensor, one of the tensors it reads, and the adjoint
// of the reading tensor, it returns the contribution to the adjoint of the
// read tensor.
type BuildingBlockFn func(output, input, head *tensor.Tensor) (*tensor.Tensor, error)

// DifferentiationResult holds the outcome of a reverse-mode pass. Result
// lists the adjoints of the requested inputs in request order; Adjoints and
// AdjointSummands expose the full accumulation for inspection. The maps are
// not modified after Differentiate returns.
type DifferentiationResult struct {
	Result          []*tensor.Tensor
	Adjoints        map[*tensor.Tensor]*tensor.Tensor
	AdjointSummands map[*tensor.Tensor]map[*tensor.Tensor]*tensor.Tensor
}

// Differentiator configures a reverse-mode pass. The zero value seeds the
// output with an identity adjoint and uses DiffBuildingBlock per edge.
type Differentiator struct {
	// Head is the adjoint of the output. Its shape must end with the
	// output's shape; leading dimensions are carried through to every
	// adjoint. When nil, an identity tensor of shape output ++ output is
	// used, which yields full Jacobians.
	Head *tensor.Tensor

	// FDiff overrides the per-edge building block.
	FDiff BuildingBlockFn

	Debug bool
	Logf  func(format string, v ...interface{})
}

func (d *Differentiator) debugf(format string, v ...interface{}) {
	if d.Debug && d.Logf != nil {
		d.Logf(format, v...)
	}
}

// Differentiate runs a reverse-mode pass from output back to inputs; see the
// method for details.
func Differentiate(output *tensor.Tensor, inputs []*tensor.Tensor, head *tensor.Tensor, fdiff BuildingBlockFn) (*DifferentiationResult, error) {
	return (&Differentiator{Head: head, FDiff: fdiff}).Differentiate(output, inputs)
}

// Differentiate computes the adjoint of every requested input with respect
// to output. With no inputs it differentiates with respect to every tensor
// output transitively reads. Every call starts from fresh state; results of
// previous calls are never reused.
func (d *Differentiator) Differentiate(output *tensor.Tensor, inputs []*tensor.Tensor) (*DifferentiationResult, error) {
	fdiff := d.FDiff
	if fdiff == nil {
		fdiff = DiffBuildingBlock
	}
	head := d.Head
	if head == nil {
		head = identityHead(output)
	}

	// Build the reverse dependency map: for every tensor reachable from
	// output, the tensors that read it.
	dependents := make(map[*tensor.Tensor][]*tensor.Tensor)
	visited := set.New[*tensor.Tensor](0)
	visited.Insert(output)
	var reached []*tensor.Tensor
	stack := []*tensor.Tensor{output}
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reached = append(reached, t)
		for _, child := range directInputs(t) {
			dependents[child] = append(dependents[child], t)
			if visited.Insert(child) {
				stack = append(stack, child)
			}
		}
	}

	want := inputs
	if len(want) == 0 {
		want = reached
	}

	baseShape := head.Shape()[:head.Rank()-output.Rank()]

	res := &DifferentiationResult{
		Adjoints:        map[*tensor.Tensor]*tensor.Tensor{output: head},
		AdjointSummands: make(map[*tensor.Tensor]map[*tensor.Tensor]*tensor.Tensor),
	}
	for _, target := range want {
		if err := d.accumulate(target, dependents, res, fdiff, baseShape); err != nil {
			return nil, err
		}
		res.Result = append(res.Result, res.Adjoints[target])
	}
	return res, nil
}

// accumulate fills in the adjoint of target and of every tensor between
// target and the output, walking dependents with an explicit work stack. A
// tensor stays on the stack until all its dependents have adjoints, then its
// own adjoint is the sum of the per-dependent contributions.
func (d *Differentiator) accumulate(target *tensor.Tensor, dependents map[*tensor.Tensor][]*tensor.Tensor, res *DifferentiationResult, fdiff BuildingBlockFn, baseShape tensor.Shape) error {
	work := []*tensor.Tensor{target}
	for len(work) > 0 {
		t := work[len(work)-1]
		if _, done := res.Adjoints[t]; done {
			work = work[:len(work)-1]
			continue
		}
		deps := dependents[t]
		if len(deps) == 0 {
			// Nothing reads t, so the output cannot depend on it.
			res.Adjoints[t] = zeroAdjoint(t, baseShape)
			work = work[:len(work)-1]
			continue
		}
		ready := true
		for _, dep := range deps {
			if _, done := res.Adjoints[dep]; !done {
				ready = false
				work = append(work, dep)
			}
		}
		if !ready {
			continue
		}
		summands := make(map[*tensor.Tensor]*tensor.Tensor, len(deps))
		var total *tensor.Tensor
		for _, dep := range deps {
			part, err := fdiff(dep, t, res.Adjoints[dep])
			if err != nil {
				return err
			}
			summands[dep] = part
			if total == nil {
				total = part
			} else {
				total = addTensors(total, part)
			}
		}
		d.debugf("autodiff: adjoint of %s from %d dependents", t, len(deps))
		res.Adjoints[t] = total
		res.AdjointSummands[t] = summands
		work = work[:len(work)-1]
	}
	return nil
}

// DiffBuildingBlock is the default per-edge building block: the Jacobian of
// output with respect to input, contracted against head over output's axes,
// then inlined and simplified.
func DiffBuildingBlock(output, input, head *tensor.Tensor) (*tensor.Tensor, error) {
	jac, err := Jacobian(output, input, false)
	if err != nil {
		return nil, err
	}
	result := generalizedMatmul(head, jac, output.Rank())
	result = InlineNonReductions(result, []*tensor.Tensor{jac})
	result = OptimizeAndLiftNonzeronessConditions(result)
	result = InlineTailCall(result)
	return result, nil
}

// generalizedMatmul contracts the last ndims dimensions of a with the first
// ndims dimensions of b. With ndims zero there is nothing to reduce and the
// result is the plain outer product, with no reduction node at all.
func generalizedMatmul(a, b *tensor.Tensor, ndims int) *tensor.Tensor {
	outer := a.Rank() - ndims
	shape := a.Shape()[:outer].Concat(b.Shape()[ndims:])
	name := a.Op.FuncName() + "." + b.Op.FuncName() + ".grad"
	return tensor.Compute(name, shape, func(axes []*expr.Var) expr.Expr {
		aIdx := varExprs(axes[:outer])
		bIdx := varExprs(axes[outer:])
		if ndims == 0 {
			return &expr.Mul{A: a.Read(aIdx...), B: b.Read(bIdx...)}
		}
		contract := make([]*expr.IterVar, ndims)
		for i := range contract {
			contract[i] = expr.NewIterVar(fmt.Sprintf("k%d", i), a.Shape()[outer+i])
		}
		for _, iv := range contract {
			aIdx = append(aIdx, iv.V)
		}
		full := make([]expr.Expr, 0, b.Rank())
		for _, iv := range contract {
			full = append(full, iv.V)
		}
		full = append(full, bIdx...)
		return expr.Sum(&expr.Mul{A: a.Read(aIdx...), B: b.Read(full...)}, contract)
	})
}

// identityHead builds the default adjoint seed: a tensor of shape
// output ++ output that is one exactly on the diagonal.
func identityHead(output *tensor.Tensor) *tensor.Tensor {
	rank := output.Rank()
	shape := output.Shape().Concat(output.Shape())
	return tensor.Compute("identity", shape, func(axes []*expr.Var) expr.Expr {
		var cond expr.Expr
		for i := 0; i < rank; i++ {
			eq := &expr.EQ{A: axes[i], B: axes[rank+i]}
			if cond == nil {
				cond = eq
			} else {
				cond = &expr.And{A: cond, B: eq}
			}
		}
		if cond == nil {
			return expr.One(output.DType())
		}
		return &expr.Cast{T: output.DType(), Value: cond}
	})
}

// zeroAdjoint builds the adjoint of a tensor the output never reads.
func zeroAdjoint(t *tensor.Tensor, baseShape tensor.Shape) *tensor.Tensor {
	shape := baseShape.Concat(t.Shape())
	return tensor.Compute(t.Op.FuncName()+".grad.zero", shape, func([]*expr.Var) expr.Expr {
		return expr.Zero(t.DType())
	})
}

func addTensors(a, b *tensor.Tensor) *tensor.Tensor {
	name := a.Op.FuncName() + "." + b.Op.FuncName() + ".sum"
	return tensor.Compute(name, a.Shape(), func(axes []*expr.Var) expr.Expr {
		idx := varExprs(axes)
		return &expr.Add{A: a.Read(idx...), B: b.Read(idx...)}
	})
}

// directInputs returns the tensors an operation reads, first-seen order,
// collected across all of the operation's bodies.
func directInputs(t *tensor.Tensor) []*tensor.Tensor {
	op, ok := t.Op.(*tensor.ComputeOp)
	if !ok {
		return nil
	}
	seen := set.New[*tensor.Tensor](0)
	var out []*tensor.Tensor
	for _, body := range op.Bodies {
		for _, sub := range tensor.Subtensors(body) {
			if seen.Insert(sub) {
				out = append(out, sub)
			}
		}
	}
	return out
}

func varExprs(vars []*expr.Var) []expr.Expr {
	out := make([]expr.Expr, len(vars))
	for i, v := range vars {
		out[i] = v
	}
	return out
}
