package expr

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// EvalEnv supplies variable bindings and tensor element values to Eval.
// Booleans evaluate to 1 and 0.
type EvalEnv struct {
	Vars map[*Var]float64
	// Read resolves a tensor element read. nil means reads are an error.
	Read func(fn FuncRef, valueIndex int, indices []int64) (float64, error)
}

// Eval numerically evaluates a scalar expression. It exists for tests and
// gradient checks, not for performance: the compiled pipeline never
// interprets expressions.
func Eval(e Expr, env *EvalEnv) (float64, error) {
	switch n := e.(type) {
	case *Var:
		v, ok := env.Vars[n]
		if !ok {
			return 0, errors.Errorf("eval: unbound variable %q", n.Name)
		}
		return v, nil
	case *IntImm:
		return float64(n.Value), nil
	case *UintImm:
		return float64(n.Value), nil
	case *FloatImm:
		return n.Value, nil
	case *Cast:
		v, err := Eval(n.Value, env)
		if err != nil {
			return 0, err
		}
		if n.T.IsFloat() {
			return v, nil
		}
		return math.Trunc(v), nil
	case *Add:
		return evalBinary(n.A, n.B, env, func(a, b float64) float64 { return a + b })
	case *Sub:
		return evalBinary(n.A, n.B, env, func(a, b float64) float64 { return a - b })
	case *Mul:
		return evalBinary(n.A, n.B, env, func(a, b float64) float64 { return a * b })
	case *Div:
		return evalBinary(n.A, n.B, env, func(a, b float64) float64 { return a / b })
	case *Mod:
		return evalBinary(n.A, n.B, env, math.Mod)
	case *Min:
		return evalBinary(n.A, n.B, env, math.Min)
	case *Max:
		return evalBinary(n.A, n.B, env, math.Max)
	case *EQ:
		return evalCompare(n.A, n.B, env, func(a, b float64) bool { return a == b })
	case *NE:
		return evalCompare(n.A, n.B, env, func(a, b float64) bool { return a != b })
	case *LT:
		return evalCompare(n.A, n.B, env, func(a, b float64) bool { return a < b })
	case *LE:
		return evalCompare(n.A, n.B, env, func(a, b float64) bool { return a <= b })
	case *GT:
		return evalCompare(n.A, n.B, env, func(a, b float64) bool { return a > b })
	case *GE:
		return evalCompare(n.A, n.B, env, func(a, b float64) bool { return a >= b })
	case *And:
		return evalCompare(n.A, n.B, env, func(a, b float64) bool { return a != 0 && b != 0 })
	case *Or:
		return evalCompare(n.A, n.B, env, func(a, b float64) bool { return a != 0 || b != 0 })
	case *Not:
		v, err := Eval(n.A, env)
		if err != nil {
			return 0, err
		}
		if v == 0 {
			return 1, nil
		}
		return 0, nil
	case *Select:
		c, err := Eval(n.Cond, env)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return Eval(n.TrueValue, env)
		}
		return Eval(n.FalseValue, env)
	case *Let:
		v, err := Eval(n.Value, env)
		if err != nil {
			return 0, err
		}
		inner := env.withVar(n.V, v)
		return Eval(n.Body, inner)
	case *Call:
		return evalCall(n, env)
	case *Reduce:
		return evalReduce(n, env)
	default:
		return 0, errors.Errorf("eval: unsupported node %T", e)
	}
}

func (env *EvalEnv) withVar(v *Var, value float64) *EvalEnv {
	vars := make(map[*Var]float64, len(env.Vars)+1)
	for k, val := range env.Vars {
		vars[k] = val
	}
	vars[v] = value
	return &EvalEnv{Vars: vars, Read: env.Read}
}

func evalBinary(a, b Expr, env *EvalEnv, f func(a, b float64) float64) (float64, error) {
	av, err := Eval(a, env)
	if err != nil {
		return 0, err
	}
	bv, err := Eval(b, env)
	if err != nil {
		return 0, err
	}
	return f(av, bv), nil
}

func evalCompare(a, b Expr, env *EvalEnv, f func(a, b float64) bool) (float64, error) {
	av, err := Eval(a, env)
	if err != nil {
		return 0, err
	}
	bv, err := Eval(b, env)
	if err != nil {
		return 0, err
	}
	if f(av, bv) {
		return 1, nil
	}
	return 0, nil
}

func evalCall(n *Call, env *EvalEnv) (float64, error) {
	if n.Kind == CallTensor {
		if env.Read == nil {
			return 0, errors.New("eval: tensor read without a Read callback")
		}
		indices := make([]int64, len(n.Args))
		for i, arg := range n.Args {
			v, err := Eval(arg, env)
			if err != nil {
				return 0, err
			}
			indices[i] = int64(v)
		}
		return env.Read(n.Func, n.ValueIndex, indices)
	}

	args := make([]float64, len(n.Args))
	for i, arg := range n.Args {
		v, err := Eval(arg, env)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	switch n.Name {
	case "exp":
		return math.Exp(args[0]), nil
	case "log":
		return math.Log(args[0]), nil
	case "sigmoid":
		return 1.0 / (1.0 + math.Exp(-args[0])), nil
	case "tanh":
		return math.Tanh(args[0]), nil
	case "fabs":
		return math.Abs(args[0]), nil
	default:
		return 0, errors.Errorf("eval: unsupported intrinsic %q", n.Name)
	}
}

func evalReduce(n *Reduce, env *EvalEnv) (float64, error) {
	extents := make([]int64, len(n.Axis))
	for i, iv := range n.Axis {
		v, err := Eval(iv.Extent, env)
		if err != nil {
			return 0, err
		}
		extents[i] = int64(v)
	}

	comb := n.Comb
	state := make([]float64, len(comb.Identity))
	for i, id := range comb.Identity {
		v, err := Eval(id, env)
		if err != nil {
			return 0, err
		}
		state[i] = v
	}

	empty := false
	for _, ext := range extents {
		if ext <= 0 {
			empty = true
		}
	}

	indices := make([]int64, len(n.Axis))
	for !empty {
		iterEnv := env
		for i, iv := range n.Axis {
			iterEnv = iterEnv.withVar(iv.V, float64(indices[i]))
		}

		include := true
		if n.Condition != nil {
			c, err := Eval(n.Condition, iterEnv)
			if err != nil {
				return 0, err
			}
			include = c != 0
		}
		if include {
			sources := make([]float64, len(n.Source))
			for i, src := range n.Source {
				v, err := Eval(src, iterEnv)
				if err != nil {
					return 0, err
				}
				sources[i] = v
			}
			combEnv := iterEnv
			for i := range comb.Lhs {
				combEnv = combEnv.withVar(comb.Lhs[i], state[i])
				combEnv = combEnv.withVar(comb.Rhs[i], sources[i])
			}
			next := make([]float64, len(comb.Result))
			for i, res := range comb.Result {
				v, err := Eval(res, combEnv)
				if err != nil {
					return 0, err
				}
				next[i] = v
			}
			state = next
		}

		// advance the multi-index, last axis fastest
		carry := true
		for i := len(indices) - 1; i >= 0 && carry; i-- {
			indices[i]++
			if indices[i] < extents[i] {
				carry = false
			} else {
				indices[i] = 0
			}
		}
		if carry {
			break
		}
	}

	if n.ValueIndex < 0 || n.ValueIndex >= len(state) {
		return 0, fmt.Errorf("eval: reduce value index %d out of range", n.ValueIndex)
	}
	return state[n.ValueIndex], nil
}
