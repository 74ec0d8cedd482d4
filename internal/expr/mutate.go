package expr

// Mutate rebuilds an expression bottom-up, applying f to every node after
// its children have been rebuilt. f must return a node of the same data
// type. When no node changes, the input expression is returned unchanged so
// callers can detect no-op rewrites by identity.
//
// Combiner result and identity expressions are not visited: their variables
// are bound by the combiner itself, not by the surrounding expression.
func Mutate(e Expr, f func(Expr) Expr) Expr {
	switch n := e.(type) {
	case *Var, *IntImm, *UintImm, *FloatImm, *StringImm:
		return f(e)
	case *Cast:
		v := Mutate(n.Value, f)
		if v != n.Value {
			return f(&Cast{T: n.T, Value: v})
		}
		return f(e)
	case *Add:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *Sub:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *Mul:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *Div:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *Mod:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *Min:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *Max:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *EQ:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *NE:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *LT:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *LE:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *GT:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *GE:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *And:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *Or:
		return f(rebuild2(e, Mutate(n.A, f), Mutate(n.B, f), n.A, n.B))
	case *Not:
		a := Mutate(n.A, f)
		if a != n.A {
			return f(&Not{A: a})
		}
		return f(e)
	case *Select:
		c := Mutate(n.Cond, f)
		tv := Mutate(n.TrueValue, f)
		fv := Mutate(n.FalseValue, f)
		if c != n.Cond || tv != n.TrueValue || fv != n.FalseValue {
			return f(&Select{Cond: c, TrueValue: tv, FalseValue: fv})
		}
		return f(e)
	case *Ramp:
		b := Mutate(n.Base, f)
		s := Mutate(n.Stride, f)
		if b != n.Base || s != n.Stride {
			return f(&Ramp{Base: b, Stride: s, Lanes: n.Lanes})
		}
		return f(e)
	case *Broadcast:
		v := Mutate(n.Value, f)
		if v != n.Value {
			return f(&Broadcast{Value: v, Lanes: n.Lanes})
		}
		return f(e)
	case *Shuffle:
		vecs, changedV := mutateList(n.Vectors, f)
		idxs, changedI := mutateList(n.Indices, f)
		if changedV || changedI {
			return f(&Shuffle{Vectors: vecs, Indices: idxs})
		}
		return f(e)
	case *Load:
		idx := Mutate(n.Index, f)
		if idx != n.Index {
			return f(&Load{T: n.T, BufferVar: n.BufferVar, Index: idx})
		}
		return f(e)
	case *Let:
		v := Mutate(n.Value, f)
		b := Mutate(n.Body, f)
		if v != n.Value || b != n.Body {
			return f(&Let{V: n.V, Value: v, Body: b})
		}
		return f(e)
	case *Call:
		args, changed := mutateList(n.Args, f)
		if changed {
			return f(&Call{T: n.T, Name: n.Name, Args: args, Kind: n.Kind, Func: n.Func, ValueIndex: n.ValueIndex})
		}
		return f(e)
	case *Reduce:
		src, changedS := mutateList(n.Source, f)
		var cond Expr
		changedC := false
		if n.Condition != nil {
			cond = Mutate(n.Condition, f)
			changedC = cond != n.Condition
		}
		if changedS || changedC {
			return f(&Reduce{Comb: n.Comb, Source: src, Axis: n.Axis, Condition: cond, ValueIndex: n.ValueIndex})
		}
		return f(e)
	default:
		panic("expr.Mutate: unhandled node kind")
	}
}

func mutateList(es []Expr, f func(Expr) Expr) ([]Expr, bool) {
	changed := false
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = Mutate(e, f)
		if out[i] != e {
			changed = true
		}
	}
	if !changed {
		return es, false
	}
	return out, true
}

// rebuild2 reconstructs a binary node when either operand changed,
// preserving identity otherwise.
func rebuild2(orig Expr, a, b, oldA, oldB Expr) Expr {
	if a == oldA && b == oldB {
		return orig
	}
	switch orig.(type) {
	case *Add:
		return &Add{A: a, B: b}
	case *Sub:
		return &Sub{A: a, B: b}
	case *Mul:
		return &Mul{A: a, B: b}
	case *Div:
		return &Div{A: a, B: b}
	case *Mod:
		return &Mod{A: a, B: b}
	case *Min:
		return &Min{A: a, B: b}
	case *Max:
		return &Max{A: a, B: b}
	case *EQ:
		return &EQ{A: a, B: b}
	case *NE:
		return &NE{A: a, B: b}
	case *LT:
		return &LT{A: a, B: b}
	case *LE:
		return &LE{A: a, B: b}
	case *GT:
		return &GT{A: a, B: b}
	case *GE:
		return &GE{A: a, B: b}
	case *And:
		return &And{A: a, B: b}
	case *Or:
		return &Or{A: a, B: b}
	default:
		panic("expr.rebuild2: not a binary node")
	}
}

// Substitute replaces free occurrences of variables according to vmap.
// Variables bound by a Let shadow the mapping inside the Let body.
func Substitute(e Expr, vmap map[*Var]Expr) Expr {
	if len(vmap) == 0 {
		return e
	}
	if let, ok := e.(*Let); ok {
		if _, shadowed := vmap[let.V]; shadowed {
			inner := make(map[*Var]Expr, len(vmap)-1)
			for k, v := range vmap {
				if k != let.V {
					inner[k] = v
				}
			}
			value := Substitute(let.Value, vmap)
			body := Substitute(let.Body, inner)
			if value == let.Value && body == let.Body {
				return e
			}
			return &Let{V: let.V, Value: value, Body: body}
		}
	}
	return Mutate(e, func(n Expr) Expr {
		if v, ok := n.(*Var); ok {
			if repl, ok := vmap[v]; ok {
				return repl
			}
		}
		return n
	})
}

// Walk visits every node of e in preorder using an explicit work stack, so
// traversal depth is bounded by heap, not goroutine stack. Returning false
// from f prunes the subtree below the current node.
//
// Unlike Mutate, Walk does descend into combiner result and identity
// expressions, since collection passes need to see reads hidden there.
func Walk(e Expr, f func(Expr) bool) {
	stack := []Expr{e}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || !f(n) {
			continue
		}
		switch node := n.(type) {
		case *Var, *IntImm, *UintImm, *FloatImm, *StringImm:
		case *Cast:
			stack = append(stack, node.Value)
		case *Add:
			stack = append(stack, node.A, node.B)
		case *Sub:
			stack = append(stack, node.A, node.B)
		case *Mul:
			stack = append(stack, node.A, node.B)
		case *Div:
			stack = append(stack, node.A, node.B)
		case *Mod:
			stack = append(stack, node.A, node.B)
		case *Min:
			stack = append(stack, node.A, node.B)
		case *Max:
			stack = append(stack, node.A, node.B)
		case *EQ:
			stack = append(stack, node.A, node.B)
		case *NE:
			stack = append(stack, node.A, node.B)
		case *LT:
			stack = append(stack, node.A, node.B)
		case *LE:
			stack = append(stack, node.A, node.B)
		case *GT:
			stack = append(stack, node.A, node.B)
		case *GE:
			stack = append(stack, node.A, node.B)
		case *And:
			stack = append(stack, node.A, node.B)
		case *Or:
			stack = append(stack, node.A, node.B)
		case *Not:
			stack = append(stack, node.A)
		case *Select:
			stack = append(stack, node.Cond, node.TrueValue, node.FalseValue)
		case *Ramp:
			stack = append(stack, node.Base, node.Stride)
		case *Broadcast:
			stack = append(stack, node.Value)
		case *Shuffle:
			stack = append(stack, node.Vectors...)
			stack = append(stack, node.Indices...)
		case *Load:
			stack = append(stack, node.Index)
		case *Let:
			stack = append(stack, node.Value, node.Body)
		case *Call:
			stack = append(stack, node.Args...)
		case *Reduce:
			stack = append(stack, node.Source...)
			if node.Condition != nil {
				stack = append(stack, node.Condition)
			}
			for _, iv := range node.Axis {
				stack = append(stack, iv.Extent)
			}
			stack = append(stack, node.Comb.Result...)
			stack = append(stack, node.Comb.Identity...)
		default:
			panic("expr.Walk: unhandled node kind")
		}
	}
}
