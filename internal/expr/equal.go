package expr

import (
	"hash/fnv"
	"math"
)

// Equal reports structural equality of two expressions. Variables compare by
// identity: the same binding site, not the same name hint. Tensor-read calls
// compare their producing operation by identity as well.
func Equal(a, b Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch x := a.(type) {
	case *Var:
		return false // pointer identity already checked above
	case *IntImm:
		y, ok := b.(*IntImm)
		return ok && x.T == y.T && x.Value == y.Value
	case *UintImm:
		y, ok := b.(*UintImm)
		return ok && x.T == y.T && x.Value == y.Value
	case *FloatImm:
		y, ok := b.(*FloatImm)
		return ok && x.T == y.T && x.Value == y.Value
	case *StringImm:
		y, ok := b.(*StringImm)
		return ok && x.Value == y.Value
	case *Cast:
		y, ok := b.(*Cast)
		return ok && x.T == y.T && Equal(x.Value, y.Value)
	case *Add:
		y, ok := b.(*Add)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *Sub:
		y, ok := b.(*Sub)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *Mul:
		y, ok := b.(*Mul)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *Div:
		y, ok := b.(*Div)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *Mod:
		y, ok := b.(*Mod)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *Min:
		y, ok := b.(*Min)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *Max:
		y, ok := b.(*Max)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *EQ:
		y, ok := b.(*EQ)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *NE:
		y, ok := b.(*NE)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *LT:
		y, ok := b.(*LT)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *LE:
		y, ok := b.(*LE)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *GT:
		y, ok := b.(*GT)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *GE:
		y, ok := b.(*GE)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *And:
		y, ok := b.(*And)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *Or:
		y, ok := b.(*Or)
		return ok && Equal(x.A, y.A) && Equal(x.B, y.B)
	case *Not:
		y, ok := b.(*Not)
		return ok && Equal(x.A, y.A)
	case *Select:
		y, ok := b.(*Select)
		return ok && Equal(x.Cond, y.Cond) && Equal(x.TrueValue, y.TrueValue) && Equal(x.FalseValue, y.FalseValue)
	case *Ramp:
		y, ok := b.(*Ramp)
		return ok && x.Lanes == y.Lanes && Equal(x.Base, y.Base) && Equal(x.Stride, y.Stride)
	case *Broadcast:
		y, ok := b.(*Broadcast)
		return ok && x.Lanes == y.Lanes && Equal(x.Value, y.Value)
	case *Shuffle:
		y, ok := b.(*Shuffle)
		return ok && equalList(x.Vectors, y.Vectors) && equalList(x.Indices, y.Indices)
	case *Load:
		y, ok := b.(*Load)
		return ok && x.T == y.T && x.BufferVar == y.BufferVar && Equal(x.Index, y.Index)
	case *Let:
		y, ok := b.(*Let)
		return ok && x.V == y.V && Equal(x.Value, y.Value) && Equal(x.Body, y.Body)
	case *Call:
		y, ok := b.(*Call)
		return ok && x.Kind == y.Kind && x.Name == y.Name && x.T == y.T &&
			x.Func == y.Func && x.ValueIndex == y.ValueIndex && equalList(x.Args, y.Args)
	case *Reduce:
		y, ok := b.(*Reduce)
		if !ok || x.ValueIndex != y.ValueIndex || !equalList(x.Source, y.Source) {
			return false
		}
		if (x.Condition == nil) != (y.Condition == nil) {
			return false
		}
		if x.Condition != nil && !Equal(x.Condition, y.Condition) {
			return false
		}
		if len(x.Axis) != len(y.Axis) {
			return false
		}
		for i := range x.Axis {
			if x.Axis[i].V != y.Axis[i].V || !Equal(x.Axis[i].Extent, y.Axis[i].Extent) {
				return false
			}
		}
		return equalCombiner(x.Comb, y.Comb)
	default:
		panic("expr.Equal: unhandled node kind")
	}
}

func equalList(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalCombiner(a, b *Combiner) bool {
	if a == b {
		return true
	}
	if len(a.Lhs) != len(b.Lhs) || len(a.Rhs) != len(b.Rhs) {
		return false
	}
	for i := range a.Lhs {
		if a.Lhs[i] != b.Lhs[i] {
			return false
		}
	}
	for i := range a.Rhs {
		if a.Rhs[i] != b.Rhs[i] {
			return false
		}
	}
	return equalList(a.Result, b.Result) && equalList(a.Identity, b.Identity)
}

// Hash returns a structural hash consistent with Equal: structurally equal
// expressions hash to the same value. Variables hash by their name hint only,
// so the hash is a coarse key and Equal is the final arbiter.
func Hash(e Expr) uint64 {
	h := fnv.New64a()
	hashInto(h, e)
	return h.Sum64()
}

type hasher interface {
	Write(p []byte) (int, error)
}

func hashTag(h hasher, tag byte) {
	h.Write([]byte{tag})
}

func hashUint64(h hasher, v uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	h.Write(buf[:])
}

func hashInto(h hasher, e Expr) {
	switch n := e.(type) {
	case *Var:
		hashTag(h, 1)
		h.Write([]byte(n.Name))
	case *IntImm:
		hashTag(h, 2)
		hashUint64(h, uint64(n.Value))
	case *UintImm:
		hashTag(h, 3)
		hashUint64(h, n.Value)
	case *FloatImm:
		hashTag(h, 4)
		hashUint64(h, math.Float64bits(n.Value))
	case *StringImm:
		hashTag(h, 5)
		h.Write([]byte(n.Value))
	case *Cast:
		hashTag(h, 6)
		hashUint64(h, uint64(n.T))
		hashInto(h, n.Value)
	case *Add:
		hashTag(h, 7)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *Sub:
		hashTag(h, 8)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *Mul:
		hashTag(h, 9)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *Div:
		hashTag(h, 10)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *Mod:
		hashTag(h, 11)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *Min:
		hashTag(h, 12)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *Max:
		hashTag(h, 13)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *EQ:
		hashTag(h, 14)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *NE:
		hashTag(h, 15)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *LT:
		hashTag(h, 16)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *LE:
		hashTag(h, 17)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *GT:
		hashTag(h, 18)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *GE:
		hashTag(h, 19)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *And:
		hashTag(h, 20)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *Or:
		hashTag(h, 21)
		hashInto(h, n.A)
		hashInto(h, n.B)
	case *Not:
		hashTag(h, 22)
		hashInto(h, n.A)
	case *Select:
		hashTag(h, 23)
		hashInto(h, n.Cond)
		hashInto(h, n.TrueValue)
		hashInto(h, n.FalseValue)
	case *Ramp:
		hashTag(h, 24)
		hashUint64(h, uint64(n.Lanes))
		hashInto(h, n.Base)
		hashInto(h, n.Stride)
	case *Broadcast:
		hashTag(h, 25)
		hashUint64(h, uint64(n.Lanes))
		hashInto(h, n.Value)
	case *Shuffle:
		hashTag(h, 26)
		for _, v := range n.Vectors {
			hashInto(h, v)
		}
		for _, i := range n.Indices {
			hashInto(h, i)
		}
	case *Load:
		hashTag(h, 27)
		h.Write([]byte(n.BufferVar.Name))
		hashInto(h, n.Index)
	case *Let:
		hashTag(h, 28)
		h.Write([]byte(n.V.Name))
		hashInto(h, n.Value)
		hashInto(h, n.Body)
	case *Call:
		hashTag(h, 29)
		hashUint64(h, uint64(n.Kind))
		hashUint64(h, uint64(n.ValueIndex))
		if n.Func != nil {
			h.Write([]byte(n.Func.FuncName()))
		} else {
			h.Write([]byte(n.Name))
		}
		for _, a := range n.Args {
			hashInto(h, a)
		}
	case *Reduce:
		hashTag(h, 30)
		hashUint64(h, uint64(n.ValueIndex))
		hashUint64(h, uint64(len(n.Axis)))
		for _, s := range n.Source {
			hashInto(h, s)
		}
		for _, r := range n.Comb.Result {
			hashInto(h, r)
		}
	default:
		panic("expr.Hash: unhandled node kind")
	}
}
