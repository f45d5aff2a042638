package formula

import "github.com/witanlabs/jsheet/internal/value"

// Apply evaluates one binary operator. '+' adds when both operands are
// numeric and concatenates display text otherwise; the other operators yield
// Null for non-numeric operands. Division by zero yields Null.
func Apply(op Op, left, right value.Value) value.Value {
	a, aok := left.ToFloat()
	b, bok := right.ToFloat()
	if op == OpAdd && (!aok || !bok) {
		return value.String(left.Display() + right.Display())
	}
	if !aok || !bok {
		return value.Null()
	}
	switch op {
	case OpAdd:
		return value.Float(a + b)
	case OpSub:
		return value.Float(a - b)
	case OpMul:
		return value.Float(a * b)
	case OpDiv:
		if b == 0 {
			return value.Null()
		}
		return value.Float(a / b)
	}
	return value.Null()
}

// CellKey identifies one (row, column) slot during resolution.
type CellKey struct {
	Row    int
	Column string
}

// Guard tracks the cells currently being resolved so that a formula that
// reaches itself, directly or through other cells, stops at Null.
type Guard struct {
	active map[CellKey]struct{}
	cycles int
}

func NewGuard() *Guard {
	return &Guard{active: make(map[CellKey]struct{})}
}

// Enter marks key as in flight. It returns false if key is already on the
// resolution stack, in which case the caller must not recurse.
func (g *Guard) Enter(key CellKey) bool {
	if g.active == nil {
		g.active = make(map[CellKey]struct{})
	}
	if _, ok := g.active[key]; ok {
		g.cycles++
		return false
	}
	g.active[key] = struct{}{}
	return true
}

func (g *Guard) Leave(key CellKey) {
	delete(g.active, key)
}

func (g *Guard) Depth() int { return len(g.active) }

// Cycles counts how many times Enter refused a key.
func (g *Guard) Cycles() int { return g.cycles }
