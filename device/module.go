package device

import "fmt"

// ParamSpec describes one positional input to a Module, in binding order.
type ParamSpec struct {
	Shape Shape
	DType DType
}

// Module is the traced, frozen form of a system's symbolic graph: an
// ordered parameter list and one return expression (use Tuple to return
// more than one value). pipeline.Builder produces Modules; Compile lowers
// one into an Executable.
type Module struct {
	Params []ParamSpec
	Return Expr
}

// NewModule validates that every Parameter node reachable from ret refers
// to an index within params, then freezes the pair into a Module.
func NewModule(params []ParamSpec, ret Expr) (*Module, error) {
	maxIdx := -1
	var walk func(e Expr)
	seen := map[Expr]bool{}
	walk = func(e Expr) {
		if e == nil || seen[e] {
			return
		}
		seen[e] = true
		switch n := e.(type) {
		case *paramExpr:
			if n.idx > maxIdx {
				maxIdx = n.idx
			}
		case *binOpExpr:
			walk(n.a)
			walk(n.b)
		case *sliceExpr:
			walk(n.a)
		case *reshapeExpr:
			walk(n.a)
		case *scatterExpr:
			walk(n.target)
			walk(n.update)
		case *tupleExpr:
			for _, c := range n.elems {
				walk(c)
			}
		case *vmapExpr:
			walk(n.a)
		}
	}
	walk(ret)
	if maxIdx >= len(params) {
		return nil, fmt.Errorf("device: module references parameter %d but only %d are declared", maxIdx, len(params))
	}
	return &Module{Params: params, Return: ret}, nil
}

// ReturnValues decomposes Return into its top-level components: a Tuple's
// elements, or a single-element slice for any other Expr.
func (m *Module) ReturnValues() []Expr {
	if elems, ok := Elems(m.Return); ok {
		return elems
	}
	return []Expr{m.Return}
}
