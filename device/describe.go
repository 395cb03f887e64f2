package device

import "fmt"

// Describe renders an Expr tree into a plain, JSON-friendly structure for
// on-disk serialization (pipeline.WriteToDir's hlo.binpb stand-in — this
// module has no real accelerator IR to emit, so it persists a textual
// description of the traced graph instead).
func Describe(e Expr) map[string]any {
	switch n := e.(type) {
	case *paramExpr:
		return map[string]any{"op": "parameter", "index": n.idx, "shape": []int(n.shape), "dtype": int(n.dtype)}
	case *constExpr:
		return map[string]any{"op": "const", "shape": []int(n.shape), "dtype": int(n.dtype), "row": n.row}
	case *binOpExpr:
		name := "add"
		if n.op == opMul {
			name = "mul"
		}
		return map[string]any{"op": name, "a": Describe(n.a), "b": Describe(n.b)}
	case *sliceExpr:
		return map[string]any{"op": "slice", "a": Describe(n.a), "start": n.start, "end": n.end}
	case *reshapeExpr:
		return map[string]any{"op": "reshape", "a": Describe(n.a), "shape": []int(n.shape)}
	case *scatterExpr:
		return map[string]any{"op": "scatter", "target": Describe(n.target), "update": Describe(n.update), "pairs": n.pairs}
	case *tupleExpr:
		elems := make([]map[string]any, len(n.elems))
		for i, c := range n.elems {
			elems[i] = Describe(c)
		}
		return map[string]any{"op": "tuple", "elems": elems}
	case *vmapExpr:
		return map[string]any{"op": "vmap", "a": Describe(n.a), "outShape": []int(n.outShape)}
	default:
		return map[string]any{"op": "unknown"}
	}
}

// Parse reconstructs an Expr tree from the structure Describe produces, as
// decoded from JSON — every number arrives as float64 and every list as
// []any, so every field read here goes through the as* helpers rather than
// a direct type assertion. This is Describe's inverse, used by
// pipeline.ReadFromDir to rebuild a runnable Module from an on-disk
// hlo.binpb without re-tracing any system. vmap cannot round-trip: its Go
// closure has no serializable form, matching spec.md §4.5's scope (only
// traced graphs built from the other node kinds are persisted).
func Parse(data map[string]any) (Expr, error) {
	op, _ := data["op"].(string)
	switch op {
	case "parameter":
		return Parameter(asInt(data["index"]), asShape(data["shape"]), DType(asInt(data["dtype"]))), nil
	case "const":
		return Const(asShape(data["shape"]), DType(asInt(data["dtype"])), asFloats(data["row"])), nil
	case "add", "mul":
		a, err := Parse(asMap(data["a"]))
		if err != nil {
			return nil, err
		}
		b, err := Parse(asMap(data["b"]))
		if err != nil {
			return nil, err
		}
		if op == "mul" {
			return Mul(a, b), nil
		}
		return Add(a, b), nil
	case "slice":
		a, err := Parse(asMap(data["a"]))
		if err != nil {
			return nil, err
		}
		return Slice(a, asInt(data["start"]), asInt(data["end"])), nil
	case "reshape":
		a, err := Parse(asMap(data["a"]))
		if err != nil {
			return nil, err
		}
		return Reshape(a, asShape(data["shape"])), nil
	case "scatter":
		target, err := Parse(asMap(data["target"]))
		if err != nil {
			return nil, err
		}
		update, err := Parse(asMap(data["update"]))
		if err != nil {
			return nil, err
		}
		pairs, err := asRowPairs(data["pairs"])
		if err != nil {
			return nil, err
		}
		return Scatter(target, update, pairs), nil
	case "tuple":
		rawElems, _ := data["elems"].([]any)
		elems := make([]Expr, len(rawElems))
		for i, re := range rawElems {
			e, err := Parse(asMap(re))
			if err != nil {
				return nil, err
			}
			elems[i] = e
		}
		return Tuple(elems...), nil
	case "vmap":
		return nil, fmt.Errorf("device: parse: vmap graphs are not serializable")
	default:
		return nil, fmt.Errorf("device: parse: unknown op %q", op)
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asInt(v any) int {
	f, _ := v.(float64)
	return int(f)
}

func asShape(v any) Shape {
	raw, _ := v.([]any)
	out := make(Shape, len(raw))
	for i, r := range raw {
		out[i] = asInt(r)
	}
	return out
}

func asFloats(v any) []float64 {
	raw, _ := v.([]any)
	out := make([]float64, len(raw))
	for i, r := range raw {
		f, _ := r.(float64)
		out[i] = f
	}
	return out
}

func asRowPairs(v any) ([]RowPair, error) {
	raw, _ := v.([]any)
	out := make([]RowPair, len(raw))
	for i, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("device: parse: malformed scatter pair %v", r)
		}
		out[i] = RowPair{Existing: asInt(m["Existing"]), Update: asInt(m["Update"])}
	}
	return out, nil
}

// ParamSpecsFromExpr walks e and returns one ParamSpec per distinct
// Parameter index reachable from it, ordered by index — how
// pipeline.ReadFromDir rebuilds a Module's parameter list from a parsed
// graph without the original Builder that traced it.
func ParamSpecsFromExpr(e Expr) []ParamSpec {
	found := map[int]ParamSpec{}
	maxIdx := -1
	seen := map[Expr]bool{}
	var walk func(e Expr)
	walk = func(e Expr) {
		if e == nil || seen[e] {
			return
		}
		seen[e] = true
		switch n := e.(type) {
		case *paramExpr:
			found[n.idx] = ParamSpec{Shape: n.shape, DType: n.dtype}
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
	walk(e)
	specs := make([]ParamSpec, maxIdx+1)
	for idx, spec := range found {
		specs[idx] = spec
	}
	return specs
}
