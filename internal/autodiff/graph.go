package autodiff

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// builder wraps an expression graph for batch vectors of length n. The
// first failing op is kept in err and every later op becomes a no-op, so
// formulas read top to bottom without per-line error checks.
type builder struct {
	g   *G.ExprGraph
	n   int
	err error
}

func newBuilder(n int) *builder {
	return &builder{g: G.NewGraph(), n: n}
}

// vector adds a named float64 input vector holding data.
func (b *builder) vector(name string, data []float64) *G.Node {
	backing := make([]float64, len(data))
	copy(backing, data)
	t := tensor.New(tensor.WithShape(b.n), tensor.WithBacking(backing))
	return G.NewVector(b.g, tensor.Float64, G.WithShape(b.n), G.WithName(name), G.WithValue(t))
}

// fill adds a constant-valued vector. Graph ops here are vector-vector,
// so scalars are expanded instead of broadcast.
func (b *builder) fill(name string, v float64) *G.Node {
	data := make([]float64, b.n)
	for i := range data {
		data[i] = v
	}
	return b.vector(name, data)
}

type binaryOp func(x, y *G.Node) (*G.Node, error)

type unaryOp func(x *G.Node) (*G.Node, error)

func (b *builder) binary(what string, f binaryOp, x, y *G.Node) *G.Node {
	if b.err != nil {
		return nil
	}
	out, err := f(x, y)
	if err != nil {
		b.err = errors.Wrapf(err, "graph op %s", what)
		return nil
	}
	return out
}

func (b *builder) unary(what string, f unaryOp, x *G.Node) *G.Node {
	if b.err != nil {
		return nil
	}
	out, err := f(x)
	if err != nil {
		b.err = errors.Wrapf(err, "graph op %s", what)
		return nil
	}
	return out
}

func (b *builder) add(x, y *G.Node) *G.Node { return b.binary("add", G.Add, x, y) }
func (b *builder) sub(x, y *G.Node) *G.Node { return b.binary("sub", G.Sub, x, y) }
func (b *builder) mul(x, y *G.Node) *G.Node { return b.binary("mul", G.HadamardProd, x, y) }
func (b *builder) div(x, y *G.Node) *G.Node { return b.binary("div", G.HadamardDiv, x, y) }

func (b *builder) square(x *G.Node) *G.Node { return b.unary("square", G.Square, x) }
func (b *builder) sqrt(x *G.Node) *G.Node   { return b.unary("sqrt", G.Sqrt, x) }
func (b *builder) cos(x *G.Node) *G.Node    { return b.unary("cos", G.Cos, x) }
func (b *builder) sin(x *G.Node) *G.Node    { return b.unary("sin", G.Sin, x) }
func (b *builder) log(x *G.Node) *G.Node    { return b.unary("log", G.Log, x) }
func (b *builder) log1p(x *G.Node) *G.Node  { return b.unary("log1p", G.Log1p, x) }
func (b *builder) abs(x *G.Node) *G.Node    { return b.unary("abs", G.Abs, x) }

// relu is max(x, 0) written as (x + |x|)/2; its gradient is 0 below zero.
func (b *builder) relu(x, half *G.Node) *G.Node {
	return b.mul(b.add(x, b.abs(x)), half)
}

// sum adds any number of same-shaped nodes.
func (b *builder) sum(nodes ...*G.Node) *G.Node {
	out := nodes[0]
	for _, n := range nodes[1:] {
		out = b.add(out, n)
	}
	return out
}

// read registers a value reader for n.
func (b *builder) read(n *G.Node, v *G.Value) {
	if b.err != nil {
		return
	}
	G.Read(n, v)
}

// floats extracts a float64 slice from a graph value. Reductions come back
// as scalars and length-one vectors may too.
func floats(v G.Value) ([]float64, error) {
	if v == nil {
		return nil, errors.New("graph value was not computed")
	}
	switch d := v.Data().(type) {
	case []float64:
		out := make([]float64, len(d))
		copy(out, d)
		return out, nil
	case float64:
		return []float64{d}, nil
	default:
		return nil, errors.Errorf("unexpected graph value type %T", d)
	}
}
