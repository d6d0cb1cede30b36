package mempool

import (
	"sync"
)

// DefaultQuantum is the size-class step used when New is given a
// non-positive quantum.
const DefaultQuantum = 32

// Pool is a sized pool for []T scratch buffers on hot paths. Buffers are
// grouped into size classes that are multiples of the pool's quantum.
// A Pool is safe for concurrent use; the zero value uses DefaultQuantum.
type Pool[T any] struct {
	quantum int
	pools   sync.Map // key: size class (int), value: *sync.Pool
}

// New returns a pool whose size classes are multiples of quantum.
func New[T any](quantum int) *Pool[T] {
	if quantum <= 0 {
		quantum = DefaultQuantum
	}
	return &Pool[T]{quantum: quantum}
}

func (p *Pool[T]) step() int {
	if p.quantum <= 0 {
		return DefaultQuantum
	}
	return p.quantum
}

// sizeClass rounds n up to the next multiple of the quantum.
func (p *Pool[T]) sizeClass(n int) int {
	step := p.step()
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

func (p *Pool[T]) class(cls int) *sync.Pool {
	if sp, ok := p.pools.Load(cls); ok {
		return sp.(*sync.Pool)
	}
	sp, _ := p.pools.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]T, cls)
		return &buf
	}})
	return sp.(*sync.Pool)
}

// Get retrieves a buffer of length n. Contents are not zeroed; callers
// that append should reslice to [:0]. Return it with Put when done.
func (p *Pool[T]) Get(n int) []T {
	if n < 0 {
		n = 0
	}
	cls := p.sizeClass(n)
	bp, ok := p.class(cls).Get().(*[]T)
	if !ok || cap(*bp) < cls {
		return make([]T, n, cls)
	}
	return (*bp)[:n]
}

// Put returns a buffer to the pool. Nil and zero-capacity slices are
// ignored. Buffers whose capacity is not a full size class are filed under
// the largest class they can serve.
func (p *Pool[T]) Put(buf []T) {
	c := cap(buf)
	step := p.step()
	if c < step {
		return
	}
	cls := c / step * step
	buf = buf[:cls]
	p.class(cls).Put(&buf)
}
