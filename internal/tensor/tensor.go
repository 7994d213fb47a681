package tensor

import (
	"fmt"
	"math/rand/v2"

	"github.com/ferroflow-ml/ferroflow/internal/logging"
)

// Tensor is an immutable value: a backend buffer plus the shape describing
// its logical layout. B is the backend the tensor was built on; all tensors
// derived from it share the same backend value.
//
// Operations never mutate a tensor in place. Every operation either fully
// succeeds and returns a new tensor or fails with the inputs untouched.
type Tensor[B Backend] struct {
	buf     Buffer
	shape   Shape
	backend B
}

// New creates a tensor with the given shape and data. The data length must
// equal the shape's element count; this is the single validation gate, so no
// backend ever receives mismatched data.
func New[B Backend](backend B, shape Shape, data []float32) (*Tensor[B], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("%w: data length %d doesn't match shape %v (size %d)",
			ErrShapeMismatch, len(data), shape, shape.NumElements())
	}

	logging.Debugf("creating tensor with shape %v on %s", shape, backend.Name())
	buf, err := backend.Allocate(shape.NumElements(), data)
	if err != nil {
		return nil, err
	}
	return &Tensor[B]{buf: buf, shape: shape.Clone(), backend: backend}, nil
}

// Zeros creates a zero-filled tensor with the given shape.
func Zeros[B Backend](backend B, shape Shape) (*Tensor[B], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	buf, err := backend.Allocate(shape.NumElements(), nil)
	if err != nil {
		return nil, err
	}
	return &Tensor[B]{buf: buf, shape: shape.Clone(), backend: backend}, nil
}

// Eye creates an n x n identity matrix.
func Eye[B Backend](backend B, n int) (*Tensor[B], error) {
	data := make([]float32, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	return New(backend, Shape{n, n}, data)
}

// Full creates a tensor filled with value.
func Full[B Backend](backend B, shape Shape, value float32) (*Tensor[B], error) {
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = value
	}
	return New(backend, shape, data)
}

// Rand creates a tensor filled with uniform random values in [0, 1).
func Rand[B Backend](backend B, shape Shape) (*Tensor[B], error) {
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = rand.Float32()
	}
	return New(backend, shape, data)
}

// Shape returns the tensor's shape.
func (t *Tensor[B]) Shape() Shape {
	return t.shape
}

// Backend returns the execution backend the tensor was built on.
func (t *Tensor[B]) Backend() B {
	return t.backend
}

// Data reads the tensor contents back to the host.
func (t *Tensor[B]) Data() ([]float32, error) {
	return t.backend.Read(t.buf)
}

// Release frees the tensor's buffer if it holds non-heap resources (device
// memory). The shared backend stays alive for sibling tensors. Optional:
// host buffers are reclaimed by the garbage collector.
func (t *Tensor[B]) Release() {
	if r, ok := t.buf.(Releaser); ok {
		r.Release()
	}
}

// Add computes element-wise addition. Shapes must be equal.
func (t *Tensor[B]) Add(other *Tensor[B]) (*Tensor[B], error) {
	if !t.shape.Equal(other.shape) {
		return nil, fmt.Errorf("%w: cannot add tensors with shapes %v and %v",
			ErrShapeMismatch, t.shape, other.shape)
	}
	buf, err := t.backend.Add(t.buf, other.buf, t.shape.NumElements())
	if err != nil {
		return nil, err
	}
	return &Tensor[B]{buf: buf, shape: t.shape.Clone(), backend: t.backend}, nil
}

// Multiply computes element-wise multiplication. Shapes must be equal.
func (t *Tensor[B]) Multiply(other *Tensor[B]) (*Tensor[B], error) {
	if !t.shape.Equal(other.shape) {
		return nil, fmt.Errorf("%w: cannot multiply tensors with shapes %v and %v",
			ErrShapeMismatch, t.shape, other.shape)
	}
	buf, err := t.backend.Multiply(t.buf, other.buf, t.shape.NumElements())
	if err != nil {
		return nil, err
	}
	return &Tensor[B]{buf: buf, shape: t.shape.Clone(), backend: t.backend}, nil
}

// ScalarMultiply multiplies every element by scalar.
func (t *Tensor[B]) ScalarMultiply(scalar float32) (*Tensor[B], error) {
	buf, err := t.backend.ScalarMultiply(t.buf, scalar, t.shape.NumElements())
	if err != nil {
		return nil, err
	}
	return &Tensor[B]{buf: buf, shape: t.shape.Clone(), backend: t.backend}, nil
}

// Negate returns the element-wise negation.
func (t *Tensor[B]) Negate() (*Tensor[B], error) {
	return t.ScalarMultiply(-1)
}

// MatMul performs matrix multiplication. Both operands must be rank 2
// (plain) or rank 3 (batched) with matching inner dimensions; batched and
// plain tensors can never be multiplied together, and batch counts must
// match exactly.
func (t *Tensor[B]) MatMul(other *Tensor[B]) (*Tensor[B], error) {
	return t.MatMulTransposed(other, false, false)
}

// MatMulTransposed is MatMul with optional logical transposition of either
// operand. The shape-compatibility checks reinterpret each operand's rows
// and columns under its transpose flag before matching inner dimensions.
func (t *Tensor[B]) MatMulTransposed(other *Tensor[B], transposeA, transposeB bool) (*Tensor[B], error) {
	if len(t.shape) < 2 || len(other.shape) < 2 {
		return nil, fmt.Errorf("%w: matmul requires at least 2D tensors, got %v and %v",
			ErrShapeMismatch, t.shape, other.shape)
	}

	m, k1, err := t.shape.MatrixDims()
	if err != nil {
		return nil, err
	}
	k2, n, err := other.shape.MatrixDims()
	if err != nil {
		return nil, err
	}
	if transposeA {
		m, k1 = k1, m
	}
	if transposeB {
		k2, n = n, k2
	}
	if k1 != k2 {
		return nil, fmt.Errorf("%w: incompatible dimensions for matmul: %v and %v",
			ErrShapeMismatch, t.shape, other.shape)
	}

	b1, batchedA := t.shape.BatchSize()
	b2, batchedB := other.shape.BatchSize()
	switch {
	case batchedA && batchedB:
		if b1 != b2 {
			return nil, fmt.Errorf("%w: batch sizes must match for batched matmul: %v and %v",
				ErrShapeMismatch, t.shape, other.shape)
		}
		logging.Debugf("batched matmul %v x %v", t.shape, other.shape)
		var buf Buffer
		if transposeA || transposeB {
			buf, err = t.backend.MatMulTransposedBatched(t.buf, other.buf, b1, m, n, k1, transposeA, transposeB)
		} else {
			buf, err = t.backend.MatMulBatched(t.buf, other.buf, b1, m, n, k1)
		}
		if err != nil {
			return nil, err
		}
		return &Tensor[B]{buf: buf, shape: Batched(b1, m, n), backend: t.backend}, nil

	case !batchedA && !batchedB:
		logging.Debugf("matmul %v x %v", t.shape, other.shape)
		var buf Buffer
		if transposeA || transposeB {
			buf, err = t.backend.MatMulTransposed(t.buf, other.buf, m, n, k1, transposeA, transposeB)
		} else {
			buf, err = t.backend.MatMul(t.buf, other.buf, m, n, k1)
		}
		if err != nil {
			return nil, err
		}
		return &Tensor[B]{buf: buf, shape: Shape{m, n}, backend: t.backend}, nil

	default:
		return nil, fmt.Errorf("%w: cannot multiply batched and non-batched tensors: %v and %v",
			ErrShapeMismatch, t.shape, other.shape)
	}
}
