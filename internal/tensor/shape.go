package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
//
// A rank-2 shape is a plain matrix. A shape of rank 3 or more is batched:
// dimension 0 is the batch count and dimensions 1-2 are the matrix rows and
// columns.
type Shape []int

// NumElements returns the total number of elements in the tensor:
// the product of all dimensions (1 for a rank-0 shape, 0 if any dim is 0).
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is non-negative.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("%w: negative dimension %d at index %d", ErrShapeMismatch, dim, i)
		}
	}
	return nil
}

// Equal reports whether two shapes have the same rank and dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// BatchSize returns the leading batch dimension and true if the shape is
// batched (rank >= 3), or 0 and false for a plain matrix or lower rank.
func (s Shape) BatchSize() (int, bool) {
	if len(s) >= 3 {
		return s[0], true
	}
	return 0, false
}

// MatrixDims returns the matrix rows and columns, ignoring any batch
// dimension. Shapes outside rank 2 and 3 cannot be treated as matrices and
// yield ErrInvalidOperation.
func (s Shape) MatrixDims() (rows, cols int, err error) {
	switch len(s) {
	case 2:
		return s[0], s[1], nil
	case 3:
		return s[1], s[2], nil
	default:
		return 0, 0, fmt.Errorf("%w: shape %v has no matrix dimensions", ErrInvalidOperation, s)
	}
}

// Batched builds a rank-3 shape for a batch of rows x cols matrices.
func Batched(batch, rows, cols int) Shape {
	return Shape{batch, rows, cols}
}
