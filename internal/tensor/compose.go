package tensor

// Transposed pairs a tensor with a transpose flag. Multiplying two wrappers
// dispatches a single transposed matmul; no transposed copy is materialized.
type Transposed[B Backend] struct {
	tensor    *Tensor[B]
	transpose bool
}

// T returns a transposed view of the tensor for use in matmul.
func (t *Tensor[B]) T() Transposed[B] {
	return Transposed[B]{tensor: t, transpose: true}
}

// AsIs returns a non-transposed view, for mixing with T() operands.
func (t *Tensor[B]) AsIs() Transposed[B] {
	return Transposed[B]{tensor: t}
}

// MatMul multiplies two possibly-transposed views.
func (a Transposed[B]) MatMul(b Transposed[B]) (*Tensor[B], error) {
	return a.tensor.MatMulTransposed(b.tensor, a.transpose, b.transpose)
}

// Chain is a fluent builder over a sequence of tensor operations. The first
// failing step's error is held and every later step passes it through
// unchanged; Finish unwraps the final result.
type Chain[B Backend] struct {
	tensor *Tensor[B]
	err    error
	// transposed marks the held tensor for logical transposition in the
	// next MatMul step.
	transposed bool
}

// Chain starts a fluent operation chain on the tensor.
func (t *Tensor[B]) Chain() Chain[B] {
	return Chain[B]{tensor: t}
}

func (c Chain[B]) step(t *Tensor[B], err error) Chain[B] {
	if err != nil {
		return Chain[B]{err: err}
	}
	return Chain[B]{tensor: t}
}

// Add appends an element-wise addition.
func (c Chain[B]) Add(other *Tensor[B]) Chain[B] {
	if c.err != nil {
		return c
	}
	return c.step(c.tensor.Add(other))
}

// Multiply appends an element-wise multiplication.
func (c Chain[B]) Multiply(other *Tensor[B]) Chain[B] {
	if c.err != nil {
		return c
	}
	return c.step(c.tensor.Multiply(other))
}

// ScalarMultiply appends a scalar multiplication.
func (c Chain[B]) ScalarMultiply(scalar float32) Chain[B] {
	if c.err != nil {
		return c
	}
	return c.step(c.tensor.ScalarMultiply(scalar))
}

// Transpose marks the held tensor as transposed for the next MatMul step.
func (c Chain[B]) Transpose() Chain[B] {
	if c.err != nil {
		return c
	}
	c.transposed = !c.transposed
	return c
}

// MatMul appends a matrix multiplication, honoring a pending Transpose.
func (c Chain[B]) MatMul(other *Tensor[B]) Chain[B] {
	if c.err != nil {
		return c
	}
	return c.step(c.tensor.MatMulTransposed(other, c.transposed, false))
}

// Finish unwraps the chain to its final tensor or first error.
func (c Chain[B]) Finish() (*Tensor[B], error) {
	return c.tensor, c.err
}
