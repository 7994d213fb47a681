package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferroflow-ml/ferroflow/internal/backend/cpu"
	"github.com/ferroflow-ml/ferroflow/internal/tensor"
)

func TestNewValidatesDataLength(t *testing.T) {
	backend := cpu.New()

	_, err := tensor.New(backend, tensor.Shape{2, 2}, []float32{1, 2, 3})
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)

	a, err := tensor.New(backend, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	assert.True(t, a.Shape().Equal(tensor.Shape{2, 2}))
}

func TestRoundTrip(t *testing.T) {
	backend := cpu.New()

	data := []float32{1, 2, 3, 4, 5, 6}
	a, err := tensor.New(backend, tensor.Shape{2, 3}, data)
	require.NoError(t, err)

	got, err := a.Data()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestZeros(t *testing.T) {
	backend := cpu.New()

	z, err := tensor.Zeros(backend, tensor.Shape{2, 3})
	require.NoError(t, err)

	got, err := z.Data()
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 6), got)
}

func TestAdd(t *testing.T) {
	backend := cpu.New()

	a, err := tensor.New(backend, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	b, err := tensor.New(backend, tensor.Shape{2, 2}, []float32{5, 6, 7, 8})
	require.NoError(t, err)

	c, err := a.Add(b)
	require.NoError(t, err)

	got, err := c.Data()
	require.NoError(t, err)
	assert.Equal(t, []float32{6, 8, 10, 12}, got)

	// Inputs stay untouched.
	aData, err := a.Data()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, aData)
}

func TestAddShapeMismatch(t *testing.T) {
	backend := cpu.New()

	// Same element count, different layout: still a mismatch.
	a, err := tensor.New(backend, tensor.Shape{2, 3}, make([]float32, 6))
	require.NoError(t, err)
	b, err := tensor.New(backend, tensor.Shape{3, 2}, make([]float32, 6))
	require.NoError(t, err)

	_, err = a.Add(b)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
	_, err = a.Multiply(b)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestMultiply(t *testing.T) {
	backend := cpu.New()

	a, err := tensor.New(backend, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	b, err := tensor.New(backend, tensor.Shape{2, 2}, []float32{5, 6, 7, 8})
	require.NoError(t, err)

	c, err := a.Multiply(b)
	require.NoError(t, err)

	got, err := c.Data()
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 12, 21, 32}, got)
}

func TestScalarMultiplyAndNegate(t *testing.T) {
	backend := cpu.New()

	a, err := tensor.New(backend, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)

	doubled, err := a.ScalarMultiply(2)
	require.NoError(t, err)
	got, err := doubled.Data()
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 8}, got)

	neg, err := a.Negate()
	require.NoError(t, err)
	got, err = neg.Data()
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, -2, -3, -4}, got)
}

func TestMatMul(t *testing.T) {
	backend := cpu.New()

	a, err := tensor.New(backend, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	b, err := tensor.New(backend, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})
	require.NoError(t, err)

	c, err := a.MatMul(b)
	require.NoError(t, err)
	assert.True(t, c.Shape().Equal(tensor.Shape{2, 2}))

	got, err := c.Data()
	require.NoError(t, err)
	assert.Equal(t, []float32{58, 64, 139, 154}, got)
}

func TestMatMulIdentity(t *testing.T) {
	backend := cpu.New()

	eye, err := tensor.Eye(backend, 3)
	require.NoError(t, err)
	x, err := tensor.New(backend, tensor.Shape{3, 3}, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)

	y, err := eye.MatMul(x)
	require.NoError(t, err)

	want, err := x.Data()
	require.NoError(t, err)
	got, err := y.Data()
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-5)
}

func TestMatMulShapeErrors(t *testing.T) {
	backend := cpu.New()

	vec, err := tensor.New(backend, tensor.Shape{3}, []float32{1, 2, 3})
	require.NoError(t, err)
	mat, err := tensor.New(backend, tensor.Shape{3, 2}, make([]float32, 6))
	require.NoError(t, err)

	// Rank below 2 cannot matmul.
	_, err = vec.MatMul(mat)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)

	// Inner dimension mismatch.
	bad, err := tensor.New(backend, tensor.Shape{4, 2}, make([]float32, 8))
	require.NoError(t, err)
	_, err = mat.MatMul(bad)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestMatMulBatched(t *testing.T) {
	backend := cpu.New()

	// Two independent 2x2 products.
	a, err := tensor.New(backend, tensor.Batched(2, 2, 2), []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
	})
	require.NoError(t, err)
	b, err := tensor.New(backend, tensor.Batched(2, 2, 2), []float32{
		1, 0, 0, 1,
		2, 0, 0, 2,
	})
	require.NoError(t, err)

	c, err := a.MatMul(b)
	require.NoError(t, err)
	assert.True(t, c.Shape().Equal(tensor.Shape{2, 2, 2}))

	got, err := c.Data()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{
		1, 2, 3, 4,
		10, 12, 14, 16,
	}, got, 1e-5)
}

func TestMatMulBatchMismatches(t *testing.T) {
	backend := cpu.New()

	batch2, err := tensor.Zeros(backend, tensor.Batched(2, 2, 3))
	require.NoError(t, err)
	batch3, err := tensor.Zeros(backend, tensor.Batched(3, 3, 2))
	require.NoError(t, err)
	plain, err := tensor.Zeros(backend, tensor.Shape{3, 2})
	require.NoError(t, err)

	// Batch counts 2 vs 3.
	_, err = batch2.MatMul(batch3)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)

	// Batched against plain can never multiply.
	_, err = batch2.MatMul(plain)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
	_, err = plain.MatMul(batch2)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)

	// Equal batch, mismatched inner dims (3 vs 4).
	left, err := tensor.Zeros(backend, tensor.Batched(2, 2, 3))
	require.NoError(t, err)
	right, err := tensor.Zeros(backend, tensor.Batched(2, 4, 2))
	require.NoError(t, err)
	_, err = left.MatMul(right)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestMatMulTransposed(t *testing.T) {
	backend := cpu.New()

	// a stored as [3, 2]; logically transposed to [2, 3].
	a, err := tensor.New(backend, tensor.Shape{3, 2}, []float32{1, 4, 2, 5, 3, 6})
	require.NoError(t, err)
	b, err := tensor.New(backend, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})
	require.NoError(t, err)

	c, err := a.MatMulTransposed(b, true, false)
	require.NoError(t, err)
	assert.True(t, c.Shape().Equal(tensor.Shape{2, 2}))

	got, err := c.Data()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{58, 64, 139, 154}, got, 1e-5)
}

func TestMatMulTransposedBothFlags(t *testing.T) {
	backend := cpu.New()

	// a stored [3, 2] (logical [2, 3]), b stored [2, 3] (logical [3, 2]).
	a, err := tensor.New(backend, tensor.Shape{3, 2}, []float32{1, 4, 2, 5, 3, 6})
	require.NoError(t, err)
	b, err := tensor.New(backend, tensor.Shape{2, 3}, []float32{7, 9, 11, 8, 10, 12})
	require.NoError(t, err)

	c, err := a.T().MatMul(b.T())
	require.NoError(t, err)

	got, err := c.Data()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{58, 64, 139, 154}, got, 1e-5)
}

func TestMatMulTransposedInnerMismatch(t *testing.T) {
	backend := cpu.New()

	// Without flags these would be compatible; the transposed
	// reinterpretation must be what gets checked.
	a, err := tensor.Zeros(backend, tensor.Shape{2, 3})
	require.NoError(t, err)
	b, err := tensor.Zeros(backend, tensor.Shape{3, 2})
	require.NoError(t, err)

	_, err = a.MatMulTransposed(b, true, false)
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestFullAndRand(t *testing.T) {
	backend := cpu.New()

	f, err := tensor.Full(backend, tensor.Shape{2, 2}, 3.5)
	require.NoError(t, err)
	got, err := f.Data()
	require.NoError(t, err)
	assert.Equal(t, []float32{3.5, 3.5, 3.5, 3.5}, got)

	r, err := tensor.Rand(backend, tensor.Shape{4, 4})
	require.NoError(t, err)
	data, err := r.Data()
	require.NoError(t, err)
	require.Len(t, data, 16)
	for _, v := range data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestChain(t *testing.T) {
	backend := cpu.New()

	a, err := tensor.New(backend, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	b, err := tensor.New(backend, tensor.Shape{2, 2}, []float32{1, 0, 0, 1})
	require.NoError(t, err)

	result, err := a.Chain().
		MatMul(b).
		Add(a).
		ScalarMultiply(0.5).
		Finish()
	require.NoError(t, err)

	got, err := result.Data()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{1, 2, 3, 4}, got, 1e-5)
}

func TestChainShortCircuits(t *testing.T) {
	backend := cpu.New()

	a, err := tensor.New(backend, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	wrong, err := tensor.Zeros(backend, tensor.Shape{3, 3})
	require.NoError(t, err)

	// The Add fails; the following steps must pass the error through.
	result, err := a.Chain().
		Add(wrong).
		ScalarMultiply(2).
		MatMul(a).
		Finish()
	require.ErrorIs(t, err, tensor.ErrShapeMismatch)
	assert.Nil(t, result)
}

func TestChainTranspose(t *testing.T) {
	backend := cpu.New()

	a, err := tensor.New(backend, tensor.Shape{3, 2}, []float32{1, 4, 2, 5, 3, 6})
	require.NoError(t, err)
	b, err := tensor.New(backend, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})
	require.NoError(t, err)

	result, err := a.Chain().
		Transpose().
		MatMul(b).
		Finish()
	require.NoError(t, err)

	got, err := result.Data()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{58, 64, 139, 154}, got, 1e-5)
}
