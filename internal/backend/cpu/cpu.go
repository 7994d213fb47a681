// Package cpu implements the reference host backend. Every operation runs
// synchronously on the calling goroutine over plain float32 slices; it is
// the correctness baseline the GPU backend is checked against.
package cpu

import (
	"fmt"

	"github.com/ferroflow-ml/ferroflow/internal/tensor"
)

// CPUBackend is a stateless execution context; the zero value is ready to use.
type CPUBackend struct{}

// New creates a CPU backend.
func New() *CPUBackend {
	return &CPUBackend{}
}

// hostBuffer is host-resident storage for float32 elements.
type hostBuffer []float32

func (h hostBuffer) NumElements() int { return len(h) }

// asHost rejects buffers allocated by a different backend.
func asHost(buf tensor.Buffer) (hostBuffer, error) {
	h, ok := buf.(hostBuffer)
	if !ok {
		return nil, fmt.Errorf("%w: buffer %T was not allocated by the CPU backend", tensor.ErrBuffer, buf)
	}
	return h, nil
}

// Allocate creates a host buffer of size elements, copying data if given.
func (cpu *CPUBackend) Allocate(size int, data []float32) (tensor.Buffer, error) {
	if data != nil {
		if len(data) != size {
			return nil, fmt.Errorf("%w: data length %d doesn't match size %d", tensor.ErrBuffer, len(data), size)
		}
		buf := make(hostBuffer, size)
		copy(buf, data)
		return buf, nil
	}
	return make(hostBuffer, size), nil
}

// Read returns a copy of the buffer contents.
func (cpu *CPUBackend) Read(buf tensor.Buffer) ([]float32, error) {
	h, err := asHost(buf)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(h))
	copy(out, h)
	return out, nil
}

// Add computes element-wise a + b.
func (cpu *CPUBackend) Add(a, b tensor.Buffer, size int) (tensor.Buffer, error) {
	return cpu.binaryOp(a, b, size, func(x, y float32) float32 { return x + y })
}

// Multiply computes element-wise a * b.
func (cpu *CPUBackend) Multiply(a, b tensor.Buffer, size int) (tensor.Buffer, error) {
	return cpu.binaryOp(a, b, size, func(x, y float32) float32 { return x * y })
}

func (cpu *CPUBackend) binaryOp(a, b tensor.Buffer, size int, op func(x, y float32) float32) (tensor.Buffer, error) {
	ha, err := asHost(a)
	if err != nil {
		return nil, err
	}
	hb, err := asHost(b)
	if err != nil {
		return nil, err
	}
	if len(ha) != size || len(hb) != size {
		return nil, fmt.Errorf("%w: buffer sizes %d, %d don't match size %d", tensor.ErrBuffer, len(ha), len(hb), size)
	}
	out := make(hostBuffer, size)
	for i := 0; i < size; i++ {
		out[i] = op(ha[i], hb[i])
	}
	return out, nil
}

// ScalarMultiply multiplies every element by scalar.
func (cpu *CPUBackend) ScalarMultiply(in tensor.Buffer, scalar float32, size int) (tensor.Buffer, error) {
	h, err := asHost(in)
	if err != nil {
		return nil, err
	}
	if len(h) != size {
		return nil, fmt.Errorf("%w: buffer size %d doesn't match size %d", tensor.ErrBuffer, len(h), size)
	}
	out := make(hostBuffer, size)
	for i := 0; i < size; i++ {
		out[i] = h[i] * scalar
	}
	return out, nil
}

// MatMul computes C = A @ B with A m x k and B k x n, row-major.
func (cpu *CPUBackend) MatMul(a, b tensor.Buffer, m, n, k int) (tensor.Buffer, error) {
	return cpu.MatMulTransposed(a, b, m, n, k, false, false)
}

// MatMulBatched runs independent matrix products per batch index.
func (cpu *CPUBackend) MatMulBatched(a, b tensor.Buffer, batch, m, n, k int) (tensor.Buffer, error) {
	return cpu.MatMulTransposedBatched(a, b, batch, m, n, k, false, false)
}

// MatMulTransposed computes an m x n product, honoring the transpose flags
// by adjusting the indexing formulas rather than materializing a copy:
// with transposeA the left operand is stored k x m, with transposeB the
// right operand is stored n x k.
func (cpu *CPUBackend) MatMulTransposed(a, b tensor.Buffer, m, n, k int, transposeA, transposeB bool) (tensor.Buffer, error) {
	ha, err := asHost(a)
	if err != nil {
		return nil, err
	}
	hb, err := asHost(b)
	if err != nil {
		return nil, err
	}
	out := make(hostBuffer, m*n)
	matmul(out, ha, hb, m, n, k, transposeA, transposeB)
	return out, nil
}

// MatMulTransposedBatched is the batched form of MatMulTransposed; batches
// are independent and concatenated in batch-major order.
func (cpu *CPUBackend) MatMulTransposedBatched(a, b tensor.Buffer, batch, m, n, k int, transposeA, transposeB bool) (tensor.Buffer, error) {
	ha, err := asHost(a)
	if err != nil {
		return nil, err
	}
	hb, err := asHost(b)
	if err != nil {
		return nil, err
	}
	out := make(hostBuffer, batch*m*n)
	for bi := 0; bi < batch; bi++ {
		matmul(out[bi*m*n:(bi+1)*m*n], ha[bi*m*k:(bi+1)*m*k], hb[bi*k*n:(bi+1)*k*n],
			m, n, k, transposeA, transposeB)
	}
	return out, nil
}

// matmul is the naive O(m*n*k) triple loop, row-major.
func matmul(c, a, b []float32, m, n, k int, transposeA, transposeB bool) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for kk := 0; kk < k; kk++ {
				var av, bv float32
				if transposeA {
					av = a[kk*m+i]
				} else {
					av = a[i*k+kk]
				}
				if transposeB {
					bv = b[j*k+kk]
				} else {
					bv = b[kk*n+j]
				}
				sum += av * bv
			}
			c[i*n+j] = sum
		}
	}
}

// Synchronize is a no-op: every operation completes before returning.
func (cpu *CPUBackend) Synchronize() error {
	return nil
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Release is a no-op: the backend holds no resources.
func (cpu *CPUBackend) Release() {}
