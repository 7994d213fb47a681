package tensor

// Buffer is opaque backend-owned storage for float32 elements. Each backend
// defines its own concrete buffer type (host slice for CPU, device buffer for
// WebGPU) and rejects buffers it did not allocate.
type Buffer interface {
	// NumElements returns the element count recorded when the buffer was
	// allocated. Reads size themselves from this, never from tensor shape
	// bookkeeping, so a read is self-consistent even if misused.
	NumElements() int
}

// Releaser is implemented by buffers that hold resources outside the Go heap.
// Host buffers don't need it; device buffers free their GPU allocation.
type Releaser interface {
	Release()
}

// Backend is the capability contract every execution backend must satisfy.
// The tensor engine is written once against this interface and is
// backend-agnostic; a backend value is also the shared execution context
// (device, queue, compiled pipelines) for every tensor built on it, and must
// not be mutated after construction.
//
// Implementations:
//   - internal/backend/cpu: reference host implementation, synchronous loops
//   - internal/backend/webgpu: WebGPU compute pipelines over device buffers
//
// Every numeric operation allocates and returns a fresh output buffer and
// leaves its inputs untouched.
type Backend interface {
	// Allocate creates a buffer of size elements. If data is non-nil its
	// length must equal size; otherwise the buffer is zero-filled.
	Allocate(size int, data []float32) (Buffer, error)

	// Read materializes the full buffer contents on the host.
	Read(buf Buffer) ([]float32, error)

	// Add computes element-wise a + b over size elements.
	Add(a, b Buffer, size int) (Buffer, error)

	// Multiply computes element-wise a * b over size elements.
	Multiply(a, b Buffer, size int) (Buffer, error)

	// ScalarMultiply computes in * scalar over size elements.
	ScalarMultiply(in Buffer, scalar float32, size int) (Buffer, error)

	// MatMul computes the m x n product of an m x k left operand and a
	// k x n right operand, both row-major.
	MatMul(a, b Buffer, m, n, k int) (Buffer, error)

	// MatMulBatched computes batch independent matrix products; operands
	// and result are concatenated in batch-major order.
	MatMulBatched(a, b Buffer, batch, m, n, k int) (Buffer, error)

	// MatMulTransposed is MatMul with optional logical transposition of
	// either operand: with transposeA the left operand is stored k x m,
	// with transposeB the right operand is stored n x k. No transposed
	// copy is materialized.
	MatMulTransposed(a, b Buffer, m, n, k int, transposeA, transposeB bool) (Buffer, error)

	// MatMulTransposedBatched is the batched form of MatMulTransposed.
	MatMulTransposedBatched(a, b Buffer, batch, m, n, k int, transposeA, transposeB bool) (Buffer, error)

	// Synchronize blocks until all previously issued operations have
	// completed. A no-op for backends that are synchronous per call.
	Synchronize() error

	// Name returns a human-readable backend name.
	Name() string

	// Release frees backend-held resources. The backend must not be used
	// afterwards. A no-op for stateless backends.
	Release()
}
