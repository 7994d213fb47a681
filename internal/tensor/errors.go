package tensor

import "errors"

// Error taxonomy for the engine. Callers match with errors.Is; every error
// returned by this module and by the backends wraps one of these sentinels.
var (
	// ErrShapeMismatch reports incompatible shapes: data length vs shape
	// size, unequal shapes in element-wise ops, or incompatible matmul
	// operands (inner dimension, batch count, batched-vs-plain).
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrBuffer reports a backend-level buffer problem: a size mismatch or
	// a buffer that belongs to a different backend. Unreachable if engine
	// validation is correct; backends keep it as a second gate.
	ErrBuffer = errors.New("buffer error")

	// ErrInit reports that a backend could not initialize (no compatible
	// device, kernel library failed to compile). Not retryable.
	ErrInit = errors.New("backend initialization failed")

	// ErrBackend reports a failure while executing on an otherwise healthy
	// backend, such as a pipeline that could not be created.
	ErrBackend = errors.New("backend execution error")

	// ErrInvalidOperation reports an operation that is not representable,
	// e.g. asking a rank-1 shape for its matrix dimensions.
	ErrInvalidOperation = errors.New("invalid operation")
)
