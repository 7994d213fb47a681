// Copyright 2025 The FerroFlow Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API of the FerroFlow tensor engine.
//
// A Tensor pairs a backend-owned buffer with a Shape and is generic over the
// execution backend, so the same code runs unmodified on the CPU reference
// backend or the WebGPU backend:
//
//	backend := cpu.New()
//	a, err := tensor.New(backend, tensor.Shape{2, 3}, data)
//	b, err := tensor.New(backend, tensor.Shape{3, 2}, other)
//	c, err := a.MatMul(b)
//
// Tensors are immutable values: every operation returns a new tensor and
// leaves its inputs untouched. Shape validation happens here, before any
// backend call; failures wrap the exported sentinel errors and are matched
// with errors.Is.
package tensor

import (
	"github.com/ferroflow-ml/ferroflow/internal/tensor"
)

// Shape represents the dimensions of a tensor. Rank 2 is a plain matrix;
// rank 3 or more is batched, with dimension 0 the batch count.
type Shape = tensor.Shape

// Buffer is opaque backend-owned storage for float32 elements.
type Buffer = tensor.Buffer

// Tensor is a generic tensor bound to execution backend B.
type Tensor[B Backend] = tensor.Tensor[B]

// Transposed pairs a tensor with a transpose flag for transposed matmul.
type Transposed[B Backend] = tensor.Transposed[B]

// Chain is a fluent, short-circuiting builder over tensor operations.
type Chain[B Backend] = tensor.Chain[B]

// Error sentinels; see the Backend contract for when each is surfaced.
var (
	ErrShapeMismatch    = tensor.ErrShapeMismatch
	ErrBuffer           = tensor.ErrBuffer
	ErrInit             = tensor.ErrInit
	ErrBackend          = tensor.ErrBackend
	ErrInvalidOperation = tensor.ErrInvalidOperation
)

// New creates a tensor with the given shape and data; the data length must
// equal the shape's element count.
func New[B Backend](backend B, shape Shape, data []float32) (*Tensor[B], error) {
	return tensor.New(backend, shape, data)
}

// Zeros creates a zero-filled tensor.
func Zeros[B Backend](backend B, shape Shape) (*Tensor[B], error) {
	return tensor.Zeros(backend, shape)
}

// Eye creates an n x n identity matrix.
func Eye[B Backend](backend B, n int) (*Tensor[B], error) {
	return tensor.Eye(backend, n)
}

// Full creates a tensor filled with value.
func Full[B Backend](backend B, shape Shape, value float32) (*Tensor[B], error) {
	return tensor.Full(backend, shape, value)
}

// Rand creates a tensor of uniform random values in [0, 1).
func Rand[B Backend](backend B, shape Shape) (*Tensor[B], error) {
	return tensor.Rand(backend, shape)
}

// Batched builds a rank-3 shape for a batch of rows x cols matrices.
func Batched(batch, rows, cols int) Shape {
	return tensor.Batched(batch, rows, cols)
}
