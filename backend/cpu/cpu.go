// Copyright 2025 The FerroFlow Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the reference CPU backend: plain host memory and
// nested loops, synchronous per call. It is the correctness baseline the
// GPU backend is verified against.
package cpu

import (
	internalcpu "github.com/ferroflow-ml/ferroflow/internal/backend/cpu"
	"github.com/ferroflow-ml/ferroflow/tensor"
)

// Backend is the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend. The backend is stateless; Release is a no-op.
func New() *Backend {
	return internalcpu.New()
}
