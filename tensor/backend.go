// Copyright 2025 The FerroFlow Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/ferroflow-ml/ferroflow/internal/tensor"

// Backend is the capability contract every execution backend satisfies: a
// backend value is the shared execution context for the tensors built on it
// and must not be mutated after construction.
//
// Implementations:
//   - backend/cpu: reference host implementation, synchronous loops
//   - backend/webgpu: GPU compute via WebGPU kernel pipelines
//
// The tensor engine validates all shapes before calling a backend; backend
// size checks are a defensive second gate, not the primary contract.
type Backend = tensor.Backend
