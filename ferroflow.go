// Copyright 2025 The FerroFlow Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ferroflow is a tensor-compute engine with interchangeable CPU and
// WebGPU execution backends behind one generic tensor type. See the tensor
// package for the engine API and backend/cpu and backend/webgpu for the
// backends.
package ferroflow

import "github.com/ferroflow-ml/ferroflow/internal/logging"

// InitLogging configures the library's logger at the given level
// ("debug", "info", "warn", "error"). Without it the library logs at info.
func InitLogging(level string) {
	logging.Init(level)
}
