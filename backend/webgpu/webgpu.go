// Copyright 2025 The FerroFlow Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the GPU backend for tensor operations via WebGPU,
// which runs on Metal (macOS), Vulkan (Linux) and D3D12 (Windows) without
// CGO.
//
// Example:
//
//	gpu, err := webgpu.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gpu.Release()
//
//	a, err := tensor.New(gpu, tensor.Shape{64, 64}, data)
package webgpu

import (
	internalwebgpu "github.com/ferroflow-ml/ferroflow/internal/backend/webgpu"
	"github.com/ferroflow-ml/ferroflow/tensor"
)

// Backend is the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a WebGPU backend: it acquires a device, compiles the embedded
// kernel library and builds one compute pipeline per kernel. Call Release
// when done to free GPU resources. Fails with tensor.ErrInit when no
// compatible device exists or a pipeline cannot be created.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a WebGPU adapter is present, for graceful
// fallback to the CPU backend:
//
//	if webgpu.IsAvailable() {
//	    backend, err = webgpu.New()
//	} else {
//	    backend = cpu.New()
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
