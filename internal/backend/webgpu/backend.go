// Package webgpu implements the GPU backend on WebGPU via go-webgpu
// (github.com/go-webgpu/webgpu), giving zero-CGO access to Metal, Vulkan and
// D3D12 devices through one API.
//
// The backend is the shared execution context for every tensor built on it:
// device, queue and the compiled kernel pipelines, all read-only after New.
// Each numeric operation encodes a single compute pass and submits it
// immediately; queue submission order is execution order, and reads block on
// a mapped staging buffer, so results are always observed complete.
package webgpu

import (
	"fmt"

	"github.com/ferroflow-ml/ferroflow/internal/logging"
	"github.com/ferroflow-ml/ferroflow/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

// Backend executes tensor kernels on a WebGPU device.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// One pipeline per kernel entry point, fixed at construction.
	pipelines map[string]*wgpu.ComputePipeline
	shader    *wgpu.ShaderModule

	adapterInfo *wgpu.AdapterInfoGo
}

// gpuBuffer is device-resident storage. The element count is recorded at
// allocation so reads size themselves from the buffer's own metadata.
type gpuBuffer struct {
	buf   *wgpu.Buffer
	elems int
}

func (g *gpuBuffer) NumElements() int { return g.elems }

// Release frees the device allocation.
func (g *gpuBuffer) Release() {
	if g.buf != nil {
		g.buf.Release()
		g.buf = nil
	}
}

// asDevice rejects buffers allocated by a different backend.
func asDevice(buf tensor.Buffer) (*gpuBuffer, error) {
	g, ok := buf.(*gpuBuffer)
	if !ok {
		return nil, fmt.Errorf("%w: buffer %T was not allocated by the WebGPU backend", tensor.ErrBuffer, buf)
	}
	return g, nil
}

// New creates a WebGPU backend: it acquires a device and queue, compiles the
// embedded kernel library once and instantiates one compute pipeline per
// kernel. Any failure, including a pipeline that cannot be created, aborts
// construction; the error wraps tensor.ErrInit and is not retryable.
func New() (backend *Backend, err error) {
	// The native library surfaces some failures as panics (and is absent
	// entirely on systems without wgpu_native).
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("%w: webgpu: %v", tensor.ErrInit, r)
		}
	}()

	instance, instErr := wgpu.CreateInstance(nil)
	if instErr != nil {
		return nil, fmt.Errorf("%w: webgpu: failed to create instance: %v", tensor.ErrInit, instErr)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu: no compatible adapter: %v", tensor.ErrInit, adapterErr)
	}

	adapterInfo, _ := adapter.GetInfo()

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu: failed to request device: %v", tensor.ErrInit, deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: webgpu: failed to get queue", tensor.ErrInit)
	}

	b := &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		pipelines:   make(map[string]*wgpu.ComputePipeline, len(kernelNames)),
		adapterInfo: adapterInfo,
	}

	// Compile the kernel library once, then one pipeline per entry point.
	b.shader = device.CreateShaderModuleWGSL(kernelSource)
	for _, name := range kernelNames {
		pipeline := device.CreateComputePipelineSimple(nil, b.shader, name)
		if pipeline == nil {
			b.Release()
			return nil, fmt.Errorf("%w: webgpu: failed to create pipeline for kernel %q", tensor.ErrInit, name)
		}
		b.pipelines[name] = pipeline
	}

	logging.Debugf("webgpu backend ready on %s", b.Name())
	return b, nil
}

// IsAvailable probes for a WebGPU adapter without building a full backend.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, instErr := wgpu.CreateInstance(nil)
	if instErr != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Synchronize waits for every previously submitted operation. Commands are
// submitted eagerly in order and reads block on the mapped staging buffer, so
// there is nothing left to drain here.
func (b *Backend) Synchronize() error {
	return nil
}

// Name returns the backend name with adapter details when known.
func (b *Backend) Name() string {
	if b.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", b.adapterInfo.Device, b.adapterInfo.Vendor)
	}
	return "WebGPU"
}

// Release frees all WebGPU resources. Buffers still held by tensors are not
// tracked here; release tensors first.
func (b *Backend) Release() {
	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil

	if b.shader != nil {
		b.shader.Release()
		b.shader = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
