package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/ferroflow-ml/ferroflow/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
)

const bytesPerElement = 4 // float32

// Allocate creates a device buffer of size elements with shared (host
// visible) semantics, uploading data when given and zero-filling otherwise.
func (b *Backend) Allocate(size int, data []float32) (buf tensor.Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = fmt.Errorf("%w: webgpu: allocate: %v", tensor.ErrBuffer, r)
		}
	}()

	if data != nil && len(data) != size {
		return nil, fmt.Errorf("%w: data length %d doesn't match size %d", tensor.ErrBuffer, len(data), size)
	}

	// wgpu rejects zero-sized buffers; keep one element's worth of backing
	// storage and let the recorded element count stay authoritative.
	byteSize := uint64(size * bytesPerElement)
	if byteSize == 0 {
		byteSize = bytesPerElement
	}

	usage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	if data == nil || size == 0 {
		// WebGPU buffers are created zero-filled.
		buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Usage: usage,
			Size:  byteSize,
		})
		return &gpuBuffer{buf: buffer, elems: size}, nil
	}

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             byteSize,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, byteSize)
	mapped := unsafe.Slice((*byte)(mappedPtr), byteSize)
	copy(mapped, unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), byteSize))
	buffer.Unmap()

	return &gpuBuffer{buf: buffer, elems: size}, nil
}

// Read copies the full buffer contents back to the host through a staging
// buffer. The copy length comes from the buffer's own allocation metadata,
// never from externally tracked shape.
func (b *Backend) Read(buf tensor.Buffer) (out []float32, err error) {
	g, err := asDevice(buf)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: webgpu: read: %v", tensor.ErrBackend, r)
		}
	}()

	if g.elems == 0 {
		return []float32{}, nil
	}
	byteSize := uint64(g.elems * bytesPerElement)

	// Storage buffers can't be mapped directly; stage through a
	// MapRead|CopyDst buffer.
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  byteSize,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(g.buf, 0, staging, 0, byteSize)
	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	if mapErr := staging.MapAsync(b.device, wgpu.MapModeRead, 0, byteSize); mapErr != nil {
		return nil, fmt.Errorf("%w: webgpu: failed to map staging buffer: %v", tensor.ErrBackend, mapErr)
	}
	mappedPtr := staging.GetMappedRange(0, byteSize)
	mapped := unsafe.Slice((*byte)(mappedPtr), byteSize)

	result := make([]float32, g.elems)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&result[0])), byteSize), mapped)
	staging.Unmap()

	return result, nil
}

// output allocates a fresh result buffer for size elements.
func (b *Backend) output(size int) (*gpuBuffer, error) {
	buf, err := b.Allocate(size, nil)
	if err != nil {
		return nil, err
	}
	return buf.(*gpuBuffer), nil
}

// uniform creates a 16-byte-aligned uniform buffer holding the raw params
// block for a kernel. Returns the buffer and its aligned byte length.
func (b *Backend) uniform(params []byte) (*wgpu.Buffer, uint64) {
	size := uint64(len(params))
	alignedSize := (size + 15) &^ 15

	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	mapped := unsafe.Slice((*byte)(mappedPtr), alignedSize)
	copy(mapped, params)
	buffer.Unmap()

	return buffer, alignedSize
}

// submit encodes one compute pass for the named kernel, dispatches the given
// workgroup grid and blocks until the device has completed it.
func (b *Backend) submit(kernel string, entries []wgpu.BindGroupEntry, gx, gy, gz uint32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: webgpu: %s: %v", tensor.ErrBackend, kernel, r)
		}
	}()

	pipeline, ok := b.pipelines[kernel]
	if !ok {
		return fmt.Errorf("%w: webgpu: no pipeline for kernel %q", tensor.ErrBackend, kernel)
	}

	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	computePass.DispatchWorkgroups(gx, gy, gz)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	// Queue submission order is execution order, so later passes and the
	// blocking map in Read observe this pass's results.
	b.queue.Submit(cmdBuffer)
	return nil
}

func workgroups(n, size int) uint32 {
	return uint32((n + size - 1) / size)
}

// byteLen returns the binding size for a buffer (never zero; allocation
// keeps at least one element of backing storage).
func byteLen(g *gpuBuffer) uint64 {
	if g.elems == 0 {
		return bytesPerElement
	}
	return uint64(g.elems * bytesPerElement)
}

// Add computes element-wise a + b on the device.
func (b *Backend) Add(a, other tensor.Buffer, size int) (tensor.Buffer, error) {
	return b.runElementwise("element_wise_add", a, other, size)
}

// Multiply computes element-wise a * b on the device.
func (b *Backend) Multiply(a, other tensor.Buffer, size int) (tensor.Buffer, error) {
	return b.runElementwise("element_wise_multiply", a, other, size)
}

func (b *Backend) runElementwise(kernel string, a, other tensor.Buffer, size int) (tensor.Buffer, error) {
	ga, err := asDevice(a)
	if err != nil {
		return nil, err
	}
	gb, err := asDevice(other)
	if err != nil {
		return nil, err
	}
	if ga.elems != size || gb.elems != size {
		return nil, fmt.Errorf("%w: buffer sizes %d, %d don't match size %d", tensor.ErrBuffer, ga.elems, gb.elems, size)
	}

	result, err := b.output(size)
	if err != nil {
		return nil, err
	}

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(size))
	bufParams, paramsLen := b.uniform(params)
	defer bufParams.Release()

	err = b.submit(kernel, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, ga.buf, 0, byteLen(ga)),
		wgpu.BufferBindingEntry(1, gb.buf, 0, byteLen(gb)),
		wgpu.BufferBindingEntry(2, result.buf, 0, byteLen(result)),
		wgpu.BufferBindingEntry(3, bufParams, 0, paramsLen),
	}, workgroups(size, elementwiseWorkgroupSize), 1, 1)
	if err != nil {
		result.Release()
		return nil, err
	}
	return result, nil
}

// ScalarMultiply multiplies every element by scalar on the device.
func (b *Backend) ScalarMultiply(in tensor.Buffer, scalar float32, size int) (tensor.Buffer, error) {
	g, err := asDevice(in)
	if err != nil {
		return nil, err
	}
	if g.elems != size {
		return nil, fmt.Errorf("%w: buffer size %d doesn't match size %d", tensor.ErrBuffer, g.elems, size)
	}

	result, err := b.output(size)
	if err != nil {
		return nil, err
	}

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], math.Float32bits(scalar))
	binary.LittleEndian.PutUint32(params[4:8], uint32(size))
	bufParams, paramsLen := b.uniform(params)
	defer bufParams.Release()

	err = b.submit("scalar_multiply", []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, g.buf, 0, byteLen(g)),
		wgpu.BufferBindingEntry(1, result.buf, 0, byteLen(result)),
		wgpu.BufferBindingEntry(2, bufParams, 0, paramsLen),
	}, workgroups(size, elementwiseWorkgroupSize), 1, 1)
	if err != nil {
		result.Release()
		return nil, err
	}
	return result, nil
}

// useTiled selects the shared-memory kernel variant only once every
// dimension fills a full tile; below that the tiling overhead dominates.
func useTiled(m, n, k int) bool {
	return m >= tileSize && n >= tileSize && k >= tileSize
}

// MatMul computes an m x n product on the device, choosing between the
// naive and tiled kernel by operand size.
func (b *Backend) MatMul(a, other tensor.Buffer, m, n, k int) (tensor.Buffer, error) {
	kernel := "matmul"
	if useTiled(m, n, k) {
		kernel = "matmul_tiled"
	}

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	binary.LittleEndian.PutUint32(params[4:8], uint32(n))
	binary.LittleEndian.PutUint32(params[8:12], uint32(k))

	return b.runMatMul(kernel, a, other, m*n, params, workgroups(n, tileSize), workgroups(m, tileSize), 1)
}

// MatMulBatched computes batch independent products in one 3-D dispatch.
func (b *Backend) MatMulBatched(a, other tensor.Buffer, batch, m, n, k int) (tensor.Buffer, error) {
	kernel := "matmul_batched"
	if useTiled(m, n, k) {
		kernel = "matmul_batched_tiled"
	}

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	binary.LittleEndian.PutUint32(params[4:8], uint32(n))
	binary.LittleEndian.PutUint32(params[8:12], uint32(k))
	binary.LittleEndian.PutUint32(params[12:16], uint32(batch))

	return b.runMatMul(kernel, a, other, batch*m*n, params, workgroups(n, tileSize), workgroups(m, tileSize), uint32(batch))
}

// MatMulTransposed computes op(A) @ op(B) without materializing transposed
// copies; the flags travel to the kernel as u32 uniforms.
func (b *Backend) MatMulTransposed(a, other tensor.Buffer, m, n, k int, transposeA, transposeB bool) (tensor.Buffer, error) {
	kernel := "matmul_transposed"
	if useTiled(m, n, k) {
		kernel = "matmul_transposed_tiled"
	}

	params := make([]byte, 32)
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	binary.LittleEndian.PutUint32(params[4:8], uint32(n))
	binary.LittleEndian.PutUint32(params[8:12], uint32(k))
	binary.LittleEndian.PutUint32(params[12:16], boolToU32(transposeA))
	binary.LittleEndian.PutUint32(params[16:20], boolToU32(transposeB))

	return b.runMatMul(kernel, a, other, m*n, params, workgroups(n, tileSize), workgroups(m, tileSize), 1)
}

// MatMulTransposedBatched is the batched form of MatMulTransposed.
func (b *Backend) MatMulTransposedBatched(a, other tensor.Buffer, batch, m, n, k int, transposeA, transposeB bool) (tensor.Buffer, error) {
	kernel := "matmul_transposed_batched"
	if useTiled(m, n, k) {
		kernel = "matmul_transposed_batched_tiled"
	}

	params := make([]byte, 32)
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	binary.LittleEndian.PutUint32(params[4:8], uint32(n))
	binary.LittleEndian.PutUint32(params[8:12], uint32(k))
	binary.LittleEndian.PutUint32(params[12:16], uint32(batch))
	binary.LittleEndian.PutUint32(params[16:20], boolToU32(transposeA))
	binary.LittleEndian.PutUint32(params[20:24], boolToU32(transposeB))

	return b.runMatMul(kernel, a, other, batch*m*n, params, workgroups(n, tileSize), workgroups(m, tileSize), uint32(batch))
}

func (b *Backend) runMatMul(kernel string, a, other tensor.Buffer, outSize int, params []byte, gx, gy, gz uint32) (tensor.Buffer, error) {
	ga, err := asDevice(a)
	if err != nil {
		return nil, err
	}
	gb, err := asDevice(other)
	if err != nil {
		return nil, err
	}

	result, err := b.output(outSize)
	if err != nil {
		return nil, err
	}

	bufParams, paramsLen := b.uniform(params)
	defer bufParams.Release()

	err = b.submit(kernel, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, ga.buf, 0, byteLen(ga)),
		wgpu.BufferBindingEntry(1, gb.buf, 0, byteLen(gb)),
		wgpu.BufferBindingEntry(2, result.buf, 0, byteLen(result)),
		wgpu.BufferBindingEntry(3, bufParams, 0, paramsLen),
	}, gx, gy, gz)
	if err != nil {
		result.Release()
		return nil, err
	}
	return result, nil
}

func boolToU32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
