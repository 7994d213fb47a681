package webgpu

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ferroflow-ml/ferroflow/internal/backend/cpu"
	"github.com/ferroflow-ml/ferroflow/internal/tensor"
)

// TestKernelLibraryComplete runs without a GPU: every pipeline the backend
// creates must have a matching entry point in the embedded library.
func TestKernelLibraryComplete(t *testing.T) {
	for _, name := range kernelNames {
		if !strings.Contains(kernelSource, "fn "+name+"(") {
			t.Errorf("kernel library is missing entry point %q", name)
		}
	}
}

func newBackend(t *testing.T) *Backend {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	backend, err := New()
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	t.Cleanup(backend.Release)
	return backend
}

func alloc(t *testing.T, b *Backend, data []float32) tensor.Buffer {
	t.Helper()
	buf, err := b.Allocate(len(data), data)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	return buf
}

func read(t *testing.T, b *Backend, buf tensor.Buffer) []float32 {
	t.Helper()
	out, err := b.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return out
}

func compareSlices(t *testing.T, expected, actual []float32, tolerance float32) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Fatalf("length mismatch: expected %d, got %d", len(expected), len(actual))
	}
	for i := range expected {
		diff := expected[i] - actual[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			t.Errorf("value mismatch at index %d: expected %f, got %f", i, expected[i], actual[i])
		}
	}
}

func TestAllocateReadRoundTrip(t *testing.T) {
	backend := newBackend(t)

	data := []float32{1.5, -2.5, 3.25, 0}
	buf := alloc(t, backend, data)
	if buf.NumElements() != 4 {
		t.Errorf("NumElements() = %d, want 4", buf.NumElements())
	}
	compareSlices(t, data, read(t, backend, buf), 0)

	// Zero-fill allocation.
	zeros, err := backend.Allocate(8, nil)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	compareSlices(t, make([]float32, 8), read(t, backend, zeros), 0)

	// Length mismatch is rejected before touching the device.
	if _, err := backend.Allocate(8, data); !errors.Is(err, tensor.ErrBuffer) {
		t.Errorf("Allocate with short data = %v, want ErrBuffer", err)
	}
}

func TestForeignBufferRejected(t *testing.T) {
	backend := newBackend(t)

	host := cpu.New()
	foreign, err := host.Allocate(4, []float32{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("cpu Allocate failed: %v", err)
	}
	if _, err := backend.Read(foreign); !errors.Is(err, tensor.ErrBuffer) {
		t.Errorf("Read(foreign) = %v, want ErrBuffer", err)
	}
}

func TestAdd(t *testing.T) {
	backend := newBackend(t)

	a := alloc(t, backend, []float32{1, 2, 3, 4})
	b := alloc(t, backend, []float32{5, 6, 7, 8})

	out, err := backend.Add(a, b, 4)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	compareSlices(t, []float32{6, 8, 10, 12}, read(t, backend, out), 1e-6)
}

func TestMultiply(t *testing.T) {
	backend := newBackend(t)

	a := alloc(t, backend, []float32{1, 2, 3, 4})
	b := alloc(t, backend, []float32{5, 6, 7, 8})

	out, err := backend.Multiply(a, b, 4)
	if err != nil {
		t.Fatalf("Multiply failed: %v", err)
	}
	compareSlices(t, []float32{5, 12, 21, 32}, read(t, backend, out), 1e-6)
}

func TestScalarMultiply(t *testing.T) {
	backend := newBackend(t)

	a := alloc(t, backend, []float32{1, 2, 3, 4})
	out, err := backend.ScalarMultiply(a, -1, 4)
	if err != nil {
		t.Fatalf("ScalarMultiply failed: %v", err)
	}
	compareSlices(t, []float32{-1, -2, -3, -4}, read(t, backend, out), 1e-6)
}

func TestMatMulSmall(t *testing.T) {
	backend := newBackend(t)

	// Below the tile threshold: exercises the naive kernel.
	a := alloc(t, backend, []float32{1, 2, 3, 4, 5, 6})    // 2x3
	b := alloc(t, backend, []float32{7, 8, 9, 10, 11, 12}) // 3x2

	out, err := backend.MatMul(a, b, 2, 2, 3)
	if err != nil {
		t.Fatalf("MatMul failed: %v", err)
	}
	compareSlices(t, []float32{58, 64, 139, 154}, read(t, backend, out), 1e-5)
}

// matchesCPU checks a GPU result buffer against the CPU reference backend
// running the same operation.
func matchesCPU(t *testing.T, gpuOut []float32, op func(ref *cpu.CPUBackend) (tensor.Buffer, error)) {
	t.Helper()
	ref := cpu.New()
	refBuf, err := op(ref)
	if err != nil {
		t.Fatalf("CPU reference failed: %v", err)
	}
	expected, err := ref.Read(refBuf)
	if err != nil {
		t.Fatalf("CPU Read failed: %v", err)
	}
	compareSlices(t, expected, gpuOut, 1e-5)
}

func testData(n int, seed float32) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i%13)*0.5 - seed
	}
	return data
}

func TestMatMulTiledMatchesCPU(t *testing.T) {
	backend := newBackend(t)

	// 20x24 @ 24x18: all dims at or above the tile size, and none a
	// multiple of it, so edge tiles are partially populated.
	const m, k, n = 20, 24, 18
	aData := testData(m*k, 2)
	bData := testData(k*n, 3)

	a := alloc(t, backend, aData)
	b := alloc(t, backend, bData)
	out, err := backend.MatMul(a, b, m, n, k)
	if err != nil {
		t.Fatalf("MatMul failed: %v", err)
	}

	matchesCPU(t, read(t, backend, out), func(ref *cpu.CPUBackend) (tensor.Buffer, error) {
		ra, _ := ref.Allocate(len(aData), aData)
		rb, _ := ref.Allocate(len(bData), bData)
		return ref.MatMul(ra, rb, m, n, k)
	})
}

func TestMatMulBatchedMatchesCPU(t *testing.T) {
	backend := newBackend(t)

	for _, tc := range []struct{ batch, m, k, n int }{
		{2, 3, 4, 5},    // naive batched kernel
		{3, 17, 16, 19}, // tiled batched kernel
	} {
		t.Run(fmt.Sprintf("%dx%dx%dx%d", tc.batch, tc.m, tc.k, tc.n), func(t *testing.T) {
			aData := testData(tc.batch*tc.m*tc.k, 1)
			bData := testData(tc.batch*tc.k*tc.n, 4)

			a := alloc(t, backend, aData)
			b := alloc(t, backend, bData)
			out, err := backend.MatMulBatched(a, b, tc.batch, tc.m, tc.n, tc.k)
			if err != nil {
				t.Fatalf("MatMulBatched failed: %v", err)
			}

			matchesCPU(t, read(t, backend, out), func(ref *cpu.CPUBackend) (tensor.Buffer, error) {
				ra, _ := ref.Allocate(len(aData), aData)
				rb, _ := ref.Allocate(len(bData), bData)
				return ref.MatMulBatched(ra, rb, tc.batch, tc.m, tc.n, tc.k)
			})
		})
	}
}

func TestMatMulTransposedMatchesCPU(t *testing.T) {
	backend := newBackend(t)

	for _, tc := range []struct {
		m, k, n int
		ta, tb  bool
	}{
		{2, 3, 2, true, false},
		{2, 3, 2, false, true},
		{4, 5, 6, true, true},
		{20, 24, 18, true, false}, // tiled transposed kernel
		{18, 20, 24, true, true},
	} {
		t.Run(fmt.Sprintf("m%d_k%d_n%d_ta%v_tb%v", tc.m, tc.k, tc.n, tc.ta, tc.tb), func(t *testing.T) {
			aData := testData(tc.m*tc.k, 2)
			bData := testData(tc.k*tc.n, 5)

			a := alloc(t, backend, aData)
			b := alloc(t, backend, bData)
			out, err := backend.MatMulTransposed(a, b, tc.m, tc.n, tc.k, tc.ta, tc.tb)
			if err != nil {
				t.Fatalf("MatMulTransposed failed: %v", err)
			}

			matchesCPU(t, read(t, backend, out), func(ref *cpu.CPUBackend) (tensor.Buffer, error) {
				ra, _ := ref.Allocate(len(aData), aData)
				rb, _ := ref.Allocate(len(bData), bData)
				return ref.MatMulTransposed(ra, rb, tc.m, tc.n, tc.k, tc.ta, tc.tb)
			})
		})
	}
}

func TestMatMulTransposedBatchedMatchesCPU(t *testing.T) {
	backend := newBackend(t)

	for _, tc := range []struct {
		batch, m, k, n int
		ta, tb         bool
	}{
		{2, 3, 4, 5, true, false},
		{2, 17, 16, 19, false, true}, // tiled path
	} {
		t.Run(fmt.Sprintf("b%d_ta%v_tb%v", tc.batch, tc.ta, tc.tb), func(t *testing.T) {
			aData := testData(tc.batch*tc.m*tc.k, 3)
			bData := testData(tc.batch*tc.k*tc.n, 1)

			a := alloc(t, backend, aData)
			b := alloc(t, backend, bData)
			out, err := backend.MatMulTransposedBatched(a, b, tc.batch, tc.m, tc.n, tc.k, tc.ta, tc.tb)
			if err != nil {
				t.Fatalf("MatMulTransposedBatched failed: %v", err)
			}

			matchesCPU(t, read(t, backend, out), func(ref *cpu.CPUBackend) (tensor.Buffer, error) {
				ra, _ := ref.Allocate(len(aData), aData)
				rb, _ := ref.Allocate(len(bData), bData)
				return ref.MatMulTransposedBatched(ra, rb, tc.batch, tc.m, tc.n, tc.k, tc.ta, tc.tb)
			})
		})
	}
}

func TestSynchronize(t *testing.T) {
	backend := newBackend(t)
	if err := backend.Synchronize(); err != nil {
		t.Errorf("Synchronize() = %v, want nil", err)
	}
}
