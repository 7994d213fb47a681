// Package main provides ferrobench, a matrix-multiply benchmark for the
// FerroFlow compute backends.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ferroflow-ml/ferroflow"
	"github.com/ferroflow-ml/ferroflow/backend/cpu"
	"github.com/ferroflow-ml/ferroflow/backend/webgpu"
	"github.com/ferroflow-ml/ferroflow/tensor"
)

const version = "v0.1.0-dev"

var (
	backendName string
	size        int
	batch       int
	iterations  int
	warmup      int
	logLevel    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "ferrobench",
		Short:   "Benchmark FerroFlow matrix multiplication on a compute backend",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			ferroflow.InitLogging(logLevel)
			switch backendName {
			case "cpu":
				return runBench(cmd, cpu.New())
			case "webgpu":
				if !webgpu.IsAvailable() {
					return fmt.Errorf("webgpu backend is not available on this system")
				}
				backend, err := webgpu.New()
				if err != nil {
					return fmt.Errorf("creating webgpu backend: %w", err)
				}
				defer backend.Release()
				return runBench(cmd, backend)
			default:
				return fmt.Errorf("unknown backend %q (want cpu or webgpu)", backendName)
			}
		},
	}

	rootCmd.Flags().StringVar(&backendName, "backend", "cpu", "compute backend: cpu or webgpu")
	rootCmd.Flags().IntVar(&size, "size", 256, "square matrix dimension")
	rootCmd.Flags().IntVar(&batch, "batch", 1, "batch size (1 disables batching)")
	rootCmd.Flags().IntVar(&iterations, "iterations", 20, "timed iterations")
	rootCmd.Flags().IntVar(&warmup, "warmup", 3, "untimed warmup iterations")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runBench[B tensor.Backend](cmd *cobra.Command, backend B) error {
	shape := tensor.Shape{size, size}
	if batch > 1 {
		shape = tensor.Batched(batch, size, size)
	}

	a, err := tensor.Rand(backend, shape)
	if err != nil {
		return err
	}
	defer a.Release()
	b, err := tensor.Rand(backend, shape)
	if err != nil {
		return err
	}
	defer b.Release()

	cmd.Printf("Backend:    %s\n", backend.Name())
	cmd.Printf("Shape:      %v x %v\n", a.Shape(), b.Shape())
	cmd.Printf("Iterations: %d (+%d warmup)\n\n", iterations, warmup)

	for i := 0; i < warmup; i++ {
		out, err := a.MatMul(b)
		if err != nil {
			return err
		}
		out.Release()
	}

	start := time.Now()
	for i := 0; i < iterations; i++ {
		out, err := a.MatMul(b)
		if err != nil {
			return err
		}
		out.Release()
	}
	if err := backend.Synchronize(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	perOp := elapsed / time.Duration(iterations)
	flops := 2 * float64(batch) * float64(size) * float64(size) * float64(size)
	gflops := flops / perOp.Seconds() / 1e9

	cmd.Printf("Total:      %v\n", elapsed.Round(time.Microsecond))
	cmd.Printf("Per matmul: %v\n", perOp.Round(time.Microsecond))
	cmd.Printf("Throughput: %.2f GFLOP/s\n", gflops)
	return nil
}
