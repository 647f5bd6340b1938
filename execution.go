package mosaic

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// launchFlat runs a kernel with sequential threads per block. Blocks are
// independent, so they are spread across a bounded set of workers; threads
// inside a block run back to back on one worker, which keeps a block's
// working set in that core's cache.
func (ctx *Context) launchFlat(
	kernelFunc func(ThreadID, ...interface{}),
	grid, block Dim3,
	stream *Stream,
	args ...interface{},
) error {
	gridSize := grid.Size()
	blockSize := block.Size()

	if gridSize == 0 || blockSize == 0 {
		// Submit an empty task to preserve stream ordering.
		stream.Submit(func() {})
		return nil
	}

	numWorkers := runtime.NumCPU()
	if gridSize < numWorkers {
		numWorkers = gridSize
	}
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	stream.Submit(func() {
		var g errgroup.Group
		for workerID := 0; workerID < numWorkers; workerID++ {
			startBlock := workerID * blocksPerWorker
			endBlock := min(startBlock+blocksPerWorker, gridSize)

			g.Go(func() error {
				// A panicking kernel aborts the worker's remaining
				// blocks; the failure surfaces from Synchronize.
				defer func() {
					if r := recover(); r != nil {
						ctx.recordAsyncErr(NewExecutionError("Launch",
							fmt.Sprintf("kernel panic: %v", r), nil))
					}
				}()

				for blockID := startBlock; blockID < endBlock; blockID++ {
					blockIdx := linearTo3D(blockID, grid)

					for threadID := 0; threadID < blockSize; threadID++ {
						tid := ThreadID{
							BlockIdx:  blockIdx,
							ThreadIdx: linearTo3D(threadID, block),
							BlockDim:  block,
							GridDim:   grid,
						}
						kernelFunc(tid, args...)
					}
				}
				return nil
			})
		}
		g.Wait()
	})

	return nil
}

// linearTo3D converts a linear index to 3-D coordinates within dim.
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}

// ForEach applies fn to each of the first size float32 elements of data in
// parallel.
func ForEach(data DevicePtr, size int, fn func(idx int, val *float32)) error {
	grid := Dim3{X: (size + DefaultBlockSize - 1) / DefaultBlockSize, Y: 1, Z: 1}
	block := Dim3{X: DefaultBlockSize, Y: 1, Z: 1}

	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		idx := tid.Global()
		if idx < size {
			slice := data.Float32()
			fn(idx, &slice[idx])
		}
	})

	return Launch(kernel, grid, block)
}

// Map writes fn(input[i]) to output[i] for the first size elements.
func Map(input, output DevicePtr, size int, fn func(float32) float32) error {
	grid := Dim3{X: (size + DefaultBlockSize - 1) / DefaultBlockSize, Y: 1, Z: 1}
	block := Dim3{X: DefaultBlockSize, Y: 1, Z: 1}

	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		idx := tid.Global()
		if idx < size {
			in := input.Float32()
			out := output.Float32()
			out[idx] = fn(in[idx])
		}
	})

	return Launch(kernel, grid, block)
}
