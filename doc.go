// Package mosaic provides a CUDA/HIP-style accelerator programming model
// executed on the CPU. It exists so that the accompanying teaching examples
// (kernel launch syntax, shared memory and tiling, streams, cooperative
// groups, bandwidth measurement) can be written against a real device API:
// explicit device memory, directional host/device transfers, and kernels
// launched over a grid of thread blocks.
//
// Two launch paths are provided. Launch runs the threads of each block
// sequentially, which is sufficient for independent per-element kernels such
// as vector addition. LaunchCooperative runs each block's threads as
// goroutines sharing a scratch arena and a group barrier, which is what
// tiled algorithms need: the tiled matrix multiply loads sub-blocks of its
// inputs into shared scratch, barriers, accumulates, and barriers again
// before the scratch is reused for the next step.
package mosaic
