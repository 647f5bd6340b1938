// Package mosaic configuration constants
package mosaic

// Thread and block dimensions
const (
	// Default block size for flat element-wise kernels
	DefaultBlockSize = 256

	// Maximum threads per cooperative block
	MaxThreadsPerBlock = 1024

	// Maximum shared scratch memory per block in bytes
	MaxSharedMemPerBlock = 64 * 1024
)

// Matrix operation parameters
const (
	// MatrixTileSize is the default square tile edge for the tiled
	// matrix multiply. 16×16 float32 tiles for A and B together occupy
	// 2KB of scratch, comfortably inside a per-core L1 cache.
	MatrixTileSize = 16

	// MatMulTolerance is the absolute tolerance used when validating a
	// computed product against its closed-form or reference value.
	MatMulTolerance = 1e-3
)

// Memory pool parameters
const (
	// Memory alignment for allocations (cache line / SIMD width)
	MemoryAlignment = 64

	// defaultSystemMemory is reported when the platform offers no way to
	// query physical memory
	defaultSystemMemory = 16 * 1024 * 1024 * 1024
)
