package mosaic

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// Barrier is a reusable synchronization point for the threads of one
// cooperative block. Wait blocks until every party has arrived, then
// releases all of them; the barrier then resets for the next use.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	arrived    int
	generation int
}

// NewBarrier creates a barrier for the given number of parties.
func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks the caller until all parties have called Wait. No thread
// proceeds until the last one arrives; partial-group progress is not
// possible.
func (b *Barrier) Wait() {
	b.mu.Lock()
	gen := b.generation
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// SharedMem is the scratch arena shared by the threads of one block.
// It is allocated once per block at launch and reused across the kernel's
// loop iterations; coordinating reuse is the kernel's job, via Block.Sync.
type SharedMem struct {
	buf []byte
}

// Float32 returns a float32 view of the whole arena. Kernels carve their
// regions by slicing, e.g. tileA := s.Float32()[:n] and
// tileB := s.Float32()[n : 2*n].
func (s *SharedMem) Float32() []float32 {
	if len(s.buf) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&s.buf[0])), len(s.buf)/4)
}

// Bytes returns the raw arena.
func (s *SharedMem) Bytes() []byte {
	return s.buf
}

// Size returns the arena size in bytes.
func (s *SharedMem) Size() int {
	return len(s.buf)
}

// Block is the per-block handle passed to cooperative kernels. All threads
// of one block receive the same Block; threads of different blocks never
// share one. There is no inter-block synchronization.
type Block struct {
	dim     Dim3
	shared  SharedMem
	barrier *Barrier
}

// Sync barriers the threads of the block. Every thread must reach the same
// Sync call before any may continue; kernels that branch around a Sync
// deadlock, exactly as on real hardware.
func (b *Block) Sync() {
	b.barrier.Wait()
}

// Shared returns the block's scratch arena.
func (b *Block) Shared() *SharedMem {
	return &b.shared
}

// Dim returns the block dimensions.
func (b *Block) Dim() Dim3 {
	return b.dim
}

// Threads returns the number of threads in the block.
func (b *Block) Threads() int {
	return b.dim.Size()
}

// LaunchCooperativeStream executes a cooperative kernel on a specific
// stream. Each block of the grid runs its threads as goroutines sharing a
// sharedBytes scratch arena and a group barrier. Blocks are scheduled a
// bounded number at a time; blocks never synchronize with each other.
func (ctx *Context) LaunchCooperativeStream(
	fn CoopKernel,
	grid, block Dim3,
	sharedBytes int,
	stream *Stream,
	args ...interface{},
) error {
	blockSize := block.Size()
	if blockSize > MaxThreadsPerBlock {
		return NewInvalidArgError("LaunchCooperative",
			fmt.Sprintf("block size %d exceeds maximum %d", blockSize, MaxThreadsPerBlock))
	}
	if sharedBytes < 0 || sharedBytes > MaxSharedMemPerBlock {
		return NewInvalidArgError("LaunchCooperative",
			fmt.Sprintf("shared memory size %d outside [0, %d]", sharedBytes, MaxSharedMemPerBlock))
	}

	gridSize := grid.Size()
	if gridSize == 0 || blockSize == 0 {
		stream.Submit(func() {})
		return nil
	}

	stream.Submit(func() {
		var g errgroup.Group
		g.SetLimit(runtime.NumCPU())

		for blockID := 0; blockID < gridSize; blockID++ {
			blockIdx := linearTo3D(blockID, grid)

			g.Go(func() error {
				blk := &Block{
					dim:     block,
					shared:  SharedMem{buf: make([]byte, sharedBytes)},
					barrier: NewBarrier(blockSize),
				}

				var wg sync.WaitGroup
				wg.Add(blockSize)
				for threadID := 0; threadID < blockSize; threadID++ {
					tid := ThreadID{
						BlockIdx:  blockIdx,
						ThreadIdx: linearTo3D(threadID, block),
						BlockDim:  block,
						GridDim:   grid,
					}
					go func() {
						defer wg.Done()
						fn(tid, blk, args...)
					}()
				}
				wg.Wait()
				return nil
			})
		}
		g.Wait()
	})

	return nil
}
