package mosaic

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Device represents a compute device. In mosaic this is the CPU with its
// cores and memory, presented through the same interface an accelerator
// would use: a device ID, a name, and capacity figures.
type Device struct {
	ID         int    // Unique device identifier
	Name       string // Human-readable device name
	TotalMem   uint64 // Total device memory in bytes
	NumCores   int    // Number of CPU cores backing the device
	MaxThreads int    // Maximum threads per cooperative block
}

// Context manages device resources: memory allocations and streams.
// A default context is created at init time; the package-level functions
// (Malloc, Memcpy, Launch, ...) operate on it.
type Context struct {
	device        *Device
	mu            sync.Mutex
	streams       map[int]*Stream
	streamID      int32
	memory        *MemoryPool
	defaultStream *Stream

	errMu    sync.Mutex
	asyncErr error // first kernel failure since the last Synchronize
}

// recordAsyncErr stores the first kernel failure; later ones are dropped
// until Synchronize reports and clears it.
func (ctx *Context) recordAsyncErr(err error) {
	ctx.errMu.Lock()
	if ctx.asyncErr == nil {
		ctx.asyncErr = err
	}
	ctx.errMu.Unlock()
}

// Stream is an ordered queue of device operations. Operations submitted to
// one stream execute in submission order; operations on different streams
// may overlap.
type Stream struct {
	id    int
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
}

// Dim3 holds 3-D grid or block dimensions, matching the dim3 launch
// parameters of CUDA and HIP.
type Dim3 struct {
	X, Y, Z int
}

// ThreadID identifies one thread's position in the launch hierarchy,
// providing the blockIdx/threadIdx/blockDim/gridDim quadruple.
type ThreadID struct {
	BlockIdx  Dim3 // Block index within the grid
	ThreadIdx Dim3 // Thread index within the block
	BlockDim  Dim3 // Dimensions of the block
	GridDim   Dim3 // Dimensions of the grid
}

// Kernel is a compute kernel executed once per thread of the launch.
// Implementations must be safe for concurrent calls.
type Kernel interface {
	Execute(tid ThreadID, args ...interface{})
}

// KernelFunc adapts a plain function to the Kernel interface.
type KernelFunc func(tid ThreadID, args ...interface{})

// CoopKernel is a kernel whose threads cooperate within their block through
// shared scratch memory and a group barrier. Each thread of a block runs
// concurrently; the Block argument is shared by exactly the threads of that
// block.
type CoopKernel func(tid ThreadID, blk *Block, args ...interface{})

// DevicePtr is a handle to device memory. Typed slice views
// (Float32, Float64, Int32, Byte) and Offset provide access; host data
// enters and leaves through Memcpy.
type DevicePtr struct {
	ptr    unsafe.Pointer
	size   int
	offset int
}

var (
	defaultDevice  *Device
	defaultContext *Context
	initOnce       sync.Once
)

func init() {
	initOnce.Do(func() {
		defaultDevice = &Device{
			ID:         0,
			Name:       deviceName(),
			TotalMem:   systemMemory(),
			NumCores:   runtime.NumCPU(),
			MaxThreads: MaxThreadsPerBlock,
		}

		defaultContext = &Context{
			device:  defaultDevice,
			streams: make(map[int]*Stream),
			memory:  NewMemoryPool(),
		}

		defaultContext.defaultStream = defaultContext.CreateStream()
	})
}

// Malloc allocates size bytes of device memory on the default context.
// The memory is aligned for SIMD access.
func Malloc(size int) (DevicePtr, error) {
	return defaultContext.Malloc(size)
}

// Free releases device memory allocated by Malloc.
func Free(ptr DevicePtr) error {
	return defaultContext.Free(ptr)
}

// Memcpy copies size bytes between host slices and device pointers in the
// direction given by kind. Transfers are synchronous: when Memcpy returns,
// the destination holds the data.
func Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	return defaultContext.Memcpy(dst, src, size, kind)
}

// Launch executes a kernel over a grid of blocks on the default stream.
// Threads within a block run sequentially; use LaunchCooperative for
// kernels that need barriers or shared scratch memory.
func Launch(kernel Kernel, grid, block Dim3, args ...interface{}) error {
	return defaultContext.Launch(kernel, grid, block, args...)
}

// LaunchFunc executes a kernel function on the default stream.
func LaunchFunc(fn KernelFunc, grid, block Dim3, args ...interface{}) error {
	return defaultContext.LaunchFunc(fn, grid, block, args...)
}

// LaunchCooperative executes a cooperative kernel on the default stream.
// Every thread of a block runs as its own goroutine; the threads share
// sharedBytes of scratch memory and may call Block.Sync to barrier.
func LaunchCooperative(fn CoopKernel, grid, block Dim3, sharedBytes int, args ...interface{}) error {
	return defaultContext.LaunchCooperative(fn, grid, block, sharedBytes, args...)
}

// NewStream creates an additional stream on the default context. Work on
// separate streams may overlap; Synchronize still drains all of them.
func NewStream() *Stream {
	return defaultContext.CreateStream()
}

// LaunchFuncStream executes a kernel function on a specific stream.
func LaunchFuncStream(fn KernelFunc, grid, block Dim3, stream *Stream, args ...interface{}) error {
	return defaultContext.LaunchStream(fn, grid, block, stream, args...)
}

// Synchronize blocks until all work on all streams has completed.
func Synchronize() error {
	return defaultContext.Synchronize()
}

// GetDevice returns the device backing the default context.
func GetDevice() *Device {
	return defaultDevice
}

// SetDevice selects the active device. Only device 0 exists.
func SetDevice(id int) error {
	if id != 0 {
		return ErrInvalidDevice
	}
	return nil
}

// GetDeviceCount reports the number of available devices, which is always 1.
func GetDeviceCount() int {
	return 1
}

// GetDeviceProperties returns the properties of the given device.
func GetDeviceProperties(id int) (*Device, error) {
	if id != 0 {
		return nil, NewInvalidArgError("GetDeviceProperties", fmt.Sprintf("invalid device ID: %d", id))
	}
	return defaultDevice, nil
}

// CreateStream creates a new stream and starts its worker.
func (ctx *Context) CreateStream() *Stream {
	id := int(atomic.AddInt32(&ctx.streamID, 1))
	stream := &Stream{
		id:    id,
		tasks: make(chan func(), 1000),
		done:  make(chan struct{}),
	}

	go stream.worker()

	ctx.mu.Lock()
	ctx.streams[id] = stream
	ctx.mu.Unlock()
	return stream
}

// Launch executes a kernel on the context's default stream.
func (ctx *Context) Launch(kernel Kernel, grid, block Dim3, args ...interface{}) error {
	return ctx.LaunchStream(kernel, grid, block, ctx.defaultStream, args...)
}

// LaunchFunc executes a kernel function on the context's default stream.
func (ctx *Context) LaunchFunc(fn KernelFunc, grid, block Dim3, args ...interface{}) error {
	return ctx.LaunchStream(fn, grid, block, ctx.defaultStream, args...)
}

// LaunchStream executes a kernel on a specific stream.
func (ctx *Context) LaunchStream(kernel Kernel, grid, block Dim3, stream *Stream, args ...interface{}) error {
	return ctx.launchFlat(kernel.Execute, grid, block, stream, args...)
}

// LaunchCooperative executes a cooperative kernel on the default stream.
func (ctx *Context) LaunchCooperative(fn CoopKernel, grid, block Dim3, sharedBytes int, args ...interface{}) error {
	return ctx.LaunchCooperativeStream(fn, grid, block, sharedBytes, ctx.defaultStream, args...)
}

// Synchronize waits for every stream of the context to drain. Kernel
// failures surface here rather than at launch; the stored error is cleared
// once reported.
func (ctx *Context) Synchronize() error {
	ctx.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, s := range ctx.streams {
		streams = append(streams, s)
	}
	ctx.mu.Unlock()

	for _, stream := range streams {
		stream.Synchronize()
	}

	ctx.errMu.Lock()
	err := ctx.asyncErr
	ctx.asyncErr = nil
	ctx.errMu.Unlock()
	return err
}

func (s *Stream) worker() {
	for task := range s.tasks {
		task()
		s.wg.Done()
	}
	close(s.done)
}

// Synchronize waits for all tasks submitted to the stream to complete.
func (s *Stream) Synchronize() {
	s.wg.Wait()
}

// Submit enqueues a task on the stream.
func (s *Stream) Submit(task func()) {
	s.wg.Add(1)
	s.tasks <- task
}

// Global returns the linear global thread index along X.
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalX returns the global X index.
func (tid ThreadID) GlobalX() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalY returns the global Y index.
func (tid ThreadID) GlobalY() int {
	return tid.BlockIdx.Y*tid.BlockDim.Y + tid.ThreadIdx.Y
}

// GlobalZ returns the global Z index.
func (tid ThreadID) GlobalZ() int {
	return tid.BlockIdx.Z*tid.BlockDim.Z + tid.ThreadIdx.Z
}

// Size returns the total number of elements covered by the dimensions.
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// Execute implements Kernel for KernelFunc.
func (fn KernelFunc) Execute(tid ThreadID, args ...interface{}) {
	fn(tid, args...)
}
