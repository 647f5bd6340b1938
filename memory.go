package mosaic

import (
	"fmt"
	"sync"
	"unsafe"
)

// MemcpyKind specifies the direction of a memory transfer. The directions
// mirror the accelerator API; on the CPU every transfer is a plain copy,
// but examples and callers state their intent the same way they would
// against real device memory.
type MemcpyKind int

const (
	MemcpyHostToHost     MemcpyKind = iota // Host to host transfer
	MemcpyHostToDevice                     // Host to device transfer
	MemcpyDeviceToHost                     // Device to host transfer
	MemcpyDeviceToDevice                   // Device to device transfer
	MemcpyDefault                          // Infer direction from operands
)

// MemoryPool manages device allocations with a free list for reuse.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uintptr]*allocation
	freeList   []*allocation
	buffers    map[uintptr][]byte
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	ptr  unsafe.Pointer
	size int
	used bool
}

// NewMemoryPool creates an empty memory pool.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		allocated: make(map[uintptr]*allocation),
		buffers:   make(map[uintptr][]byte),
	}
}

// Malloc allocates device memory of the given size in bytes from the
// context's pool.
func (ctx *Context) Malloc(size int) (DevicePtr, error) {
	if size <= 0 {
		return DevicePtr{}, ErrInvalidSize
	}
	return ctx.memory.Allocate(size)
}

// Free releases device memory allocated by Malloc. The block is retained
// on the pool's free list for reuse.
func (ctx *Context) Free(ptr DevicePtr) error {
	return ctx.memory.Free(ptr)
}

// Memcpy copies size bytes between host slices and device pointers.
// dst and src each may be a DevicePtr, an unsafe.Pointer, or a slice of
// byte, float32, float64, or int32.
func (ctx *Context) Memcpy(dst, src interface{}, size int, kind MemcpyKind) error {
	dstPtr, err := transferPointer("Memcpy dst", dst)
	if err != nil {
		return err
	}
	srcPtr, err := transferPointer("Memcpy src", src)
	if err != nil {
		return err
	}

	if dstPtr != nil && srcPtr != nil && size > 0 {
		copy(unsafe.Slice((*byte)(dstPtr), size), unsafe.Slice((*byte)(srcPtr), size))
	}
	return nil
}

func transferPointer(op string, v interface{}) (unsafe.Pointer, error) {
	switch s := v.(type) {
	case DevicePtr:
		return s.ptr, nil
	case unsafe.Pointer:
		return s, nil
	case []byte:
		if len(s) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&s[0]), nil
	case []float32:
		if len(s) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&s[0]), nil
	case []float64:
		if len(s) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&s[0]), nil
	case []int32:
		if len(s) == 0 {
			return nil, nil
		}
		return unsafe.Pointer(&s[0]), nil
	default:
		return nil, NewInvalidArgError(op, fmt.Sprintf("unsupported operand type: %T", v))
	}
}

// Allocate hands out a block of at least size bytes, reusing a free block
// when one is large enough.
func (mp *MemoryPool) Allocate(size int) (DevicePtr, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alignedSize := (size + MemoryAlignment - 1) &^ (MemoryAlignment - 1)

	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.used = true

			mp.totalAlloc += int64(alloc.size)
			if mp.totalAlloc > mp.peakAlloc {
				mp.peakAlloc = mp.totalAlloc
			}

			return DevicePtr{ptr: alloc.ptr, size: size}, nil
		}
	}

	buf := make([]byte, alignedSize)
	ptr := unsafe.Pointer(&buf[0])

	alloc := &allocation{
		ptr:  ptr,
		size: alignedSize,
		used: true,
	}

	mp.allocated[uintptr(ptr)] = alloc
	// Keep the backing slice reachable for the lifetime of the pool.
	mp.buffers[uintptr(ptr)] = buf

	mp.totalAlloc += int64(alignedSize)
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}

	return DevicePtr{ptr: ptr, size: size}, nil
}

// Free returns a block to the pool's free list.
func (mp *MemoryPool) Free(ptr DevicePtr) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	if !ok {
		return NewMemoryError("Free", "pointer not found in allocation pool", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)
	return nil
}

// GetStats reports the currently allocated and peak byte counts.
func (mp *MemoryPool) GetStats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// Float32 returns a float32 slice view of the device memory.
//
// Example:
//
//	d_data, _ := mosaic.Malloc(1024 * 4) // room for 1024 float32s
//	data := d_data.Float32()
//	data[0] = 3.14
func (d DevicePtr) Float32() []float32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(d.ptr), d.size/4)
}

// Float64 returns a float64 slice view of the device memory.
func (d DevicePtr) Float64() []float64 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float64)(d.ptr), d.size/8)
}

// Int32 returns an int32 slice view of the device memory.
func (d DevicePtr) Int32() []int32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*int32)(d.ptr), d.size/4)
}

// Byte returns a byte slice view covering the whole region.
func (d DevicePtr) Byte() []byte {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(d.ptr), d.size)
}

// Offset returns a DevicePtr advanced by the given number of bytes into the
// same underlying region.
func (d DevicePtr) Offset(bytes int) DevicePtr {
	return DevicePtr{
		ptr:    unsafe.Add(d.ptr, bytes),
		size:   d.size - bytes,
		offset: d.offset + bytes,
	}
}

// Size returns the size in bytes of the region.
func (d DevicePtr) Size() int {
	return d.size
}
