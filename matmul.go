package mosaic

import "fmt"

// MatMul computes C = A × B for row-major float32 matrices resident in
// device memory, using the default tile size. A is aRows×aCols, B is
// aCols×bCols, C is aRows×bCols. All three dimensions must be exact
// multiples of the tile size; MatMul rejects the configuration before
// launching anything if they are not. Call Synchronize to wait for the
// result.
func MatMul(dA, dB, dC DevicePtr, aRows, aCols, bCols int) error {
	return MatMulTiled(dA, dB, dC, aRows, aCols, bCols, MatrixTileSize)
}

// MatMulTiled is MatMul with an explicit tile size.
//
// The kernel partitions C across a 2-D grid, one tileSize×tileSize block
// per output tile. Each block walks the shared dimension in tile steps:
// every thread loads one element of the current A tile and one of the
// current B tile into block scratch memory, the block barriers so all
// loads land before any read, each thread accumulates tileSize
// multiply-adds from the cached tiles into a private sum, and the block
// barriers again before the scratch is overwritten by the next step's
// loads. After the last step each thread writes its single output element.
//
// Caching the tiles means each input element is read from device memory
// once per tile instead of once per output element. The kernel performs no
// boundary masking; the divisibility precondition is enforced here, on the
// host side, instead.
func MatMulTiled(dA, dB, dC DevicePtr, aRows, aCols, bCols, tileSize int) error {
	if tileSize <= 0 {
		return NewInvalidArgError("MatMul", fmt.Sprintf("tile size must be positive, got %d", tileSize))
	}
	if aRows <= 0 || aCols <= 0 || bCols <= 0 {
		return NewInvalidArgError("MatMul",
			fmt.Sprintf("dimensions must be positive, got %d×%d × %d×%d", aRows, aCols, aCols, bCols))
	}
	for _, d := range []struct {
		name string
		n    int
	}{
		{"A rows", aRows},
		{"A cols", aCols},
		{"B cols", bCols},
	} {
		if d.n%tileSize != 0 {
			return NewInvalidArgError("MatMul",
				fmt.Sprintf("%s (%d) is not a multiple of the tile size (%d)", d.name, d.n, tileSize))
		}
	}
	if dA.Size() < aRows*aCols*4 || dB.Size() < aCols*bCols*4 || dC.Size() < aRows*bCols*4 {
		return NewMemoryError("MatMul", "device buffer smaller than matrix dimensions require", nil)
	}

	// Two tiles of scratch: one for A, one for B.
	sharedBytes := 2 * tileSize * tileSize * 4

	grid := Dim3{X: bCols / tileSize, Y: aRows / tileSize, Z: 1}
	block := Dim3{X: tileSize, Y: tileSize, Z: 1}
	steps := aCols / tileSize

	kernel := func(tid ThreadID, blk *Block, args ...interface{}) {
		a := dA.Float32()
		b := dB.Float32()
		c := dC.Float32()

		shared := blk.Shared().Float32()
		tileA := shared[:tileSize*tileSize]
		tileB := shared[tileSize*tileSize : 2*tileSize*tileSize]

		tx := tid.ThreadIdx.X
		ty := tid.ThreadIdx.Y
		row := tid.BlockIdx.Y*tileSize + ty
		col := tid.BlockIdx.X*tileSize + tx

		var sum float32
		for step := 0; step < steps; step++ {
			tileA[ty*tileSize+tx] = a[row*aCols+step*tileSize+tx]
			tileB[ty*tileSize+tx] = b[(step*tileSize+ty)*bCols+col]
			blk.Sync()

			for k := 0; k < tileSize; k++ {
				sum += tileA[ty*tileSize+k] * tileB[k*tileSize+tx]
			}
			blk.Sync()
		}

		c[row*bCols+col] = sum
	}

	return LaunchCooperative(kernel, grid, block, sharedBytes)
}

// MatMulRef is the scalar host reference: a straightforward triple loop
// used to validate kernel output in tests and examples.
func MatMulRef(a, b []float32, aRows, aCols, bCols int) []float32 {
	c := make([]float32, aRows*bCols)
	for i := 0; i < aRows; i++ {
		for j := 0; j < bCols; j++ {
			var sum float32
			for k := 0; k < aCols; k++ {
				sum += a[i*aCols+k] * b[k*bCols+j]
			}
			c[i*bCols+j] = sum
		}
	}
	return c
}
