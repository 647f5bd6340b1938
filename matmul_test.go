package mosaic

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
)

func deviceMatrix(t testing.TB, data []float32) DevicePtr {
	t.Helper()
	d, err := Malloc(len(data) * 4)
	if err != nil {
		t.Fatalf("Malloc failed: %v", err)
	}
	if err := Memcpy(d, data, len(data)*4, MemcpyHostToDevice); err != nil {
		t.Fatalf("Memcpy failed: %v", err)
	}
	return d
}

func constantMatrix(n int, v float32) []float32 {
	m := make([]float32, n)
	for i := range m {
		m[i] = v
	}
	return m
}

func randomMatrix(n int, rng *rand.Rand) []float32 {
	m := make([]float32, n)
	for i := range m {
		m[i] = rng.Float32()*2 - 1
	}
	return m
}

// The kernel's product must match the scalar reference for assorted valid
// shapes, including non-square ones and multi-step tile walks.
func TestMatMulAgainstReference(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	cases := []struct {
		aRows, aCols, bCols, tile int
	}{
		{16, 16, 16, 16},
		{32, 16, 48, 16},
		{64, 128, 32, 16},
		{8, 8, 8, 4},
		{24, 48, 12, 4},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%dx%dx%d_tile%d", tc.aRows, tc.aCols, tc.bCols, tc.tile), func(t *testing.T) {
			h_A := randomMatrix(tc.aRows*tc.aCols, rng)
			h_B := randomMatrix(tc.aCols*tc.bCols, rng)

			d_A := deviceMatrix(t, h_A)
			d_B := deviceMatrix(t, h_B)
			d_C, _ := Malloc(tc.aRows * tc.bCols * 4)
			defer Free(d_A)
			defer Free(d_B)
			defer Free(d_C)

			if err := MatMulTiled(d_A, d_B, d_C, tc.aRows, tc.aCols, tc.bCols, tc.tile); err != nil {
				t.Fatalf("MatMulTiled failed: %v", err)
			}
			Synchronize()

			expected := MatMulRef(h_A, h_B, tc.aRows, tc.aCols, tc.bCols)
			h_C := make([]float32, tc.aRows*tc.bCols)
			Memcpy(h_C, d_C, len(h_C)*4, MemcpyDeviceToHost)

			result := VerifyFloat32Array(expected, h_C, DefaultTolerance())
			if !result.Ok() {
				t.Error(result)
			}
		})
	}
}

// A filled with 1.0 and B with a constant gives the closed-form product
// aCols*bValue in every cell.
func TestMatMulConstantInputs(t *testing.T) {
	const aRows, aCols, bCols = 64, 128, 32
	const bValue = 0.5

	d_A := deviceMatrix(t, constantMatrix(aRows*aCols, 1.0))
	d_B := deviceMatrix(t, constantMatrix(aCols*bCols, bValue))
	d_C, _ := Malloc(aRows * bCols * 4)
	defer Free(d_A)
	defer Free(d_B)
	defer Free(d_C)

	if err := MatMul(d_A, d_B, d_C, aRows, aCols, bCols); err != nil {
		t.Fatalf("MatMul failed: %v", err)
	}
	Synchronize()

	expected := float32(aCols) * bValue
	tol := DefaultTolerance()
	for i, v := range d_C.Float32()[:aRows*bCols] {
		if !Float32NearEqual(expected, v, tol) {
			t.Fatalf("element %d = %f, want %f", i, v, expected)
		}
	}
}

// 16×16 ones times 16×16 of 0.02 with a 16 tile: every element must be
// 0.32 within 0.001.
func TestMatMulSixteenBySixteen(t *testing.T) {
	const n = 16

	d_A := deviceMatrix(t, constantMatrix(n*n, 1.0))
	d_B := deviceMatrix(t, constantMatrix(n*n, 0.02))
	d_C, _ := Malloc(n * n * 4)
	defer Free(d_A)
	defer Free(d_B)
	defer Free(d_C)

	if err := MatMulTiled(d_A, d_B, d_C, n, n, n, 16); err != nil {
		t.Fatalf("MatMulTiled failed: %v", err)
	}
	Synchronize()

	for i, v := range d_C.Float32()[:n*n] {
		if math.Abs(float64(v)-0.32) > 0.001 {
			t.Fatalf("element %d = %f, want 0.32 ± 0.001", i, v)
		}
	}
}

// Dimensions not divisible by the tile size are rejected before any
// computation.
func TestMatMulRejectsIndivisibleDimensions(t *testing.T) {
	d_A, _ := Malloc(17 * 17 * 4)
	d_B, _ := Malloc(17 * 17 * 4)
	d_C, _ := Malloc(17 * 17 * 4)
	defer Free(d_A)
	defer Free(d_B)
	defer Free(d_C)

	// Poison C so any launch would be visible.
	c := d_C.Float32()
	for i := range c {
		c[i] = -1
	}

	err := MatMulTiled(d_A, d_B, d_C, 17, 17, 17, 16)
	if !IsInvalidArgError(err) {
		t.Fatalf("expected invalid argument error, got %v", err)
	}
	Synchronize()

	for i := range c {
		if c[i] != -1 {
			t.Fatalf("output written at %d despite rejected configuration", i)
		}
	}
}

func TestMatMulRejectsBadConfigs(t *testing.T) {
	d, _ := Malloc(64 * 64 * 4)
	defer Free(d)

	cases := []struct {
		name                      string
		aRows, aCols, bCols, tile int
	}{
		{"zero tile", 16, 16, 16, 0},
		{"negative rows", -16, 16, 16, 16},
		{"indivisible inner", 16, 24, 16, 16},
		{"indivisible outer", 24, 16, 16, 16},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := MatMulTiled(d, d, d, tc.aRows, tc.aCols, tc.bCols, tc.tile); !IsInvalidArgError(err) {
				t.Errorf("expected invalid argument error, got %v", err)
			}
		})
	}
}

func TestMatMulRejectsUndersizedBuffers(t *testing.T) {
	d_small, _ := Malloc(4)
	d_ok, _ := Malloc(16 * 16 * 4)
	defer Free(d_small)
	defer Free(d_ok)

	if err := MatMul(d_small, d_ok, d_ok, 16, 16, 16); !IsMemoryError(err) {
		t.Errorf("expected memory error for undersized A, got %v", err)
	}
}

// The kernel is deterministic: two runs over the same inputs produce
// bitwise-identical output.
func TestMatMulIdempotent(t *testing.T) {
	const aRows, aCols, bCols = 48, 64, 32

	rng := rand.New(rand.NewSource(7))
	d_A := deviceMatrix(t, randomMatrix(aRows*aCols, rng))
	d_B := deviceMatrix(t, randomMatrix(aCols*bCols, rng))
	d_C1, _ := Malloc(aRows * bCols * 4)
	d_C2, _ := Malloc(aRows * bCols * 4)
	defer Free(d_A)
	defer Free(d_B)
	defer Free(d_C1)
	defer Free(d_C2)

	if err := MatMul(d_A, d_B, d_C1, aRows, aCols, bCols); err != nil {
		t.Fatal(err)
	}
	Synchronize()
	if err := MatMul(d_A, d_B, d_C2, aRows, aCols, bCols); err != nil {
		t.Fatal(err)
	}
	Synchronize()

	c1 := d_C1.Float32()[:aRows*bCols]
	c2 := d_C2.Float32()[:aRows*bCols]
	for i := range c1 {
		if math.Float32bits(c1[i]) != math.Float32bits(c2[i]) {
			t.Fatalf("outputs differ at %d: %x vs %x", i, math.Float32bits(c1[i]), math.Float32bits(c2[i]))
		}
	}
}

// A tile covering the whole matrix (single block, single step) must still
// be correct.
func TestMatMulSingleTile(t *testing.T) {
	const n = 8

	rng := rand.New(rand.NewSource(3))
	h_A := randomMatrix(n*n, rng)
	h_B := randomMatrix(n*n, rng)

	d_A := deviceMatrix(t, h_A)
	d_B := deviceMatrix(t, h_B)
	d_C, _ := Malloc(n * n * 4)
	defer Free(d_A)
	defer Free(d_B)
	defer Free(d_C)

	if err := MatMulTiled(d_A, d_B, d_C, n, n, n, n); err != nil {
		t.Fatalf("MatMulTiled failed: %v", err)
	}
	Synchronize()

	expected := MatMulRef(h_A, h_B, n, n, n)
	h_C := make([]float32, n*n)
	Memcpy(h_C, d_C, len(h_C)*4, MemcpyDeviceToHost)

	result := VerifyFloat32Array(expected, h_C, DefaultTolerance())
	if !result.Ok() {
		t.Error(result)
	}
}

func BenchmarkMatMul(b *testing.B) {
	sizes := []int{64, 256, 512}

	for _, n := range sizes {
		b.Run(fmt.Sprintf("Size_%d", n), func(b *testing.B) {
			d_A := deviceMatrix(b, constantMatrix(n*n, 1.0))
			d_B := deviceMatrix(b, constantMatrix(n*n, 0.5))
			d_C, _ := Malloc(n * n * 4)
			defer Free(d_A)
			defer Free(d_B)
			defer Free(d_C)

			b.ResetTimer()
			b.SetBytes(int64(3 * n * n * 4))

			for i := 0; i < b.N; i++ {
				MatMul(d_A, d_B, d_C, n, n, n)
				Synchronize()
			}
		})
	}
}
