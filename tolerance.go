// Package mosaic tolerance-based verification for floating-point results
package mosaic

import (
	"fmt"
	"math"
)

// ToleranceConfig defines the acceptance band for comparing computed
// float32 results against expected values.
type ToleranceConfig struct {
	// AbsTol is the absolute tolerance for values near zero
	AbsTol float32

	// RelTol is the relative tolerance as a fraction of the larger value
	RelTol float32

	// ULPTol is the maximum allowed difference in ULPs
	ULPTol int
}

// DefaultTolerance returns the tolerance used by the examples when
// validating kernel output: a fixed absolute band wide enough for
// accumulated float32 dot products.
func DefaultTolerance() ToleranceConfig {
	return ToleranceConfig{
		AbsTol: MatMulTolerance,
		RelTol: 1e-5,
		ULPTol: 4,
	}
}

// StrictTolerance returns a tight tolerance for element-wise operations
// with no accumulation error.
func StrictTolerance() ToleranceConfig {
	return ToleranceConfig{
		AbsTol: 1e-7,
		RelTol: 1e-6,
		ULPTol: 1,
	}
}

// Float32NearEqual reports whether a and b agree within tol.
func Float32NearEqual(a, b float32, tol ToleranceConfig) bool {
	if a == b {
		return true
	}
	if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
		return false
	}

	diff := math.Abs(float64(a - b))
	if diff <= float64(tol.AbsTol) {
		return true
	}

	larger := math.Max(math.Abs(float64(a)), math.Abs(float64(b)))
	if diff <= larger*float64(tol.RelTol) {
		return true
	}

	if tol.ULPTol > 0 && Float32ULPDiff(a, b) <= tol.ULPTol {
		return true
	}
	return false
}

// Float32ULPDiff computes the difference in ULPs between two float32
// values of the same sign. Values of different signs report MaxInt32.
func Float32ULPDiff(a, b float32) int {
	aBits := math.Float32bits(a)
	bBits := math.Float32bits(b)

	if (aBits^bBits)&0x80000000 != 0 {
		return math.MaxInt32
	}

	if aBits > bBits {
		return int(aBits - bBits)
	}
	return int(bBits - aBits)
}

// VerificationResult aggregates the outcome of comparing two arrays.
type VerificationResult struct {
	MaxAbsError float32
	NumErrors   int
	TotalItems  int
	FirstError  int // Index of first error, -1 if none
}

// VerifyFloat32Array compares expected and actual element-wise and returns
// the aggregate mismatch count and worst error.
func VerifyFloat32Array(expected, actual []float32, tol ToleranceConfig) VerificationResult {
	result := VerificationResult{
		TotalItems: len(expected),
		FirstError: -1,
	}

	if len(expected) != len(actual) {
		result.NumErrors = len(expected)
		return result
	}

	for i := range expected {
		if !Float32NearEqual(expected[i], actual[i], tol) {
			result.NumErrors++
			if result.FirstError == -1 {
				result.FirstError = i
			}
			absDiff := float32(math.Abs(float64(expected[i] - actual[i])))
			if absDiff > result.MaxAbsError {
				result.MaxAbsError = absDiff
			}
		}
	}
	return result
}

// VerifyUniformFloat32 checks every element of actual against a single
// expected value, the shape validation takes when constant inputs give the
// product a closed form.
func VerifyUniformFloat32(actual []float32, expected float32, tol ToleranceConfig) VerificationResult {
	result := VerificationResult{
		TotalItems: len(actual),
		FirstError: -1,
	}

	for i, v := range actual {
		if !Float32NearEqual(expected, v, tol) {
			result.NumErrors++
			if result.FirstError == -1 {
				result.FirstError = i
			}
			absDiff := float32(math.Abs(float64(expected - v)))
			if absDiff > result.MaxAbsError {
				result.MaxAbsError = absDiff
			}
		}
	}
	return result
}

// Err converts a failed verification into a numerical error carrying the
// aggregate mismatch count as context. A clean result yields nil.
func (r VerificationResult) Err(op string) error {
	if r.Ok() {
		return nil
	}
	return NewNumericalError(op, r.String(), r.NumErrors)
}

// Ok reports whether no mismatches were found.
func (r VerificationResult) Ok() bool {
	return r.NumErrors == 0
}

// String formats the verification result for display.
func (r VerificationResult) String() string {
	if r.NumErrors == 0 {
		return "PASS: all values match within tolerance"
	}
	errorRate := float64(r.NumErrors) / float64(r.TotalItems) * 100
	return fmt.Sprintf("FAIL: %d/%d values differ (%.2f%%), max abs error %e, first at index %d",
		r.NumErrors, r.TotalItems, errorRate, r.MaxAbsError, r.FirstError)
}
