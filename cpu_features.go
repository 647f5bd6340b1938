package mosaic

import (
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUFeatures tracks the instruction set extensions available on the CPU
// backing the device.
type CPUFeatures struct {
	HasSSE4    bool
	HasAVX     bool
	HasAVX2    bool
	HasAVX512F bool
	HasFMA     bool
	HasNEON    bool
}

var cpuFeatures CPUFeatures

func init() {
	cpuFeatures = CPUFeatures{
		HasSSE4:    cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX:     cpu.X86.HasAVX,
		HasAVX2:    cpu.X86.HasAVX2,
		HasAVX512F: cpu.X86.HasAVX512F,
		HasFMA:     cpu.X86.HasFMA,
		HasNEON:    cpu.ARM64.HasASIMD,
	}
}

// Features returns the detected CPU features.
func Features() CPUFeatures {
	return cpuFeatures
}

// deviceName builds the device name reported by GetDevice, tagging the CPU
// with its widest available SIMD extension.
func deviceName() string {
	switch {
	case cpuFeatures.HasAVX512F:
		return "CPU (AVX-512)"
	case cpuFeatures.HasAVX2:
		return "CPU (AVX2)"
	case cpuFeatures.HasAVX:
		return "CPU (AVX)"
	case cpuFeatures.HasNEON:
		return "CPU (NEON)"
	case cpuFeatures.HasSSE4:
		return "CPU (SSE4)"
	default:
		return "CPU"
	}
}

// String lists the detected features for display.
func (f CPUFeatures) String() string {
	var features []string
	if f.HasSSE4 {
		features = append(features, "SSE4")
	}
	if f.HasAVX {
		features = append(features, "AVX")
	}
	if f.HasAVX2 {
		features = append(features, "AVX2")
	}
	if f.HasFMA {
		features = append(features, "FMA")
	}
	if f.HasAVX512F {
		features = append(features, "AVX512F")
	}
	if f.HasNEON {
		features = append(features, "NEON")
	}

	if len(features) == 0 {
		return "no SIMD extensions detected"
	}
	return strings.Join(features, ", ")
}
