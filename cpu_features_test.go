package mosaic

import (
	"strings"
	"testing"
)

func TestFeaturesReport(t *testing.T) {
	// Even on a machine with no detected extensions the report must say so.
	if s := Features().String(); s == "" {
		t.Error("empty feature report")
	}
}

func TestDeviceNameReflectsFeatures(t *testing.T) {
	name := GetDevice().Name
	if !strings.HasPrefix(name, "CPU") {
		t.Errorf("device name %q does not identify the CPU", name)
	}

	f := Features()
	if f.HasAVX512F && !strings.Contains(name, "AVX-512") {
		t.Errorf("AVX-512 detected but device name is %q", name)
	}
	if !f.HasAVX512F && f.HasAVX2 && !strings.Contains(name, "AVX2") {
		t.Errorf("AVX2 detected but device name is %q", name)
	}
}
