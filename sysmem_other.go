//go:build !linux

package mosaic

// systemMemory returns total system memory in bytes. Platforms without a
// sysinfo call report a conservative default.
func systemMemory() uint64 {
	return defaultSystemMemory
}
