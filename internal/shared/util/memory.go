package util

import (
	"runtime"
	"runtime/debug"
)

// GetHeapAllocMB returns the current heap allocation in MB.
func GetHeapAllocMB() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc / 1024 / 1024
}

// GetUsedHeapRatio returns heap-in-use as a fraction of the effective heap
// ceiling. The ceiling is GOMEMLIMIT when one is set; otherwise the next GC
// goal stands in for it, which is close enough for a pressure-relief
// threshold check.
func GetUsedHeapRatio() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	limit := debug.SetMemoryLimit(-1)
	ceiling := uint64(0)
	if limit > 0 && limit < int64(^uint64(0)>>1) {
		ceiling = uint64(limit)
	}
	if ceiling == 0 || ceiling == ^uint64(0) {
		ceiling = m.NextGC
	}
	if ceiling == 0 {
		return 0
	}
	return float64(m.HeapAlloc) / float64(ceiling)
}
