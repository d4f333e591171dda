package common

import (
	"fmt"
	"runtime"
)

const mib = 1024 * 1024

// MemoryStats is a snapshot of the Go heap.
type MemoryStats struct {
	AllocBytes      uint64
	TotalAllocBytes uint64
	SysBytes        uint64
	NumGC           uint32
	Goroutines      int
}

// ReadMemoryStats captures the current runtime memory counters.
func ReadMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		SysBytes:        m.Sys,
		NumGC:           m.NumGC,
		Goroutines:      runtime.NumGoroutine(),
	}
}

// ToMB converts a byte count to MiB.
func ToMB(b uint64) float64 {
	return float64(b) / mib
}

// AllocatedSince returns bytes allocated between before and m. The cumulative
// counter never decreases, so the result is safe across GC cycles.
func (m MemoryStats) AllocatedSince(before MemoryStats) uint64 {
	if m.TotalAllocBytes < before.TotalAllocBytes {
		return 0
	}
	return m.TotalAllocBytes - before.TotalAllocBytes
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("alloc %.1f MB, total %.1f MB, sys %.1f MB, gc %d, goroutines %d",
		ToMB(m.AllocBytes), ToMB(m.TotalAllocBytes), ToMB(m.SysBytes), m.NumGC, m.Goroutines)
}
