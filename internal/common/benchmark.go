// Package common holds the timing and allocation bookkeeping behind the
// bench command.
package common

import (
	"fmt"
	"runtime"
	"time"
)

// MemoryStats is the subset of runtime.MemStats a benchmark reports.
type MemoryStats struct {
	Alloc      uint64
	TotalAlloc uint64
	Sys        uint64
	Mallocs    uint64
	NumGC      uint32
}

// GetMemoryStats reads the current allocator counters.
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		Alloc:      m.Alloc,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		Mallocs:    m.Mallocs,
		NumGC:      m.NumGC,
	}
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("Alloc: %d KB, Total: %d KB, Sys: %d KB, GC: %d",
		m.Alloc/1024, m.TotalAlloc/1024, m.Sys/1024, m.NumGC)
}

// BenchmarkResult aggregates the iterations of one operation over a batch
// of Pairs box pairs. Iterations counts completed runs only.
type BenchmarkResult struct {
	Name         string
	Pairs        int
	Iterations   int
	Total        time.Duration
	Min          time.Duration
	Max          time.Duration
	MemoryBefore MemoryStats
	MemoryAfter  MemoryStats
	Error        error
}

// Run calls fn iterations times and times each call. The first error
// stops the run and is kept in the result.
func Run(name string, pairs, iterations int, fn func() error) BenchmarkResult {
	br := BenchmarkResult{Name: name, Pairs: pairs}
	br.MemoryBefore = GetMemoryStats()
	timer := NewTimer()
	for range iterations {
		timer.Restart()
		err := fn()
		d := timer.Stop()
		if err != nil {
			br.Error = err
			break
		}
		if br.Iterations == 0 || d < br.Min {
			br.Min = d
		}
		br.Max = max(br.Max, d)
		br.Total += d
		br.Iterations++
	}
	br.MemoryAfter = GetMemoryStats()
	return br
}

// Mean is the average duration of a completed iteration.
func (br BenchmarkResult) Mean() time.Duration {
	if br.Iterations == 0 {
		return 0
	}
	return br.Total / time.Duration(br.Iterations)
}

// PairsPerSecond is the throughput at the mean iteration time.
func (br BenchmarkResult) PairsPerSecond() float64 {
	mean := br.Mean()
	if mean <= 0 {
		return 0
	}
	return float64(br.Pairs) / mean.Seconds()
}

// BytesPerIteration is the heap allocated per iteration.
func (br BenchmarkResult) BytesPerIteration() float64 {
	if br.Iterations == 0 || br.MemoryAfter.TotalAlloc < br.MemoryBefore.TotalAlloc {
		return 0
	}
	return float64(br.MemoryAfter.TotalAlloc-br.MemoryBefore.TotalAlloc) / float64(br.Iterations)
}

// AllocsPerIteration is the number of heap objects allocated per iteration.
func (br BenchmarkResult) AllocsPerIteration() float64 {
	if br.Iterations == 0 || br.MemoryAfter.Mallocs < br.MemoryBefore.Mallocs {
		return 0
	}
	return float64(br.MemoryAfter.Mallocs-br.MemoryBefore.Mallocs) / float64(br.Iterations)
}

func (br BenchmarkResult) String() string {
	if br.Error != nil {
		return fmt.Sprintf("%s: ERROR - %v", br.Name, br.Error)
	}
	return fmt.Sprintf("%s: %d pairs, %d iterations, avg: %v, min: %v, max: %v, mem: %.0f B/iter",
		br.Name, br.Pairs, br.Iterations, br.Mean(), br.Min, br.Max, br.BytesPerIteration())
}
