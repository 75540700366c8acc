// # internal/program/memory.go
package program

import (
	"sync"

	"pyscope/internal/shared/observability"
	"pyscope/internal/shared/util"
)

// CacheManager shares cache-pressure accounting across Program instances,
// so a speculative clone's caches count against the same ceiling as the
// main program's.
type CacheManager struct {
	mu       sync.Mutex
	programs []*Program
	paused   int
}

func NewCacheManager() *CacheManager {
	return &CacheManager{}
}

func (cm *CacheManager) register(p *Program) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.programs = append(cm.programs, p)
}

func (cm *CacheManager) Unregister(p *Program) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for i, cur := range cm.programs {
		if cur == p {
			cm.programs = append(cm.programs[:i], cm.programs[i+1:]...)
			return
		}
	}
}

// GetCacheUsage totals evaluator entries and parsed files across every
// registered program. Returns zero while tracking is paused.
func (cm *CacheManager) GetCacheUsage() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.paused > 0 {
		return 0
	}
	total := 0
	for _, p := range cm.programs {
		total += p.eval.EntryCount() + p.parsedFileCount()
	}
	return total
}

// GetUsedHeapRatio reports process heap pressure.
func (cm *CacheManager) GetUsedHeapRatio() float64 {
	return util.GetUsedHeapRatio()
}

// PauseTracking suppresses cache accounting for the duration of a nested
// re-entrant check. The returned func resumes it; callers defer it.
func (cm *CacheManager) PauseTracking() func() {
	cm.mu.Lock()
	cm.paused++
	cm.mu.Unlock()
	return func() {
		cm.mu.Lock()
		cm.paused--
		cm.mu.Unlock()
	}
}

// EmptyCache forces every registered program to relieve memory pressure
// immediately.
func (cm *CacheManager) EmptyCache() {
	cm.mu.Lock()
	programs := append([]*Program(nil), cm.programs...)
	cm.mu.Unlock()
	for _, p := range programs {
		p.relieveMemoryPressure()
	}
}

func (p *Program) parsedFileCount() int {
	count := 0
	for _, fi := range p.files {
		if !fi.SourceFile.IsParseRequired() {
			count++
		}
	}
	return count
}

// handleMemoryHighUsage is the pressure-relief valve: when cache fullness
// crosses the high-water mark, consult actual heap usage; past the
// critical ratio, discard the evaluator and drop cached trees for files
// not currently needed. A deliberate policy action, not an error.
func (p *Program) handleMemoryHighUsage() {
	fullness := float64(p.cache.GetCacheUsage()) / float64(p.cfg.Tuning.MaxCacheEntries)
	observability.CacheFullness.Set(fullness)
	if fullness < p.cfg.Tuning.HeapHighWaterRatio {
		return
	}

	heapRatio := p.cache.GetUsedHeapRatio()
	p.logger.Info("cache high-water mark crossed",
		"fullness", fullness, "heap_ratio", heapRatio)
	if heapRatio < p.cfg.Tuning.HeapCriticalRatio {
		return
	}
	p.relieveMemoryPressure()
}

func (p *Program) relieveMemoryPressure() {
	p.resetEvaluator("memory_pressure")
	dropped := 0
	for _, fi := range p.files {
		if fi.IsOpenByClient {
			continue
		}
		fi.SourceFile.DropCachedTrees()
		dropped++
	}
	p.logger.Info("dropped cached trees under memory pressure", "files", dropped)
}
