package metrics

import (
	"runtime"
	"sync"
	"time"
)

const defaultSampleInterval = 100 * time.Millisecond

// RuntimeCapabilities abstracts process-wide runtime hooks so the profiler can
// be tested without touching the real heap. ForceGC may be nil, in which case
// no collection is forced before sampling.
type RuntimeCapabilities struct {
	ForceGC  func()
	ReadHeap func() uint64
}

// DefaultRuntimeCapabilities reads the live Go heap and forces collection via
// runtime.GC.
func DefaultRuntimeCapabilities() RuntimeCapabilities {
	return RuntimeCapabilities{
		ForceGC: runtime.GC,
		ReadHeap: func() uint64 {
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			return memStats.HeapAlloc
		},
	}
}

// Profiler periodically records heap usage into a Collector while active.
// Sampling runs on its own goroutine and never blocks the caller.
type Profiler struct {
	collector *Collector
	caps      RuntimeCapabilities
	interval  time.Duration

	mu       sync.Mutex
	running  bool
	stop     chan struct{}
	done     chan struct{}
	baseline uint64
}

func NewProfiler(collector *Collector, caps RuntimeCapabilities, interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = defaultSampleInterval
	}
	return &Profiler{
		collector: collector,
		caps:      caps,
		interval:  interval,
	}
}

// Start forces a collection (if the runtime exposes that capability), records
// a baseline sample, and begins periodic sampling. Starting an already running
// profiler is a no-op.
func (p *Profiler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	if p.caps.ForceGC != nil {
		p.caps.ForceGC()
	}
	p.baseline = p.caps.ReadHeap()
	p.collector.RecordMemoryUsage(p.baseline)

	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.running = true
	go p.sampleLoop(p.stop, p.done)
}

func (p *Profiler) sampleLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.collector.RecordMemoryUsage(p.caps.ReadHeap())
		}
	}
}

// Stop cancels the sampling loop and waits for it to exit. Calling Stop twice,
// or before Start, is a no-op.
func (p *Profiler) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	done := p.done
	p.mu.Unlock()
	<-done
}

// MeasureAfterGC forces a fresh collection, records the resulting heap usage,
// and returns the growth in bytes relative to the baseline recorded by Start.
// Used to detect genuine retained-memory growth versus transient allocation.
func (p *Profiler) MeasureAfterGC() int64 {
	if p.caps.ForceGC != nil {
		p.caps.ForceGC()
	}
	heap := p.caps.ReadHeap()
	p.collector.RecordMemoryUsage(heap)

	p.mu.Lock()
	defer p.mu.Unlock()
	return int64(heap) - int64(p.baseline)
}
