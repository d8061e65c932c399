package metrics

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRuntime returns capabilities backed by a settable heap value and a GC
// call counter.
func fakeRuntime(heap *uint64, gcCalls *int32) RuntimeCapabilities {
	return RuntimeCapabilities{
		ForceGC:  func() { atomic.AddInt32(gcCalls, 1) },
		ReadHeap: func() uint64 { return atomic.LoadUint64(heap) },
	}
}

func TestStartForcesGCAndRecordsBaseline(t *testing.T) {
	heap := uint64(1000)
	var gcCalls int32
	c := NewCollector()
	p := NewProfiler(c, fakeRuntime(&heap, &gcCalls), time.Hour)
	defer p.Stop()

	p.Start()
	assert.Equal(t, int32(1), atomic.LoadInt32(&gcCalls))

	samples := c.RawSamples()
	require.Len(t, samples.Memory, 1)
	assert.Equal(t, uint64(1000), samples.Memory[0].HeapBytes)
}

func TestStartTwiceIsNoOp(t *testing.T) {
	heap := uint64(1000)
	var gcCalls int32
	c := NewCollector()
	p := NewProfiler(c, fakeRuntime(&heap, &gcCalls), time.Hour)
	defer p.Stop()

	p.Start()
	p.Start()
	assert.Equal(t, int32(1), atomic.LoadInt32(&gcCalls))
	assert.Len(t, c.RawSamples().Memory, 1)
}

func TestStopIsIdempotent(t *testing.T) {
	heap := uint64(1000)
	var gcCalls int32
	c := NewCollector()
	p := NewProfiler(c, fakeRuntime(&heap, &gcCalls), time.Hour)

	// Stop before Start is a no-op.
	p.Stop()

	p.Start()
	p.Stop()
	p.Stop()
}

func TestPeriodicSampling(t *testing.T) {
	heap := uint64(1000)
	var gcCalls int32
	c := NewCollector()
	p := NewProfiler(c, fakeRuntime(&heap, &gcCalls), time.Millisecond)

	p.Start()
	atomic.StoreUint64(&heap, 4000)
	assert.Eventually(t, func() bool {
		samples := c.RawSamples()
		return len(samples.Memory) > 1 && samples.Memory[len(samples.Memory)-1].HeapBytes == 4000
	}, time.Second, time.Millisecond)
	p.Stop()

	// No further samples arrive after Stop.
	count := len(c.RawSamples().Memory)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, count, len(c.RawSamples().Memory))
}

func TestMeasureAfterGC(t *testing.T) {
	heap := uint64(1000)
	var gcCalls int32
	c := NewCollector()
	p := NewProfiler(c, fakeRuntime(&heap, &gcCalls), time.Hour)
	defer p.Stop()

	p.Start()
	atomic.StoreUint64(&heap, 3500)
	growth := p.MeasureAfterGC()
	assert.Equal(t, int64(2500), growth)
	assert.Equal(t, int32(2), atomic.LoadInt32(&gcCalls))

	atomic.StoreUint64(&heap, 400)
	assert.Equal(t, int64(-600), p.MeasureAfterGC())
}

func TestNilForceGCIsAllowed(t *testing.T) {
	heap := uint64(1000)
	c := NewCollector()
	caps := RuntimeCapabilities{ReadHeap: func() uint64 { return atomic.LoadUint64(&heap) }}
	p := NewProfiler(c, caps, time.Hour)
	defer p.Stop()

	p.Start()
	assert.Equal(t, int64(0), p.MeasureAfterGC())
}
