// Package metrics accumulates raw runtime samples during a single test-suite
// execution and reduces them to an aggregated summary.
package metrics

import (
	"sync"
	"time"
)

// APICallSample records one observed API call.
type APICallSample struct {
	Timestamp time.Time     `json:"timestamp"`
	Endpoint  string        `json:"endpoint"`
	Duration  time.Duration `json:"duration"`
	Status    int           `json:"status"`
}

// CacheSample records one cache lookup.
type CacheSample struct {
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"key"`
	Hit       bool      `json:"hit"`
}

// MemorySample records heap usage at a point in time.
type MemorySample struct {
	Timestamp time.Time `json:"timestamp"`
	HeapBytes uint64    `json:"heapBytes"`
}

// RateLimitSample records the remaining quota observed on a rate-limited resource.
type RateLimitSample struct {
	Timestamp time.Time `json:"timestamp"`
	Resource  string    `json:"resource"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
}

// Samples is the raw sample export, for debugging.
type Samples struct {
	APICalls   []APICallSample   `json:"apiCalls"`
	Cache      []CacheSample     `json:"cache"`
	Memory     []MemorySample    `json:"memory"`
	RateLimits []RateLimitSample `json:"rateLimits"`
}

// APICallMetrics aggregates API call samples.
type APICallMetrics struct {
	Total           int            `json:"total"`
	ByEndpoint      map[string]int `json:"byEndpoint"`
	AverageDuration float64        `json:"averageDuration"` // milliseconds
	ErrorRate       float64        `json:"errorRate"`       // fraction of calls with status >= 400
}

// CacheMetrics aggregates cache samples.
type CacheMetrics struct {
	Hits    int     `json:"hits"`
	Misses  int     `json:"misses"`
	HitRate float64 `json:"hitRate"` // hits/(hits+misses), 0 when no samples
}

// MemoryMetrics aggregates memory samples.
type MemoryMetrics struct {
	Peak    uint64 `json:"peak"`
	Average uint64 `json:"average"`
	Growth  int64  `json:"growth"` // last sample minus first sample
}

// RateLimitMetrics aggregates rate limit samples.
type RateLimitMetrics struct {
	Triggered        bool `json:"triggered"` // true if any sample saw zero remaining quota
	MinimumRemaining int  `json:"minimumRemaining"`
}

// TestMetrics is the aggregated summary for one suite run. It is derived
// deterministically from the sample set and immutable once produced.
type TestMetrics struct {
	APICalls  APICallMetrics   `json:"apiCalls"`
	Cache     CacheMetrics     `json:"cache"`
	Memory    MemoryMetrics    `json:"memory"`
	RateLimit RateLimitMetrics `json:"rateLimit"`
}

// Collector buffers samples for the lifetime of one test run. All state is
// in-memory and scoped to one collector instance; callers must Reset before
// reusing a collector across independent suite runs.
type Collector struct {
	mu         sync.Mutex
	apiCalls   []APICallSample
	cache      []CacheSample
	memory     []MemorySample
	rateLimits []RateLimitSample
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) RecordAPICall(endpoint string, duration time.Duration, status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiCalls = append(c.apiCalls, APICallSample{
		Timestamp: time.Now(),
		Endpoint:  endpoint,
		Duration:  duration,
		Status:    status,
	})
}

func (c *Collector) RecordCacheHit(key string) {
	c.recordCacheEvent(key, true)
}

func (c *Collector) RecordCacheMiss(key string) {
	c.recordCacheEvent(key, false)
}

func (c *Collector) recordCacheEvent(key string, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = append(c.cache, CacheSample{Timestamp: time.Now(), Key: key, Hit: hit})
}

func (c *Collector) RecordMemoryUsage(heapBytes uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory = append(c.memory, MemorySample{Timestamp: time.Now(), HeapBytes: heapBytes})
}

func (c *Collector) RecordRateLimit(resource string, remaining int, limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rateLimits = append(c.rateLimits, RateLimitSample{
		Timestamp: time.Now(),
		Resource:  resource,
		Remaining: remaining,
		Limit:     limit,
	})
}

// Metrics reduces the accumulated samples to a TestMetrics. It is a pure
// reducer; calling it repeatedly without intervening records yields identical
// results.
func (c *Collector) Metrics() TestMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return TestMetrics{
		APICalls:  reduceAPICalls(c.apiCalls),
		Cache:     reduceCache(c.cache),
		Memory:    reduceMemory(c.memory),
		RateLimit: reduceRateLimits(c.rateLimits),
	}
}

// RawSamples returns a copy of the raw sample buffers, for debugging.
func (c *Collector) RawSamples() Samples {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Samples{
		APICalls:   append([]APICallSample(nil), c.apiCalls...),
		Cache:      append([]CacheSample(nil), c.cache...),
		Memory:     append([]MemorySample(nil), c.memory...),
		RateLimits: append([]RateLimitSample(nil), c.rateLimits...),
	}
}

// Reset clears all sample buffers so the collector can be reused for an
// independent suite run.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiCalls = nil
	c.cache = nil
	c.memory = nil
	c.rateLimits = nil
}

func reduceAPICalls(samples []APICallSample) APICallMetrics {
	m := APICallMetrics{
		Total:      len(samples),
		ByEndpoint: make(map[string]int),
	}
	if len(samples) == 0 {
		return m
	}
	var totalDuration time.Duration
	numErrors := 0
	for _, s := range samples {
		m.ByEndpoint[s.Endpoint]++
		totalDuration += s.Duration
		if s.Status >= 400 {
			numErrors++
		}
	}
	m.AverageDuration = float64(totalDuration.Milliseconds()) / float64(len(samples))
	m.ErrorRate = float64(numErrors) / float64(len(samples))
	return m
}

func reduceCache(samples []CacheSample) CacheMetrics {
	var m CacheMetrics
	for _, s := range samples {
		if s.Hit {
			m.Hits++
		} else {
			m.Misses++
		}
	}
	if total := m.Hits + m.Misses; total > 0 {
		m.HitRate = float64(m.Hits) / float64(total)
	}
	return m
}

func reduceMemory(samples []MemorySample) MemoryMetrics {
	var m MemoryMetrics
	if len(samples) == 0 {
		return m
	}
	var sum uint64
	for _, s := range samples {
		if s.HeapBytes > m.Peak {
			m.Peak = s.HeapBytes
		}
		sum += s.HeapBytes
	}
	m.Average = sum / uint64(len(samples))
	m.Growth = int64(samples[len(samples)-1].HeapBytes) - int64(samples[0].HeapBytes)
	return m
}

func reduceRateLimits(samples []RateLimitSample) RateLimitMetrics {
	var m RateLimitMetrics
	for i, s := range samples {
		if i == 0 || s.Remaining < m.MinimumRemaining {
			m.MinimumRemaining = s.Remaining
		}
		if s.Remaining == 0 {
			m.Triggered = true
		}
	}
	return m
}
