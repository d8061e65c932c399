package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ExportMetrics registers the current aggregated metrics on registry as
// gauges. Used by the watch command to expose suite metrics over HTTP.
func (c *Collector) ExportMetrics(registry *prometheus.Registry) {
	m := c.Metrics()

	apiCallsTotal := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "testharness_api_calls_total",
		Help: "Number of API calls recorded during the last suite run.",
	})
	apiCallsTotal.Set(float64(m.APICalls.Total))
	registry.MustRegister(apiCallsTotal)

	apiCallDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "testharness_api_call_duration_milliseconds",
		Help: "Average API call duration during the last suite run.",
	})
	apiCallDuration.Set(m.APICalls.AverageDuration)
	registry.MustRegister(apiCallDuration)

	apiErrorRate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "testharness_api_error_rate",
		Help: "Fraction of API calls that returned status >= 400.",
	})
	apiErrorRate.Set(m.APICalls.ErrorRate)
	registry.MustRegister(apiErrorRate)

	cacheHitRate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "testharness_cache_hit_rate",
		Help: "Cache hit rate during the last suite run.",
	})
	cacheHitRate.Set(m.Cache.HitRate)
	registry.MustRegister(cacheHitRate)

	memoryPeak := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "testharness_memory_peak_bytes",
		Help: "Peak heap usage observed during the last suite run.",
	})
	memoryPeak.Set(float64(m.Memory.Peak))
	registry.MustRegister(memoryPeak)

	rateLimitMinimum := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "testharness_rate_limit_minimum_remaining",
		Help: "Minimum remaining rate-limit quota observed during the last suite run.",
	})
	rateLimitMinimum.Set(float64(m.RateLimit.MinimumRemaining))
	registry.MustRegister(rateLimitMinimum)
}
