package harness

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/BjornMelin/contribux-sub004/internal/harness/metrics"
)

// Watch runs the suite repeatedly on the configured interval and exposes the
// latest run's metrics over HTTP for scraping. It returns when ctx is done.
func (a *App) Watch(ctx context.Context) error {
	config := a.Params.Config

	// The registry is rebuilt after every run; scrapes always see the most
	// recent completed run.
	var handler atomic.Value
	handler.Store(http.Handler(promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})))

	mux := http.NewServeMux()
	mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.Load().(http.Handler).ServeHTTP(w, r)
	}))
	server := &http.Server{Addr: config.MetricsAddress, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	runOnce := func() {
		collector := metrics.NewCollector()
		result, err := a.newRunner(collector).Run(ctx)
		if err != nil {
			log.WithError(err).Error("watch cycle failed")
			return
		}
		registry := prometheus.NewRegistry()
		collector.ExportMetrics(registry)
		handler.Store(http.Handler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
		if !result.Success {
			log.Warn("watch cycle finished unsuccessfully")
		}
	}

	runOnce()
	ticker := time.NewTicker(config.WatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runOnce()
		}
	}
}
